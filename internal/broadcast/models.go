package broadcast

import (
	"time"

	"gorm.io/datatypes"
)

// Broadcast states. This service only records notices; the fan-out worker
// that actually delivers them lives outside and reports back via counters.
const (
	StatusPending   = "pending"
	StatusSending   = "sending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Channels a notice can go out on.
const (
	ViaWhatsApp = "whatsapp"
	ViaEmail    = "email"
	ViaBoth     = "both"
)

// Model for the broadcasts table.
type Broadcast struct {
	ID             int64          `json:"id"             gorm:"column:id;primaryKey"`
	Message        string         `json:"message"        gorm:"column:message"`
	MessagePidgin  *string        `json:"messagePidgin,omitempty" gorm:"column:message_pidgin"`
	TargetMarket   *string        `json:"targetMarket,omitempty"  gorm:"column:target_market"` // nil = all markets
	TargetVendors  datatypes.JSON `json:"targetVendors,omitempty" gorm:"column:target_vendors"` // vendor refs, empty = all
	SentVia        string         `json:"sentVia"        gorm:"column:sent_via"`
	RecipientCount *int           `json:"recipientCount,omitempty" gorm:"column:recipient_count"`
	SuccessCount   *int           `json:"successCount,omitempty"   gorm:"column:success_count"`
	FailureCount   *int           `json:"failureCount,omitempty"   gorm:"column:failure_count"`
	Status         string         `json:"status"         gorm:"column:status;index"`
	SentBy         string         `json:"sentBy"         gorm:"column:sent_by"`
	ScheduledFor   *time.Time     `json:"scheduledFor,omitempty" gorm:"column:scheduled_for"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"  gorm:"column:completed_at"`
	CreatedAt      time.Time      `json:"createdAt"      gorm:"column:created_at"`
	UpdatedAt      time.Time      `json:"updatedAt"      gorm:"column:updated_at"`
}

func (Broadcast) TableName() string {
	return "broadcasts"
}

type CreateBroadcastRequest struct {
	Message       string     `json:"message"`
	MessagePidgin *string    `json:"messagePidgin,omitempty"`
	TargetMarket  *string    `json:"targetMarket,omitempty"`
	TargetVendors []string   `json:"targetVendors,omitempty"`
	SentVia       *string    `json:"sentVia,omitempty"`
	ScheduledFor  *time.Time `json:"scheduledFor,omitempty"`
}

type UpdateBroadcastStatusRequest struct {
	Status         string `json:"status"`
	RecipientCount *int   `json:"recipientCount,omitempty"`
	SuccessCount   *int   `json:"successCount,omitempty"`
	FailureCount   *int   `json:"failureCount,omitempty"`
}
