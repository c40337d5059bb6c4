package feedback

import (
	"time"

	"gorm.io/datatypes"
)

// Refund states.
const (
	RefundNone      = "none"
	RefundPending   = "pending"
	RefundApproved  = "approved"
	RefundRejected  = "rejected"
	RefundCompleted = "completed"
)

// DamagePhoto references an already-uploaded image; the upload itself goes
// through the object-storage collaborator, not this service.
type DamagePhoto struct {
	URL        string    `json:"url"`
	PublicID   string    `json:"publicId,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Model for the feedbacks table. One row per delivered order.
type Feedback struct {
	ID               int64          `json:"id"              gorm:"column:id;primaryKey"`
	OrderRef         string         `json:"orderId"         gorm:"column:order_ref;uniqueIndex"`
	VendorRef        string         `json:"vendorId"        gorm:"column:vendor_ref;index"`
	Rating           int            `json:"rating"          gorm:"column:rating"` // 1-5
	Comments         *string        `json:"comments,omitempty" gorm:"column:comments"`
	HasDamageReport  bool           `json:"hasDamageReport" gorm:"column:has_damage_report"`
	DamagePhotos     datatypes.JSON `json:"damagePhotos,omitempty" gorm:"column:damage_photos"`
	RefundAmount     *float64       `json:"refundAmount,omitempty" gorm:"column:refund_amount"`
	RefundStatus     string         `json:"refundStatus"    gorm:"column:refund_status"`
	RefundReason     *string        `json:"refundReason,omitempty" gorm:"column:refund_reason"`
	AdminResponse    *string        `json:"adminResponse,omitempty" gorm:"column:admin_response"`
	AdminRespondedAt *time.Time     `json:"adminRespondedAt,omitempty" gorm:"column:admin_responded_at"`
	CreatedAt        time.Time      `json:"createdAt"       gorm:"column:created_at"`
	UpdatedAt        time.Time      `json:"updatedAt"       gorm:"column:updated_at"`
}

func (Feedback) TableName() string {
	return "feedbacks"
}

type CreateFeedbackRequest struct {
	OrderRef     string        `json:"orderId"`
	Rating       int           `json:"rating"`
	Comments     *string       `json:"comments,omitempty"`
	DamagePhotos []DamagePhoto `json:"damagePhotos,omitempty"`
	RefundReason *string       `json:"refundReason,omitempty"`
}

type AdminRespondRequest struct {
	Response     string   `json:"response"`
	RefundStatus *string  `json:"refundStatus,omitempty"`
	RefundAmount *float64 `json:"refundAmount,omitempty"`
}
