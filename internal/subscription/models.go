package subscription

import (
	"time"
)

// Subscription states.
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCancelled = "cancelled"
)

var deliveryDays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Model for the subscriptions table. No scheduler runs against these rows
// in this service; order generation happens elsewhere.
type Subscription struct {
	ID              int64      `json:"id"              gorm:"column:id;primaryKey"`
	VendorRef       string     `json:"vendorId"        gorm:"column:vendor_ref;index"`
	CrateQuantity   int        `json:"crateQuantity"   gorm:"column:crate_quantity"`
	Frequency       string     `json:"frequency"       gorm:"column:frequency"`     // weekday name, monday..saturday
	DeliveryTime    string     `json:"deliveryTime"    gorm:"column:delivery_time"` // morning / midday / afternoon
	Status          string     `json:"status"          gorm:"column:status"`
	StartDate       time.Time  `json:"startDate"       gorm:"column:start_date"`
	EndDate         *time.Time `json:"endDate,omitempty" gorm:"column:end_date"`
	NextOrderDate   *time.Time `json:"nextOrderDate,omitempty" gorm:"column:next_order_date"`
	LastOrderDate   *time.Time `json:"lastOrderDate,omitempty" gorm:"column:last_order_date"`
	OrdersGenerated int        `json:"ordersGenerated" gorm:"column:orders_generated"`
	CreatedAt       time.Time  `json:"createdAt"       gorm:"column:created_at"`
	UpdatedAt       time.Time  `json:"updatedAt"       gorm:"column:updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// ValidFrequency reports whether day names a deliverable weekday (no
// Sunday deliveries).
func ValidFrequency(day string) bool {
	_, ok := deliveryDays[day]
	return ok
}

// NextDeliveryDate returns the next occurrence of the subscription's
// weekday strictly after today: if today is the delivery day, the slot has
// already been planned, so the result is next week.
func NextDeliveryDate(frequency string, today time.Time) time.Time {
	target := deliveryDays[frequency]
	days := (int(target) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	next := today.AddDate(0, 0, days)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, next.Location())
}

type CreateSubscriptionRequest struct {
	CrateQuantity int    `json:"crateQuantity"`
	Frequency     string `json:"frequency"`
	DeliveryTime  string `json:"deliveryTime"`
}

type UpdateSubscriptionRequest struct {
	CrateQuantity *int    `json:"crateQuantity,omitempty"`
	Frequency     *string `json:"frequency,omitempty"`
	DeliveryTime  *string `json:"deliveryTime,omitempty"`
}
