package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Order lifecycle states.
const (
	StatusConfirmed      = "confirmed"
	StatusInTransit      = "in-transit"
	StatusAtHub          = "at-hub"
	StatusOutForDelivery = "out-for-delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
)

// Delivery windows a vendor can pick.
const (
	DeliveryMorning   = "morning"
	DeliveryMidday    = "midday"
	DeliveryAfternoon = "afternoon"
)

// TrackingStage is one entry in the order's transit log, stored as a JSON
// array on the order row.
type TrackingStage struct {
	Stage     string    `json:"stage"`
	Location  string    `json:"location,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Completed bool      `json:"completed"`
}

// TelemetrySnapshot is the denormalized transit-quality aggregate kept on
// the order. The freshness score is always recomputed from the snapshot
// via the evaluator, never adjusted in place.
type TelemetrySnapshot struct {
	AvgTempC       *float64 `json:"avgTemp,omitempty"       gorm:"column:tel_avg_temp"`
	MaxTempC       *float64 `json:"maxTemp,omitempty"       gorm:"column:tel_max_temp"`
	MinTempC       *float64 `json:"minTemp,omitempty"       gorm:"column:tel_min_temp"`
	AvgHumidityPct *float64 `json:"avgHumidity,omitempty"   gorm:"column:tel_avg_humidity"`
	MaxGasPpm      *float64 `json:"maxGasLevel,omitempty"   gorm:"column:tel_max_gas"`
	FreshnessScore *float64 `json:"freshnessScore,omitempty" gorm:"column:tel_freshness_score"`
	TransitSeconds *float64 `json:"transitDuration,omitempty" gorm:"column:tel_transit_seconds"`
}

// Model for the orders table.
type Order struct {
	ID            int64           `json:"id"            gorm:"column:id;primaryKey"`
	OrderRef      string          `json:"orderId"       gorm:"column:order_ref;uniqueIndex"`
	VendorRef     string          `json:"vendorId"      gorm:"column:vendor_ref;index"`
	VendorName    string          `json:"vendorName"    gorm:"column:vendor_name"`
	MarketCluster string          `json:"marketCluster" gorm:"column:market_cluster"`
	StallNumber   string          `json:"stallNumber"   gorm:"column:stall_number"`
	CrateQuantity int             `json:"crateQuantity" gorm:"column:crate_quantity"`
	PricePerCrate decimal.Decimal `json:"pricePerCrate" gorm:"column:price_per_crate;type:numeric(12,2)"`
	TotalAmount   decimal.Decimal `json:"totalAmount"   gorm:"column:total_amount;type:numeric(14,2)"`
	DeliveryDate  time.Time       `json:"deliveryDate"  gorm:"column:delivery_date"`
	DeliveryTime  string          `json:"deliveryTime"  gorm:"column:delivery_time"`
	Status        string          `json:"status"        gorm:"column:status;index"`
	TruckRef      *string         `json:"truckId,omitempty"    gorm:"column:truck_ref"`
	DriverName    *string         `json:"driverName,omitempty" gorm:"column:driver_name"`
	DriverPhone   *string         `json:"driverPhone,omitempty" gorm:"column:driver_phone"`
	Stages        datatypes.JSON  `json:"trackingStages" gorm:"column:tracking_stages"`

	TelemetrySnapshot

	DeliveredAt        *time.Time `json:"deliveredAt,omitempty" gorm:"column:delivered_at"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty" gorm:"column:cancelled_at"`
	CancellationReason *string    `json:"cancellationReason,omitempty" gorm:"column:cancellation_reason"`
	CreatedAt          time.Time  `json:"createdAt"     gorm:"column:created_at"`
	UpdatedAt          time.Time  `json:"updatedAt"     gorm:"column:updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// GenerateOrderRef builds the public "ORD..." identifier.
func GenerateOrderRef(now time.Time) string {
	ms := fmt.Sprintf("%d", now.UnixMilli())
	return "ORD" + ms[len(ms)-8:]
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s string) bool {
	switch s {
	case StatusConfirmed, StatusInTransit, StatusAtHub, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// TrackingStages decodes the stored stage log.
func (o *Order) TrackingStages() ([]TrackingStage, error) {
	if len(o.Stages) == 0 {
		return nil, nil
	}
	var stages []TrackingStage
	if err := json.Unmarshal(o.Stages, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// AddTrackingStage appends a stage to the log and moves the order into
// that state.
func (o *Order) AddTrackingStage(stage, location, notes string, at time.Time) error {
	stages, err := o.TrackingStages()
	if err != nil {
		return err
	}
	stages = append(stages, TrackingStage{
		Stage:     stage,
		Location:  location,
		Notes:     notes,
		Timestamp: at,
		Completed: true,
	})
	raw, err := json.Marshal(stages)
	if err != nil {
		return err
	}
	o.Stages = datatypes.JSON(raw)
	o.Status = stage
	return nil
}

type CreateOrderRequest struct {
	CrateQuantity int       `json:"crateQuantity"`
	DeliveryDate  time.Time `json:"deliveryDate"`
	DeliveryTime  string    `json:"deliveryTime"`
}

type UpdateStatusRequest struct {
	Status   string  `json:"status"`
	Location *string `json:"location,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type UpdateTelemetryRequest struct {
	AvgTempC       *float64 `json:"avgTemp,omitempty"`
	MaxTempC       *float64 `json:"maxTemp,omitempty"`
	MinTempC       *float64 `json:"minTemp,omitempty"`
	AvgHumidityPct *float64 `json:"avgHumidity,omitempty"`
	MaxGasPpm      *float64 `json:"maxGasLevel,omitempty"`
	TransitSeconds *float64 `json:"transitDuration,omitempty"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type AssignTruckRequest struct {
	TruckRef    string  `json:"truckId"`
	DriverName  *string `json:"driverName,omitempty"`
	DriverPhone *string `json:"driverPhone,omitempty"`
}
