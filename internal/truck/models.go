package truck

import "time"

// Model for the trucks table. Each truck carries one cold-chain sensor
// unit; the unit's external ID is what the MQTT bridge authenticates with.
type Truck struct {
	ID               int64     `json:"id"               gorm:"column:id;primaryKey"`
	TruckRef         string    `json:"truckId"          gorm:"column:truck_ref;uniqueIndex"`
	PlateNumber      string    `json:"plateNumber"      gorm:"column:plate_number"`
	DriverName       *string   `json:"driverName,omitempty"  gorm:"column:driver_name"`
	DriverPhone      *string   `json:"driverPhone,omitempty" gorm:"column:driver_phone"`
	DeviceExternalID *string   `json:"deviceExternalId,omitempty" gorm:"column:device_external_id"` // sensor unit IMEI
	SimNumber        *string   `json:"simNumber,omitempty"   gorm:"column:sim_number"`
	Active           bool      `json:"active"           gorm:"column:active"`
	CreatedAt        time.Time `json:"createdAt"        gorm:"column:created_at"`
	UpdatedAt        time.Time `json:"updatedAt"        gorm:"column:updated_at"`
}

func (Truck) TableName() string {
	return "trucks"
}

type CreateTruckRequest struct {
	TruckRef         string  `json:"truckId"`
	PlateNumber      string  `json:"plateNumber"`
	DriverName       *string `json:"driverName,omitempty"`
	DriverPhone      *string `json:"driverPhone,omitempty"`
	DeviceExternalID *string `json:"deviceExternalId,omitempty"`
	SimNumber        *string `json:"simNumber,omitempty"`
}

type UpdateTruckRequest struct {
	PlateNumber      *string `json:"plateNumber,omitempty"`
	DriverName       *string `json:"driverName,omitempty"`
	DriverPhone      *string `json:"driverPhone,omitempty"`
	DeviceExternalID *string `json:"deviceExternalId,omitempty"`
	SimNumber        *string `json:"simNumber,omitempty"`
	Active           *bool   `json:"active,omitempty"`
}
