package telemetry

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Ufidtech/Qooa-Logistic/internal/quality"
)

// Telemetry is one persisted sensor reading. Status and the alert payload
// are derived at ingest time and stored denormalized so dashboard queries
// never re-run the evaluator over history.
type Telemetry struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	OrderRef         string         `gorm:"size:32;index" json:"orderId"`
	TruckRef         string         `gorm:"size:32;index" json:"truckId"`
	TemperatureC     *float64       `json:"temperature"`
	HumidityPct      *float64       `json:"humidity"`
	GasLevelPpm      *float64       `json:"gasLevel"`
	BatteryPct       *float64       `json:"batteryLevel"`
	Latitude         *float64       `json:"latitude"`
	Longitude        *float64       `json:"longitude"`
	Status           string         `gorm:"size:16" json:"status"`
	Alerts           datatypes.JSON `json:"alerts"`
	AlertCount       int            `gorm:"default:0" json:"alertCount"`
	NetworkAvailable bool           `gorm:"default:true" json:"networkAvailable"`
	RecordedAt       time.Time      `gorm:"index" json:"recordedAt"`
	SyncedAt         time.Time      `json:"syncedAt"`
	CreatedAt        time.Time      `json:"createdAt"`
}

func (Telemetry) TableName() string {
	return "telemetry"
}

// toSample maps a stored row back onto the evaluator's input shape.
func (t *Telemetry) toSample() quality.Sample {
	s := quality.Sample{
		OrderRef:         t.OrderRef,
		TruckRef:         t.TruckRef,
		TemperatureC:     t.TemperatureC,
		HumidityPct:      t.HumidityPct,
		GasLevelPpm:      t.GasLevelPpm,
		BatteryPct:       t.BatteryPct,
		RecordedAt:       t.RecordedAt,
		NetworkAvailable: t.NetworkAvailable,
	}
	if t.Latitude != nil && t.Longitude != nil {
		s.Location = &quality.Location{Latitude: *t.Latitude, Longitude: *t.Longitude}
	}
	return s
}

func (t *Telemetry) decodeAlerts() []quality.Alert {
	if len(t.Alerts) == 0 {
		return nil
	}
	var alerts []quality.Alert
	if err := json.Unmarshal(t.Alerts, &alerts); err != nil {
		return nil
	}
	return alerts
}

// IngestRequest is the sensor upload payload. recordedAt is optional; a
// buffered reading that was captured offline carries its original capture
// time, a live one omits it and gets the server clock.
type IngestRequest struct {
	OrderRef         string   `json:"orderId" binding:"required"`
	TruckRef         string   `json:"truckId"`
	TemperatureC     *float64 `json:"temperature"`
	HumidityPct      *float64 `json:"humidity"`
	GasLevelPpm      *float64 `json:"gasLevel"`
	BatteryPct       *float64 `json:"batteryLevel"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	NetworkAvailable *bool    `json:"networkAvailable"`
	RecordedAt       *time.Time `json:"recordedAt"`
}

func loadHistory(db *gorm.DB, orderRef string) ([]Telemetry, error) {
	var rows []Telemetry
	err := db.Where("order_ref = ?", orderRef).Order("recorded_at").Find(&rows).Error
	return rows, err
}
