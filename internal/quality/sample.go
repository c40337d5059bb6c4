package quality

import (
	"errors"
	"time"
)

// ErrMissingDimension is returned when a sample lacks a sensor dimension
// required for the requested classification. Values that are present but
// implausible are the input boundary's problem, not this package's.
var ErrMissingDimension = errors.New("sample is missing a required sensor dimension")

// Location is an optional lat/lon pair attached to a reading.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Sample is one timestamped sensor reading for a shipment. Temperature and
// gas carry presence flags because a classification without them is
// undefined; humidity and battery are genuinely optional hardware.
type Sample struct {
	OrderRef         string
	TruckRef         string
	TemperatureC     *float64
	HumidityPct      *float64
	GasLevelPpm      *float64
	BatteryPct       *float64
	Location         *Location
	RecordedAt       time.Time
	NetworkAvailable bool
}

// Severity of an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertKind identifies which sensor dimension tripped.
type AlertKind string

const (
	AlertTemperature AlertKind = "temperature"
	AlertGas         AlertKind = "gas"
	AlertHumidity    AlertKind = "humidity"
	AlertBattery     AlertKind = "battery"
)

// Alert is derived from exactly one sample. Alerts are never merged or
// carried across samples; every qualifying sample re-emits its own.
type Alert struct {
	Kind        AlertKind `json:"kind"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	Value       float64   `json:"value"`
	TriggeredAt time.Time `json:"triggeredAt"`
}

// Status is the tri-state dashboard classification.
type Status string

const (
	StatusGreen  Status = "Green"
	StatusOrange Status = "Orange"
	StatusRed    Status = "Red"
)

// Aggregate is the snapshot the freshness score derives from. The score is
// always recomputed from a fresh aggregate, never adjusted incrementally.
type Aggregate struct {
	AvgTempC              float64
	MaxGasPpm             float64
	TransitDurationSecond float64
}

// Summary reduces a shipment's full sample history. It is a view computed
// on demand, never independently mutated or stored.
type Summary struct {
	AvgTemperatureC float64
	MaxTemperatureC float64
	MinTemperatureC float64
	AvgHumidityPct  float64
	MaxGasLevelPpm  float64
	AvgBatteryPct   float64
	TransitSeconds  float64
	SampleCount     int
	AlertCount      int
	FreshnessScore  float64
}

// Float returns a pointer to v. Convenience for building samples.
func Float(v float64) *float64 {
	return &v
}
