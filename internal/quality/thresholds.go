package quality

// AlertThresholds are the cut points used when generating alert records
// from a single reading. All comparisons are strict: a reading of exactly
// 28.0 C is not a warning.
type AlertThresholds struct {
	TempWarnC     float64 // warning above this
	TempCritC     float64 // critical above this
	GasWarnPpm    float64
	GasCritPpm    float64
	BatteryLowPct float64 // warning below this (no critical tier)
}

// StatusThresholds are the cut points used for the Green/Orange/Red
// classification shown on the dashboard and fed into the freshness score.
// These deliberately differ from AlertThresholds: the backend alerting
// bands and the dashboard display bands drifted apart in production and
// both are kept as independent contracts.
type StatusThresholds struct {
	TempGreenMinC   float64 // below this is too cold -> Orange
	TempGreenMaxC   float64
	TempOrangeMaxC  float64 // above this -> Red
	GasGreenMaxPpm  float64 // at or above -> Orange
	GasOrangeMaxPpm float64 // above this -> Red
	HumGreenMinPct  float64
	HumGreenMaxPct  float64
	HumOrangeMinPct float64 // below this -> Red
}

// Config bundles both threshold tables for an Evaluator.
type Config struct {
	Alert  AlertThresholds
	Status StatusThresholds
}

// DefaultAlertThresholds returns the production alerting cut points.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		TempWarnC:     28,
		TempCritC:     30,
		GasWarnPpm:    80,
		GasCritPpm:    100,
		BatteryLowPct: 20,
	}
}

// DefaultStatusThresholds returns the hardware-workflow display bands:
// Green 12-20 C / gas < 100 ppm / RH 85-95, Orange 21-27 C / 100-300 ppm /
// RH 70-84, Red above those.
func DefaultStatusThresholds() StatusThresholds {
	return StatusThresholds{
		TempGreenMinC:   12,
		TempGreenMaxC:   20,
		TempOrangeMaxC:  27,
		GasGreenMaxPpm:  100,
		GasOrangeMaxPpm: 300,
		HumGreenMinPct:  85,
		HumGreenMaxPct:  95,
		HumOrangeMinPct: 70,
	}
}

// DefaultConfig returns both default tables.
func DefaultConfig() Config {
	return Config{
		Alert:  DefaultAlertThresholds(),
		Status: DefaultStatusThresholds(),
	}
}
