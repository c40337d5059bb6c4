package quality

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Evaluator classifies readings and reduces shipment histories. It holds no
// state beyond its immutable threshold tables, performs no I/O, and is safe
// to share across goroutines.
type Evaluator struct {
	cfg Config
}

// NewEvaluator builds an Evaluator around the given threshold tables.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// NewDefaultEvaluator builds an Evaluator with the production tables.
func NewDefaultEvaluator() *Evaluator {
	return NewEvaluator(DefaultConfig())
}

// Alerts derives the alert list for one sample using the alert table. Each
// dimension is evaluated independently, so a single sample can carry
// simultaneous temperature and gas alerts. Nothing is deduplicated against
// prior samples; debouncing sustained conditions is the notifier's job.
func (e *Evaluator) Alerts(s Sample, now time.Time) []Alert {
	t := e.cfg.Alert
	var alerts []Alert

	if s.TemperatureC != nil {
		switch temp := *s.TemperatureC; {
		case temp > t.TempCritC:
			alerts = append(alerts, Alert{
				Kind:        AlertTemperature,
				Severity:    SeverityCritical,
				Message:     fmt.Sprintf("Temperature critically high: %.1f°C", temp),
				Value:       temp,
				TriggeredAt: now,
			})
		case temp > t.TempWarnC:
			alerts = append(alerts, Alert{
				Kind:        AlertTemperature,
				Severity:    SeverityWarning,
				Message:     fmt.Sprintf("Temperature elevated: %.1f°C", temp),
				Value:       temp,
				TriggeredAt: now,
			})
		}
	}

	if s.GasLevelPpm != nil {
		switch gas := *s.GasLevelPpm; {
		case gas > t.GasCritPpm:
			alerts = append(alerts, Alert{
				Kind:        AlertGas,
				Severity:    SeverityCritical,
				Message:     fmt.Sprintf("Gas level critical (fermentation): %.0f ppm", gas),
				Value:       gas,
				TriggeredAt: now,
			})
		case gas > t.GasWarnPpm:
			alerts = append(alerts, Alert{
				Kind:        AlertGas,
				Severity:    SeverityWarning,
				Message:     fmt.Sprintf("Gas level elevated: %.0f ppm", gas),
				Value:       gas,
				TriggeredAt: now,
			})
		}
	}

	// A missing battery reading never alerts; many trucks run wired units.
	if s.BatteryPct != nil && *s.BatteryPct < t.BatteryLowPct {
		alerts = append(alerts, Alert{
			Kind:        AlertBattery,
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("Battery low: %.0f%%", *s.BatteryPct),
			Value:       *s.BatteryPct,
			TriggeredAt: now,
		})
	}

	return alerts
}

// Classify maps a reading onto Green/Orange/Red using the status table.
// Red dominates Orange dominates Green: one out-of-range dimension
// downgrades the whole sample. Temperature below the Green floor is Orange,
// not Green: chilling injury is a failure mode of its own. Humidity is
// optional; when absent only temperature and gas decide.
func (e *Evaluator) Classify(tempC, gasPpm float64, humidityPct *float64) Status {
	t := e.cfg.Status

	if tempC > t.TempOrangeMaxC || gasPpm > t.GasOrangeMaxPpm {
		return StatusRed
	}
	if humidityPct != nil && *humidityPct < t.HumOrangeMinPct {
		return StatusRed
	}

	if tempC > t.TempGreenMaxC || tempC < t.TempGreenMinC {
		return StatusOrange
	}
	if gasPpm >= t.GasGreenMaxPpm {
		return StatusOrange
	}
	if humidityPct != nil && *humidityPct < t.HumGreenMinPct {
		return StatusOrange
	}

	return StatusGreen
}

// ClassifySample classifies a full sample, failing when the dimensions the
// classification needs are absent.
func (e *Evaluator) ClassifySample(s Sample) (Status, error) {
	if s.TemperatureC == nil || s.GasLevelPpm == nil {
		return "", ErrMissingDimension
	}
	return e.Classify(*s.TemperatureC, *s.GasLevelPpm, s.HumidityPct), nil
}

// FreshnessScore converts an aggregate snapshot into a 0-100 score.
// Penalties only apply strictly above their bounds, so an aggregate sitting
// exactly on every boundary scores 100. The score is monotonically
// non-increasing under worse conditions and always recomputed from scratch.
func (e *Evaluator) FreshnessScore(agg Aggregate) float64 {
	score := 100.0

	if agg.AvgTempC > 28 {
		score -= (agg.AvgTempC - 28) * 5
	}
	if agg.AvgTempC > 32 {
		score -= 20
	}

	if agg.MaxGasPpm > 80 {
		score -= (agg.MaxGasPpm - 80) * 0.5
	}
	if agg.MaxGasPpm > 120 {
		score -= 30
	}

	transitHours := agg.TransitDurationSecond / 3600
	if transitHours > 24 {
		score -= (transitHours - 24) * 2
	}

	return math.Max(0, math.Min(100, score))
}

// Summarize reduces a shipment's sample history into a Summary. Samples
// missing temperature or gas are skipped rather than failing the batch; the
// second return value lists their indexes. Transit duration sorts by
// RecordedAt because store-and-forward devices resync backlogs out of
// order; min/max/mean are order-independent anyway. A nil Summary means
// zero usable samples, which is a defined boundary, not an error.
func (e *Evaluator) Summarize(samples []Sample) (*Summary, []int) {
	var skipped []int
	var used []Sample
	for i, s := range samples {
		if s.TemperatureC == nil || s.GasLevelPpm == nil {
			skipped = append(skipped, i)
			continue
		}
		used = append(used, s)
	}
	if len(used) == 0 {
		return nil, skipped
	}

	sum := Summary{
		SampleCount:     len(used),
		MinTemperatureC: *used[0].TemperatureC,
		MaxTemperatureC: *used[0].TemperatureC,
	}

	var tempTotal, humTotal, batTotal float64
	var humCount, batCount int
	for _, s := range used {
		temp := *s.TemperatureC
		tempTotal += temp
		if temp < sum.MinTemperatureC {
			sum.MinTemperatureC = temp
		}
		if temp > sum.MaxTemperatureC {
			sum.MaxTemperatureC = temp
		}
		if gas := *s.GasLevelPpm; gas > sum.MaxGasLevelPpm {
			sum.MaxGasLevelPpm = gas
		}
		if s.HumidityPct != nil {
			humTotal += *s.HumidityPct
			humCount++
		}
		if s.BatteryPct != nil {
			batTotal += *s.BatteryPct
			batCount++
		}
		sum.AlertCount += len(e.Alerts(s, s.RecordedAt))
	}

	sum.AvgTemperatureC = round1(tempTotal / float64(len(used)))
	if humCount > 0 {
		sum.AvgHumidityPct = round1(humTotal / float64(humCount))
	}
	if batCount > 0 {
		sum.AvgBatteryPct = round1(batTotal / float64(batCount))
	}

	ordered := make([]Sample, len(used))
	copy(ordered, used)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
	})
	transit := ordered[len(ordered)-1].RecordedAt.Sub(ordered[0].RecordedAt).Seconds()
	if transit < 0 {
		// clock anomaly; a negative transit must not poison the score
		transit = 0
	}
	sum.TransitSeconds = transit

	sum.FreshnessScore = e.FreshnessScore(Aggregate{
		AvgTempC:              sum.AvgTemperatureC,
		MaxGasPpm:             sum.MaxGasLevelPpm,
		TransitDurationSecond: sum.TransitSeconds,
	})

	return &sum, skipped
}

// Latest returns the sample with the greatest RecordedAt, not the last one
// appended. False when the slice is empty.
func Latest(samples []Sample) (Sample, bool) {
	if len(samples) == 0 {
		return Sample{}, false
	}
	latest := samples[0]
	for _, s := range samples[1:] {
		if s.RecordedAt.After(latest.RecordedAt) {
			latest = s
		}
	}
	return latest, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
