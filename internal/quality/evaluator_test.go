package quality

import (
	"reflect"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	e := NewDefaultEvaluator()

	tests := []struct {
		name     string
		temp     float64
		gas      float64
		humidity *float64
		want     Status
	}{
		{"optimal reading", 18, 50, Float(90), StatusGreen},
		{"green without humidity sensor", 15, 80, nil, StatusGreen},
		{"green at band edges", 20, 99, Float(85), StatusGreen},
		{"warm temperature", 24.8, 50, nil, StatusOrange},
		{"elevated gas", 18, 210, nil, StatusOrange},
		{"gas exactly at orange floor", 18, 100, nil, StatusOrange},
		{"humidity in warning band", 18, 50, Float(78), StatusOrange},
		{"too cold is orange not green", 8, 50, Float(90), StatusOrange},
		{"hot temperature dominates", 29.2, 50, Float(90), StatusRed},
		{"temperature just over red bound", 27.1, 50, nil, StatusRed},
		{"gas over red bound", 18, 320, Float(90), StatusRed},
		{"dried out load", 18, 50, Float(65), StatusRed},
		{"red dominates combined warnings", 29.2, 320, Float(76), StatusRed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Classify(tc.temp, tc.gas, tc.humidity)
			if got != tc.want {
				t.Fatalf("Classify(%v, %v, %v) = %s, want %s", tc.temp, tc.gas, tc.humidity, got, tc.want)
			}
		})
	}
}

// Worsening a single dimension while the others stay in the green band must
// never improve the status.
func TestClassifyMonotonicInTemperature(t *testing.T) {
	e := NewDefaultEvaluator()

	rank := map[Status]int{StatusGreen: 0, StatusOrange: 1, StatusRed: 2}
	prev := StatusGreen
	for temp := 12.0; temp <= 35.0; temp += 0.5 {
		got := e.Classify(temp, 50, Float(90))
		if rank[got] < rank[prev] {
			t.Fatalf("status improved from %s to %s as temperature rose to %v", prev, got, temp)
		}
		prev = got
	}
}

func TestClassifySampleMissingDimension(t *testing.T) {
	e := NewDefaultEvaluator()

	if _, err := e.ClassifySample(Sample{GasLevelPpm: Float(50)}); err != ErrMissingDimension {
		t.Fatalf("expected ErrMissingDimension without temperature, got %v", err)
	}
	if _, err := e.ClassifySample(Sample{TemperatureC: Float(18)}); err != ErrMissingDimension {
		t.Fatalf("expected ErrMissingDimension without gas, got %v", err)
	}

	status, err := e.ClassifySample(Sample{TemperatureC: Float(18), GasLevelPpm: Float(50)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusGreen {
		t.Fatalf("expected Green, got %s", status)
	}
}

func TestAlerts(t *testing.T) {
	e := NewDefaultEvaluator()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		sample     Sample
		wantKinds  []AlertKind
		wantSevers []Severity
	}{
		{
			name:   "clean reading",
			sample: Sample{TemperatureC: Float(18.5), GasLevelPpm: Float(52)},
		},
		{
			name:       "boundary values do not alert, just above warns",
			sample:     Sample{TemperatureC: Float(28.1), GasLevelPpm: Float(80)},
			wantKinds:  []AlertKind{AlertTemperature},
			wantSevers: []Severity{SeverityWarning},
		},
		{
			name:       "critical temperature and gas from one sample",
			sample:     Sample{TemperatureC: Float(30.5), GasLevelPpm: Float(120)},
			wantKinds:  []AlertKind{AlertTemperature, AlertGas},
			wantSevers: []Severity{SeverityCritical, SeverityCritical},
		},
		{
			name:       "warning tier",
			sample:     Sample{TemperatureC: Float(29), GasLevelPpm: Float(90)},
			wantKinds:  []AlertKind{AlertTemperature, AlertGas},
			wantSevers: []Severity{SeverityWarning, SeverityWarning},
		},
		{
			name:       "battery below floor",
			sample:     Sample{TemperatureC: Float(18), GasLevelPpm: Float(50), BatteryPct: Float(12)},
			wantKinds:  []AlertKind{AlertBattery},
			wantSevers: []Severity{SeverityWarning},
		},
		{
			name:   "absent battery never alerts",
			sample: Sample{TemperatureC: Float(18), GasLevelPpm: Float(50)},
		},
		{
			name:   "battery exactly at floor",
			sample: Sample{TemperatureC: Float(18), GasLevelPpm: Float(50), BatteryPct: Float(20)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			alerts := e.Alerts(tc.sample, now)
			if len(alerts) != len(tc.wantKinds) {
				t.Fatalf("got %d alerts %v, want %d", len(alerts), alerts, len(tc.wantKinds))
			}
			for i, a := range alerts {
				if a.Kind != tc.wantKinds[i] {
					t.Errorf("alert %d kind = %s, want %s", i, a.Kind, tc.wantKinds[i])
				}
				if a.Severity != tc.wantSevers[i] {
					t.Errorf("alert %d severity = %s, want %s", i, a.Severity, tc.wantSevers[i])
				}
				if a.TriggeredAt != now {
					t.Errorf("alert %d triggeredAt = %v, want %v", i, a.TriggeredAt, now)
				}
			}
		})
	}
}

// Alert generation is a pure projection of one sample: evaluating the same
// sample twice yields identical lists.
func TestAlertsDeterministic(t *testing.T) {
	e := NewDefaultEvaluator()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := Sample{TemperatureC: Float(31), GasLevelPpm: Float(150), BatteryPct: Float(10)}

	first := e.Alerts(s, now)
	second := e.Alerts(s, now)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("alert generation not deterministic:\n%v\n%v", first, second)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(first))
	}
}

func TestFreshnessScore(t *testing.T) {
	e := NewDefaultEvaluator()

	tests := []struct {
		name string
		agg  Aggregate
		want float64
	}{
		{"perfect transit", Aggregate{AvgTempC: 18, MaxGasPpm: 50, TransitDurationSecond: 3600}, 100},
		{"boundary values carry no penalty", Aggregate{AvgTempC: 28, MaxGasPpm: 80, TransitDurationSecond: 24 * 3600}, 100},
		{"warm average", Aggregate{AvgTempC: 30, MaxGasPpm: 50}, 90},
		{"hot average stacks flat penalty", Aggregate{AvgTempC: 34, MaxGasPpm: 50}, 50},
		{"gas penalty", Aggregate{AvgTempC: 18, MaxGasPpm: 100}, 90},
		{"gas over 120 stacks", Aggregate{AvgTempC: 18, MaxGasPpm: 140}, 40},
		{"long transit", Aggregate{AvgTempC: 18, MaxGasPpm: 50, TransitDurationSecond: 30 * 3600}, 88},
		{"floor clamps at zero", Aggregate{AvgTempC: 45, MaxGasPpm: 400, TransitDurationSecond: 96 * 3600}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := e.FreshnessScore(tc.agg)
			if got != tc.want {
				t.Fatalf("FreshnessScore(%+v) = %v, want %v", tc.agg, got, tc.want)
			}
		})
	}
}

func TestFreshnessScoreBounded(t *testing.T) {
	e := NewDefaultEvaluator()
	for _, agg := range []Aggregate{
		{},
		{AvgTempC: 100, MaxGasPpm: 10000, TransitDurationSecond: 1e7},
		{AvgTempC: -40},
		{TransitDurationSecond: 1e9},
	} {
		got := e.FreshnessScore(agg)
		if got < 0 || got > 100 {
			t.Fatalf("FreshnessScore(%+v) = %v, out of [0,100]", agg, got)
		}
	}
}

func TestSummarizeScenario(t *testing.T) {
	e := NewDefaultEvaluator()
	t0 := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)

	samples := []Sample{
		{TemperatureC: Float(18.5), GasLevelPpm: Float(52), RecordedAt: t0},
		{TemperatureC: Float(19.1), GasLevelPpm: Float(52), RecordedAt: t0.Add(9*time.Hour + 10*time.Minute)},
	}

	sum, skipped := e.Summarize(samples)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped samples: %v", skipped)
	}
	if sum == nil {
		t.Fatal("expected summary, got nil")
	}
	if sum.AvgTemperatureC != 18.8 {
		t.Errorf("avgTemp = %v, want 18.8", sum.AvgTemperatureC)
	}
	if sum.MaxGasLevelPpm != 52 {
		t.Errorf("maxGas = %v, want 52", sum.MaxGasLevelPpm)
	}
	if sum.TransitSeconds != 33000 {
		t.Errorf("transit = %v, want 33000", sum.TransitSeconds)
	}
	if sum.SampleCount != 2 {
		t.Errorf("sampleCount = %d, want 2", sum.SampleCount)
	}
	if sum.AlertCount != 0 {
		t.Errorf("alertCount = %d, want 0", sum.AlertCount)
	}
	if sum.FreshnessScore != 100 {
		t.Errorf("freshnessScore = %v, want 100", sum.FreshnessScore)
	}

	for _, s := range samples {
		status, err := e.ClassifySample(s)
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if status != StatusGreen {
			t.Errorf("expected Green sample, got %s", status)
		}
	}
}

func TestSummarizeSingleSample(t *testing.T) {
	e := NewDefaultEvaluator()
	now := time.Now()

	sum, _ := e.Summarize([]Sample{{TemperatureC: Float(20), GasLevelPpm: Float(40), RecordedAt: now}})
	if sum == nil {
		t.Fatal("expected summary")
	}
	if sum.TransitSeconds != 0 {
		t.Errorf("single sample transit = %v, want 0", sum.TransitSeconds)
	}
	if sum.AvgTemperatureC != 20 || sum.MinTemperatureC != 20 || sum.MaxTemperatureC != 20 {
		t.Errorf("temperature stats = %v/%v/%v, want 20 across", sum.AvgTemperatureC, sum.MinTemperatureC, sum.MaxTemperatureC)
	}
}

func TestSummarizeEmptyHistory(t *testing.T) {
	e := NewDefaultEvaluator()
	sum, skipped := e.Summarize(nil)
	if sum != nil {
		t.Fatalf("expected nil summary for empty history, got %+v", sum)
	}
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped list: %v", skipped)
	}
}

func TestSummarizeSkipsMalformedSamples(t *testing.T) {
	e := NewDefaultEvaluator()
	t0 := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)

	samples := []Sample{
		{TemperatureC: Float(18), GasLevelPpm: Float(50), RecordedAt: t0},
		{GasLevelPpm: Float(50), RecordedAt: t0.Add(time.Hour)}, // no temperature
		{TemperatureC: Float(20), GasLevelPpm: Float(60), RecordedAt: t0.Add(2 * time.Hour)},
	}

	sum, skipped := e.Summarize(samples)
	if sum == nil {
		t.Fatal("expected summary despite malformed sample")
	}
	if sum.SampleCount != 2 {
		t.Errorf("sampleCount = %d, want 2", sum.SampleCount)
	}
	if len(skipped) != 1 || skipped[0] != 1 {
		t.Errorf("skipped = %v, want [1]", skipped)
	}
	if sum.TransitSeconds != 7200 {
		t.Errorf("transit = %v, want 7200", sum.TransitSeconds)
	}
}

// Humidity means exclude samples without a humidity reading from both the
// numerator and the denominator.
func TestSummarizeHumidityDenominator(t *testing.T) {
	e := NewDefaultEvaluator()
	now := time.Now()

	samples := []Sample{
		{TemperatureC: Float(18), GasLevelPpm: Float(50), HumidityPct: Float(90), RecordedAt: now},
		{TemperatureC: Float(18), GasLevelPpm: Float(50), RecordedAt: now.Add(time.Minute)},
		{TemperatureC: Float(18), GasLevelPpm: Float(50), HumidityPct: Float(80), RecordedAt: now.Add(2 * time.Minute)},
	}

	sum, _ := e.Summarize(samples)
	if sum.AvgHumidityPct != 85 {
		t.Fatalf("avgHumidity = %v, want 85", sum.AvgHumidityPct)
	}
}

func TestSummarizeOutOfOrderArrival(t *testing.T) {
	e := NewDefaultEvaluator()
	t0 := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)

	// backlog resync: the chronologically-first sample arrives last
	samples := []Sample{
		{TemperatureC: Float(19), GasLevelPpm: Float(50), RecordedAt: t0.Add(4 * time.Hour)},
		{TemperatureC: Float(18), GasLevelPpm: Float(50), RecordedAt: t0},
	}

	sum, _ := e.Summarize(samples)
	if sum.TransitSeconds != 4*3600 {
		t.Fatalf("transit = %v, want %v", sum.TransitSeconds, 4*3600)
	}

	latest, ok := Latest(samples)
	if !ok || *latest.TemperatureC != 19 {
		t.Fatalf("Latest picked wrong sample: %+v", latest)
	}
}

func TestSummarizeClockAnomaly(t *testing.T) {
	e := NewDefaultEvaluator()

	// identical timestamps must not produce a negative or NaN transit
	now := time.Now()
	sum, _ := e.Summarize([]Sample{
		{TemperatureC: Float(18), GasLevelPpm: Float(50), RecordedAt: now},
		{TemperatureC: Float(18), GasLevelPpm: Float(50), RecordedAt: now},
	})
	if sum.TransitSeconds != 0 {
		t.Fatalf("transit = %v, want 0", sum.TransitSeconds)
	}
}

// One bad sample can be Red on the dashboard while its alert severities
// come from the alert table, which cuts at different points.
func TestStatusAndAlertTablesAreIndependent(t *testing.T) {
	e := NewDefaultEvaluator()
	s := Sample{TemperatureC: Float(29.2), GasLevelPpm: Float(320), HumidityPct: Float(76)}

	status, err := e.ClassifySample(s)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if status != StatusRed {
		t.Fatalf("status = %s, want Red", status)
	}

	alerts := e.Alerts(s, time.Now())
	if len(alerts) != 2 {
		t.Fatalf("expected temperature + gas alerts, got %v", alerts)
	}
	if alerts[0].Kind != AlertTemperature || alerts[0].Severity != SeverityWarning {
		t.Errorf("temperature alert = %+v, want warning (29.2 is under the 30 critical cut)", alerts[0])
	}
	if alerts[1].Kind != AlertGas || alerts[1].Severity != SeverityCritical {
		t.Errorf("gas alert = %+v, want critical", alerts[1])
	}
}

// Alternate threshold regimes are injected, not patched globally.
func TestCustomThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alert.TempWarnC = 10
	cfg.Alert.TempCritC = 15
	e := NewEvaluator(cfg)

	alerts := e.Alerts(Sample{TemperatureC: Float(12), GasLevelPpm: Float(10)}, time.Now())
	if len(alerts) != 1 || alerts[0].Severity != SeverityWarning {
		t.Fatalf("expected single warning under custom regime, got %v", alerts)
	}
}
