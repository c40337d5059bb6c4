package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qooa_telemetry_samples_ingested_total",
		Help: "Total sensor readings accepted and persisted.",
	})
	samplesInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qooa_telemetry_samples_invalid_total",
		Help: "Total sensor uploads rejected at validation.",
	})
	alertsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qooa_telemetry_alerts_fired_total",
		Help: "Quality alerts generated at ingest, by severity.",
	}, []string{"severity"})
)
