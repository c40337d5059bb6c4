package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Ufidtech/Qooa-Logistic/internal/quality"
)

// Dispatcher is the outbound-notification boundary. The actual WhatsApp /
// email delivery lives outside this service; handlers only ever talk to
// this interface. Critical quality alerts are the sole telemetry-driven
// trigger; warning alerts stay on the dashboard.
type Dispatcher interface {
	DispatchQualityAlert(vendorRef, orderRef string, kind quality.AlertKind, severity quality.Severity)
	DispatchOrderConfirmation(vendorRef, orderRef string)
}

// LogDispatcher logs dispatches instead of delivering them, debouncing
// repeats per (order, kind, severity) so a sustained over-temperature run
// does not re-notify the vendor on every sample. The evaluator deliberately
// re-emits alerts for every qualifying sample; suppressing the resulting
// spam is this layer's job.
type LogDispatcher struct {
	logger *slog.Logger
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[debounceKey]time.Time
}

type debounceKey struct {
	orderRef string
	kind     quality.AlertKind
	severity quality.Severity
}

// NewLogDispatcher builds a LogDispatcher with the given debounce window.
// A window of zero disables debouncing.
func NewLogDispatcher(logger *slog.Logger, window time.Duration) *LogDispatcher {
	return &LogDispatcher{
		logger: logger,
		window: window,
		now:    time.Now,
		seen:   make(map[debounceKey]time.Time),
	}
}

func (d *LogDispatcher) DispatchQualityAlert(vendorRef, orderRef string, kind quality.AlertKind, severity quality.Severity) {
	if severity != quality.SeverityCritical {
		return
	}

	key := debounceKey{orderRef: orderRef, kind: kind, severity: severity}
	now := d.now()

	d.mu.Lock()
	last, ok := d.seen[key]
	if ok && d.window > 0 && now.Sub(last) < d.window {
		d.mu.Unlock()
		return
	}
	d.seen[key] = now
	d.mu.Unlock()

	d.logger.Warn("quality alert dispatched",
		"vendor", vendorRef,
		"order", orderRef,
		"kind", string(kind),
		"severity", string(severity),
	)
}

func (d *LogDispatcher) DispatchOrderConfirmation(vendorRef, orderRef string) {
	d.logger.Info("order confirmation dispatched",
		"vendor", vendorRef,
		"order", orderRef,
	)
}
