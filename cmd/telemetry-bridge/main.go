// telemetry-bridge subscribes to the cold-chain MQTT topic the truck
// sensor kits publish on and forwards each reading to the platform's
// HTTP ingest endpoint. Trucks in dead zones buffer readings locally and
// replay them on reconnect, so bursts well above the steady-state rate
// are normal and the bridge buffers them through a bounded queue.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/joho/godotenv"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

var (
	readingsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qooa_bridge_readings_received_total",
		Help: "Total MQTT messages received from sensor kits.",
	})
	readingsInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qooa_bridge_readings_invalid_total",
		Help: "Total messages dropped at validation before forwarding.",
	})
	forwardSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qooa_bridge_forward_success_total",
		Help: "Total readings accepted by the ingest endpoint.",
	})
	forwardFailure = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qooa_bridge_forward_failure_total",
		Help: "Total readings given up on after all retries.",
	})
	queueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qooa_bridge_queue_dropped_total",
		Help: "Total readings dropped because the queue was full.",
	})
)

type config struct {
	mqttBroker  string
	mqttTopic   string
	ingestURL   string
	deviceKey   string
	metricsAddr string
	queueSize   int
	workers     int
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		logger.Warn("invalid env var, using default", "key", key, "value", raw)
		return defaultVal
	}
	return v
}

func newConfig() config {
	return config{
		mqttBroker:  getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		mqttTopic:   getEnv("MQTT_TOPIC", "qooa/telemetry/#"),
		ingestURL:   getEnv("INGEST_URL", "http://localhost:8080/telemetry/data"),
		deviceKey:   os.Getenv("DEVICE_API_KEY"),
		metricsAddr: getEnv("METRICS_ADDR", ":9091"),
		queueSize:   getEnvInt("BRIDGE_QUEUE_SIZE", 1000),
		workers:     getEnvInt("BRIDGE_WORKERS", 8),
	}
}

// reading mirrors the ingest payload far enough to reject garbage before
// it costs an HTTP round trip. The API remains the authority on semantics.
type reading struct {
	OrderRef     string   `json:"orderId"`
	TemperatureC *float64 `json:"temperature"`
	GasLevelPpm  *float64 `json:"gasLevel"`
}

func (r reading) validate() error {
	if r.OrderRef == "" {
		return fmt.Errorf("orderId is required")
	}
	if r.TemperatureC == nil || r.GasLevelPpm == nil {
		return fmt.Errorf("temperature and gasLevel are required")
	}
	return nil
}

type bridge struct {
	cfg    config
	client *http.Client
	queue  chan []byte
}

func newBridge(cfg config) *bridge {
	return &bridge{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
		queue:  make(chan []byte, cfg.queueSize),
	}
}

// handler runs on paho's goroutine and must not block. The payload is
// copied because paho reuses its buffer.
func (b *bridge) handler() mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		readingsReceived.Inc()
		data := make([]byte, len(msg.Payload()))
		copy(data, msg.Payload())
		select {
		case b.queue <- data:
		default:
			queueDropped.Inc()
		}
	}
}

func (b *bridge) startWorkers(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < b.cfg.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for data := range b.queue {
				b.process(ctx, data)
			}
		}()
	}
	return &wg
}

func (b *bridge) process(ctx context.Context, data []byte) {
	var r reading
	if err := json.Unmarshal(data, &r); err != nil {
		readingsInvalid.Inc()
		logger.Warn("undecodable MQTT payload", "error", err)
		return
	}
	if err := r.validate(); err != nil {
		readingsInvalid.Inc()
		logger.Warn("invalid reading", "orderId", r.OrderRef, "error", err)
		return
	}

	if err := b.forward(ctx, data); err != nil {
		forwardFailure.Inc()
		logger.Error("forward failed", "orderId", r.OrderRef, "error", err)
		return
	}
	forwardSuccess.Inc()
}

const (
	maxAttempts = 4
	baseDelay   = 250 * time.Millisecond
)

// forward POSTs the reading to the ingest endpoint, retrying network
// errors and 5xx with exponential backoff. A 4xx means the payload
// itself is bad and retrying the same bytes cannot succeed.
func (b *bridge) forward(ctx context.Context, payload []byte) error {
	var lastErr error
	delay := baseDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.ingestURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if b.cfg.deviceKey != "" {
			req.Header.Set("X-Device-Key", b.cfg.deviceKey)
		}

		resp, err := b.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusCreated:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return fmt.Errorf("ingest rejected payload: HTTP %d", resp.StatusCode)
		default:
			lastErr = fmt.Errorf("ingest returned HTTP %d", resp.StatusCode)
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr)
}

func newMQTTClient(cfg config, handler mqtt.MessageHandler) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.mqttBroker).
		SetClientID("qooa-telemetry-bridge").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			// AutoReconnect does not restore subscriptions
			tok := c.Subscribe(cfg.mqttTopic, 1, handler)
			if !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
				logger.Error("subscribe failed", "topic", cfg.mqttTopic, "error", tok.Error())
				return
			}
			logger.Info("subscribed", "topic", cfg.mqttTopic)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("MQTT connection lost, reconnecting", "error", err)
		})

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("MQTT connect timed out")
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("MQTT connect: %w", err)
	}
	return client, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn("could not load .env file", "error", err)
	}
	cfg := newConfig()

	logger.Info("starting telemetry-bridge",
		"broker", cfg.mqttBroker,
		"topic", cfg.mqttTopic,
		"ingest_url", cfg.ingestURL,
		"workers", cfg.workers,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.metricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// workers get their own context so a shutdown signal does not cancel
	// forwards mid-drain; it is only cancelled if the drain times out
	workCtx, workCancel := context.WithCancel(context.Background())
	defer workCancel()

	b := newBridge(cfg)
	wg := b.startWorkers(workCtx)

	mqttClient, err := newMQTTClient(cfg, b.handler())
	if err != nil {
		logger.Error("initial MQTT connect failed", "error", err)
		close(b.queue)
		wg.Wait()
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, draining queue")

	// stop intake first, then let workers finish what is queued
	mqttClient.Disconnect(500)
	close(b.queue)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("queue drain timed out, cancelling in-flight forwards")
		workCancel()
		<-done
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutCtx)

	logger.Info("telemetry-bridge stopped")
}
