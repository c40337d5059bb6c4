package telemetry

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Ufidtech/Qooa-Logistic/internal/auth"
	"github.com/Ufidtech/Qooa-Logistic/internal/notify"
	"github.com/Ufidtech/Qooa-Logistic/internal/order"
	"github.com/Ufidtech/Qooa-Logistic/internal/pagination"
	"github.com/Ufidtech/Qooa-Logistic/internal/quality"
)

type Handler struct {
	DB         *gorm.DB
	Eval       *quality.Evaluator
	Dispatcher notify.Dispatcher
	Hub        *Hub
	Log        *slog.Logger
}

func NewHandler(db *gorm.DB, eval *quality.Evaluator, dispatcher notify.Dispatcher, hub *Hub, log *slog.Logger) *Handler {
	return &Handler{DB: db, Eval: eval, Dispatcher: dispatcher, Hub: hub, Log: log}
}

// DeviceKeyMiddleware gates the ingest endpoint on a shared sensor key.
// An empty DEVICE_API_KEY leaves the endpoint open for local development.
func DeviceKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		want := os.Getenv("DEVICE_API_KEY")
		if want != "" && c.GetHeader("X-Device-Key") != want {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid device key"})
			return
		}
		c.Next()
	}
}

// RegisterIngestRoutes mounts the device-facing upload endpoint.
func (h *Handler) RegisterIngestRoutes(router gin.IRoutes) {
	router.POST("/telemetry/data", DeviceKeyMiddleware(), h.Ingest)
}

// RegisterRoutes mounts the vendor-facing dashboard endpoints. Order
// history is still scoped per caller inside the handlers.
func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/telemetry/orders/:orderRef", h.OrderHistory)
	router.GET("/telemetry/orders/:orderRef/summary", h.OrderSummary)
	router.GET("/telemetry/trucks/:truckRef/latest", h.TruckLatest)
}

// RegisterAdminRoutes mounts the fleet-wide views: every order's alerts,
// cross-truck stats, and the full location heatmap.
func (h *Handler) RegisterAdminRoutes(router gin.IRoutes) {
	router.GET("/telemetry/alerts", h.AlertFeed)
	router.GET("/telemetry/stats", h.Stats)
	router.GET("/telemetry/heatmap", h.Heatmap)
}

// Ingest accepts one sensor reading, classifies it, persists it with its
// derived alerts, refreshes the owning order's transit snapshot, and fans
// the reading out to live subscribers.
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		samplesInvalid.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if req.TemperatureC == nil || req.GasLevelPpm == nil {
		samplesInvalid.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "temperature and gasLevel are required"})
		return
	}

	now := time.Now().UTC()
	recordedAt := now
	if req.RecordedAt != nil {
		recordedAt = req.RecordedAt.UTC()
	}
	networkAvailable := true
	if req.NetworkAvailable != nil {
		networkAvailable = *req.NetworkAvailable
	}

	sample := quality.Sample{
		OrderRef:         req.OrderRef,
		TruckRef:         req.TruckRef,
		TemperatureC:     req.TemperatureC,
		HumidityPct:      req.HumidityPct,
		GasLevelPpm:      req.GasLevelPpm,
		BatteryPct:       req.BatteryPct,
		RecordedAt:       recordedAt,
		NetworkAvailable: networkAvailable,
	}
	if req.Latitude != nil && req.Longitude != nil {
		sample.Location = &quality.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	status, err := h.Eval.ClassifySample(sample)
	if err != nil {
		samplesInvalid.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}
	alerts := h.Eval.Alerts(sample, now)

	rawAlerts, err := json.Marshal(alerts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	row := Telemetry{
		OrderRef:         req.OrderRef,
		TruckRef:         req.TruckRef,
		TemperatureC:     req.TemperatureC,
		HumidityPct:      req.HumidityPct,
		GasLevelPpm:      req.GasLevelPpm,
		BatteryPct:       req.BatteryPct,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Status:           string(status),
		Alerts:           rawAlerts,
		AlertCount:       len(alerts),
		NetworkAvailable: networkAvailable,
		RecordedAt:       recordedAt,
		SyncedAt:         now,
	}
	if err := h.DB.Create(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	samplesIngested.Inc()
	for _, a := range alerts {
		alertsFired.WithLabelValues(string(a.Severity)).Inc()
	}

	h.refreshOrderSnapshot(req.OrderRef, alerts)

	if h.Hub != nil {
		h.Hub.PublishReading(&row)
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         row.ID,
		"status":     status,
		"alerts":     alerts,
		"recordedAt": row.RecordedAt,
	})
}

// refreshOrderSnapshot recomputes the order's transit aggregate from the
// full stored history and notifies the vendor about critical alerts.
// Snapshot maintenance is best effort; an ingest never fails because the
// order row could not be updated.
func (h *Handler) refreshOrderSnapshot(orderRef string, alerts []quality.Alert) {
	var o order.Order
	if err := h.DB.Where("order_ref = ?", orderRef).First(&o).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			h.Log.Error("order lookup for snapshot failed", "orderId", orderRef, "error", err)
		}
		return
	}

	rows, err := loadHistory(h.DB, orderRef)
	if err != nil {
		h.Log.Error("history load for snapshot failed", "orderId", orderRef, "error", err)
		return
	}
	samples := make([]quality.Sample, 0, len(rows))
	for i := range rows {
		samples = append(samples, rows[i].toSample())
	}

	summary, skipped := h.Eval.Summarize(samples)
	if len(skipped) > 0 {
		h.Log.Warn("snapshot skipped malformed readings", "orderId", orderRef, "count", len(skipped))
	}
	if summary == nil {
		return
	}

	snap := order.TelemetrySnapshot{
		AvgTempC:       quality.Float(summary.AvgTemperatureC),
		MaxTempC:       quality.Float(summary.MaxTemperatureC),
		MinTempC:       quality.Float(summary.MinTemperatureC),
		AvgHumidityPct: quality.Float(summary.AvgHumidityPct),
		MaxGasPpm:      quality.Float(summary.MaxGasLevelPpm),
		FreshnessScore: quality.Float(summary.FreshnessScore),
		TransitSeconds: quality.Float(summary.TransitSeconds),
	}
	if err := h.DB.Model(&order.Order{}).
		Where("order_ref = ?", orderRef).
		Updates(map[string]interface{}{
			"tel_avg_temp":        snap.AvgTempC,
			"tel_max_temp":        snap.MaxTempC,
			"tel_min_temp":        snap.MinTempC,
			"tel_avg_humidity":    snap.AvgHumidityPct,
			"tel_max_gas":         snap.MaxGasPpm,
			"tel_freshness_score": snap.FreshnessScore,
			"tel_transit_seconds": snap.TransitSeconds,
		}).Error; err != nil {
		h.Log.Error("snapshot update failed", "orderId", orderRef, "error", err)
		return
	}

	if h.Dispatcher != nil {
		for _, a := range alerts {
			if a.Severity != quality.SeverityCritical {
				continue
			}
			h.Dispatcher.DispatchQualityAlert(o.VendorRef, orderRef, a.Kind, a.Severity)
		}
	}
}

// authorizeOrder loads the order and checks the caller may see it. Admins
// see everything; vendors only their own.
func (h *Handler) authorizeOrder(c *gin.Context, orderRef string) (*order.Order, bool) {
	var o order.Order
	if err := h.DB.Where("order_ref = ?", orderRef).First(&o).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return nil, false
	}

	current, ok := auth.GetCurrentVendor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	if !current.IsAdmin() && current.VendorRef != o.VendorRef {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return &o, true
}

// OrderHistory returns the full reading series for one order, oldest first.
func (h *Handler) OrderHistory(c *gin.Context) {
	if _, ok := h.authorizeOrder(c, c.Param("orderRef")); !ok {
		return
	}
	rows, err := loadHistory(h.DB, c.Param("orderRef"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

// OrderSummary reduces the order's reading history to the dashboard
// aggregate, including the freshness score.
func (h *Handler) OrderSummary(c *gin.Context) {
	if _, ok := h.authorizeOrder(c, c.Param("orderRef")); !ok {
		return
	}
	rows, err := loadHistory(h.DB, c.Param("orderRef"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	samples := make([]quality.Sample, 0, len(rows))
	for i := range rows {
		samples = append(samples, rows[i].toSample())
	}
	summary, skipped := h.Eval.Summarize(samples)
	if summary == nil {
		c.JSON(http.StatusOK, gin.H{"summary": nil, "skipped": len(skipped)})
		return
	}

	latest, _ := quality.Latest(samples)
	status, err := h.Eval.ClassifySample(latest)
	statusOut := string(status)
	if err != nil {
		statusOut = ""
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": gin.H{
			"avgTemperature": summary.AvgTemperatureC,
			"maxTemperature": summary.MaxTemperatureC,
			"minTemperature": summary.MinTemperatureC,
			"avgHumidity":    summary.AvgHumidityPct,
			"maxGasLevel":    summary.MaxGasLevelPpm,
			"avgBattery":     summary.AvgBatteryPct,
			"transitSeconds": summary.TransitSeconds,
			"sampleCount":    summary.SampleCount,
			"alertCount":     summary.AlertCount,
			"freshnessScore": summary.FreshnessScore,
		},
		"currentStatus": statusOut,
		"skipped":       len(skipped),
	})
}

// TruckLatest returns the most recent readings for one truck, newest
// first by capture time so late-synced offline readings sort correctly.
func (h *Handler) TruckLatest(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "limit must be a positive integer"})
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	var rows []Telemetry
	if err := h.DB.Where("truck_ref = ?", c.Param("truckRef")).
		Order("recorded_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

// AlertFeed lists readings that produced alerts. Severity filtering
// happens after decode because alerts are stored as a JSON payload.
func (h *Handler) AlertFeed(c *gin.Context) {
	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.DB.Model(&Telemetry{}).Where("alert_count > 0")
	if orderRef := c.Query("orderId"); orderRef != "" {
		query = query.Where("order_ref = ?", orderRef)
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "from must be RFC3339"})
			return
		}
		query = query.Where("recorded_at >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "to must be RFC3339"})
			return
		}
		query = query.Where("recorded_at <= ?", t)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	var rows []Telemetry
	if err := query.Order("recorded_at DESC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	severity := quality.Severity(c.Query("severity"))
	type feedEntry struct {
		OrderRef   string        `json:"orderId"`
		TruckRef   string        `json:"truckId"`
		Status     string        `json:"status"`
		Alert      quality.Alert `json:"alert"`
		RecordedAt time.Time     `json:"recordedAt"`
	}
	entries := []feedEntry{}
	for i := range rows {
		for _, a := range rows[i].decodeAlerts() {
			if severity != "" && a.Severity != severity {
				continue
			}
			entries = append(entries, feedEntry{
				OrderRef:   rows[i].OrderRef,
				TruckRef:   rows[i].TruckRef,
				Status:     rows[i].Status,
				Alert:      a,
				RecordedAt: rows[i].RecordedAt,
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "pagination": p.Meta(total)})
}

// Stats aggregates the stored readings for the operations dashboard.
// Optional filters: truckId plus a from/to window on recorded_at.
func (h *Handler) Stats(c *gin.Context) {
	truckRef := c.Query("truckId")
	var from, to *time.Time
	if fs := c.Query("from"); fs != "" {
		ts, err := time.Parse(time.RFC3339, fs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid from timestamp"})
			return
		}
		from = &ts
	}
	if ts := c.Query("to"); ts != "" {
		t2, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid to timestamp"})
			return
		}
		to = &t2
	}

	filtered := func() *gorm.DB {
		q := h.DB.Model(&Telemetry{})
		if truckRef != "" {
			q = q.Where("truck_ref = ?", truckRef)
		}
		if from != nil {
			q = q.Where("recorded_at >= ?", *from)
		}
		if to != nil {
			q = q.Where("recorded_at <= ?", *to)
		}
		return q
	}

	var agg struct {
		Total       int64
		AvgTemp     *float64
		MinTemp     *float64
		MaxTemp     *float64
		AvgGas      *float64
		MaxGas      *float64
		AvgBattery  *float64
		TotalAlerts int64
		Alerting    int64
	}
	if err := filtered().
		Select("COUNT(*) AS total, " +
			"AVG(temperature_c) AS avg_temp, MIN(temperature_c) AS min_temp, MAX(temperature_c) AS max_temp, " +
			"AVG(gas_level_ppm) AS avg_gas, MAX(gas_level_ppm) AS max_gas, " +
			"AVG(battery_pct) AS avg_battery, " +
			"COALESCE(SUM(alert_count), 0) AS total_alerts, " +
			"COALESCE(SUM(CASE WHEN alert_count > 0 THEN 1 ELSE 0 END), 0) AS alerting").
		Scan(&agg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var byStatus []statusCount
	if err := filtered().
		Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	statusOut := gin.H{}
	for _, sc := range byStatus {
		statusOut[sc.Status] = sc.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"totalReadings":    agg.Total,
		"avgTemperature":   agg.AvgTemp,
		"minTemperature":   agg.MinTemp,
		"maxTemperature":   agg.MaxTemp,
		"avgGasLevel":      agg.AvgGas,
		"maxGasLevel":      agg.MaxGas,
		"avgBattery":       agg.AvgBattery,
		"totalAlerts":      agg.TotalAlerts,
		"readingsByStatus": statusOut,
		"alertingReadings": agg.Alerting,
	})
}

// Heatmap projects geolocated readings for the map overlay.
func (h *Handler) Heatmap(c *gin.Context) {
	query := h.DB.Model(&Telemetry{}).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL")
	if orderRef := c.Query("orderId"); orderRef != "" {
		query = query.Where("order_ref = ?", orderRef)
	}
	if truckRef := c.Query("truckId"); truckRef != "" {
		query = query.Where("truck_ref = ?", truckRef)
	}

	type point struct {
		OrderRef     string    `json:"orderId"`
		TruckRef     string    `json:"truckId"`
		Latitude     float64   `json:"latitude"`
		Longitude    float64   `json:"longitude"`
		Status       string    `json:"status"`
		TemperatureC *float64  `json:"temperature"`
		GasLevelPpm  *float64  `json:"gasLevel"`
		HasAlerts    bool      `json:"hasAlerts"`
		RecordedAt   time.Time `json:"recordedAt"`
	}
	var points []point
	if err := query.Select("order_ref, truck_ref, latitude, longitude, status, temperature_c, gas_level_ppm, alert_count > 0 AS has_alerts, recorded_at").
		Order("recorded_at").Scan(&points).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": points, "count": len(points)})
}
