package order

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Ufidtech/Qooa-Logistic/internal/auth"
	"github.com/Ufidtech/Qooa-Logistic/internal/notify"
	"github.com/Ufidtech/Qooa-Logistic/internal/pagination"
	"github.com/Ufidtech/Qooa-Logistic/internal/pricing"
	"github.com/Ufidtech/Qooa-Logistic/internal/quality"
	"github.com/Ufidtech/Qooa-Logistic/internal/vendor"
)

type Handler struct {
	DB         *gorm.DB
	Eval       *quality.Evaluator
	Dispatcher notify.Dispatcher
}

func NewHandler(db *gorm.DB, eval *quality.Evaluator, dispatcher notify.Dispatcher) *Handler {
	return &Handler{DB: db, Eval: eval, Dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/orders", h.Create)
	router.GET("/orders", h.ListVendorOrders)
	router.GET("/orders/:orderRef", h.GetOrder)
	router.POST("/orders/:orderRef/cancel", h.Cancel)
}

func (h *Handler) RegisterAdminRoutes(router gin.IRoutes) {
	router.PUT("/orders/:orderRef/status", h.UpdateStatus)
	router.PUT("/orders/:orderRef/truck", h.AssignTruck)
	router.PUT("/orders/:orderRef/telemetry", h.UpdateTelemetrySnapshot)
}

// Create places an order against the currently published crate price.
func (h *Handler) Create(c *gin.Context) {
	cv, ok := auth.GetCurrentVendor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if req.CrateQuantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "crateQuantity must be at least 1"})
		return
	}
	switch req.DeliveryTime {
	case DeliveryMorning, DeliveryMidday, DeliveryAfternoon:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"message": "deliveryTime must be one of: morning, midday, afternoon",
		})
		return
	}
	if req.DeliveryDate.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "deliveryDate is required"})
		return
	}

	price, err := pricing.CurrentPrice(h.DB, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	if price == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "no_active_pricing",
			"message": "no active pricing available, please contact support",
		})
		return
	}

	var v vendor.Vendor
	if err := h.DB.Where("vendor_ref = ?", cv.VendorRef).First(&v).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	now := time.Now()
	o := Order{
		OrderRef:      GenerateOrderRef(now),
		VendorRef:     v.VendorRef,
		VendorName:    v.VendorName,
		MarketCluster: v.MarketCluster,
		StallNumber:   v.StallNumber,
		CrateQuantity: req.CrateQuantity,
		PricePerCrate: price.PricePerCrate,
		TotalAmount:   price.PricePerCrate.Mul(decimal.NewFromInt(int64(req.CrateQuantity))),
		DeliveryDate:  req.DeliveryDate,
		DeliveryTime:  req.DeliveryTime,
		Status:        StatusConfirmed,
	}
	if err := o.AddTrackingStage(StatusConfirmed, "Lagos", "Order confirmed and awaiting processing", now); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode_error", "message": err.Error()})
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&o).Error; err != nil {
			return err
		}
		return tx.Model(&vendor.Vendor{}).Where("id = ?", v.ID).
			Updates(map[string]interface{}{
				"total_orders": gorm.Expr("total_orders + 1"),
				"total_spent":  gorm.Expr("total_spent + ?", o.TotalAmount.InexactFloat64()),
			}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	h.Dispatcher.DispatchOrderConfirmation(v.VendorRef, o.OrderRef)

	c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListVendorOrders(c *gin.Context) {
	cv, ok := auth.GetCurrentVendor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.DB.Model(&Order{}).Where("vendor_ref = ?", cv.VendorRef)

	if status := c.Query("status"); status != "" {
		if !ValidStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "unknown status filter"})
			return
		}
		query = query.Where("status = ?", status)
	}
	if fromStr := c.Query("from"); fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid from parameter"})
			return
		}
		query = query.Where("created_at >= ?", t)
	}
	if toStr := c.Query("to"); toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid to parameter"})
			return
		}
		query = query.Where("created_at <= ?", t)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	var orders []Order
	if err := query.Order("created_at DESC").Limit(p.Limit).Offset(p.Offset).Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders, "pagination": p.Meta(total)})
}

func (h *Handler) GetOrder(c *gin.Context) {
	cv, ok := auth.GetCurrentVendor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	query := h.DB.Where("order_ref = ?", c.Param("orderRef"))
	if !cv.IsAdmin() {
		query = query.Where("vendor_ref = ?", cv.VendorRef)
	}

	var o Order
	if err := query.First(&o).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// UpdateStatus moves the order through the delivery pipeline and appends a
// tracking stage.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if !ValidStatus(req.Status) || req.Status == StatusCancelled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "unknown status, use the cancel endpoint to cancel"})
		return
	}

	var o Order
	if err := h.DB.Where("order_ref = ?", c.Param("orderRef")).First(&o).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	if o.Status == StatusCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "order_cancelled", "message": "cancelled orders cannot change status"})
		return
	}

	now := time.Now()
	location := ""
	if req.Location != nil {
		location = *req.Location
	}
	notes := ""
	if req.Notes != nil {
		notes = *req.Notes
	}
	if err := o.AddTrackingStage(req.Status, location, notes, now); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode_error", "message": err.Error()})
		return
	}
	if req.Status == StatusDelivered {
		o.DeliveredAt = &now
	}

	if err := h.DB.Save(&o).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// AssignTruck binds an order to the truck that will carry it, so telemetry
// from the truck's sensor unit can be attributed.
func (h *Handler) AssignTruck(c *gin.Context) {
	var req AssignTruckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if req.TruckRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "truckId is required"})
		return
	}

	var o Order
	if err := h.DB.Where("order_ref = ?", c.Param("orderRef")).First(&o).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	o.TruckRef = &req.TruckRef
	o.DriverName = req.DriverName
	o.DriverPhone = req.DriverPhone
	if err := h.DB.Save(&o).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// UpdateTelemetrySnapshot overwrites the order's transit aggregate and
// recomputes the freshness score from the fresh snapshot.
func (h *Handler) UpdateTelemetrySnapshot(c *gin.Context) {
	var req UpdateTelemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}

	var o Order
	if err := h.DB.Where("order_ref = ?", c.Param("orderRef")).First(&o).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	if req.AvgTempC != nil {
		o.AvgTempC = req.AvgTempC
	}
	if req.MaxTempC != nil {
		o.MaxTempC = req.MaxTempC
	}
	if req.MinTempC != nil {
		o.MinTempC = req.MinTempC
	}
	if req.AvgHumidityPct != nil {
		o.AvgHumidityPct = req.AvgHumidityPct
	}
	if req.MaxGasPpm != nil {
		o.MaxGasPpm = req.MaxGasPpm
	}
	if req.TransitSeconds != nil {
		o.TransitSeconds = req.TransitSeconds
	}

	agg := quality.Aggregate{}
	if o.AvgTempC != nil {
		agg.AvgTempC = *o.AvgTempC
	}
	if o.MaxGasPpm != nil {
		agg.MaxGasPpm = *o.MaxGasPpm
	}
	if o.TransitSeconds != nil {
		agg.TransitDurationSecond = *o.TransitSeconds
	}
	score := h.Eval.FreshnessScore(agg)
	o.FreshnessScore = &score

	if err := h.DB.Save(&o).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o, "freshnessScore": score})
}

// Cancel voids an order that has not yet shipped.
func (h *Handler) Cancel(c *gin.Context) {
	cv, ok := auth.GetCurrentVendor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}

	query := h.DB.Where("order_ref = ?", c.Param("orderRef"))
	if !cv.IsAdmin() {
		query = query.Where("vendor_ref = ?", cv.VendorRef)
	}

	var o Order
	if err := query.First(&o).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	if o.Status != StatusConfirmed {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "not_cancellable",
			"message": "only confirmed orders can be cancelled",
		})
		return
	}

	now := time.Now()
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.CancellationReason = &req.Reason

	if err := h.DB.Save(&o).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}
