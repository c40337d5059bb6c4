package subscription

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Ufidtech/Qooa-Logistic/internal/auth"
	"github.com/Ufidtech/Qooa-Logistic/internal/pagination"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/subscriptions", h.Create)
	router.GET("/subscriptions", h.List)
	router.PUT("/subscriptions/:id", h.Update)
	router.POST("/subscriptions/:id/pause", h.Pause)
	router.POST("/subscriptions/:id/resume", h.Resume)
	router.POST("/subscriptions/:id/cancel", h.Cancel)
}

func (h *Handler) Create(c *gin.Context) {
	cv, ok := auth.GetCurrentVendor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if req.CrateQuantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "crateQuantity must be at least 1"})
		return
	}
	if !ValidFrequency(req.Frequency) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "frequency must be a weekday, monday through saturday"})
		return
	}
	switch req.DeliveryTime {
	case "morning", "midday", "afternoon":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "deliveryTime must be one of: morning, midday, afternoon"})
		return
	}

	now := time.Now()
	next := NextDeliveryDate(req.Frequency, now)
	sub := Subscription{
		VendorRef:     cv.VendorRef,
		CrateQuantity: req.CrateQuantity,
		Frequency:     req.Frequency,
		DeliveryTime:  req.DeliveryTime,
		Status:        StatusActive,
		StartDate:     now,
		NextOrderDate: &next,
	}

	if err := h.DB.Create(&sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) List(c *gin.Context) {
	cv, ok := auth.GetCurrentVendor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.DB.Model(&Subscription{}).Where("vendor_ref = ?", cv.VendorRef)
	if status := c.Query("status"); status != "" {
		switch status {
		case StatusActive, StatusPaused, StatusCancelled:
			query = query.Where("status = ?", status)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "status must be one of: active, paused, cancelled"})
			return
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	var subs []Subscription
	if err := query.Order("created_at DESC").Limit(p.Limit).Offset(p.Offset).Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": subs, "pagination": p.Meta(total)})
}

// loadOwned fetches a subscription belonging to the current vendor.
func (h *Handler) loadOwned(c *gin.Context) (*Subscription, bool) {
	cv, ok := auth.GetCurrentVendor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "id must be numeric"})
		return nil, false
	}

	var sub Subscription
	if err := h.DB.Where("id = ? AND vendor_ref = ?", id, cv.VendorRef).First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return nil, false
	}
	return &sub, true
}

func (h *Handler) Update(c *gin.Context) {
	sub, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if sub.Status == StatusCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "subscription_cancelled"})
		return
	}

	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}

	if req.CrateQuantity != nil {
		if *req.CrateQuantity < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "crateQuantity must be at least 1"})
			return
		}
		sub.CrateQuantity = *req.CrateQuantity
	}
	if req.Frequency != nil {
		if !ValidFrequency(*req.Frequency) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "unknown frequency"})
			return
		}
		sub.Frequency = *req.Frequency
		next := NextDeliveryDate(sub.Frequency, time.Now())
		sub.NextOrderDate = &next
	}
	if req.DeliveryTime != nil {
		switch *req.DeliveryTime {
		case "morning", "midday", "afternoon":
			sub.DeliveryTime = *req.DeliveryTime
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "unknown deliveryTime"})
			return
		}
	}

	if err := h.DB.Save(sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) Pause(c *gin.Context) {
	h.setStatus(c, StatusActive, StatusPaused)
}

func (h *Handler) Resume(c *gin.Context) {
	h.setStatus(c, StatusPaused, StatusActive)
}

func (h *Handler) Cancel(c *gin.Context) {
	sub, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if sub.Status == StatusCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "already_cancelled"})
		return
	}
	now := time.Now()
	sub.Status = StatusCancelled
	sub.EndDate = &now
	sub.NextOrderDate = nil
	if err := h.DB.Save(sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) setStatus(c *gin.Context, from, to string) {
	sub, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if sub.Status != from {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_transition",
			"message": "subscription is " + sub.Status,
		})
		return
	}
	sub.Status = to
	if to == StatusActive {
		next := NextDeliveryDate(sub.Frequency, time.Now())
		sub.NextOrderDate = &next
	} else {
		sub.NextOrderDate = nil
	}
	if err := h.DB.Save(sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sub)
}
