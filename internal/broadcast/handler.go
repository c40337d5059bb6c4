package broadcast

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
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

func (h *Handler) RegisterAdminRoutes(router gin.IRoutes) {
	router.POST("/broadcasts", h.Create)
	router.GET("/broadcasts", h.List)
	router.GET("/broadcasts/:id", h.Get)
	router.PUT("/broadcasts/:id/status", h.UpdateStatus)
}

func (h *Handler) Create(c *gin.Context) {
	cv, _ := auth.GetCurrentVendor(c)

	var req CreateBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "message is required"})
		return
	}

	sentVia := ViaWhatsApp
	if req.SentVia != nil {
		switch *req.SentVia {
		case ViaWhatsApp, ViaEmail, ViaBoth:
			sentVia = *req.SentVia
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "sentVia must be whatsapp, email or both"})
			return
		}
	}

	b := Broadcast{
		Message:       req.Message,
		MessagePidgin: req.MessagePidgin,
		TargetMarket:  req.TargetMarket,
		SentVia:       sentVia,
		Status:        StatusPending,
		SentBy:        cv.VendorRef,
		ScheduledFor:  req.ScheduledFor,
	}
	if len(req.TargetVendors) > 0 {
		raw, err := json.Marshal(req.TargetVendors)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encode_error", "message": err.Error()})
			return
		}
		b.TargetVendors = datatypes.JSON(raw)
	}

	if err := h.DB.Create(&b).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) List(c *gin.Context) {
	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.DB.Model(&Broadcast{})
	if status := c.Query("status"); status != "" {
		switch status {
		case StatusPending, StatusSending, StatusCompleted, StatusFailed:
			query = query.Where("status = ?", status)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "unknown status"})
			return
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	var rows []Broadcast
	if err := query.Order("created_at DESC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "pagination": p.Meta(total)})
}

func (h *Handler) Get(c *gin.Context) {
	var b Broadcast
	if err := h.DB.First(&b, c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

// UpdateStatus is how the external delivery worker reports progress back.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateBroadcastStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	switch req.Status {
	case StatusPending, StatusSending, StatusCompleted, StatusFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "unknown status"})
		return
	}

	var b Broadcast
	if err := h.DB.First(&b, c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	b.Status = req.Status
	if req.RecipientCount != nil {
		b.RecipientCount = req.RecipientCount
	}
	if req.SuccessCount != nil {
		b.SuccessCount = req.SuccessCount
	}
	if req.FailureCount != nil {
		b.FailureCount = req.FailureCount
	}
	if req.Status == StatusCompleted || req.Status == StatusFailed {
		now := time.Now()
		b.CompletedAt = &now
	}

	if err := h.DB.Save(&b).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}
