package feedback

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Ufidtech/Qooa-Logistic/internal/auth"
	"github.com/Ufidtech/Qooa-Logistic/internal/order"
	"github.com/Ufidtech/Qooa-Logistic/internal/pagination"
	"github.com/Ufidtech/Qooa-Logistic/internal/vendor"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/feedback", h.Create)
	router.GET("/feedback", h.ListVendorFeedback)
}

func (h *Handler) RegisterAdminRoutes(router gin.IRoutes) {
	router.GET("/feedback", h.ListAll)
	router.PUT("/feedback/:id/respond", h.Respond)
}

// Create records a rating for a delivered order and refreshes the vendor's
// rolling quality score.
func (h *Handler) Create(c *gin.Context) {
	cv, ok := auth.GetCurrentVendor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "rating must be between 1 and 5"})
		return
	}
	if req.Comments != nil && len(*req.Comments) > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "comments exceed 1000 characters"})
		return
	}

	var o order.Order
	if err := h.DB.Where("order_ref = ? AND vendor_ref = ?", req.OrderRef, cv.VendorRef).First(&o).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	if o.Status != order.StatusDelivered {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "order_not_delivered",
			"message": "feedback is only accepted for delivered orders",
		})
		return
	}

	var existing int64
	if err := h.DB.Model(&Feedback{}).Where("order_ref = ?", req.OrderRef).Count(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "already_submitted", "message": "feedback already exists for this order"})
		return
	}

	fb := Feedback{
		OrderRef:     req.OrderRef,
		VendorRef:    cv.VendorRef,
		Rating:       req.Rating,
		Comments:     req.Comments,
		RefundStatus: RefundNone,
	}
	if len(req.DamagePhotos) > 0 {
		for i := range req.DamagePhotos {
			if req.DamagePhotos[i].UploadedAt.IsZero() {
				req.DamagePhotos[i].UploadedAt = time.Now()
			}
		}
		raw, err := json.Marshal(req.DamagePhotos)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encode_error", "message": err.Error()})
			return
		}
		fb.DamagePhotos = datatypes.JSON(raw)
		fb.HasDamageReport = true
		fb.RefundStatus = RefundPending
		fb.RefundReason = req.RefundReason
	}

	if err := h.DB.Create(&fb).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	if err := vendor.RefreshQualityScore(h.DB, cv.VendorRef); err != nil {
		// score refresh failing should not lose the feedback itself
		c.JSON(http.StatusCreated, gin.H{"feedback": fb, "warning": "quality score refresh failed"})
		return
	}

	c.JSON(http.StatusCreated, fb)
}

func (h *Handler) ListVendorFeedback(c *gin.Context) {
	cv, ok := auth.GetCurrentVendor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.DB.Model(&Feedback{}).Where("vendor_ref = ?", cv.VendorRef)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	var rows []Feedback
	if err := query.Order("created_at DESC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "pagination": p.Meta(total)})
}

func (h *Handler) ListAll(c *gin.Context) {
	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.DB.Model(&Feedback{})
	if c.Query("damageOnly") == "true" {
		query = query.Where("has_damage_report = ?", true)
	}
	if rs := c.Query("refundStatus"); rs != "" {
		switch rs {
		case RefundNone, RefundPending, RefundApproved, RefundRejected, RefundCompleted:
			query = query.Where("refund_status = ?", rs)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "unknown refundStatus"})
			return
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	var rows []Feedback
	if err := query.Order("created_at DESC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "pagination": p.Meta(total)})
}

// Respond attaches the operator's reply and optionally moves the refund
// along its pipeline.
func (h *Handler) Respond(c *gin.Context) {
	var req AdminRespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if req.Response == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "response is required"})
		return
	}

	var fb Feedback
	if err := h.DB.First(&fb, c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	now := time.Now()
	fb.AdminResponse = &req.Response
	fb.AdminRespondedAt = &now

	if req.RefundStatus != nil {
		switch *req.RefundStatus {
		case RefundPending, RefundApproved, RefundRejected, RefundCompleted:
			fb.RefundStatus = *req.RefundStatus
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "unknown refundStatus"})
			return
		}
	}
	if req.RefundAmount != nil {
		fb.RefundAmount = req.RefundAmount
	}

	if err := h.DB.Save(&fb).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, fb)
}
