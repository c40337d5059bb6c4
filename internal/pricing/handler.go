package pricing

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
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
	router.GET("/pricing/current", h.GetCurrent)
}

func (h *Handler) RegisterAdminRoutes(router gin.IRoutes) {
	router.POST("/pricing", h.Create)
	router.GET("/pricing/history", h.ListHistory)
}

func (h *Handler) GetCurrent(c *gin.Context) {
	p, err := CurrentPrice(h.DB, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "no_active_pricing",
			"message": "no active pricing available",
		})
		return
	}
	c.JSON(http.StatusOK, p)
}

type CreatePricingRequest struct {
	PricePerCrate decimal.Decimal `json:"pricePerCrate"`
	Currency      *string         `json:"currency,omitempty"`
	EffectiveFrom *time.Time      `json:"effectiveFrom,omitempty"`
	MarketFactor  *float64        `json:"marketFactor,omitempty"`
	Trend         *string         `json:"trend,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
}

// Create publishes a new crate price. The previous active price is
// deactivated and its window closed at the new price's effectiveFrom, all
// inside one transaction.
func (h *Handler) Create(c *gin.Context) {
	cv, _ := auth.GetCurrentVendor(c)

	var req CreatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if req.PricePerCrate.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "pricePerCrate must be positive"})
		return
	}

	effectiveFrom := time.Now()
	if req.EffectiveFrom != nil {
		effectiveFrom = *req.EffectiveFrom
	}

	currency := "NGN"
	if req.Currency != nil && *req.Currency != "" {
		currency = *req.Currency
	}
	trend := "stable"
	if req.Trend != nil {
		switch *req.Trend {
		case "up", "down", "stable":
			trend = *req.Trend
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "trend must be up, down or stable"})
			return
		}
	}
	marketFactor := 1.0
	if req.MarketFactor != nil {
		marketFactor = *req.MarketFactor
	}

	p := Pricing{
		PricePerCrate: req.PricePerCrate,
		Currency:      currency,
		EffectiveFrom: effectiveFrom,
		MarketFactor:  marketFactor,
		Trend:         trend,
		Notes:         req.Notes,
		CreatedBy:     cv.VendorRef,
		Active:        true,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Pricing{}).
			Where("active = ?", true).
			Updates(map[string]interface{}{"active": false, "effective_to": effectiveFrom}).Error; err != nil {
			return err
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListHistory(c *gin.Context) {
	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.DB.Model(&Pricing{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	var rows []Pricing
	if err := query.Order("effective_from DESC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows, "pagination": p.Meta(total)})
}
