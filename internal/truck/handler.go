package truck

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Ufidtech/Qooa-Logistic/internal/pagination"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

func (h *Handler) RegisterAdminRoutes(router gin.IRoutes) {
	router.POST("/trucks", h.Create)
	router.GET("/trucks", h.List)
	router.GET("/trucks/:truckRef", h.Get)
	router.PUT("/trucks/:truckRef", h.Update)
	router.DELETE("/trucks/:truckRef", h.Deactivate)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateTruckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}
	if req.TruckRef == "" || req.PlateNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "truckId and plateNumber are required"})
		return
	}

	t := Truck{
		TruckRef:         req.TruckRef,
		PlateNumber:      req.PlateNumber,
		DriverName:       req.DriverName,
		DriverPhone:      req.DriverPhone,
		DeviceExternalID: req.DeviceExternalID,
		SimNumber:        req.SimNumber,
		Active:           true,
	}
	if err := h.DB.Create(&t).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) List(c *gin.Context) {
	p := pagination.Parse(c)
	if c.IsAborted() {
		return
	}

	query := h.DB.Model(&Truck{})
	if activeStr := c.Query("active"); activeStr != "" {
		if active, err := strconv.ParseBool(activeStr); err == nil {
			query = query.Where("active = ?", active)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}

	var trucks []Truck
	if err := query.Order("truck_ref").Limit(p.Limit).Offset(p.Offset).Find(&trucks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trucks, "pagination": p.Meta(total)})
}

func (h *Handler) load(c *gin.Context) (*Truck, bool) {
	var t Truck
	if err := h.DB.Where("truck_ref = ?", c.Param("truckRef")).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return nil, false
	}
	return &t, true
}

func (h *Handler) Get(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) Update(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}

	var req UpdateTruckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid JSON body"})
		return
	}

	if req.PlateNumber != nil {
		t.PlateNumber = *req.PlateNumber
	}
	if req.DriverName != nil {
		t.DriverName = req.DriverName
	}
	if req.DriverPhone != nil {
		t.DriverPhone = req.DriverPhone
	}
	if req.DeviceExternalID != nil {
		t.DeviceExternalID = req.DeviceExternalID
	}
	if req.SimNumber != nil {
		t.SimNumber = req.SimNumber
	}
	if req.Active != nil {
		t.Active = *req.Active
	}

	if err := h.DB.Save(t).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, t)
}

// Deactivate soft-deletes by flipping active off; telemetry history stays.
func (h *Handler) Deactivate(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	t.Active = false
	if err := h.DB.Save(t).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db_error", "message": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
