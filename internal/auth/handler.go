package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type LoginResponse struct {
	Token  string             `json:"token"`
	Vendor LoginVendorPayload `json:"vendor"`
}

type LoginVendorPayload struct {
	ID            int64  `json:"id"`
	VendorRef     string `json:"vendorId"`
	VendorName    string `json:"vendorName"`
	PhoneNumber   string `json:"phoneNumber"`
	MarketCluster string `json:"marketCluster"`
	Role          string `json:"role"`
	Language      string `json:"language"`
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/auth/login", h.Login)
}

// Login authenticates a vendor by phone number and password and issues a
// 24h JWT. Phone normalization happens upstream; the number arrives here
// already in E.164 form.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"message": "invalid JSON body",
		})
		return
	}

	// local struct keeps this package free of a vendor import cycle
	type authVendor struct {
		ID            int64
		VendorRef     string
		VendorName    string
		PhoneNumber   string
		PasswordHash  string
		MarketCluster string
		Role          string
		Language      string
		Status        string
	}

	var v authVendor
	if err := h.DB.Table("vendors").Where("phone_number = ?", req.PhoneNumber).First(&v).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_credentials",
			"message": "phone number or password incorrect",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(v.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_credentials",
			"message": "phone number or password incorrect",
		})
		return
	}

	if v.Status != "active" {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "account_inactive",
			"message": "account is " + v.Status,
		})
		return
	}

	claims := VendorClaims{
		VendorID:  v.ID,
		VendorRef: v.VendorRef,
		Role:      v.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "token_error",
			"message": "failed to generate token",
		})
		return
	}

	h.DB.Table("vendors").Where("id = ?", v.ID).Update("last_login", time.Now())

	c.JSON(http.StatusOK, LoginResponse{
		Token: tokenString,
		Vendor: LoginVendorPayload{
			ID:            v.ID,
			VendorRef:     v.VendorRef,
			VendorName:    v.VendorName,
			PhoneNumber:   v.PhoneNumber,
			MarketCluster: v.MarketCluster,
			Role:          v.Role,
			Language:      v.Language,
		},
	})
}
