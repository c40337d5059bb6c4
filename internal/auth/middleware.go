package auth

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// VendorClaims is what goes into the JWT.
type VendorClaims struct {
	VendorID  int64  `json:"vendorId"`
	VendorRef string `json:"vendorRef"`
	Role      string `json:"role"` // "VENDOR" / "ADMIN"
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("qooa-dev-secret")
}

// SignClaims signs a token for the given claims. Exposed so registration
// can hand out a session without re-authenticating.
func SignClaims(claims VendorClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// AuthMiddleware verifies the Bearer token and puts a CurrentVendor on the
// context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header missing or invalid",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.ParseWithClaims(tokenString, &VendorClaims{}, func(t *jwt.Token) (interface{}, error) {
			return jwtSecret(), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid token",
			})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*VendorClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid token claims",
			})
			c.Abort()
			return
		}

		c.Set(ContextVendorKey, CurrentVendor{
			ID:        claims.VendorID,
			VendorRef: claims.VendorRef,
			Role:      Role(claims.Role),
		})
		c.Next()
	}
}

// AdminMiddleware rejects non-admin principals. Must run after
// AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cv, ok := GetCurrentVendor(c)
		if !ok || !cv.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "admin access required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetCurrentVendor pulls the authenticated principal off the context.
func GetCurrentVendor(c *gin.Context) (CurrentVendor, bool) {
	v, ok := c.Get(ContextVendorKey)
	if !ok {
		return CurrentVendor{}, false
	}
	cv, ok := v.(CurrentVendor)
	return cv, ok
}
