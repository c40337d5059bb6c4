package pagination

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination holds the parsed page window.
type Pagination struct {
	Limit    int   `json:"limit"`
	Offset   int   `json:"offset"`
	Page     int   `json:"page"`
	MaxLimit int   `json:"maxLimit"`
	Total    int64 `json:"total,omitempty"`
}

// Parse reads `limit` and `page` query params. Defaults: limit=20, page=1.
// The ceiling comes from env MAX_LIMIT (default 500). Invalid params abort
// the request with 400; callers must check c.IsAborted() after calling.
func Parse(c *gin.Context) Pagination {
	limit := 20
	maxLimit := 500

	if ml := os.Getenv("MAX_LIMIT"); ml != "" {
		if v, err := strconv.Atoi(ml); err == nil && v > 0 {
			maxLimit = v
		}
	}

	if ls := c.Query("limit"); ls != "" {
		v, err := strconv.Atoi(ls)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid limit parameter"})
			c.Abort()
			return Pagination{}
		}
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	page := 1
	if ps := c.Query("page"); ps != "" {
		v, err := strconv.Atoi(ps)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid page parameter"})
			c.Abort()
			return Pagination{}
		}
		page = v
	}

	return Pagination{
		Limit:    limit,
		Offset:   (page - 1) * limit,
		Page:     page,
		MaxLimit: maxLimit,
	}
}

// Meta is the envelope handlers attach next to paged data.
func (p Pagination) Meta(total int64) gin.H {
	return gin.H{"total": total, "limit": p.Limit, "page": p.Page, "max_limit": p.MaxLimit}
}
