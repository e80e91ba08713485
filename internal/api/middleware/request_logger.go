package middleware

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/models"
)

const HTTPRequestRowKey = "httpRequestRow"

// RequestCounter hands out request row ids up front so handlers can
// correlate grants to the request that created them before the row exists.
// The row itself is only inserted after the response; that insert race is
// deliberate and correlation stays best-effort (no foreign key).
type RequestCounter struct {
	n atomic.Uint64
}

// NewRequestCounter seeds the counter from the newest persisted request row.
func NewRequestCounter(db *gorm.DB) *RequestCounter {
	c := &RequestCounter{}
	var last models.HTTPRequest
	if err := db.Order("id DESC").First(&last).Error; err == nil {
		c.n.Store(uint64(last.ID))
	}
	return c
}

// Next reserves the next request id.
func (c *RequestCounter) Next() uint {
	return uint(c.n.Add(1))
}

// RequestLogger logs basic request information along with the request_id and
// persists one http_requests row after the response completes. The insert is
// best-effort: a failure is logged, never surfaced.
func RequestLogger(db *gorm.DB, counter *RequestCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := counter.Next()
		c.Set(HTTPRequestRowKey, reqID)

		c.Next()

		latency := time.Since(start)
		entry := GetRequestLogger(c)
		entry.WithFields(map[string]interface{}{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"latency": latency.String(),
		}).Info("handled request")

		row := models.HTTPRequest{
			ID:         reqID,
			At:         start,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			StatusCode: c.Writer.Status(),
		}
		if err := db.Create(&row).Error; err != nil {
			entry.WithField("error", err.Error()).Warn("failed to persist request row")
		}
	}
}

// CurrentRequestRowID returns the request id reserved for this call.
func CurrentRequestRowID(c *gin.Context) uint {
	if v, ok := c.Get(HTTPRequestRowKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
