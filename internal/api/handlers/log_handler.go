package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/services"
)

type LogHandler struct {
	service *services.AuditService
}

func NewLogHandler(service *services.AuditService) *LogHandler {
	return &LogHandler{service: service}
}

// Query handles GET /log/jit
func (h *LogHandler) Query(c *gin.Context) {
	opts := services.AuditQueryOptions{}

	if v := c.Query("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.PageSize = n
		}
	}
	if v := c.Query("cursor"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		opts.Cursor = uint(n)
	}
	if v := c.Query("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid success filter"})
			return
		}
		opts.Success = &b
	}
	if v := c.Query("start_micros"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			opts.StartMicros = n
		}
	}
	if v := c.Query("end_micros"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			opts.EndMicros = n
		}
	}

	page, err := h.service.Query(opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /log/jit/:id
func (h *LogHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}

	row, err := h.service.Get(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrLogRowNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "log row not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, row)
}
