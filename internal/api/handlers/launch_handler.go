package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/services"
)

type LaunchHandler struct {
	service *services.ElevationService
	grants  *services.GrantService
}

func NewLaunchHandler(service *services.ElevationService, grants *services.GrantService) *LaunchHandler {
	return &LaunchHandler{service: service, grants: grants}
}

// Launch handles POST /launch
func (h *LaunchHandler) Launch(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req services.LaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.User = user

	outcome, err := h.service.Launch(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, outcome)
	case errors.Is(err, services.ErrMalformedLaunch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed launch request", "outcome": outcome})
	case errors.Is(err, services.ErrLaunchDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "elevation denied", "outcome": outcome})
	case errors.Is(err, services.ErrAuditWriteFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type elevateTemporaryRequest struct {
	Seconds int `json:"seconds" binding:"required"`
}

// ElevateTemporary handles POST /elevate/temporary
func (h *LaunchHandler) ElevateTemporary(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req elevateTemporaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grant, err := h.grants.ElevateTemporary(user, middleware.CurrentRequestRowID(c), req.Seconds)
	if err != nil {
		if errors.Is(err, services.ErrMalformedLaunch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, grant)
}
