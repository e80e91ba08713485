package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/services"
	"github.com/Wikid82/warden/internal/version"
)

type AboutHandler struct {
	runs     *services.RunService
	runID    uint
	started  time.Time
	pipeName string
}

func NewAboutHandler(runs *services.RunService, runID uint, started time.Time, pipeName string) *AboutHandler {
	return &AboutHandler{runs: runs, runID: runID, started: started, pipeName: pipeName}
}

// HealthHandler responds to liveness checks.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// About handles GET /about
func (h *AboutHandler) About(c *gin.Context) {
	lastRequest, err := h.runs.LastRequestTime()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":              version.Name,
		"version":           version.Full(),
		"run_id":            h.runID,
		"start_time":        h.started,
		"pipe_name":         h.pipeName,
		"last_request_time": lastRequest,
	})
}
