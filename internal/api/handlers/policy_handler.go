package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/services"
)

type PolicyHandler struct {
	service *services.PolicyService
}

func NewPolicyHandler(service *services.PolicyService) *PolicyHandler {
	return &PolicyHandler{service: service}
}

// ListProfiles handles GET /policy/profiles
func (h *PolicyHandler) ListProfiles(c *gin.Context) {
	ids, err := h.service.ListProfiles()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, ids)
}

// CreateProfile handles POST /policy/profiles
func (h *PolicyHandler) CreateProfile(c *gin.Context) {
	var profile models.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.CreateProfile(&profile); err != nil {
		if errors.Is(err, services.ErrInvalidProfile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, profile)
}

// GetProfile handles GET /policy/profiles/:id
func (h *PolicyHandler) GetProfile(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile handles PUT /policy/profiles/:id
func (h *PolicyHandler) UpdateProfile(c *gin.Context) {
	var updates models.Profile
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.service.UpdateProfile(c.Param("id"), &updates)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProfileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		case errors.Is(err, services.ErrInvalidProfile):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, profile)
}

// DeleteProfile handles DELETE /policy/profiles/:id
func (h *PolicyHandler) DeleteProfile(c *gin.Context) {
	if err := h.service.DeleteProfile(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAssignments handles GET /policy/assignments
func (h *PolicyHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.service.GetAssignments()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, assignments)
}

// SetAssignment handles PUT /policy/assignments/:id
func (h *PolicyHandler) SetAssignment(c *gin.Context) {
	var users []models.User
	if err := c.ShouldBindJSON(&users); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetAssignment(c.Param("id"), users); err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /policy/me
func (h *PolicyHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	active, available, err := h.service.ActiveProfile(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"active": active, "available": available})
}

// SetMe handles PUT /policy/me/:id
func (h *PolicyHandler) SetMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	if err := h.service.SetActiveProfile(user, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, services.ErrProfileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		case errors.Is(err, services.ErrProfileNotAssigned):
			c.JSON(http.StatusForbidden, gin.H{"error": "profile is not assigned to you"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// ListUsers handles GET /policy/users
func (h *PolicyHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, users)
}
