package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/models"
)

// GrantService owns time-boxed session elevation grants.
type GrantService struct {
	db         *gorm.DB
	policies   *PolicyService
	maxSeconds int
}

func NewGrantService(db *gorm.DB, policies *PolicyService, maxSeconds int) *GrantService {
	return &GrantService{db: db, policies: policies, maxSeconds: maxSeconds}
}

// ElevateTemporary records a time-boxed session elevation grant, clamped to
// the configured maximum.
func (s *GrantService) ElevateTemporary(user models.User, reqID uint, seconds int) (*models.ElevateTmpRequest, error) {
	if seconds <= 0 {
		return nil, fmt.Errorf("%w: seconds must be positive", ErrMalformedLaunch)
	}
	if seconds > s.maxSeconds {
		seconds = s.maxSeconds
	}

	stored, err := s.policies.ResolveUser(user)
	if err != nil {
		return nil, err
	}

	grant := &models.ElevateTmpRequest{
		ReqID:     reqID,
		UserID:    stored.ID,
		Seconds:   seconds,
		ExpiresAt: time.Now().Add(time.Duration(seconds) * time.Second),
	}
	if err := s.db.Create(grant).Error; err != nil {
		return nil, err
	}
	grant.User = *stored
	return grant, nil
}

// ExpireTemporary revokes grants past their expiry. Run periodically.
func (s *GrantService) ExpireTemporary() (int64, error) {
	res := s.db.Model(&models.ElevateTmpRequest{}).
		Where("revoked = ? AND expires_at <= ?", false, time.Now()).
		Update("revoked", true)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		logger.WithFields(map[string]interface{}{
			"count": res.RowsAffected,
		}).Info("expired temporary elevation grants")
	}
	return res.RowsAffected, nil
}
