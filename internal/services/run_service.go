package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/models"
)

// RunService records daemon starts and answers /about queries.
type RunService struct {
	db *gorm.DB
}

func NewRunService(db *gorm.DB) *RunService {
	return &RunService{db: db}
}

// RecordStartup writes one run row for this process start and returns it.
func (s *RunService) RecordStartup(pipeName string) (*models.Run, error) {
	run := &models.Run{StartTime: time.Now(), PipeName: pipeName}
	if err := s.db.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// LastRequestTime returns the time of the most recent API request, or nil
// when none has been recorded yet.
func (s *RunService) LastRequestTime() (*time.Time, error) {
	var req models.HTTPRequest
	err := s.db.Order("id DESC").First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req.At, nil
}
