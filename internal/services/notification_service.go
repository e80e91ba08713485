package services

import (
	"fmt"

	"github.com/containrrr/shoutrrr"

	"github.com/Wikid82/warden/internal/logger"
)

// NotificationService pushes operator alerts (denied elevations, audit write
// failures, broker spawn problems) through shoutrrr sender URLs. Delivery is
// best-effort and never blocks or fails a request.
type NotificationService struct {
	urls []string
}

func NewNotificationService(urls []string) *NotificationService {
	return &NotificationService{urls: urls}
}

// Notify dispatches the message to every configured sender asynchronously.
func (s *NotificationService) Notify(title, message string) {
	if len(s.urls) == 0 {
		return
	}

	body := fmt.Sprintf("%s: %s", title, message)
	for _, url := range s.urls {
		go func(url string) {
			if err := shoutrrr.Send(url, body); err != nil {
				logger.WithFields(map[string]interface{}{
					"url":   url,
					"error": err.Error(),
				}).Warn("failed to send notification")
			}
		}(url)
	}
}
