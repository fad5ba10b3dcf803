package dto

import (
	"time"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// NotificationResponse is one inbox row.
type NotificationResponse struct {
	ID        int64                   `json:"id"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	LinkURL   *string                 `json:"link_url,omitempty"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt time.Time               `json:"created_at"`
}

// FromNotification maps one inbox row.
func FromNotification(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		LinkURL:   n.LinkURL,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
