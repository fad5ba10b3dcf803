package dto

import (
	"time"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// PutSettingRequest payload.
type PutSettingRequest struct {
	Value string `json:"value"`
}

// NotificationToggleRequest payload.
type NotificationToggleRequest struct {
	Type    domain.NotificationType `json:"type"`
	Enabled bool                    `json:"enabled"`
}

// SettingResponse is one settings row.
type SettingResponse struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy *string   `json:"updated_by,omitempty"`
}

// SLAPolicyResponse is one policy row for the admin screen.
type SLAPolicyResponse struct {
	ID                   string                `json:"id"`
	Priority             domain.TicketPriority `json:"priority"`
	FirstResponseMinutes int                   `json:"first_response_minutes"`
	ResolutionMinutes    int                   `json:"resolution_minutes"`
	Active               bool                  `json:"active"`
}

// AuditEntryResponse is one audit log row.
type AuditEntryResponse struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IP         string         `json:"ip,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
