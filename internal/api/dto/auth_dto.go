package dto

import (
	"time"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RoleAssignmentResponse is one sector role grant.
type RoleAssignmentResponse struct {
	SectorID string      `json:"sector_id"`
	Role     domain.Role `json:"role"`
}

// LoginResponse carries the session token and the caller's profile.
type LoginResponse struct {
	Token       string                   `json:"token"`
	ExpiresAt   time.Time                `json:"expires_at"`
	UserID      string                   `json:"user_id"`
	Name        string                   `json:"name"`
	Email       string                   `json:"email"`
	Assignments []RoleAssignmentResponse `json:"assignments"`
}
