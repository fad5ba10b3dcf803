package domain

import "time"

// AuthProvider enumerates how a user authenticates.
type AuthProvider string

const (
	AuthProviderLocal AuthProvider = "LOCAL"
	AuthProviderEntra AuthProvider = "ENTRA"
)

// User is the domain model for portal employees.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash *string
	Provider     AuthProvider
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
