package domain

import "time"

// Role enumerates the privilege levels a user can hold within a sector.
type Role string

const (
	RoleUser        Role = "USER"
	RoleCoordinator Role = "COORDINATOR"
	RoleAdmin       Role = "ADMIN"
)

// roleRank orders roles by privilege for effective-role resolution.
var roleRank = map[Role]int{
	RoleUser:        1,
	RoleCoordinator: 2,
	RoleAdmin:       3,
}

// Rank returns the privilege rank of the role; unknown roles rank lowest.
func (r Role) Rank() int {
	return roleRank[r]
}

// Sector represents an organizational unit (department).
type Sector struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleAssignment binds a user to a role within a sector. A user may hold
// assignments in several sectors with different roles.
type RoleAssignment struct {
	ID        string
	UserID    string
	SectorID  string
	Role      Role
	CreatedAt time.Time
}

// EffectiveRole resolves the highest-privilege role the assignments grant in
// the given sector. Returns false when the user has no assignment there.
func EffectiveRole(assignments []RoleAssignment, sectorID string) (Role, bool) {
	var best Role
	found := false
	for _, a := range assignments {
		if a.SectorID != sectorID {
			continue
		}
		if !found || a.Role.Rank() > best.Rank() {
			best = a.Role
			found = true
		}
	}
	return best, found
}

// IsGlobalAdmin reports whether any assignment grants ADMIN in any sector.
func IsGlobalAdmin(assignments []RoleAssignment) bool {
	for _, a := range assignments {
		if a.Role == RoleAdmin {
			return true
		}
	}
	return false
}
