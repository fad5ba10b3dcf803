package domain

import "time"

// SLAPolicy defines response/resolution targets in business minutes for a
// priority. Among multiple active policies for the same priority the most
// recently created wins.
type SLAPolicy struct {
	ID                   string
	Priority             TicketPriority
	FirstResponseMinutes int
	ResolutionMinutes    int
	Active               bool
	CreatedAt            time.Time
}

// SLACycle tracks SLA accounting for one open/reopen span of a ticket.
// Cycles are numbered per ticket starting at 1; at most one cycle per ticket
// has ResolvedAt nil.
type SLACycle struct {
	ID                 string
	TicketID           string
	Number             int
	OpenedAt           time.Time
	FirstResponseDueAt time.Time
	ResolutionDueAt    time.Time
	FirstResponseAt    *time.Time
	ResolvedAt         *time.Time

	// Breach flags are monotonic: once true they are never cleared.
	FirstResponseBreached bool
	ResolutionBreached    bool

	// Manual override audit trail.
	ResolutionDueManual    bool
	ResolutionDueReason    string
	ResolutionDueUpdatedBy *string
	ResolutionDueUpdatedAt *time.Time

	// Pause bookkeeping for AGUARDANDO_USUARIO spans.
	PausedAt                   *time.Time
	PausedTotalBusinessMinutes int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPaused reports whether the cycle is currently paused.
func (c *SLACycle) IsPaused() bool {
	return c.PausedAt != nil
}

// IsResolved reports whether the cycle is terminal.
func (c *SLACycle) IsResolved() bool {
	return c.ResolvedAt != nil
}
