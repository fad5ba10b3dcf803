package sla

import (
	"errors"
	"time"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// CycleManager owns SLA cycle lifecycle transitions. Operations mutate the
// cycle in place; persistence is the caller's concern. Double pause and
// double resolve are no-ops so upstream event handlers can retry safely.
type CycleManager struct {
	cal *Calendar
}

var (
	// ErrZeroMinutePolicy rejects policies that would produce instant breaches.
	ErrZeroMinutePolicy = errors.New("sla: policy defines non-positive target minutes")
	// ErrCycleResolved rejects mutations of a terminal cycle.
	ErrCycleResolved = errors.New("sla: cycle already resolved")
)

// NewCycleManager builds a manager around the shared business calendar.
func NewCycleManager(cal *Calendar) *CycleManager {
	return &CycleManager{cal: cal}
}

// Calendar exposes the underlying business calendar.
func (m *CycleManager) Calendar() *Calendar {
	return m.cal
}

// OpenCycleInput captures everything needed to open cycle N for a ticket.
// PinnedResolutionDue carries a still-standing manual override from the
// previous cycle; it takes precedence over the policy projection.
type OpenCycleInput struct {
	TicketID            string
	Number              int
	Policy              domain.SLAPolicy
	OpenedAt            time.Time
	PinnedResolutionDue *time.Time
	PinnedReason        string
	PinnedBy            *string
}

// OpenCycle creates a RUNNING cycle with due dates projected in business time.
func (m *CycleManager) OpenCycle(in OpenCycleInput) (*domain.SLACycle, error) {
	if in.Policy.FirstResponseMinutes <= 0 || in.Policy.ResolutionMinutes <= 0 {
		return nil, ErrZeroMinutePolicy
	}
	cycle := &domain.SLACycle{
		TicketID:           in.TicketID,
		Number:             in.Number,
		OpenedAt:           in.OpenedAt,
		FirstResponseDueAt: m.cal.AddBusinessMinutes(in.OpenedAt, in.Policy.FirstResponseMinutes),
		ResolutionDueAt:    m.cal.AddBusinessMinutes(in.OpenedAt, in.Policy.ResolutionMinutes),
	}
	if in.PinnedResolutionDue != nil {
		cycle.ResolutionDueAt = *in.PinnedResolutionDue
		cycle.ResolutionDueManual = true
		cycle.ResolutionDueReason = in.PinnedReason
		cycle.ResolutionDueUpdatedBy = in.PinnedBy
	}
	return cycle, nil
}

// RecordFirstResponse marks the first staff response. Subsequent calls are
// no-ops. The breach check excludes an in-progress pause span.
func (m *CycleManager) RecordFirstResponse(cycle *domain.SLACycle, at time.Time) {
	if cycle.FirstResponseAt != nil || cycle.IsResolved() {
		return
	}
	stamp := at
	cycle.FirstResponseAt = &stamp
	due := cycle.FirstResponseDueAt
	if cycle.IsPaused() {
		paused := m.cal.BusinessMinutesBetween(*cycle.PausedAt, at)
		due = m.cal.AddBusinessMinutes(due, paused)
	}
	if at.After(due) {
		cycle.FirstResponseBreached = true
	}
}

// Pause suspends SLA accounting; valid only from RUNNING. No-op when already
// paused or resolved.
func (m *CycleManager) Pause(cycle *domain.SLACycle, at time.Time) {
	if cycle.IsPaused() || cycle.IsResolved() {
		return
	}
	stamp := at
	cycle.PausedAt = &stamp
}

// Resume ends a pause span: the elapsed business minutes are accumulated and
// both unmet due dates shift forward by that amount. No-op when not paused.
func (m *CycleManager) Resume(cycle *domain.SLACycle, at time.Time) {
	if !cycle.IsPaused() || cycle.IsResolved() {
		return
	}
	paused := m.cal.BusinessMinutesBetween(*cycle.PausedAt, at)
	cycle.PausedTotalBusinessMinutes += paused
	cycle.PausedAt = nil
	if paused == 0 {
		return
	}
	if cycle.FirstResponseAt == nil {
		cycle.FirstResponseDueAt = m.cal.AddBusinessMinutes(cycle.FirstResponseDueAt, paused)
	}
	cycle.ResolutionDueAt = m.cal.AddBusinessMinutes(cycle.ResolutionDueAt, paused)
}

// Resolve terminates the cycle. Idempotent: resolving an already-resolved
// cycle leaves it unchanged. A dangling pause span is settled first so the
// breach check compares against the fully extended due date.
func (m *CycleManager) Resolve(cycle *domain.SLACycle, at time.Time) {
	if cycle.IsResolved() {
		return
	}
	if cycle.IsPaused() {
		m.Resume(cycle, at)
	}
	stamp := at
	cycle.ResolvedAt = &stamp
	if at.After(cycle.ResolutionDueAt) {
		cycle.ResolutionBreached = true
	}
}

// OverrideResolutionDue pins the resolution due date manually. The existing
// breach flag is never recomputed for time already elapsed; only subsequent
// evaluation uses the new due date.
func (m *CycleManager) OverrideResolutionDue(cycle *domain.SLACycle, newDue time.Time, reason string, actorID string, at time.Time) error {
	if cycle.IsResolved() {
		return ErrCycleResolved
	}
	cycle.ResolutionDueAt = newDue
	cycle.ResolutionDueManual = true
	cycle.ResolutionDueReason = reason
	actor := actorID
	cycle.ResolutionDueUpdatedBy = &actor
	stamp := at
	cycle.ResolutionDueUpdatedAt = &stamp
	return nil
}
