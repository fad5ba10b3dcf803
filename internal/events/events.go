package events

import (
	"time"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// Event represents a ticket domain event emitted by services. Payload holds
// before/after values keyed by field name and is persisted verbatim on the
// ticket event log.
type Event struct {
	ID        string                 `json:"id"`
	Type      domain.TicketEventType `json:"type"`
	TicketID  string                 `json:"ticket_id"`
	ActorID   *string                `json:"actor_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]any         `json:"payload"`
}

// StatusChangedPayload builds the payload for a status transition.
func StatusChangedPayload(oldStatus, newStatus domain.TicketStatus) map[string]any {
	return map[string]any{
		"old_status": oldStatus,
		"new_status": newStatus,
	}
}

// PriorityChangedPayload builds the payload for a priority change.
func PriorityChangedPayload(oldPriority, newPriority domain.TicketPriority) map[string]any {
	return map[string]any{
		"old_priority": oldPriority,
		"new_priority": newPriority,
	}
}

// CategoryChangedPayload builds the payload for a category change.
func CategoryChangedPayload(oldCategory, newCategory string) map[string]any {
	return map[string]any{
		"old_category_id": oldCategory,
		"new_category_id": newCategory,
	}
}

// AssigneesChangedPayload builds the payload for an assignment change.
func AssigneesChangedPayload(oldAssignees, newAssignees []string) map[string]any {
	return map[string]any{
		"old_assignees": oldAssignees,
		"new_assignees": newAssignees,
	}
}
