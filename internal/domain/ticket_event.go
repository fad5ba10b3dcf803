package domain

import "time"

// TicketEventType captures what happened in an event log entry.
type TicketEventType string

const (
	EventTicketCreated    TicketEventType = "ticket_created"
	EventStatusChanged    TicketEventType = "status_changed"
	EventAssigneesChanged TicketEventType = "assignees_changed"
	EventCommentAdded     TicketEventType = "comment_added"
	EventAttachmentAdded  TicketEventType = "attachment_added"
	EventResolved         TicketEventType = "resolved"
	EventReopened         TicketEventType = "reopened"
	EventPriorityChanged  TicketEventType = "priority_changed"
	EventCategoryChanged  TicketEventType = "category_changed"
)

// TicketEvent is an immutable, append-only history entry. Payload carries
// before/after values keyed by field name.
type TicketEvent struct {
	ID        string
	TicketID  string
	Type      TicketEventType
	ActorID   *string
	Payload   map[string]any
	CreatedAt time.Time
}

// TicketComment is an append-only ticket thread entry. Internal comments are
// visible only to target-sector staff.
type TicketComment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	Internal  bool
	CreatedAt time.Time
}
