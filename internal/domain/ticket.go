package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "ABERTO"
	TicketStatusInProgress      TicketStatus = "EM_ANDAMENTO"
	TicketStatusWaitingUser     TicketStatus = "AGUARDANDO_USUARIO"
	TicketStatusWaitingApproval TicketStatus = "AGUARDANDO_APROVACAO"
	TicketStatusResolved        TicketStatus = "RESOLVIDO"
	TicketStatusCancelled       TicketStatus = "CANCELADO"
)

// IsTerminal reports whether the status closes the ticket.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusCancelled
}

// Valid reports whether the status is a known value.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingUser,
		TicketStatusWaitingApproval, TicketStatusResolved, TicketStatusCancelled:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "BAIXA"
	TicketPriorityMedium TicketPriority = "MEDIA"
	TicketPriorityHigh   TicketPriority = "ALTA"
	TicketPriorityUrgent TicketPriority = "URGENTE"
)

// Valid reports whether the priority is a known value.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for portal service requests.
type Ticket struct {
	ID                 string
	ExternalKey        string
	Title              string
	Description        string
	RequestData        map[string]FieldValue
	RequestDataVersion int
	Status             TicketStatus
	Priority           TicketPriority
	RequesterSectorID  string
	TargetSectorID     string
	CategoryID         string
	CreatedByID        string
	ResourceID         *string
	Tags               []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ClosedAt           *time.Time
}

// TicketAssignee links a ticket to an assigned user; the pair is unique.
type TicketAssignee struct {
	ID         string
	TicketID   string
	UserID     string
	AssignedAt time.Time
}
