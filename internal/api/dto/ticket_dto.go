package dto

import (
	"time"

	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title             string                       `json:"title"`
	Description       string                       `json:"description"`
	RequestData       map[string]domain.FieldValue `json:"request_data"`
	Priority          domain.TicketPriority        `json:"priority"`
	RequesterSectorID string                       `json:"requester_sector_id"`
	TargetSectorID    string                       `json:"target_sector_id"`
	CategoryID        string                       `json:"category_id"`
	ResourceID        *string                      `json:"resource_id"`
	Tags              []string                     `json:"tags"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// AssignRequest payload.
type AssignRequest struct {
	UserID string `json:"user_id"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// ChangeCategoryRequest payload.
type ChangeCategoryRequest struct {
	CategoryID string `json:"category_id"`
}

// OverrideDueRequest payload.
type OverrideDueRequest struct {
	ResolutionDueAt time.Time `json:"resolution_due_at"`
	Reason          string    `json:"reason"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                string                `json:"id"`
	ExternalKey       string                `json:"external_key"`
	Title             string                `json:"title"`
	Status            domain.TicketStatus   `json:"status"`
	Priority          domain.TicketPriority `json:"priority"`
	RequesterSectorID string                `json:"requester_sector_id"`
	TargetSectorID    string                `json:"target_sector_id"`
	CategoryID        string                `json:"category_id"`
	Tags              []string              `json:"tags"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	ClosedAt          *time.Time            `json:"closed_at,omitempty"`
}

// TicketDetailResponse provides full ticket info with thread and SLA history.
type TicketDetailResponse struct {
	TicketSummary
	Description        string                       `json:"description"`
	RequestData        map[string]domain.FieldValue `json:"request_data"`
	RequestDataVersion int                          `json:"request_data_version"`
	CreatedByID        string                       `json:"created_by_id"`
	ResourceID         *string                      `json:"resource_id,omitempty"`
	Assignees          []string                     `json:"assignees"`
	Comments           []CommentResponse            `json:"comments"`
	Cycles             []SLACycleResponse           `json:"sla_cycles"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"created_at"`
}

// SLACycleResponse exposes one SLA cycle's accounting.
type SLACycleResponse struct {
	Number                int        `json:"number"`
	OpenedAt              time.Time  `json:"opened_at"`
	FirstResponseDueAt    time.Time  `json:"first_response_due_at"`
	FirstResponseAt       *time.Time `json:"first_response_at,omitempty"`
	FirstResponseBreached bool       `json:"first_response_breached"`
	ResolutionDueAt       time.Time  `json:"resolution_due_at"`
	ResolutionDueManual   bool       `json:"resolution_due_manual"`
	ResolutionDueReason   string     `json:"resolution_due_reason,omitempty"`
	ResolvedAt            *time.Time `json:"resolved_at,omitempty"`
	ResolutionBreached    bool       `json:"resolution_breached"`
	Paused                bool       `json:"paused"`
	PausedBusinessMinutes int        `json:"paused_business_minutes"`
}

// EventResponse represents one history entry.
type EventResponse struct {
	ID        string                 `json:"id"`
	Type      domain.TicketEventType `json:"type"`
	ActorID   *string                `json:"actor_id,omitempty"`
	Payload   map[string]any         `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}

// FromTicket maps the aggregate to its summary representation.
func FromTicket(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:                t.ID,
		ExternalKey:       t.ExternalKey,
		Title:             t.Title,
		Status:            t.Status,
		Priority:          t.Priority,
		RequesterSectorID: t.RequesterSectorID,
		TargetSectorID:    t.TargetSectorID,
		CategoryID:        t.CategoryID,
		Tags:              t.Tags,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		ClosedAt:          t.ClosedAt,
	}
}

// FromTicketDetail maps the service detail bundle.
func FromTicketDetail(d *service.TicketDetail) TicketDetailResponse {
	resp := TicketDetailResponse{
		TicketSummary:      FromTicket(d.Ticket),
		Description:        d.Ticket.Description,
		RequestData:        d.Ticket.RequestData,
		RequestDataVersion: d.Ticket.RequestDataVersion,
		CreatedByID:        d.Ticket.CreatedByID,
		ResourceID:         d.Ticket.ResourceID,
		Assignees:          make([]string, 0, len(d.Assignees)),
		Comments:           make([]CommentResponse, 0, len(d.Comments)),
		Cycles:             make([]SLACycleResponse, 0, len(d.Cycles)),
	}
	for _, a := range d.Assignees {
		resp.Assignees = append(resp.Assignees, a.UserID)
	}
	for _, c := range d.Comments {
		resp.Comments = append(resp.Comments, CommentResponse{
			ID:        c.ID,
			AuthorID:  c.AuthorID,
			Body:      c.Body,
			Internal:  c.Internal,
			CreatedAt: c.CreatedAt,
		})
	}
	for i := range d.Cycles {
		resp.Cycles = append(resp.Cycles, FromCycle(&d.Cycles[i]))
	}
	return resp
}

// FromCycle maps one SLA cycle.
func FromCycle(c *domain.SLACycle) SLACycleResponse {
	return SLACycleResponse{
		Number:                c.Number,
		OpenedAt:              c.OpenedAt,
		FirstResponseDueAt:    c.FirstResponseDueAt,
		FirstResponseAt:       c.FirstResponseAt,
		FirstResponseBreached: c.FirstResponseBreached,
		ResolutionDueAt:       c.ResolutionDueAt,
		ResolutionDueManual:   c.ResolutionDueManual,
		ResolutionDueReason:   c.ResolutionDueReason,
		ResolvedAt:            c.ResolvedAt,
		ResolutionBreached:    c.ResolutionBreached,
		Paused:                c.IsPaused(),
		PausedBusinessMinutes: c.PausedTotalBusinessMinutes,
	}
}

// FromEvent maps one history entry.
func FromEvent(e *domain.TicketEvent) EventResponse {
	return EventResponse{
		ID:        e.ID,
		Type:      e.Type,
		ActorID:   e.ActorID,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
}
