package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/intranet-hub/portal-service/internal/authz"
	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/events"
	"github.com/intranet-hub/portal-service/internal/repository"
	"github.com/intranet-hub/portal-service/internal/sla"
	apperrors "github.com/intranet-hub/portal-service/pkg/util"
)

// TicketService coordinates the ticket state machine, SLA cycle accounting
// and the event log. Every mutation runs inside one unit of work so the
// transition, the cycle update and the event append land atomically.
type TicketService struct {
	tickets    repository.TicketRepository
	cycles     repository.SLACycleRepository
	eventLog   repository.TicketEventRepository
	comments   repository.CommentRepository
	categories repository.CategoryRepository
	sectors    repository.SectorRepository
	policies   repository.SLAPolicyRepository
	roles      repository.RoleAssignmentRepository
	audit      repository.AuditRepository
	uow        repository.UnitOfWork
	cycleMgr   *sla.CycleManager
	dispatcher events.Dispatcher
	notifier   *NotificationService
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CycleRepo    repository.SLACycleRepository
	EventRepo    repository.TicketEventRepository
	CommentRepo  repository.CommentRepository
	CategoryRepo repository.CategoryRepository
	SectorRepo   repository.SectorRepository
	PolicyRepo   repository.SLAPolicyRepository
	RoleRepo     repository.RoleAssignmentRepository
	AuditRepo    repository.AuditRepository
	UnitOfWork   repository.UnitOfWork
	CycleManager *sla.CycleManager
	Dispatcher   events.Dispatcher
	Notifier     *NotificationService
	Logger       *zap.Logger
	Now          func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title             string
	Description       string
	RequestData       map[string]domain.FieldValue
	Priority          domain.TicketPriority
	RequesterSectorID string
	TargetSectorID    string
	CategoryID        string
	ResourceID        *string
	Tags              []string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	TargetSectorID *string
	CategoryID     *string
	AssigneeID     *string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	SearchTerm     *string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// TicketDetail bundles a ticket with its visible thread and SLA history.
type TicketDetail struct {
	Ticket    *domain.Ticket
	Comments  []domain.TicketComment
	Cycles    []domain.SLACycle
	Assignees []domain.TicketAssignee
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		cycles:     deps.CycleRepo,
		eventLog:   deps.EventRepo,
		comments:   deps.CommentRepo,
		categories: deps.CategoryRepo,
		sectors:    deps.SectorRepo,
		policies:   deps.PolicyRepo,
		roles:      deps.RoleRepo,
		audit:      deps.AuditRepo,
		uow:        deps.UnitOfWork,
		cycleMgr:   deps.CycleManager,
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		now:        now,
	}
}

// CreateTicket validates intake data, opens the ticket with SLA cycle 1 and
// appends the ticket_created event, all in one transaction.
func (s *TicketService) CreateTicket(ctx context.Context, principal authz.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	if err := s.authorize(ctx, principal, authz.ActionCreateTicket, authz.Target{
		RequesterSectorID: input.RequesterSectorID,
		TargetSectorID:    input.TargetSectorID,
	}); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}
	for _, sectorID := range []string{input.RequesterSectorID, input.TargetSectorID} {
		sector, err := s.sectors.GetByID(ctx, sectorID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("unknown sector", map[string]any{"sector_id": sectorID})
			}
			return nil, apperrors.MapError(err)
		}
		if !sector.IsActive {
			return nil, apperrors.NewValidationError("sector inactive", map[string]any{"sector_id": sectorID})
		}
	}
	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category_id": input.CategoryID})
		}
		return nil, apperrors.MapError(err)
	}
	if !category.IsActive {
		return nil, apperrors.NewValidationError("category inactive", map[string]any{"category_id": category.ID})
	}
	if problems := category.ValidateRequestData(input.RequestData); len(problems) > 0 {
		details := make(map[string]any, len(problems))
		for key, msg := range problems {
			details[key] = msg
		}
		return nil, apperrors.NewValidationError("request data invalid", details)
	}

	policy, err := s.lookupPolicy(ctx, input.Priority)
	if err != nil {
		return nil, err
	}

	openedAt := s.now()
	ticket := &domain.Ticket{
		ExternalKey:        generateTicketKey(),
		Title:              title,
		Description:        strings.TrimSpace(input.Description),
		RequestData:        input.RequestData,
		RequestDataVersion: 1,
		Status:             domain.TicketStatusOpen,
		Priority:           input.Priority,
		RequesterSectorID:  input.RequesterSectorID,
		TargetSectorID:     input.TargetSectorID,
		CategoryID:         input.CategoryID,
		CreatedByID:        principal.UserID,
		ResourceID:         input.ResourceID,
		Tags:               input.Tags,
	}

	cycle, err := s.cycleMgr.OpenCycle(sla.OpenCycleInput{
		Number:   1,
		Policy:   *policy,
		OpenedAt: openedAt,
	})
	if err != nil {
		return nil, apperrors.NewSLAPolicyMissing(string(input.Priority))
	}

	var created events.Event
	err = s.uow.InTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		cycle.TicketID = ticket.ID
		if err := s.cycles.Create(ctx, cycle); err != nil {
			return err
		}
		created = s.newEvent(domain.EventTicketCreated, ticket.ID, principal.UserID, map[string]any{
			"title":            ticket.Title,
			"priority":         ticket.Priority,
			"target_sector_id": ticket.TargetSectorID,
			"category_id":      ticket.CategoryID,
		})
		return s.appendEvent(ctx, created)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, created)
	return ticket, nil
}

// GetTicket fetches a ticket with comments visible to the principal.
func (s *TicketService) GetTicket(ctx context.Context, principal authz.Principal, ticketID string) (*TicketDetail, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTicket(ctx, principal, authz.ActionViewTicket, ticket); err != nil {
		return nil, err
	}
	// internal comments only for target-sector staff
	includeInternal := authz.CanAct(principal, authz.ActionInternalComment, ticketTarget(ticket), nil)
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, includeInternal)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	cycles, err := s.cycles.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	assignees, err := s.tickets.ListAssignees(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetail{Ticket: ticket, Comments: comments, Cycles: cycles, Assignees: assignees}, nil
}

// ListTickets returns tickets scoped to the principal's sector memberships.
func (s *TicketService) ListTickets(ctx context.Context, principal authz.Principal, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		TargetSectorID: filter.TargetSectorID,
		CategoryID:     filter.CategoryID,
		AssigneeID:     filter.AssigneeID,
		Statuses:       filter.Statuses,
		Priorities:     filter.Priorities,
		SearchTerm:     filter.SearchTerm,
		CreatedFrom:    filter.CreatedFrom,
		CreatedTo:      filter.CreatedTo,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	}
	s.applyPrincipalScope(&repoFilter, principal)
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ChangeStatus applies a status transition with its SLA side effects.
func (s *TicketService) ChangeStatus(ctx context.Context, principal authz.Principal, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTicket(ctx, principal, authz.ActionManageTicket, ticket); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if oldStatus == newStatus {
		return ticket, nil
	}
	if oldStatus.IsTerminal() && newStatus.IsTerminal() {
		return nil, apperrors.NewValidationError("closed tickets can only be reopened", map[string]any{
			"status": oldStatus, "requested": newStatus,
		})
	}

	at := s.now()
	var emitted []events.Event
	err = s.uow.InTx(ctx, func(ctx context.Context) error {
		reopening := oldStatus.IsTerminal()
		if reopening {
			if err := s.reopenCycle(ctx, ticket, at); err != nil {
				return err
			}
			ticket.ClosedAt = nil
		}

		cycle, err := s.openCycleOf(ctx, ticket.ID)
		if err != nil {
			return err
		}

		switch {
		case newStatus.IsTerminal():
			if cycle != nil {
				s.cycleMgr.Resolve(cycle, at)
				if err := s.cycles.Update(ctx, cycle); err != nil {
					return err
				}
			}
			closed := at
			ticket.ClosedAt = &closed
		case newStatus == domain.TicketStatusWaitingUser:
			if cycle != nil {
				s.cycleMgr.Pause(cycle, at)
				if err := s.cycles.Update(ctx, cycle); err != nil {
					return err
				}
			}
		case oldStatus == domain.TicketStatusWaitingUser:
			if cycle != nil {
				s.cycleMgr.Resume(cycle, at)
				if err := s.cycles.Update(ctx, cycle); err != nil {
					return err
				}
			}
		}

		// moving an open ticket into work counts as the first response
		if cycle != nil && !reopening && oldStatus == domain.TicketStatusOpen && newStatus == domain.TicketStatusInProgress {
			s.cycleMgr.RecordFirstResponse(cycle, at)
			if err := s.cycles.Update(ctx, cycle); err != nil {
				return err
			}
		}

		ticket.Status = newStatus
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}

		statusEvent := s.newEvent(domain.EventStatusChanged, ticket.ID, principal.UserID,
			events.StatusChangedPayload(oldStatus, newStatus))
		if err := s.appendEvent(ctx, statusEvent); err != nil {
			return err
		}
		emitted = append(emitted, statusEvent)

		if reopening {
			reopened := s.newEvent(domain.EventReopened, ticket.ID, principal.UserID,
				events.StatusChangedPayload(oldStatus, newStatus))
			if err := s.appendEvent(ctx, reopened); err != nil {
				return err
			}
			emitted = append(emitted, reopened)
		}
		if newStatus == domain.TicketStatusResolved {
			resolved := s.newEvent(domain.EventResolved, ticket.ID, principal.UserID,
				events.StatusChangedPayload(oldStatus, newStatus))
			if err := s.appendEvent(ctx, resolved); err != nil {
				return err
			}
			emitted = append(emitted, resolved)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, event := range emitted {
		s.publish(ctx, event)
	}
	return ticket, nil
}

// AddComment appends a thread entry; staff comments record first response.
func (s *TicketService) AddComment(ctx context.Context, principal authz.Principal, ticketID, body string, internal bool) (*domain.TicketComment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	action := authz.ActionComment
	if internal {
		action = authz.ActionInternalComment
	}
	if err := s.authorizeTicket(ctx, principal, action, ticket); err != nil {
		return nil, err
	}

	comment := &domain.TicketComment{
		TicketID: ticket.ID,
		AuthorID: principal.UserID,
		Body:     strings.TrimSpace(body),
		Internal: internal,
	}
	at := s.now()
	isStaff := authz.CanAct(principal, authz.ActionInternalComment, ticketTarget(ticket), nil)

	var commented events.Event
	err = s.uow.InTx(ctx, func(ctx context.Context) error {
		if err := s.comments.Create(ctx, comment); err != nil {
			return err
		}
		if isStaff {
			cycle, err := s.openCycleOf(ctx, ticket.ID)
			if err != nil {
				return err
			}
			if cycle != nil && cycle.FirstResponseAt == nil {
				s.cycleMgr.RecordFirstResponse(cycle, at)
				if err := s.cycles.Update(ctx, cycle); err != nil {
					return err
				}
			}
		}
		commented = s.newEvent(domain.EventCommentAdded, ticket.ID, principal.UserID, map[string]any{
			"comment_id": comment.ID,
			"internal":   comment.Internal,
			"preview":    stringPreview(comment.Body, 120),
		})
		return s.appendEvent(ctx, commented)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, commented)
	return comment, nil
}

// Assign adds a user to the ticket's assignee set. Duplicate assignment is a
// no-op success.
func (s *TicketService) Assign(ctx context.Context, principal authz.Principal, ticketID, userID string) error {
	return s.changeAssignees(ctx, principal, ticketID, userID, true)
}

// Unassign removes a user from the assignee set; absent pairs are no-ops.
func (s *TicketService) Unassign(ctx context.Context, principal authz.Principal, ticketID, userID string) error {
	return s.changeAssignees(ctx, principal, ticketID, userID, false)
}

func (s *TicketService) changeAssignees(ctx context.Context, principal authz.Principal, ticketID, userID string, add bool) error {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.authorizeTicket(ctx, principal, authz.ActionManageTicket, ticket); err != nil {
		return err
	}

	var emitted *events.Event
	err = s.uow.InTx(ctx, func(ctx context.Context) error {
		before, err := s.tickets.ListAssignees(ctx, ticket.ID)
		if err != nil {
			return err
		}
		var changed bool
		if add {
			changed, err = s.tickets.AddAssignee(ctx, ticket.ID, userID, s.now())
		} else {
			changed, err = s.tickets.RemoveAssignee(ctx, ticket.ID, userID)
		}
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		after, err := s.tickets.ListAssignees(ctx, ticket.ID)
		if err != nil {
			return err
		}
		event := s.newEvent(domain.EventAssigneesChanged, ticket.ID, principal.UserID,
			events.AssigneesChangedPayload(assigneeIDs(before), assigneeIDs(after)))
		if err := s.appendEvent(ctx, event); err != nil {
			return err
		}
		emitted = &event
		return nil
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	if emitted != nil {
		s.publish(ctx, *emitted)
	}
	return nil
}

// ChangePriority switches the SLA policy for the current open cycle only.
func (s *TicketService) ChangePriority(ctx context.Context, principal authz.Principal, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if !newPriority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTicket(ctx, principal, authz.ActionManageTicket, ticket); err != nil {
		return nil, err
	}
	if ticket.Priority == newPriority {
		return ticket, nil
	}
	policy, err := s.lookupPolicy(ctx, newPriority)
	if err != nil {
		return nil, err
	}

	oldPriority := ticket.Priority
	var emitted events.Event
	err = s.uow.InTx(ctx, func(ctx context.Context) error {
		ticket.Priority = newPriority
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		cycle, err := s.openCycleOf(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if cycle != nil {
			s.reprojectCycle(cycle, *policy)
			if err := s.cycles.Update(ctx, cycle); err != nil {
				return err
			}
		}
		emitted = s.newEvent(domain.EventPriorityChanged, ticket.ID, principal.UserID,
			events.PriorityChangedPayload(oldPriority, newPriority))
		return s.appendEvent(ctx, emitted)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, emitted)
	return ticket, nil
}

// ChangeCategory moves the ticket to another category.
func (s *TicketService) ChangeCategory(ctx context.Context, principal authz.Principal, ticketID, categoryID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTicket(ctx, principal, authz.ActionManageTicket, ticket); err != nil {
		return nil, err
	}
	if ticket.CategoryID == categoryID {
		return ticket, nil
	}
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category_id": categoryID})
		}
		return nil, apperrors.MapError(err)
	}
	if !category.IsActive {
		return nil, apperrors.NewValidationError("category inactive", map[string]any{"category_id": categoryID})
	}

	oldCategory := ticket.CategoryID
	var emitted events.Event
	err = s.uow.InTx(ctx, func(ctx context.Context) error {
		ticket.CategoryID = categoryID
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		emitted = s.newEvent(domain.EventCategoryChanged, ticket.ID, principal.UserID,
			events.CategoryChangedPayload(oldCategory, categoryID))
		return s.appendEvent(ctx, emitted)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, emitted)
	return ticket, nil
}

// OverrideResolutionDue pins the open cycle's resolution due date and leaves
// an audit trail. Only Coordinator/Admin of the target sector may do this.
func (s *TicketService) OverrideResolutionDue(ctx context.Context, principal authz.Principal, ticketID string, newDue time.Time, reason, ip string) (*domain.SLACycle, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("reason required", nil)
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTicket(ctx, principal, authz.ActionOverrideDueDate, ticket); err != nil {
		return nil, err
	}

	at := s.now()
	var cycle *domain.SLACycle
	err = s.uow.InTx(ctx, func(ctx context.Context) error {
		cycle, err = s.openCycleOf(ctx, ticketID)
		if err != nil {
			return err
		}
		if cycle == nil {
			return apperrors.NewConflict("ticket has no open SLA cycle", map[string]any{"ticket_id": ticketID})
		}
		oldDue := cycle.ResolutionDueAt
		if err := s.cycleMgr.OverrideResolutionDue(cycle, newDue, reason, principal.UserID, at); err != nil {
			return apperrors.NewConflict("cycle already resolved", map[string]any{"cycle": cycle.Number})
		}
		if err := s.cycles.Update(ctx, cycle); err != nil {
			return err
		}
		return s.audit.Append(ctx, &domain.AuditEntry{
			ActorID:    principal.UserID,
			Action:     "sla.override_resolution_due",
			TargetType: "ticket",
			TargetID:   ticketID,
			Metadata: map[string]any{
				"cycle":   cycle.Number,
				"old_due": oldDue,
				"new_due": newDue,
				"reason":  reason,
			},
			IP: ip,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.notifier != nil {
		s.notifier.NotifyDueDateOverride(ctx, ticket, principal.UserID, newDue)
	}
	return cycle, nil
}

// ListEvents returns the ticket event log for authorized viewers.
func (s *TicketService) ListEvents(ctx context.Context, principal authz.Principal, ticketID string, limit, offset int) ([]domain.TicketEvent, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTicket(ctx, principal, authz.ActionViewTicket, ticket); err != nil {
		return nil, err
	}
	eventsList, err := s.eventLog.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return eventsList, nil
}

// reopenCycle opens cycle N+1 at reopen time, re-resolving the policy from
// the ticket's current priority. A still-future manual override from the
// previous cycle stays pinned.
func (s *TicketService) reopenCycle(ctx context.Context, ticket *domain.Ticket, at time.Time) error {
	policy, err := s.lookupPolicy(ctx, ticket.Priority)
	if err != nil {
		return err
	}
	maxNumber, err := s.cycles.MaxNumber(ctx, ticket.ID)
	if err != nil {
		return err
	}

	input := sla.OpenCycleInput{
		TicketID: ticket.ID,
		Number:   maxNumber + 1,
		Policy:   *policy,
		OpenedAt: at,
	}
	history, err := s.cycles.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		prev := history[len(history)-1]
		if prev.ResolutionDueManual && prev.ResolutionDueAt.After(at) {
			due := prev.ResolutionDueAt
			input.PinnedResolutionDue = &due
			input.PinnedReason = prev.ResolutionDueReason
			input.PinnedBy = prev.ResolutionDueUpdatedBy
		}
	}

	cycle, err := s.cycleMgr.OpenCycle(input)
	if err != nil {
		return apperrors.NewSLAPolicyMissing(string(ticket.Priority))
	}
	return s.cycles.Create(ctx, cycle)
}

// reprojectCycle recomputes due dates from the cycle origin under a new
// policy, preserving accumulated pause extensions and manual overrides.
func (s *TicketService) reprojectCycle(cycle *domain.SLACycle, policy domain.SLAPolicy) {
	cal := s.cycleMgr.Calendar()
	if cycle.FirstResponseAt == nil {
		due := cal.AddBusinessMinutes(cycle.OpenedAt, policy.FirstResponseMinutes)
		cycle.FirstResponseDueAt = cal.AddBusinessMinutes(due, cycle.PausedTotalBusinessMinutes)
	}
	if !cycle.ResolutionDueManual {
		due := cal.AddBusinessMinutes(cycle.OpenedAt, policy.ResolutionMinutes)
		cycle.ResolutionDueAt = cal.AddBusinessMinutes(due, cycle.PausedTotalBusinessMinutes)
	}
}

func (s *TicketService) lookupPolicy(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	policy, err := s.policies.ActiveByPriority(ctx, priority)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewSLAPolicyMissing(string(priority))
		}
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) openCycleOf(ctx context.Context, ticketID string) (*domain.SLACycle, error) {
	cycle, err := s.cycles.GetOpenByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cycle, nil
}

func (s *TicketService) authorizeTicket(ctx context.Context, principal authz.Principal, action authz.Action, ticket *domain.Ticket) error {
	return s.authorize(ctx, principal, action, ticketTarget(ticket))
}

func (s *TicketService) authorize(ctx context.Context, principal authz.Principal, action authz.Action, target authz.Target) error {
	overrides, err := s.roles.ListOverridesByUser(ctx, principal.UserID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !authz.CanAct(principal, action, target, overrides) {
		return apperrors.NewForbidden()
	}
	return nil
}

// applyPrincipalScope restricts listings for non-admins to sectors where the
// principal holds a role, either as requester or as target staff.
func (s *TicketService) applyPrincipalScope(filter *repository.TicketFilter, principal authz.Principal) {
	if principal.GlobalAdmin || domain.IsGlobalAdmin(principal.Assignments) {
		return
	}
	if filter.TargetSectorID != nil {
		if _, member := domain.EffectiveRole(principal.Assignments, *filter.TargetSectorID); member {
			return
		}
	}
	// fall back to tickets the user created
	userID := principal.UserID
	filter.TargetSectorID = nil
	filter.CreatedByID = &userID
}

func ticketTarget(ticket *domain.Ticket) authz.Target {
	return authz.Target{
		RequesterSectorID: ticket.RequesterSectorID,
		TargetSectorID:    ticket.TargetSectorID,
		ResourceType:      "ticket",
		ResourceID:        ticket.ID,
	}
}

func (s *TicketService) newEvent(eventType domain.TicketEventType, ticketID, actorID string, payload map[string]any) events.Event {
	actor := actorID
	return events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   &actor,
		Timestamp: s.now(),
		Payload:   payload,
	}
}

func (s *TicketService) appendEvent(ctx context.Context, event events.Event) error {
	return s.eventLog.Append(ctx, &domain.TicketEvent{
		TicketID: event.TicketID,
		Type:     event.Type,
		ActorID:  event.ActorID,
		Payload:  event.Payload,
	})
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func assigneeIDs(assignees []domain.TicketAssignee) []string {
	ids := make([]string, 0, len(assignees))
	for _, a := range assignees {
		ids = append(ids, a.UserID)
	}
	return ids
}

func generateTicketKey() string {
	return "CHM-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
