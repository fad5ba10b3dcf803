package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/events"
	"github.com/intranet-hub/portal-service/internal/repository"
	"github.com/intranet-hub/portal-service/internal/webhook"
	apperrors "github.com/intranet-hub/portal-service/pkg/util"
)

const unreadCacheTTL = 5 * time.Minute

// NotificationService fans ticket events out to per-user inbox rows and to
// the outbound webhook. It subscribes to the dispatcher; handler failures are
// logged and never surface to the mutation that raised the event.
type NotificationService struct {
	notifications repository.NotificationRepository
	tickets       repository.TicketRepository
	roles         repository.RoleAssignmentRepository
	settings      repository.SettingsRepository
	emitter       *webhook.Emitter
	cache         *redis.Client
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	TicketRepo       repository.TicketRepository
	RoleRepo         repository.RoleAssignmentRepository
	SettingsRepo     repository.SettingsRepository
	Emitter          *webhook.Emitter
	Cache            *redis.Client
	Logger           *zap.Logger
}

// NewNotificationService constructs the service and wires its handlers into
// the dispatcher.
func NewNotificationService(deps NotificationDependencies, dispatcher events.Dispatcher) *NotificationService {
	s := &NotificationService{
		notifications: deps.NotificationRepo,
		tickets:       deps.TicketRepo,
		roles:         deps.RoleRepo,
		settings:      deps.SettingsRepo,
		emitter:       deps.Emitter,
		cache:         deps.Cache,
		logger:        deps.Logger,
	}
	if dispatcher != nil {
		dispatcher.Subscribe(domain.EventTicketCreated, s.onTicketCreated)
		dispatcher.Subscribe(domain.EventStatusChanged, s.onStatusChanged)
		dispatcher.Subscribe(domain.EventCommentAdded, s.onCommentAdded)
		dispatcher.Subscribe(domain.EventAssigneesChanged, s.onAssigneesChanged)
		dispatcher.Subscribe(domain.EventResolved, s.onResolved)
		dispatcher.Subscribe(domain.EventReopened, s.onReopened)
	}
	return s
}

// ListInbox returns the recipient's notifications, newest first.
func (s *NotificationService) ListInbox(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := s.notifications.ListByRecipient(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// UnreadCount returns the unread badge count, served from cache when warm.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	key := unreadCacheKey(userID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Int(); err == nil {
			return cached, nil
		}
	}
	count, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, count, unreadCacheTTL).Err()
	}
	return count, nil
}

// MarkRead flips one notification to read; missing ids return not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, id int64) error {
	ok, err := s.notifications.MarkRead(ctx, userID, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !ok {
		return apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

// MarkAllRead flips every unread notification for the recipient.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	s.invalidateUnread(ctx, userID)
	return n, nil
}

// NotifyDueDateOverride informs current assignees that a coordinator pinned
// a new resolution due date. Called directly since overrides do not enter
// the ticket event log vocabulary.
func (s *NotificationService) NotifyDueDateOverride(ctx context.Context, ticket *domain.Ticket, actorID string, newDue time.Time) {
	recipients, err := s.assigneeIDs(ctx, ticket.ID)
	if err != nil {
		s.logger.Warn("due date override fan-out failed", zap.Error(err), zap.String("ticket_id", ticket.ID))
		return
	}
	s.deliver(ctx, recipients, actorID, domain.NotificationDueDateOverride,
		fmt.Sprintf("Prazo de resolução alterado: %s", ticket.Title),
		fmt.Sprintf("Novo prazo: %s", newDue.Format("02/01/2006 15:04")),
		ticketLink(ticket.ID))
}

func (s *NotificationService) onTicketCreated(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}
	coordinators, err := s.roles.ListCoordinators(ctx, ticket.TargetSectorID)
	if err != nil {
		return err
	}
	s.deliver(ctx, coordinators, actorOf(event), domain.NotificationTicketCreated,
		fmt.Sprintf("Novo chamado: %s", ticket.Title),
		fmt.Sprintf("Prioridade %s aberta para o seu setor.", ticket.Priority),
		ticketLink(ticket.ID))
	s.emit(event, "ticket_created", map[string]any{
		"ticket_id": ticket.ID,
		"title":     ticket.Title,
		"priority":  ticket.Priority,
	})
	return nil
}

func (s *NotificationService) onStatusChanged(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}
	recipients, err := s.creatorAndAssignees(ctx, ticket)
	if err != nil {
		return err
	}
	from, to := statusPair(event.Payload)
	s.deliver(ctx, recipients, actorOf(event), domain.NotificationStatusChanged,
		fmt.Sprintf("Chamado atualizado: %s", ticket.Title),
		fmt.Sprintf("Status alterado de %s para %s.", from, to),
		ticketLink(ticket.ID))

	s.emit(event, "ticket_status_changed", map[string]any{
		"ticket_id": ticket.ID,
		"from":      from,
		"to":        to,
	})
	// approval outcomes get their own webhook event types
	if from == domain.TicketStatusWaitingApproval {
		switch {
		case to == domain.TicketStatusCancelled:
			s.emit(event, "ticket_rejected", map[string]any{"ticket_id": ticket.ID})
		case !to.IsTerminal():
			s.emit(event, "ticket_approved", map[string]any{"ticket_id": ticket.ID})
		}
	}
	return nil
}

func (s *NotificationService) onCommentAdded(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}
	internal, _ := event.Payload["internal"].(bool)
	recipients, err := s.assigneeIDs(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if !internal {
		recipients = append(recipients, ticket.CreatedByID)
	}
	recipients = without(recipients, actorOf(event))
	s.deliver(ctx, recipients, actorOf(event), domain.NotificationCommentAdded,
		fmt.Sprintf("Novo comentário: %s", ticket.Title),
		previewOf(event.Payload),
		ticketLink(ticket.ID))
	if !internal {
		s.emit(event, "ticket_commented", map[string]any{"ticket_id": ticket.ID})
	}
	return nil
}

func (s *NotificationService) onAssigneesChanged(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}
	added := addedAssignees(event.Payload)
	s.deliver(ctx, without(added, actorOf(event)), actorOf(event), domain.NotificationTicketAssigned,
		fmt.Sprintf("Chamado atribuído: %s", ticket.Title),
		"Você foi atribuído a este chamado.",
		ticketLink(ticket.ID))
	return nil
}

func (s *NotificationService) onResolved(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}
	s.deliver(ctx, []string{ticket.CreatedByID}, actorOf(event), domain.NotificationTicketResolved,
		fmt.Sprintf("Chamado resolvido: %s", ticket.Title),
		"Seu chamado foi marcado como resolvido.",
		ticketLink(ticket.ID))
	s.emit(event, "ticket_resolved", map[string]any{"ticket_id": ticket.ID})
	return nil
}

func (s *NotificationService) onReopened(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}
	recipients, err := s.creatorAndAssignees(ctx, ticket)
	if err != nil {
		return err
	}
	s.deliver(ctx, recipients, actorOf(event), domain.NotificationTicketReopened,
		fmt.Sprintf("Chamado reaberto: %s", ticket.Title),
		"O chamado voltou para a fila com um novo ciclo de SLA.",
		ticketLink(ticket.ID))
	return nil
}

// deliver writes one inbox row per distinct recipient, skipping the actor
// and types an admin disabled globally.
func (s *NotificationService) deliver(ctx context.Context, recipients []string, actorID string, t domain.NotificationType, title, message, link string) {
	enabled, err := s.settings.NotificationEnabled(ctx, t)
	if err != nil {
		s.logger.Warn("notification toggle lookup failed", zap.Error(err), zap.String("type", string(t)))
		return
	}
	if !enabled {
		return
	}
	seen := make(map[string]struct{}, len(recipients))
	for _, recipient := range recipients {
		if recipient == "" || recipient == actorID {
			continue
		}
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}
		n := &domain.Notification{
			RecipientID: recipient,
			Type:        t,
			Title:       title,
			Message:     message,
			LinkURL:     &link,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			s.logger.Warn("notification insert failed", zap.Error(err), zap.String("recipient", recipient))
			continue
		}
		s.invalidateUnread(ctx, recipient)
	}
}

func (s *NotificationService) emit(event events.Event, webhookType string, data map[string]any) {
	if s.emitter == nil {
		return
	}
	s.emitter.EmitAsync(webhook.Payload{
		Type:           webhookType,
		IdempotencyKey: webhook.IdempotencyKey(webhookType, event.TicketID, event.Timestamp),
		Timestamp:      event.Timestamp,
		Data:           data,
	})
}

func (s *NotificationService) creatorAndAssignees(ctx context.Context, ticket *domain.Ticket) ([]string, error) {
	ids, err := s.assigneeIDs(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	return append(ids, ticket.CreatedByID), nil
}

func (s *NotificationService) assigneeIDs(ctx context.Context, ticketID string) ([]string, error) {
	assignees, err := s.tickets.ListAssignees(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(assignees))
	for _, a := range assignees {
		ids = append(ids, a.UserID)
	}
	return ids, nil
}

func (s *NotificationService) invalidateUnread(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, unreadCacheKey(userID)).Err()
}

func unreadCacheKey(userID string) string {
	return "notif:unread:" + userID
}

func ticketLink(ticketID string) string {
	return "/tickets/" + ticketID
}

func actorOf(event events.Event) string {
	if event.ActorID == nil {
		return ""
	}
	return *event.ActorID
}

func statusPair(payload map[string]any) (domain.TicketStatus, domain.TicketStatus) {
	from, _ := payload["old_status"].(domain.TicketStatus)
	to, _ := payload["new_status"].(domain.TicketStatus)
	return from, to
}

func previewOf(payload map[string]any) string {
	preview, _ := payload["preview"].(string)
	if preview == "" {
		return "Um novo comentário foi adicionado."
	}
	return preview
}

func addedAssignees(payload map[string]any) []string {
	before := stringSet(payload["old_assignees"])
	var added []string
	for _, id := range stringSlice(payload["new_assignees"]) {
		if _, existed := before[id]; !existed {
			added = append(added, id)
		}
	}
	return added
}

func stringSlice(v any) []string {
	switch typed := v.(type) {
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func stringSet(v any) map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range stringSlice(v) {
		set[s] = struct{}{}
	}
	return set
}

func without(ids []string, exclude string) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
