package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/events"
	"github.com/intranet-hub/portal-service/internal/repository"
)

// In-memory repository fakes. They intentionally ignore transaction scoping;
// passthroughUnitOfWork runs the function directly so service orchestration
// can be exercised without Postgres.

type passthroughUnitOfWork struct{}

func (passthroughUnitOfWork) InTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type fakeTicketRepo struct {
	mu        sync.Mutex
	tickets   map[string]*domain.Ticket
	assignees map[string][]domain.TicketAssignee
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets:   map[string]*domain.Ticket{},
		assignees: map[string][]domain.TicketAssignee{},
	}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.TargetSectorID != nil && ticket.TargetSectorID != *filter.TargetSectorID {
			continue
		}
		if filter.CreatedByID != nil && ticket.CreatedByID != *filter.CreatedByID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if filter.SearchTerm != nil && !strings.Contains(strings.ToLower(ticket.Title), strings.ToLower(*filter.SearchTerm)) {
			continue
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func (r *fakeTicketRepo) ListAssignees(_ context.Context, ticketID string) ([]domain.TicketAssignee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.TicketAssignee{}, r.assignees[ticketID]...), nil
}

func (r *fakeTicketRepo) AddAssignee(_ context.Context, ticketID, userID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignees[ticketID] {
		if a.UserID == userID {
			return false, nil
		}
	}
	r.assignees[ticketID] = append(r.assignees[ticketID], domain.TicketAssignee{
		ID: uuid.NewString(), TicketID: ticketID, UserID: userID, AssignedAt: at,
	})
	return true, nil
}

func (r *fakeTicketRepo) RemoveAssignee(_ context.Context, ticketID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.assignees[ticketID]
	for i, a := range list {
		if a.UserID == userID {
			r.assignees[ticketID] = append(list[:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func containsStatus(statuses []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}

type fakeCycleRepo struct {
	mu     sync.Mutex
	cycles map[string][]*domain.SLACycle
}

func newFakeCycleRepo() *fakeCycleRepo {
	return &fakeCycleRepo{cycles: map[string][]*domain.SLACycle{}}
}

func (r *fakeCycleRepo) Create(_ context.Context, cycle *domain.SLACycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cycle.ID = uuid.NewString()
	clone := *cycle
	r.cycles[cycle.TicketID] = append(r.cycles[cycle.TicketID], &clone)
	return nil
}

func (r *fakeCycleRepo) Update(_ context.Context, cycle *domain.SLACycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.cycles[cycle.TicketID] {
		if existing.ID == cycle.ID {
			clone := *cycle
			r.cycles[cycle.TicketID][i] = &clone
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeCycleRepo) GetOpenByTicket(_ context.Context, ticketID string) (*domain.SLACycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cycle := range r.cycles[ticketID] {
		if cycle.ResolvedAt == nil {
			clone := *cycle
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCycleRepo) MaxNumber(_ context.Context, ticketID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	maxNumber := 0
	for _, cycle := range r.cycles[ticketID] {
		if cycle.Number > maxNumber {
			maxNumber = cycle.Number
		}
	}
	return maxNumber, nil
}

func (r *fakeCycleRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.SLACycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SLACycle, 0, len(r.cycles[ticketID]))
	for _, cycle := range r.cycles[ticketID] {
		out = append(out, *cycle)
	}
	return out, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []domain.TicketEvent
}

func (r *fakeEventRepo) Append(_ context.Context, event *domain.TicketEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = uuid.NewString()
	event.CreatedAt = time.Now()
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeEventRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketEvent
	for _, e := range r.events {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) typesFor(ticketID string) []domain.TicketEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketEventType
	for _, e := range r.events {
		if e.TicketID == ticketID {
			out = append(out, e.Type)
		}
	}
	return out
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments []domain.TicketComment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.TicketComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketComment
	for _, c := range r.comments {
		if c.TicketID != ticketID {
			continue
		}
		if c.Internal && !includeInternal {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type fakeCategoryRepo struct {
	categories map[string]*domain.Category
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	cat, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cat, nil
}

func (r *fakeCategoryRepo) ListActive(context.Context) ([]domain.Category, error) {
	var out []domain.Category
	for _, cat := range r.categories {
		if cat.IsActive {
			out = append(out, *cat)
		}
	}
	return out, nil
}

type fakeSectorRepo struct {
	sectors map[string]*domain.Sector
}

func (r *fakeSectorRepo) GetByID(_ context.Context, id string) (*domain.Sector, error) {
	sector, ok := r.sectors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return sector, nil
}

func (r *fakeSectorRepo) List(_ context.Context, activeOnly bool) ([]domain.Sector, error) {
	var out []domain.Sector
	for _, s := range r.sectors {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

type fakePolicyRepo struct {
	policies map[domain.TicketPriority]*domain.SLAPolicy
}

func (r *fakePolicyRepo) ActiveByPriority(_ context.Context, p domain.TicketPriority) (*domain.SLAPolicy, error) {
	policy, ok := r.policies[p]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return policy, nil
}

func (r *fakePolicyRepo) List(context.Context) ([]domain.SLAPolicy, error) {
	var out []domain.SLAPolicy
	for _, p := range r.policies {
		out = append(out, *p)
	}
	return out, nil
}

type fakeRoleRepo struct {
	assignments map[string][]domain.RoleAssignment
	overrides   map[string][]domain.AccessOverride
}

func (r *fakeRoleRepo) ListByUser(_ context.Context, userID string) ([]domain.RoleAssignment, error) {
	return r.assignments[userID], nil
}

func (r *fakeRoleRepo) ListCoordinators(_ context.Context, sectorID string) ([]string, error) {
	var out []string
	for userID, list := range r.assignments {
		for _, a := range list {
			if a.SectorID == sectorID && a.Role.Rank() >= domain.RoleCoordinator.Rank() {
				out = append(out, userID)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) ListOverridesByUser(_ context.Context, userID string) ([]domain.AccessOverride, error) {
	return r.overrides[userID], nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *fakeAuditRepo) Append(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, _, _ int) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEntry{}, r.entries...), nil
}

type fakeNotificationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []domain.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	r.rows = append(r.rows, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByRecipient(_ context.Context, recipientID string, _, _ int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].RecipientID == recipientID {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) UnreadCount(_ context.Context, recipientID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.rows {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, recipientID string, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].RecipientID == recipientID && !r.rows[i].IsRead {
			r.rows[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for i := range r.rows {
		if r.rows[i].RecipientID == recipientID && !r.rows[i].IsRead {
			r.rows[i].IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (r *fakeNotificationRepo) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.rows {
		out = append(out, fmt.Sprintf("%s:%s", n.RecipientID, n.Type))
	}
	return out
}

type fakeSettingsStore struct {
	mu       sync.Mutex
	values   map[string]string
	disabled map[domain.NotificationType]bool
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{values: map[string]string{}, disabled: map[domain.NotificationType]bool{}}
}

func (s *fakeSettingsStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *fakeSettingsStore) Put(_ context.Context, key, value string, _ *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *fakeSettingsStore) List(context.Context) ([]domain.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Setting
	for k, v := range s.values {
		out = append(out, domain.Setting{Key: k, Value: v})
	}
	return out, nil
}

func (s *fakeSettingsStore) NotificationEnabled(_ context.Context, t domain.NotificationType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disabled[t], nil
}

func (s *fakeSettingsStore) SetNotificationEnabled(_ context.Context, t domain.NotificationType, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled[t] = !enabled
	return nil
}

type recordingDispatcher struct {
	inner     events.Dispatcher
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{inner: events.NewInMemoryDispatcher()}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return d.inner.Publish(ctx, event)
}

func (d *recordingDispatcher) Subscribe(t domain.TicketEventType, h events.EventHandler) {
	d.inner.Subscribe(t, h)
}
