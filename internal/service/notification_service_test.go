package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/events"
	apperrors "github.com/intranet-hub/portal-service/pkg/util"
)

type notifFixture struct {
	service    *NotificationService
	repo       *fakeNotificationRepo
	tickets    *fakeTicketRepo
	settings   *fakeSettingsStore
	dispatcher *recordingDispatcher
}

func newNotifFixture(t *testing.T) *notifFixture {
	t.Helper()
	f := &notifFixture{
		repo:       &fakeNotificationRepo{},
		tickets:    newFakeTicketRepo(),
		settings:   newFakeSettingsStore(),
		dispatcher: newRecordingDispatcher(),
	}
	roles := &fakeRoleRepo{
		assignments: map[string][]domain.RoleAssignment{
			"coord-ti": {{UserID: "coord-ti", SectorID: sectorTI, Role: domain.RoleCoordinator}},
		},
	}
	f.service = NewNotificationService(NotificationDependencies{
		NotificationRepo: f.repo,
		TicketRepo:       f.tickets,
		RoleRepo:         roles,
		SettingsRepo:     f.settings,
		Logger:           zap.NewNop(),
	}, f.dispatcher)
	return f
}

func (f *notifFixture) seedTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		Title:             "Impressora parada",
		Status:            domain.TicketStatusOpen,
		Priority:          domain.TicketPriorityMedium,
		RequesterSectorID: sectorRH,
		TargetSectorID:    sectorTI,
		CreatedByID:       "creator-1",
	}
	require.NoError(t, f.tickets.Create(context.Background(), ticket))
	return ticket
}

func publishEvent(t *testing.T, f *notifFixture, eventType domain.TicketEventType, ticketID, actor string, payload map[string]any) {
	t.Helper()
	require.NoError(t, f.dispatcher.Publish(context.Background(), events.Event{
		Type:     eventType,
		TicketID: ticketID,
		ActorID:  &actor,
		Payload:  payload,
	}))
}

func TestTicketCreatedNotifiesCoordinators(t *testing.T) {
	f := newNotifFixture(t)
	ticket := f.seedTicket(t)

	publishEvent(t, f, domain.EventTicketCreated, ticket.ID, "creator-1", nil)
	assert.Equal(t, []string{"coord-ti:TICKET_CREATED"}, f.repo.recipients())
}

func TestCommentFanOutSkipsCreatorForInternal(t *testing.T) {
	f := newNotifFixture(t)
	ticket := f.seedTicket(t)
	_, err := f.tickets.AddAssignee(context.Background(), ticket.ID, "agent-1", time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	publishEvent(t, f, domain.EventCommentAdded, ticket.ID, "agent-2", map[string]any{"internal": true})
	assert.Equal(t, []string{"agent-1:COMMENT_ADDED"}, f.repo.recipients())

	publishEvent(t, f, domain.EventCommentAdded, ticket.ID, "agent-2", map[string]any{"internal": false})
	assert.Contains(t, f.repo.recipients(), "creator-1:COMMENT_ADDED")
}

func TestCommentFanOutExcludesAuthor(t *testing.T) {
	f := newNotifFixture(t)
	ticket := f.seedTicket(t)
	_, err := f.tickets.AddAssignee(context.Background(), ticket.ID, "agent-1", time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	publishEvent(t, f, domain.EventCommentAdded, ticket.ID, "agent-1", map[string]any{"internal": false})
	for _, r := range f.repo.recipients() {
		assert.NotEqual(t, "agent-1:COMMENT_ADDED", r)
	}
}

func TestDisabledTypeSuppressesDelivery(t *testing.T) {
	f := newNotifFixture(t)
	ticket := f.seedTicket(t)

	require.NoError(t, f.settings.SetNotificationEnabled(context.Background(), domain.NotificationTicketCreated, false))
	publishEvent(t, f, domain.EventTicketCreated, ticket.ID, "creator-1", nil)
	assert.Empty(t, f.repo.recipients())
}

func TestInboxReadFlow(t *testing.T) {
	f := newNotifFixture(t)
	ticket := f.seedTicket(t)
	publishEvent(t, f, domain.EventTicketCreated, ticket.ID, "creator-1", nil)

	count, err := f.service.UnreadCount(context.Background(), "coord-ti")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	inbox, err := f.service.ListInbox(context.Background(), "coord-ti", 20, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.False(t, inbox[0].IsRead)

	require.NoError(t, f.service.MarkRead(context.Background(), "coord-ti", inbox[0].ID))
	count, err = f.service.UnreadCount(context.Background(), "coord-ti")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMarkReadUnknownIDReturnsNotFound(t *testing.T) {
	f := newNotifFixture(t)

	err := f.service.MarkRead(context.Background(), "coord-ti", 999)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestMarkAllRead(t *testing.T) {
	f := newNotifFixture(t)
	ticket := f.seedTicket(t)
	publishEvent(t, f, domain.EventTicketCreated, ticket.ID, "creator-1", nil)
	publishEvent(t, f, domain.EventTicketCreated, ticket.ID, "creator-1", nil)

	updated, err := f.service.MarkAllRead(context.Background(), "coord-ti")
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)
}

func TestApprovalOutcomeDetection(t *testing.T) {
	f := newNotifFixture(t)
	ticket := f.seedTicket(t)
	ticket.Status = domain.TicketStatusWaitingApproval
	require.NoError(t, f.tickets.Update(context.Background(), ticket))

	// without a webhook emitter the handler must still fan out inbox rows
	publishEvent(t, f, domain.EventStatusChanged, ticket.ID, "coord-ti",
		events.StatusChangedPayload(domain.TicketStatusWaitingApproval, domain.TicketStatusCancelled))
	assert.Contains(t, f.repo.recipients(), "creator-1:STATUS_CHANGED")
}
