package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intranet-hub/portal-service/internal/authz"
	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/sla"
	apperrors "github.com/intranet-hub/portal-service/pkg/util"
)

const (
	sectorRH = "sector-rh"
	sectorTI = "sector-ti"

	categoryAccess = "cat-access"
)

type fixture struct {
	service       *TicketService
	tickets       *fakeTicketRepo
	cycles        *fakeCycleRepo
	eventLog      *fakeEventRepo
	comments      *fakeCommentRepo
	roles         *fakeRoleRepo
	audit         *fakeAuditRepo
	notifications *fakeNotificationRepo
	dispatcher    *recordingDispatcher
	clock         *fakeClock

	requester   authz.Principal
	staff       authz.Principal
	coordinator authz.Principal
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cal, err := sla.NewCalendar(8*60, 18*60, []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	}, time.UTC)
	require.NoError(t, err)

	// 2024-01-01 09:00 UTC is a Monday inside business hours
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}

	roles := &fakeRoleRepo{
		assignments: map[string][]domain.RoleAssignment{
			"user-req":   {{UserID: "user-req", SectorID: sectorRH, Role: domain.RoleUser}},
			"user-staff": {{UserID: "user-staff", SectorID: sectorTI, Role: domain.RoleUser}},
			"user-coord": {{UserID: "user-coord", SectorID: sectorTI, Role: domain.RoleCoordinator}},
		},
		overrides: map[string][]domain.AccessOverride{},
	}

	f := &fixture{
		tickets:       newFakeTicketRepo(),
		cycles:        newFakeCycleRepo(),
		eventLog:      &fakeEventRepo{},
		comments:      &fakeCommentRepo{},
		roles:         roles,
		audit:         &fakeAuditRepo{},
		notifications: &fakeNotificationRepo{},
		dispatcher:    newRecordingDispatcher(),
		clock:         clock,
	}

	settings := newFakeSettingsStore()
	notifier := NewNotificationService(NotificationDependencies{
		NotificationRepo: f.notifications,
		TicketRepo:       f.tickets,
		RoleRepo:         roles,
		SettingsRepo:     settings,
		Logger:           zap.NewNop(),
	}, f.dispatcher)

	f.service = NewTicketService(TicketDependencies{
		TicketRepo: f.tickets,
		CycleRepo:  f.cycles,
		EventRepo:  f.eventLog,
		CommentRepo: f.comments,
		CategoryRepo: &fakeCategoryRepo{categories: map[string]*domain.Category{
			categoryAccess: {
				ID:       categoryAccess,
				Name:     "Acesso a sistemas",
				IsActive: true,
				FormSchema: []domain.FormField{
					{Key: "system", Label: "Sistema", Type: domain.FieldTypeEnum, Required: true, Options: []string{"ERP", "CRM"}},
					{Key: "justification", Label: "Justificativa", Type: domain.FieldTypeString, Required: true},
				},
			},
		}},
		SectorRepo: &fakeSectorRepo{sectors: map[string]*domain.Sector{
			sectorRH: {ID: sectorRH, Name: "Recursos Humanos", IsActive: true},
			sectorTI: {ID: sectorTI, Name: "Tecnologia", IsActive: true},
		}},
		PolicyRepo: &fakePolicyRepo{policies: map[domain.TicketPriority]*domain.SLAPolicy{
			domain.TicketPriorityMedium: {Priority: domain.TicketPriorityMedium, FirstResponseMinutes: 240, ResolutionMinutes: 1200, Active: true},
			domain.TicketPriorityUrgent: {Priority: domain.TicketPriorityUrgent, FirstResponseMinutes: 30, ResolutionMinutes: 240, Active: true},
		}},
		RoleRepo:     roles,
		AuditRepo:    f.audit,
		UnitOfWork:   passthroughUnitOfWork{},
		CycleManager: sla.NewCycleManager(cal),
		Dispatcher:   f.dispatcher,
		Notifier:     notifier,
		Logger:       zap.NewNop(),
		Now:          clock.Now,
	})

	f.requester = authz.Principal{UserID: "user-req", Assignments: roles.assignments["user-req"]}
	f.staff = authz.Principal{UserID: "user-staff", Assignments: roles.assignments["user-staff"]}
	f.coordinator = authz.Principal{UserID: "user-coord", Assignments: roles.assignments["user-coord"]}
	return f
}

func validCreateInput() TicketCreateInput {
	return TicketCreateInput{
		Title:             "Acesso ao ERP",
		Description:       "Preciso de acesso ao módulo financeiro.",
		Priority:          domain.TicketPriorityMedium,
		RequesterSectorID: sectorRH,
		TargetSectorID:    sectorTI,
		CategoryID:        categoryAccess,
		RequestData: map[string]domain.FieldValue{
			"system":        {Type: domain.FieldTypeEnum, String: "ERP"},
			"justification": {Type: domain.FieldTypeString, String: "novo colaborador"},
		},
	}
}

func (f *fixture) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.service.CreateTicket(context.Background(), f.requester, validCreateInput())
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketOpensFirstCycle(t *testing.T) {
	f := newFixture(t)

	ticket := f.createTicket(t)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.NotEmpty(t, ticket.ExternalKey)

	cycle, err := f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cycle.Number)
	// MEDIA: 240 business minutes from Monday 09:00
	assert.Equal(t, time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC), cycle.FirstResponseDueAt)

	assert.Equal(t, []domain.TicketEventType{domain.EventTicketCreated}, f.eventLog.typesFor(ticket.ID))
	require.Len(t, f.dispatcher.published, 1)

	// target-sector coordinator got the inbox entry
	assert.Contains(t, f.notifications.recipients(), "user-coord:TICKET_CREATED")
}

func TestCreateTicketValidatesIntakeData(t *testing.T) {
	f := newFixture(t)

	input := validCreateInput()
	input.RequestData["system"] = domain.FieldValue{Type: domain.FieldTypeEnum, String: "SAP"}
	_, err := f.service.CreateTicket(context.Background(), f.requester, input)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)

	input = validCreateInput()
	delete(input.RequestData, "justification")
	_, err = f.service.CreateTicket(context.Background(), f.requester, input)
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestCreateTicketRequiresSectorMembership(t *testing.T) {
	f := newFixture(t)

	outsider := authz.Principal{UserID: "user-x"}
	_, err := f.service.CreateTicket(context.Background(), outsider, validCreateInput())
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestChangeStatusRecordsFirstResponse(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	f.clock.Advance(30 * time.Minute)
	updated, err := f.service.ChangeStatus(context.Background(), f.coordinator, ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	cycle, err := f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, cycle.FirstResponseAt)
	assert.False(t, cycle.FirstResponseBreached)
}

func TestChangeStatusSameStatusIsNoOp(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.ChangeStatus(context.Background(), f.coordinator, ticket.ID, domain.TicketStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, []domain.TicketEventType{domain.EventTicketCreated}, f.eventLog.typesFor(ticket.ID))
}

func TestChangeStatusDeniedForPlainStaff(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.ChangeStatus(context.Background(), f.staff, ticket.ID, domain.TicketStatusInProgress)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestWaitingUserPausesAndResumeExtends(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.ChangeStatus(context.Background(), f.coordinator, ticket.ID, domain.TicketStatusWaitingUser)
	require.NoError(t, err)

	cycle, err := f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, cycle.IsPaused())
	dueBefore := cycle.ResolutionDueAt

	f.clock.Advance(2 * time.Hour)
	_, err = f.service.ChangeStatus(context.Background(), f.coordinator, ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)

	cycle, err = f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, cycle.IsPaused())
	assert.Equal(t, 120, cycle.PausedTotalBusinessMinutes)
	assert.True(t, cycle.ResolutionDueAt.After(dueBefore))
}

func TestResolveClosesCycleAndTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	f.clock.Advance(time.Hour)
	updated, err := f.service.ChangeStatus(context.Background(), f.coordinator, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	require.NotNil(t, updated.ClosedAt)

	_, err = f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	assert.Error(t, err)

	types := f.eventLog.typesFor(ticket.ID)
	assert.Contains(t, types, domain.EventStatusChanged)
	assert.Contains(t, types, domain.EventResolved)

	// creator is told their ticket was resolved
	assert.Contains(t, f.notifications.recipients(), "user-req:TICKET_RESOLVED")
}

func TestTerminalToTerminalRejected(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.ChangeStatus(context.Background(), f.coordinator, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)

	_, err = f.service.ChangeStatus(context.Background(), f.coordinator, ticket.ID, domain.TicketStatusCancelled)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestReopenOpensSecondCycle(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.ChangeStatus(context.Background(), f.coordinator, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	updated, err := f.service.ChangeStatus(context.Background(), f.coordinator, ticket.ID, domain.TicketStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	assert.Nil(t, updated.ClosedAt)

	cycle, err := f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cycle.Number)
	assert.Equal(t, f.clock.Now(), cycle.OpenedAt)

	assert.Contains(t, f.eventLog.typesFor(ticket.ID), domain.EventReopened)
}

func TestReopenKeepsFutureManualOverride(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	pinned := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	_, err := f.service.OverrideResolutionDue(context.Background(), f.coordinator, ticket.ID, pinned, "fornecedor externo", "10.0.0.1")
	require.NoError(t, err)

	_, err = f.service.ChangeStatus(context.Background(), f.coordinator, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.service.ChangeStatus(context.Background(), f.coordinator, ticket.ID, domain.TicketStatusOpen)
	require.NoError(t, err)

	cycle, err := f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, pinned, cycle.ResolutionDueAt)
	assert.True(t, cycle.ResolutionDueManual)
}

func TestStaffCommentRecordsFirstResponse(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	f.clock.Advance(10 * time.Minute)
	_, err := f.service.AddComment(context.Background(), f.staff, ticket.ID, "Analisando o pedido.", false)
	require.NoError(t, err)

	cycle, err := f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, cycle.FirstResponseAt)
	assert.Equal(t, f.clock.Now(), *cycle.FirstResponseAt)
}

func TestRequesterCommentDoesNotRecordFirstResponse(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.AddComment(context.Background(), f.requester, ticket.ID, "Alguma novidade?", false)
	require.NoError(t, err)

	cycle, err := f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, cycle.FirstResponseAt)
}

func TestInternalCommentDeniedForRequester(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.AddComment(context.Background(), f.requester, ticket.ID, "nota interna", true)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestInternalCommentsHiddenFromRequester(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.AddComment(context.Background(), f.staff, ticket.ID, "diagnóstico interno", true)
	require.NoError(t, err)
	_, err = f.service.AddComment(context.Background(), f.staff, ticket.ID, "resposta pública", false)
	require.NoError(t, err)

	detail, err := f.service.GetTicket(context.Background(), f.requester, ticket.ID)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "resposta pública", detail.Comments[0].Body)

	detail, err = f.service.GetTicket(context.Background(), f.staff, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Comments, 2)
}

func TestAssignIsIdempotentAndNotifies(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	require.NoError(t, f.service.Assign(context.Background(), f.coordinator, ticket.ID, "user-staff"))
	require.NoError(t, f.service.Assign(context.Background(), f.coordinator, ticket.ID, "user-staff"))

	assignees, err := f.tickets.ListAssignees(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, assignees, 1)

	// duplicate assignment emits no second event
	count := 0
	for _, et := range f.eventLog.typesFor(ticket.ID) {
		if et == domain.EventAssigneesChanged {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Contains(t, f.notifications.recipients(), "user-staff:TICKET_ASSIGNED")
}

func TestChangePriorityReprojectsOpenCycle(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	before, err := f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)

	_, err = f.service.ChangePriority(context.Background(), f.coordinator, ticket.ID, domain.TicketPriorityUrgent)
	require.NoError(t, err)

	after, err := f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	// URGENTE targets are tighter than MEDIA
	assert.True(t, after.FirstResponseDueAt.Before(before.FirstResponseDueAt))
	assert.True(t, after.ResolutionDueAt.Before(before.ResolutionDueAt))
	assert.Equal(t, before.OpenedAt, after.OpenedAt)

	assert.Contains(t, f.eventLog.typesFor(ticket.ID), domain.EventPriorityChanged)
}

func TestChangePriorityKeepsManualOverride(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	pinned := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	_, err := f.service.OverrideResolutionDue(context.Background(), f.coordinator, ticket.ID, pinned, "alinhado com o gestor", "10.0.0.1")
	require.NoError(t, err)

	_, err = f.service.ChangePriority(context.Background(), f.coordinator, ticket.ID, domain.TicketPriorityUrgent)
	require.NoError(t, err)

	cycle, err := f.cycles.GetOpenByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, pinned, cycle.ResolutionDueAt)
}

func TestOverrideResolutionDueAuditsAndNotifies(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	require.NoError(t, f.service.Assign(context.Background(), f.coordinator, ticket.ID, "user-staff"))

	newDue := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	cycle, err := f.service.OverrideResolutionDue(context.Background(), f.coordinator, ticket.ID, newDue, "dependência de terceiros", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, cycle.ResolutionDueManual)

	entries, err := f.audit.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sla.override_resolution_due", entries[0].Action)

	assert.Contains(t, f.notifications.recipients(), "user-staff:DUE_DATE_OVERRIDE")
}

func TestOverrideResolutionDueRequiresReason(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.OverrideResolutionDue(context.Background(), f.coordinator, ticket.ID, f.clock.Now().Add(48*time.Hour), "  ", "10.0.0.1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestOverrideResolutionDueDeniedForStaff(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.OverrideResolutionDue(context.Background(), f.staff, ticket.ID, f.clock.Now().Add(48*time.Hour), "motivo", "10.0.0.1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestListTicketsScopedToPrincipal(t *testing.T) {
	f := newFixture(t)
	f.createTicket(t)

	// requester is not in the target sector, so the listing falls back to
	// tickets they created
	tickets, err := f.service.ListTickets(context.Background(), f.requester, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, tickets, 1)

	target := sectorTI
	tickets, err = f.service.ListTickets(context.Background(), f.staff, TicketListFilter{TargetSectorID: &target})
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestGetTicketNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetTicket(context.Background(), f.requester, "missing")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}
