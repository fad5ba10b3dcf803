package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intranet-hub/portal-service/internal/domain"
)

func assignment(userID, sectorID string, role domain.Role) domain.RoleAssignment {
	return domain.RoleAssignment{UserID: userID, SectorID: sectorID, Role: role}
}

func ticketTarget(requesterSector, targetSector string) Target {
	return Target{
		RequesterSectorID: requesterSector,
		TargetSectorID:    targetSector,
		ResourceType:      "ticket",
		ResourceID:        "tk-1",
	}
}

func TestGlobalAdminAlwaysAllowed(t *testing.T) {
	admin := Principal{
		UserID:      "u-admin",
		Assignments: []domain.RoleAssignment{assignment("u-admin", "ti", domain.RoleAdmin)},
	}
	target := ticketTarget("rh", "financeiro")

	for _, action := range []Action{
		ActionCreateTicket, ActionViewTicket, ActionComment,
		ActionInternalComment, ActionManageTicket, ActionOverrideDueDate,
		ActionManageSettings,
	} {
		assert.True(t, CanAct(admin, action, target, nil), "action %s", action)
	}

	// a deny override never outranks the admin rule
	deny := []domain.AccessOverride{{
		UserID: "u-admin", ResourceType: "ticket", ResourceID: "tk-1", Effect: domain.OverrideDeny,
	}}
	assert.True(t, CanAct(admin, ActionViewTicket, target, deny))
}

func TestOverrideBeatsRoleDefault(t *testing.T) {
	outsider := Principal{UserID: "u-1"}
	target := ticketTarget("rh", "ti")

	assert.False(t, CanAct(outsider, ActionViewTicket, target, nil))

	allow := []domain.AccessOverride{{
		UserID: "u-1", ResourceType: "ticket", ResourceID: "tk-1", Effect: domain.OverrideAllow,
	}}
	assert.True(t, CanAct(outsider, ActionViewTicket, target, allow))

	// an explicit deny revokes what the role would otherwise grant
	member := Principal{
		UserID:      "u-2",
		Assignments: []domain.RoleAssignment{assignment("u-2", "rh", domain.RoleUser)},
	}
	deny := []domain.AccessOverride{{
		UserID: "u-2", ResourceType: "ticket", ResourceID: "tk-1", Effect: domain.OverrideDeny,
	}}
	assert.True(t, CanAct(member, ActionViewTicket, target, nil))
	assert.False(t, CanAct(member, ActionViewTicket, target, deny))
}

func TestOverrideIgnoredForOtherResources(t *testing.T) {
	outsider := Principal{UserID: "u-1"}
	target := ticketTarget("rh", "ti")

	overrides := []domain.AccessOverride{
		{UserID: "u-1", ResourceType: "ticket", ResourceID: "tk-other", Effect: domain.OverrideAllow},
		{UserID: "u-other", ResourceType: "ticket", ResourceID: "tk-1", Effect: domain.OverrideAllow},
	}
	assert.False(t, CanAct(outsider, ActionViewTicket, target, overrides))
}

func TestRoleDefaults(t *testing.T) {
	target := ticketTarget("rh", "ti")

	requester := Principal{UserID: "u-req", Assignments: []domain.RoleAssignment{
		assignment("u-req", "rh", domain.RoleUser),
	}}
	staff := Principal{UserID: "u-staff", Assignments: []domain.RoleAssignment{
		assignment("u-staff", "ti", domain.RoleUser),
	}}
	coordinator := Principal{UserID: "u-coord", Assignments: []domain.RoleAssignment{
		assignment("u-coord", "ti", domain.RoleCoordinator),
	}}
	outsider := Principal{UserID: "u-out", Assignments: []domain.RoleAssignment{
		assignment("u-out", "juridico", domain.RoleCoordinator),
	}}

	tests := []struct {
		name      string
		principal Principal
		action    Action
		want      bool
	}{
		{"requester sector member creates", requester, ActionCreateTicket, true},
		{"outsider cannot create", outsider, ActionCreateTicket, false},
		{"requester views", requester, ActionViewTicket, true},
		{"target staff views", staff, ActionViewTicket, true},
		{"outsider cannot view", outsider, ActionViewTicket, false},
		{"requester comments", requester, ActionComment, true},
		{"requester cannot comment internally", requester, ActionInternalComment, false},
		{"target staff comments internally", staff, ActionInternalComment, true},
		{"plain staff cannot manage", staff, ActionManageTicket, false},
		{"coordinator manages", coordinator, ActionManageTicket, true},
		{"coordinator overrides due date", coordinator, ActionOverrideDueDate, true},
		{"requester-side coordinator cannot manage", Principal{
			UserID:      "u-rc",
			Assignments: []domain.RoleAssignment{assignment("u-rc", "rh", domain.RoleCoordinator)},
		}, ActionManageTicket, false},
		{"coordinator cannot manage settings", coordinator, ActionManageSettings, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanAct(tc.principal, tc.action, target, nil))
		})
	}
}

func TestHighestRoleWinsWithinSector(t *testing.T) {
	target := ticketTarget("rh", "ti")
	principal := Principal{UserID: "u-1", Assignments: []domain.RoleAssignment{
		assignment("u-1", "ti", domain.RoleUser),
		assignment("u-1", "ti", domain.RoleCoordinator),
	}}
	assert.True(t, CanAct(principal, ActionManageTicket, target, nil))
}

func TestUnknownActionDenied(t *testing.T) {
	admin := Principal{UserID: "u-1", GlobalAdmin: true}
	member := Principal{UserID: "u-2", Assignments: []domain.RoleAssignment{
		assignment("u-2", "ti", domain.RoleCoordinator),
	}}

	assert.True(t, CanAct(admin, Action("ticket.unknown"), ticketTarget("rh", "ti"), nil))
	assert.False(t, CanAct(member, Action("ticket.unknown"), ticketTarget("rh", "ti"), nil))
}
