// Package authz computes whether a principal may perform an action on a
// ticket or resource. Evaluation is a pure function over role assignments and
// explicit per-resource overrides; it never errors and defaults to deny.
package authz

import "github.com/intranet-hub/portal-service/internal/domain"

// Action enumerates permission-gated operations.
type Action string

const (
	ActionCreateTicket    Action = "ticket.create"
	ActionViewTicket      Action = "ticket.view"
	ActionComment         Action = "ticket.comment"
	ActionInternalComment Action = "ticket.comment_internal"
	ActionManageTicket    Action = "ticket.manage"
	ActionOverrideDueDate Action = "ticket.override_due"
	ActionManageSettings  Action = "settings.manage"
)

// Principal is the authenticated caller as supplied by the identity provider.
type Principal struct {
	UserID      string
	Assignments []domain.RoleAssignment
	GlobalAdmin bool
}

// Target identifies what the action applies to.
type Target struct {
	RequesterSectorID string
	TargetSectorID    string
	ResourceType      string
	ResourceID        string
}

// CanAct evaluates the rule chain in order; the first match wins:
// global admin, explicit override, role-derived default, deny.
func CanAct(p Principal, action Action, target Target, overrides []domain.AccessOverride) bool {
	if p.GlobalAdmin || domain.IsGlobalAdmin(p.Assignments) {
		return true
	}
	if effect, ok := overrideFor(p.UserID, target, overrides); ok {
		return effect == domain.OverrideAllow
	}
	return roleDefault(p, action, target)
}

func overrideFor(userID string, target Target, overrides []domain.AccessOverride) (domain.OverrideEffect, bool) {
	if target.ResourceID == "" {
		return "", false
	}
	for _, o := range overrides {
		if o.UserID == userID && o.ResourceType == target.ResourceType && o.ResourceID == target.ResourceID {
			return o.Effect, true
		}
	}
	return "", false
}

func roleDefault(p Principal, action Action, target Target) bool {
	switch action {
	case ActionCreateTicket:
		_, member := domain.EffectiveRole(p.Assignments, target.RequesterSectorID)
		return member
	case ActionViewTicket, ActionComment:
		if _, member := domain.EffectiveRole(p.Assignments, target.RequesterSectorID); member {
			return true
		}
		_, member := domain.EffectiveRole(p.Assignments, target.TargetSectorID)
		return member
	case ActionInternalComment:
		_, member := domain.EffectiveRole(p.Assignments, target.TargetSectorID)
		return member
	case ActionManageTicket, ActionOverrideDueDate:
		role, member := domain.EffectiveRole(p.Assignments, target.TargetSectorID)
		return member && role.Rank() >= domain.RoleCoordinator.Rank()
	case ActionManageSettings:
		// Reserved for global admins, handled by rule one.
		return false
	}
	return false
}
