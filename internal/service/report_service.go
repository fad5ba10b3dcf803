package service

import (
	"context"
	"time"

	"github.com/intranet-hub/portal-service/internal/authz"
	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/repository"
	apperrors "github.com/intranet-hub/portal-service/pkg/util"
)

// defaultRiskWindow classifies a running cycle as at-risk when its resolution
// due date falls inside the next four hours of wall time.
const defaultRiskWindow = 4 * time.Hour

// ReportService serves the coordinator dashboard aggregates.
type ReportService struct {
	reports repository.ReportRepository
}

// NewReportService constructs the service.
func NewReportService(reports repository.ReportRepository) *ReportService {
	return &ReportService{reports: reports}
}

// Dashboard returns the headline counters for a sector (or globally for
// admins when sectorID is nil).
func (s *ReportService) Dashboard(ctx context.Context, principal authz.Principal, sectorID *string) (*repository.DashboardSummary, error) {
	scoped, err := s.scope(principal, sectorID)
	if err != nil {
		return nil, err
	}
	summary, err := s.reports.DashboardSummary(ctx, scoped, defaultRiskWindow)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return summary, nil
}

// WIPByAssignee returns open ticket counts per assignee.
func (s *ReportService) WIPByAssignee(ctx context.Context, principal authz.Principal, sectorID *string) ([]repository.AssigneeWIP, error) {
	scoped, err := s.scope(principal, sectorID)
	if err != nil {
		return nil, err
	}
	rows, err := s.reports.WIPByAssignee(ctx, scoped)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rows, nil
}

// Throughput returns created/resolved counts per day for the trailing window.
func (s *ReportService) Throughput(ctx context.Context, principal authz.Principal, sectorID *string, days int) ([]repository.ThroughputPoint, error) {
	scoped, err := s.scope(principal, sectorID)
	if err != nil {
		return nil, err
	}
	if days <= 0 || days > 90 {
		days = 30
	}
	rows, err := s.reports.Throughput(ctx, scoped, days)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rows, nil
}

// BacklogByCategory returns open ticket counts per category.
func (s *ReportService) BacklogByCategory(ctx context.Context, principal authz.Principal, sectorID *string) ([]repository.CategoryBacklog, error) {
	scoped, err := s.scope(principal, sectorID)
	if err != nil {
		return nil, err
	}
	rows, err := s.reports.BacklogByCategory(ctx, scoped)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rows, nil
}

// scope enforces that reports are coordinator-or-above territory. Global
// admins may query any sector or all of them; coordinators are limited to
// sectors where they hold the role.
func (s *ReportService) scope(principal authz.Principal, sectorID *string) (*string, error) {
	if principal.GlobalAdmin || domain.IsGlobalAdmin(principal.Assignments) {
		return sectorID, nil
	}
	if sectorID == nil {
		return nil, apperrors.NewForbidden()
	}
	role, member := domain.EffectiveRole(principal.Assignments, *sectorID)
	if !member || role.Rank() < domain.RoleCoordinator.Rank() {
		return nil, apperrors.NewForbidden()
	}
	return sectorID, nil
}
