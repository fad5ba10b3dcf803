package service

import (
	"context"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/intranet-hub/portal-service/internal/authz"
	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/repository"
	apperrors "github.com/intranet-hub/portal-service/pkg/util"
)

// SettingsService manages admin-mutable configuration: the outbound webhook
// target and per-type notification toggles. Every change is audited.
type SettingsService struct {
	settings repository.SettingsRepository
	policies repository.SLAPolicyRepository
	audit    repository.AuditRepository
	logger   *zap.Logger
}

// NewSettingsService constructs the service.
func NewSettingsService(settings repository.SettingsRepository, policies repository.SLAPolicyRepository, audit repository.AuditRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{settings: settings, policies: policies, audit: audit, logger: logger}
}

// List returns all settings rows.
func (s *SettingsService) List(ctx context.Context, principal authz.Principal) ([]domain.Setting, error) {
	if err := s.requireAdmin(principal); err != nil {
		return nil, err
	}
	list, err := s.settings.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// Put upserts one setting after key-specific validation.
func (s *SettingsService) Put(ctx context.Context, principal authz.Principal, key, value, ip string) error {
	if err := s.requireAdmin(principal); err != nil {
		return err
	}
	switch key {
	case domain.SettingWebhookURL:
		if value != "" {
			parsed, err := url.Parse(value)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return apperrors.NewValidationError("webhook url must be absolute http(s)", map[string]any{"value": value})
			}
		}
	case domain.SettingWebhookEnabled:
		if _, err := strconv.ParseBool(value); err != nil {
			return apperrors.NewValidationError("expected boolean", map[string]any{"value": value})
		}
	default:
		return apperrors.NewValidationError("unknown setting key", map[string]any{"key": key})
	}

	updatedBy := principal.UserID
	if err := s.settings.Put(ctx, key, value, &updatedBy); err != nil {
		return apperrors.MapError(err)
	}
	s.recordAudit(ctx, principal, "settings.put", key, map[string]any{"value": value}, ip)
	return nil
}

// NotificationToggle flips global delivery for one notification type.
func (s *SettingsService) NotificationToggle(ctx context.Context, principal authz.Principal, t domain.NotificationType, enabled bool, ip string) error {
	if err := s.requireAdmin(principal); err != nil {
		return err
	}
	if err := s.settings.SetNotificationEnabled(ctx, t, enabled); err != nil {
		return apperrors.MapError(err)
	}
	s.recordAudit(ctx, principal, "settings.notification_toggle", string(t), map[string]any{"enabled": enabled}, ip)
	return nil
}

// SLAPolicies lists configured policies for the admin screen.
func (s *SettingsService) SLAPolicies(ctx context.Context, principal authz.Principal) ([]domain.SLAPolicy, error) {
	if err := s.requireAdmin(principal); err != nil {
		return nil, err
	}
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return policies, nil
}

// AuditLog pages through recorded admin and override actions.
func (s *SettingsService) AuditLog(ctx context.Context, principal authz.Principal, limit, offset int) ([]domain.AuditEntry, error) {
	if err := s.requireAdmin(principal); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := s.audit.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *SettingsService) requireAdmin(principal authz.Principal) error {
	if !authz.CanAct(principal, authz.ActionManageSettings, authz.Target{}, nil) {
		return apperrors.NewForbidden()
	}
	return nil
}

func (s *SettingsService) recordAudit(ctx context.Context, principal authz.Principal, action, targetID string, metadata map[string]any, ip string) {
	entry := &domain.AuditEntry{
		ActorID:    principal.UserID,
		Action:     action,
		TargetType: "setting",
		TargetID:   targetID,
		Metadata:   metadata,
		IP:         ip,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.Error(err), zap.String("action", action))
	}
}
