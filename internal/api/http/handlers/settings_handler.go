package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/intranet-hub/portal-service/internal/api/dto"
	"github.com/intranet-hub/portal-service/internal/service"
	apperrors "github.com/intranet-hub/portal-service/pkg/util"
)

// SettingsHandler exposes admin configuration and the audit log.
type SettingsHandler struct {
	service *service.SettingsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: settingsService}
}

// List GET /admin/settings.
func (h *SettingsHandler) List(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	settings, err := h.service.List(c.Context(), principal)
	if err != nil {
		return err
	}
	items := make([]dto.SettingResponse, 0, len(settings))
	for _, s := range settings {
		items = append(items, dto.SettingResponse{Key: s.Key, Value: s.Value, UpdatedAt: s.UpdatedAt, UpdatedBy: s.UpdatedBy})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Put PUT /admin/settings/:key.
func (h *SettingsHandler) Put(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PutSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.Put(c.Context(), principal, c.Params("key"), req.Value, c.IP()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// NotificationToggle PUT /admin/settings/notifications.
func (h *SettingsHandler) NotificationToggle(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.NotificationToggleRequest
	if err := c.BodyParser(&req); err != nil || req.Type == "" {
		return apperrors.NewValidationError("type required", nil)
	}
	if err := h.service.NotificationToggle(c.Context(), principal, req.Type, req.Enabled, c.IP()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// SLAPolicies GET /admin/sla-policies.
func (h *SettingsHandler) SLAPolicies(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	policies, err := h.service.SLAPolicies(c.Context(), principal)
	if err != nil {
		return err
	}
	items := make([]dto.SLAPolicyResponse, 0, len(policies))
	for _, p := range policies {
		items = append(items, dto.SLAPolicyResponse{
			ID:                   p.ID,
			Priority:             p.Priority,
			FirstResponseMinutes: p.FirstResponseMinutes,
			ResolutionMinutes:    p.ResolutionMinutes,
			Active:               p.Active,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// AuditLog GET /admin/audit-log.
func (h *SettingsHandler) AuditLog(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	limit, offset := parsePage(c)
	entries, err := h.service.AuditLog(c.Context(), principal, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.AuditEntryResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			Action:     e.Action,
			TargetType: e.TargetType,
			TargetID:   e.TargetID,
			Metadata:   e.Metadata,
			IP:         e.IP,
			CreatedAt:  e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
