package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/intranet-hub/portal-service/internal/service"
)

// ReportsHandler serves the coordinator dashboard aggregates.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Dashboard GET /reports/dashboard.
func (h *ReportsHandler) Dashboard(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Dashboard(c.Context(), principal, sectorParam(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// WIP GET /reports/wip.
func (h *ReportsHandler) WIP(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	rows, err := h.service.WIPByAssignee(c.Context(), principal, sectorParam(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rows})
}

// Throughput GET /reports/throughput.
func (h *ReportsHandler) Throughput(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	days, _ := strconv.Atoi(c.Query("days"))
	rows, err := h.service.Throughput(c.Context(), principal, sectorParam(c), days)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rows})
}

// Backlog GET /reports/backlog.
func (h *ReportsHandler) Backlog(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	rows, err := h.service.BacklogByCategory(c.Context(), principal, sectorParam(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rows})
}

func sectorParam(c *fiber.Ctx) *string {
	if v := c.Query("sector_id"); v != "" {
		return &v
	}
	return nil
}
