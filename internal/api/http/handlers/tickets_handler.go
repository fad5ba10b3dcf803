package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/intranet-hub/portal-service/internal/api/dto"
	"github.com/intranet-hub/portal-service/internal/auth"
	"github.com/intranet-hub/portal-service/internal/authz"
	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/service"
	apperrors "github.com/intranet-hub/portal-service/pkg/util"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RequesterSectorID == "" || req.TargetSectorID == "" || req.CategoryID == "" {
		return apperrors.NewValidationError("requester_sector_id, target_sector_id, category_id required", nil)
	}

	ticket, err := h.service.CreateTicket(c.Context(), principal, service.TicketCreateInput{
		Title:             req.Title,
		Description:       req.Description,
		RequestData:       req.RequestData,
		Priority:          req.Priority,
		RequesterSectorID: req.RequesterSectorID,
		TargetSectorID:    req.TargetSectorID,
		CategoryID:        req.CategoryID,
		ResourceID:        req.ResourceID,
		Tags:              req.Tags,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.Context(), principal, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	detail, err := h.service.GetTicket(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketDetail(detail)})
}

// ChangeStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ChangeStatus(c.Context(), principal, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.Context(), principal, c.Params("id"), req.Body, req.Internal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CommentResponse{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		Internal:  comment.Internal,
		CreatedAt: comment.CreatedAt,
	}})
}

// Assign POST /tickets/:id/assignees.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return apperrors.NewValidationError("user_id required", nil)
	}
	if err := h.service.Assign(c.Context(), principal, c.Params("id"), req.UserID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Unassign DELETE /tickets/:id/assignees/:userId.
func (h *TicketsHandler) Unassign(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Unassign(c.Context(), principal, c.Params("id"), c.Params("userId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangePriority PATCH /tickets/:id/priority.
func (h *TicketsHandler) ChangePriority(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ChangePriority(c.Context(), principal, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ChangeCategory PATCH /tickets/:id/category.
func (h *TicketsHandler) ChangeCategory(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangeCategoryRequest
	if err := c.BodyParser(&req); err != nil || req.CategoryID == "" {
		return apperrors.NewValidationError("category_id required", nil)
	}
	ticket, err := h.service.ChangeCategory(c.Context(), principal, c.Params("id"), req.CategoryID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// OverrideDue PATCH /tickets/:id/sla/resolution-due.
func (h *TicketsHandler) OverrideDue(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.OverrideDueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ResolutionDueAt.IsZero() {
		return apperrors.NewValidationError("resolution_due_at required", nil)
	}
	cycle, err := h.service.OverrideResolutionDue(c.Context(), principal, c.Params("id"), req.ResolutionDueAt, req.Reason, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromCycle(cycle)})
}

// ListEvents GET /tickets/:id/events.
func (h *TicketsHandler) ListEvents(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	limit, offset := parsePage(c)
	eventsList, err := h.service.ListEvents(c.Context(), principal, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.EventResponse, 0, len(eventsList))
	for i := range eventsList {
		items = append(items, dto.FromEvent(&eventsList[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func requirePrincipal(c *fiber.Ctx) (authz.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return authz.Principal{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Authz(), nil
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if v := c.Query("target_sector_id"); v != "" {
		filter.TargetSectorID = &v
	}
	if v := c.Query("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := c.Query("assignee_id"); v != "" {
		filter.AssigneeID = &v
	}
	if v := c.Query("q"); v != "" {
		filter.SearchTerm = &v
	}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw == "" {
			continue
		}
		status := domain.TicketStatus(raw)
		if status.Valid() {
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	for _, raw := range strings.Split(c.Query("priority"), ",") {
		if raw == "" {
			continue
		}
		priority := domain.TicketPriority(raw)
		if priority.Valid() {
			filter.Priorities = append(filter.Priorities, priority)
		}
	}
	if v := c.Query("created_from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.CreatedFrom = &t
		}
	}
	if v := c.Query("created_to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.CreatedTo = &t
		}
	}
	filter.Limit, filter.Offset = parsePage(c)
	return filter
}

func parsePage(c *fiber.Ctx) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	page := 1
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	return limit, (page - 1) * limit
}
