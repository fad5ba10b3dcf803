package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/intranet-hub/portal-service/internal/api/dto"
	"github.com/intranet-hub/portal-service/internal/service"
	apperrors "github.com/intranet-hub/portal-service/pkg/util"
)

// AuthHandler exposes the local-credential login endpoint.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	result, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	assignments := make([]dto.RoleAssignmentResponse, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		assignments = append(assignments, dto.RoleAssignmentResponse{SectorID: a.SectorID, Role: a.Role})
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:       result.Token,
		ExpiresAt:   result.ExpiresAt,
		UserID:      result.User.ID,
		Name:        result.User.Name,
		Email:       result.User.Email,
		Assignments: assignments,
	}})
}
