package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/intranet-hub/portal-service/internal/authz"
	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/repository"
	apperrors "github.com/intranet-hub/portal-service/pkg/util"
)

const principalKey = "auth_principal"

// RequestPrincipal is the authenticated caller plus their resolved sector
// roles for this request.
type RequestPrincipal struct {
	User        *domain.User
	Assignments []domain.RoleAssignment
}

// Authz converts the request principal into the evaluator's shape.
func (p *RequestPrincipal) Authz() authz.Principal {
	return authz.Principal{
		UserID:      p.User.ID,
		Assignments: p.Assignments,
		GlobalAdmin: domain.IsGlobalAdmin(p.Assignments),
	}
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	roles  repository.RoleAssignmentRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, roles repository.RoleAssignmentRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, roles: roles}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if !user.Active {
		return apperrors.NewUnauthorized("user disabled")
	}

	assignments, err := m.roles.ListByUser(c.Context(), user.ID)
	if err != nil {
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &RequestPrincipal{User: user, Assignments: assignments})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*RequestPrincipal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*RequestPrincipal)
	return principal, ok
}
