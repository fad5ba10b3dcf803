package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/intranet-hub/portal-service/internal/domain"
)

// RequireAuthenticated ensures a caller passed the auth middleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}

// RequireGlobalAdmin gates admin-only surfaces (settings, SLA policies).
func RequireGlobalAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if !domain.IsGlobalAdmin(principal.Assignments) {
			return fiber.NewError(http.StatusForbidden, "admin role required")
		}
		return c.Next()
	}
}

// RequireAnyCoordinator gates surfaces where coordinator rank in at least
// one sector is enough; finer sector checks happen in the services.
func RequireAnyCoordinator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		for _, a := range principal.Assignments {
			if a.Role.Rank() >= domain.RoleCoordinator.Rank() {
				return c.Next()
			}
		}
		return fiber.NewError(http.StatusForbidden, "coordinator role required")
	}
}
