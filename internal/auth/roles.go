package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/redemption-queue/pkg/util/errorutil"
)

// Role is carried in the token and gates route groups.
type Role string

const RoleAdmin Role = "admin"

// RequireRole ensures the authenticated principal holds one of the allowed roles.
func RequireRole(allowed ...Role) fiber.Handler {
	allowedSet := make(map[Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
