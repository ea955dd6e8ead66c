package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/compliance-portal/internal/domain"
	apperrors "github.com/spec-kit/compliance-portal/pkg/util"
)

// HasRole reports whether user holds one of the allowed roles.
func HasRole(user *domain.User, allowed ...domain.Role) bool {
	if user == nil {
		return false
	}
	for _, role := range allowed {
		if user.Role == role {
			return true
		}
	}
	return false
}

// RequireRole passes only callers whose role is in the allowed set.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewAccountForbidden(apperrors.CodeInsufficientPrivilege, "Insufficient privileges")
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewAccountForbidden(apperrors.CodeInsufficientPrivilege, "Insufficient privileges")
		}
		return c.Next()
	}
}

// RequireAdmin passes only admins.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User.Role != domain.RoleAdmin {
			return apperrors.NewForbidden("Admin access required")
		}
		return c.Next()
	}
}
