package middleware

import (
	"labventory/internal/authz"

	"github.com/gofiber/fiber/v2"
)

// RequirePermission must run after RequireAuth. A missing profile is 401 and
// a missing permission is 403.
func (m *Middleware) RequirePermission(permission authz.Permission) fiber.Handler {
	return m.RequireAnyPermission(permission)
}

func (m *Middleware) RequireAnyPermission(permissions ...authz.Permission) fiber.Handler {
	log := m.log.Function("RequireAnyPermission")

	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			log.Info("user not found in context")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		if !authz.HasAny(user, permissions...) {
			log.Info("permission denied", "userID", user.ID, "role", user.Role, "required", permissions)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Insufficient permissions",
			})
		}

		return c.Next()
	}
}
