package middleware

import (
	"strings"

	appContext "labventory/internal/context"
	"labventory/internal/models"
	"labventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// UserKeyFiber is the fiber locals key holding the authenticated profile
const UserKeyFiber = "User"

// BearerToken pulls the token out of an Authorization header value
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAuth validates the session token and loads the caller's profile.
// The profile is read on every request so role changes apply immediately.
func (m *Middleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := logger.New("middleware").TraceFromContext(c.UserContext()).Function("RequireAuth")

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Info("missing authorization header")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		token, ok := BearerToken(authHeader)
		if !ok {
			log.Info("invalid authorization header format")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		user, err := m.auth.Authenticate(c.UserContext(), token)
		if err != nil {
			log.Info("token validation failed", "error", err.Error())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(UserKeyFiber, user)
		c.SetUserContext(appContext.WithUserID(c.UserContext(), user.ID))

		log.Debug("user authenticated", "userID", user.ID, "role", user.Role)
		return c.Next()
	}
}

// GetUser extracts the authenticated profile from the fiber context
func GetUser(c *fiber.Ctx) *models.UserProfile {
	user, ok := c.Locals(UserKeyFiber).(*models.UserProfile)
	if !ok {
		return nil
	}
	return user
}
