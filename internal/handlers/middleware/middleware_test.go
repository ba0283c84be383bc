package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"labventory/config"
	"labventory/internal/authz"
	appContext "labventory/internal/context"
	"labventory/internal/database"
	"labventory/internal/models"
	"labventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth map[string]*models.UserProfile

func (s stubAuth) Authenticate(_ context.Context, token string) (*models.UserProfile, error) {
	if user, ok := s[token]; ok {
		return user, nil
	}
	return nil, errors.New("bad token")
}

func setupApp(t *testing.T) (*fiber.App, *models.UserProfile) {
	t.Helper()

	student := models.NewUserProfile(uuid.New(), "student@example.com", authz.RoleStudent)
	m := New(database.DB{}, config.Config{}, stubAuth{"good": student})

	app := fiber.New()
	app.Use(m.TraceID())
	protected := app.Group("/api", m.RequireAuth())
	protected.Get("/equipment", m.RequirePermission(authz.EquipmentRead), func(c *fiber.Ctx) error {
		userID := appContext.GetUserID(c.UserContext())
		require.NotNil(t, userID)
		return c.JSON(fiber.Map{
			"user":    GetUser(c).Email,
			"userID":  userID.String(),
			"traceID": logger.TraceIDFromContext(c.UserContext()),
		})
	})
	protected.Get("/users", m.RequirePermission(authz.UsersManage), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	protected.Get("/reports", m.RequireAnyPermission(authz.ReportsGenerate, authz.ReportsView), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/open", m.RequirePermission(authz.EquipmentRead), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app, student
}

func TestRequireAuthAndPermissions(t *testing.T) {
	app, _ := setupApp(t)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"no header", "/api/equipment", "", fiber.StatusUnauthorized},
		{"wrong scheme", "/api/equipment", "Basic good", fiber.StatusUnauthorized},
		{"empty bearer", "/api/equipment", "Bearer ", fiber.StatusUnauthorized},
		{"unknown token", "/api/equipment", "Bearer forged", fiber.StatusUnauthorized},
		{"granted", "/api/equipment", "Bearer good", fiber.StatusOK},
		{"lowercase scheme", "/api/equipment", "bearer good", fiber.StatusOK},
		{"missing permission", "/api/users", "Bearer good", fiber.StatusForbidden},
		{"any of several", "/api/reports", "Bearer good", fiber.StatusOK},
		{"no profile at all", "/open", "", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(TraceIDHeader))
		})
	}
}

func TestTraceIDIsPropagated(t *testing.T) {
	app, _ := setupApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/api/equipment", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer good")
	req.Header.Set(TraceIDHeader, "trace-123")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "trace-123", resp.Header.Get(TraceIDHeader))
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	_, ok = BearerToken("Token abc")
	assert.False(t, ok)

	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
}
