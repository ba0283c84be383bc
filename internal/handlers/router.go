package handlers

import (
	"labventory/internal/app"
	"labventory/internal/handlers/middleware"
	"labventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func newHandler(app app.App, router fiber.Router, file string) Handler {
	return Handler{
		middleware: app.Middleware,
		log:        logger.New("handlers").File(file),
		router:     router,
	}
}

// Router mounts the websocket endpoint and the /api surface. Public routes
// are registered before the authenticated group so they never reach
// RequireAuth.
func Router(router fiber.Router, app *app.App) (err error) {
	router.Use(app.Middleware.TraceID())
	setupWebSocketRoute(router, app)

	api := router.Group("/api")
	HealthHandler(api, app.Config)
	NewAuthHandler(*app, api).Register()

	protected := api.Group("", app.Middleware.RequireAuth())
	NewUserHandler(*app, protected).Register()
	NewEquipmentHandler(*app, protected).Register()
	NewChemicalHandler(*app, protected).Register()
	NewCheckInOutHandler(*app, protected).Register()
	NewMaintenanceHandler(*app, protected).Register()
	NewReportHandler(*app, protected).Register()
	NewQRHandler(*app, protected).Register()
	NewStatsHandler(*app, protected).Register()

	return nil
}

// Authentication happens inside the socket via the auth_request handshake
func setupWebSocketRoute(router fiber.Router, app *app.App) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(func(c *websocket.Conn) {
		app.Websocket.HandleWebSocket(c)
	}))
}
