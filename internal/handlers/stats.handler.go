package handlers

import (
	"labventory/internal/app"
	"labventory/internal/authz"
	statsController "labventory/internal/controllers/stats"

	"github.com/gofiber/fiber/v2"
)

type StatsHandler struct {
	Handler
	controller statsController.StatsControllerInterface
}

func NewStatsHandler(app app.App, router fiber.Router) *StatsHandler {
	return &StatsHandler{
		Handler:    newHandler(app, router, "stats_handler"),
		controller: app.Controllers.Stats,
	}
}

func (h *StatsHandler) Register() {
	stats := h.router.Group("/stats", h.middleware.RequirePermission(authz.EquipmentRead))
	stats.Get("/", h.dashboard)
	stats.Get("/alerts", h.alerts)
}

func (h *StatsHandler) dashboard(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("dashboard")

	stats, err := h.controller.Dashboard(c.UserContext())
	if err != nil {
		return respondError(c, log, err, "Failed to load statistics")
	}

	return c.JSON(stats)
}

func (h *StatsHandler) alerts(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("alerts")

	alerts, err := h.controller.Alerts(c.UserContext())
	if err != nil {
		return respondError(c, log, err, "Failed to load alerts")
	}

	return c.JSON(alerts)
}
