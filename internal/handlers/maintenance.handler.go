package handlers

import (
	"labventory/internal/app"
	"labventory/internal/authz"
	maintenanceController "labventory/internal/controllers/maintenance"
	"labventory/internal/models"
	"labventory/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

type MaintenanceHandler struct {
	Handler
	controller maintenanceController.MaintenanceControllerInterface
}

func NewMaintenanceHandler(app app.App, router fiber.Router) *MaintenanceHandler {
	return &MaintenanceHandler{
		Handler:    newHandler(app, router, "maintenance_handler"),
		controller: app.Controllers.Maintenance,
	}
}

func (h *MaintenanceHandler) Register() {
	maintenance := h.router.Group("/maintenance")

	read := h.middleware.RequirePermission(authz.MaintenanceRead)
	create := h.middleware.RequirePermission(authz.MaintenanceCreate)
	update := h.middleware.RequirePermission(authz.MaintenanceUpdate)

	maintenance.Get("/", read, h.listTasks)
	maintenance.Get("/overdue", read, h.overdueTasks)
	maintenance.Post("/", create, h.createTask)
	maintenance.Post("/check-duplicate", create, h.checkDuplicate)
	maintenance.Put("/:id", update, h.updateTask)
	maintenance.Delete("/:id", update, h.deleteTask)
}

func (h *MaintenanceHandler) listTasks(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listTasks")

	equipmentID, err := queryUUID(c, "equipmentId")
	if err != nil {
		return respondError(c, log, err, "Failed to list maintenance")
	}

	tasks, err := h.controller.List(c.UserContext(), repositories.MaintenanceFilter{
		Status:      models.MaintenanceStatus(c.Query("status")),
		EquipmentID: equipmentID,
	})
	if err != nil {
		return respondError(c, log, err, "Failed to list maintenance")
	}

	return c.JSON(fiber.Map{"tasks": tasks})
}

func (h *MaintenanceHandler) overdueTasks(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("overdueTasks")

	tasks, err := h.controller.Overdue(c.UserContext())
	if err != nil {
		return respondError(c, log, err, "Failed to load overdue maintenance")
	}

	return c.JSON(fiber.Map{"tasks": tasks})
}

func (h *MaintenanceHandler) createTask(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("createTask")

	var request maintenanceController.CreateMaintenanceRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to schedule maintenance")
	}

	response, err := h.controller.Create(c.UserContext(), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to schedule maintenance")
	}

	return c.Status(outcomeStatus(response.Outcome)).JSON(response)
}

func (h *MaintenanceHandler) updateTask(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("updateTask")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to update maintenance")
	}

	var request maintenanceController.UpdateMaintenanceRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to update maintenance")
	}

	task, err := h.controller.Update(c.UserContext(), id, &request)
	if err != nil {
		return respondError(c, log, err, "Failed to update maintenance")
	}

	return c.JSON(fiber.Map{"task": task})
}

func (h *MaintenanceHandler) deleteTask(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("deleteTask")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to delete maintenance")
	}

	if err := h.controller.Delete(c.UserContext(), id); err != nil {
		return respondError(c, log, err, "Failed to delete maintenance")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MaintenanceHandler) checkDuplicate(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("checkDuplicate")

	var request maintenanceController.CheckDuplicateRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to check for duplicates")
	}

	result, err := h.controller.CheckDuplicate(c.UserContext(), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to check for duplicates")
	}

	return c.JSON(result)
}
