package handlers

import (
	"labventory/internal/app"
	"labventory/internal/authz"
	equipmentController "labventory/internal/controllers/equipment"
	"labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/internal/services"

	"github.com/gofiber/fiber/v2"
)

type EquipmentHandler struct {
	Handler
	controller equipmentController.EquipmentControllerInterface
}

func NewEquipmentHandler(app app.App, router fiber.Router) *EquipmentHandler {
	return &EquipmentHandler{
		Handler:    newHandler(app, router, "equipment_handler"),
		controller: app.Controllers.Equipment,
	}
}

func (h *EquipmentHandler) Register() {
	equipment := h.router.Group("/equipment")

	read := h.middleware.RequirePermission(authz.EquipmentRead)
	create := h.middleware.RequirePermission(authz.EquipmentCreate)
	update := h.middleware.RequirePermission(authz.EquipmentUpdate)

	equipment.Get("/", read, h.listEquipment)
	equipment.Post("/", create, h.createEquipment)
	equipment.Post("/import", create, h.importEquipment)
	equipment.Post("/check-duplicate", read, h.checkDuplicate)
	equipment.Get("/:id", read, h.getEquipment)
	equipment.Put("/:id", update, h.updateEquipment)
	equipment.Patch("/:id/visibility", update, h.setVisibility)
	equipment.Delete("/:id", h.middleware.RequirePermission(authz.EquipmentDelete), h.deleteEquipment)
}

func (h *EquipmentHandler) listEquipment(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listEquipment")

	filter := repositories.EquipmentFilter{
		Location:      c.Query("location"),
		Status:        models.EquipmentStatus(c.Query("status")),
		Category:      c.Query("category"),
		IncludeHidden: c.QueryBool("includeHidden"),
	}

	equipment, err := h.controller.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, log, err, "Failed to list equipment")
	}

	return c.JSON(fiber.Map{"equipment": equipment})
}

func (h *EquipmentHandler) getEquipment(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("getEquipment")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to get equipment")
	}

	equipment, err := h.controller.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, log, err, "Failed to get equipment")
	}

	return c.JSON(fiber.Map{"equipment": equipment})
}

func (h *EquipmentHandler) createEquipment(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("createEquipment")

	var request equipmentController.CreateEquipmentRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to create equipment")
	}

	response, err := h.controller.Create(c.UserContext(), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to create equipment")
	}

	return c.Status(outcomeStatus(response.Outcome)).JSON(response)
}

func (h *EquipmentHandler) updateEquipment(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("updateEquipment")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to update equipment")
	}

	var request equipmentController.UpdateEquipmentRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to update equipment")
	}

	equipment, err := h.controller.Update(c.UserContext(), id, &request)
	if err != nil {
		return respondError(c, log, err, "Failed to update equipment")
	}

	return c.JSON(fiber.Map{"equipment": equipment})
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

func (h *EquipmentHandler) setVisibility(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("setVisibility")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to update visibility")
	}

	var request visibilityRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to update visibility")
	}

	equipment, err := h.controller.SetVisibility(c.UserContext(), id, request.Hidden)
	if err != nil {
		return respondError(c, log, err, "Failed to update visibility")
	}

	return c.JSON(fiber.Map{"equipment": equipment})
}

func (h *EquipmentHandler) deleteEquipment(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("deleteEquipment")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to delete equipment")
	}

	if err := h.controller.Delete(c.UserContext(), id); err != nil {
		return respondError(c, log, err, "Failed to delete equipment")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *EquipmentHandler) checkDuplicate(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("checkDuplicate")

	var request equipmentController.CheckDuplicateRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to check for duplicates")
	}

	result, err := h.controller.CheckDuplicate(c.UserContext(), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to check for duplicates")
	}

	return c.JSON(result)
}

func (h *EquipmentHandler) importEquipment(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("importEquipment")

	var request equipmentController.ImportRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to import equipment")
	}

	result, err := h.controller.Import(c.UserContext(), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to import equipment")
	}

	log.Info("Equipment imported", "items", len(request.Items))
	return c.JSON(result)
}

func outcomeStatus(outcome services.WriteOutcome) int {
	if outcome == services.OutcomeCreated {
		return fiber.StatusCreated
	}
	return fiber.StatusOK
}
