package handlers

import (
	"labventory/internal/app"
	"labventory/internal/authz"
	chemicalController "labventory/internal/controllers/chemicals"
	"labventory/internal/models"
	"labventory/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

type ChemicalHandler struct {
	Handler
	controller chemicalController.ChemicalControllerInterface
}

func NewChemicalHandler(app app.App, router fiber.Router) *ChemicalHandler {
	return &ChemicalHandler{
		Handler:    newHandler(app, router, "chemical_handler"),
		controller: app.Controllers.Chemical,
	}
}

func (h *ChemicalHandler) Register() {
	chemicals := h.router.Group("/chemicals")

	read := h.middleware.RequirePermission(authz.ChemicalRead)
	create := h.middleware.RequirePermission(authz.ChemicalCreate)
	update := h.middleware.RequirePermission(authz.ChemicalUpdate)

	chemicals.Get("/", read, h.listChemicals)
	chemicals.Get("/low-stock", read, h.lowStock)
	chemicals.Get("/expiring", read, h.expiring)
	chemicals.Post("/", create, h.createChemical)
	chemicals.Post("/import", create, h.importChemicals)
	chemicals.Post("/check-duplicate", read, h.checkDuplicate)
	chemicals.Get("/:id", read, h.getChemical)
	chemicals.Put("/:id", update, h.updateChemical)
	chemicals.Patch("/:id/quantity", update, h.setQuantity)
	chemicals.Delete("/:id", h.middleware.RequirePermission(authz.ChemicalDelete), h.deleteChemical)
}

func (h *ChemicalHandler) listChemicals(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listChemicals")

	filter := repositories.ChemicalFilter{
		Location:    c.Query("location"),
		HazardLevel: models.HazardLevel(c.Query("hazardLevel")),
	}

	chemicals, err := h.controller.List(c.UserContext(), filter, c.Query("search"))
	if err != nil {
		return respondError(c, log, err, "Failed to list chemicals")
	}

	return c.JSON(fiber.Map{"chemicals": chemicals})
}

func (h *ChemicalHandler) lowStock(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("lowStock")

	chemicals, err := h.controller.LowStock(c.UserContext())
	if err != nil {
		return respondError(c, log, err, "Failed to load low stock chemicals")
	}

	return c.JSON(fiber.Map{"chemicals": chemicals})
}

func (h *ChemicalHandler) expiring(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("expiring")

	chemicals, err := h.controller.Expiring(c.UserContext())
	if err != nil {
		return respondError(c, log, err, "Failed to load expiring chemicals")
	}

	return c.JSON(fiber.Map{"chemicals": chemicals})
}

func (h *ChemicalHandler) getChemical(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("getChemical")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to get chemical")
	}

	chemical, err := h.controller.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, log, err, "Failed to get chemical")
	}

	return c.JSON(fiber.Map{"chemical": chemical})
}

func (h *ChemicalHandler) createChemical(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("createChemical")

	var request chemicalController.CreateChemicalRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to create chemical")
	}

	response, err := h.controller.Create(c.UserContext(), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to create chemical")
	}

	return c.Status(outcomeStatus(response.Outcome)).JSON(response)
}

func (h *ChemicalHandler) updateChemical(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("updateChemical")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to update chemical")
	}

	var request chemicalController.UpdateChemicalRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to update chemical")
	}

	chemical, err := h.controller.Update(c.UserContext(), id, &request)
	if err != nil {
		return respondError(c, log, err, "Failed to update chemical")
	}

	return c.JSON(fiber.Map{"chemical": chemical})
}

func (h *ChemicalHandler) setQuantity(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("setQuantity")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to set quantity")
	}

	var request chemicalController.QuantityRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to set quantity")
	}

	chemical, err := h.controller.SetQuantity(c.UserContext(), id, &request)
	if err != nil {
		return respondError(c, log, err, "Failed to set quantity")
	}

	return c.JSON(fiber.Map{"chemical": chemical})
}

func (h *ChemicalHandler) deleteChemical(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("deleteChemical")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to delete chemical")
	}

	if err := h.controller.Delete(c.UserContext(), id); err != nil {
		return respondError(c, log, err, "Failed to delete chemical")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ChemicalHandler) checkDuplicate(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("checkDuplicate")

	var request chemicalController.CheckDuplicateRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to check for duplicates")
	}

	result, err := h.controller.CheckDuplicate(c.UserContext(), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to check for duplicates")
	}

	return c.JSON(result)
}

func (h *ChemicalHandler) importChemicals(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("importChemicals")

	var request chemicalController.ImportRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to import chemicals")
	}

	result, err := h.controller.Import(c.UserContext(), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to import chemicals")
	}

	log.Info("Chemicals imported", "items", len(request.Items))
	return c.JSON(result)
}
