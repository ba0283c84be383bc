package handlers

import (
	"labventory/internal/app"
	"labventory/internal/authz"
	checkInOutController "labventory/internal/controllers/checkInOut"
	"labventory/internal/handlers/middleware"
	"labventory/internal/models"
	"labventory/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

type CheckInOutHandler struct {
	Handler
	controller checkInOutController.CheckInOutControllerInterface
}

func NewCheckInOutHandler(app app.App, router fiber.Router) *CheckInOutHandler {
	return &CheckInOutHandler{
		Handler:    newHandler(app, router, "checkInOut_handler"),
		controller: app.Controllers.CheckInOut,
	}
}

func (h *CheckInOutHandler) Register() {
	checkInOut := h.router.Group("/checkinout")

	read := h.middleware.RequirePermission(authz.CheckInOutRead)

	checkInOut.Get("/", read, h.listRecords)
	checkInOut.Get("/active", read, h.activeCheckouts)
	checkInOut.Post("/", h.middleware.RequirePermission(authz.CheckInOutCreate), h.recordAction)
	checkInOut.Delete("/:id", h.middleware.RequirePermission(authz.UsersManage), h.deleteRecord)
}

func (h *CheckInOutHandler) listRecords(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("listRecords")

	itemID, err := queryUUID(c, "itemId")
	if err != nil {
		return respondError(c, log, err, "Failed to list records")
	}

	filter := repositories.CheckInOutFilter{
		ItemID:    itemID,
		ItemType:  models.ItemType(c.Query("itemType")),
		Action:    models.CheckAction(c.Query("action")),
		UserEmail: c.Query("userEmail"),
		Limit:     queryInt(c, "limit"),
		Offset:    queryInt(c, "offset"),
	}

	records, err := h.controller.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, log, err, "Failed to list records")
	}

	return c.JSON(fiber.Map{"records": records})
}

// activeCheckouts returns every outstanding balance, or the balance of one
// item when itemId is given
func (h *CheckInOutHandler) activeCheckouts(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("activeCheckouts")

	itemID, err := queryUUID(c, "itemId")
	if err != nil {
		return respondError(c, log, err, "Failed to load active checkouts")
	}

	if itemID != nil {
		count, err := h.controller.ActiveCheckouts(c.UserContext(), *itemID)
		if err != nil {
			return respondError(c, log, err, "Failed to load active checkouts")
		}
		return c.JSON(fiber.Map{"itemId": itemID, "active": count})
	}

	active, err := h.controller.Active(c.UserContext())
	if err != nil {
		return respondError(c, log, err, "Failed to load active checkouts")
	}

	return c.JSON(fiber.Map{"active": active})
}

func (h *CheckInOutHandler) recordAction(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("recordAction")

	var request checkInOutController.RecordRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to record action")
	}

	result, err := h.controller.Record(c.UserContext(), middleware.GetUser(c), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to record action")
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *CheckInOutHandler) deleteRecord(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("deleteRecord")

	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, log, err, "Failed to delete record")
	}

	if err := h.controller.Delete(c.UserContext(), id); err != nil {
		return respondError(c, log, err, "Failed to delete record")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
