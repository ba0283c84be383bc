package handlers

import (
	"strings"

	"labventory/internal/app"
	"labventory/internal/authz"
	qrController "labventory/internal/controllers/qr"
	"labventory/internal/handlers/middleware"
	"labventory/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type QRHandler struct {
	Handler
	controller qrController.QRControllerInterface
}

func NewQRHandler(app app.App, router fiber.Router) *QRHandler {
	return &QRHandler{
		Handler:    newHandler(app, router, "qr_handler"),
		controller: app.Controllers.QR,
	}
}

func (h *QRHandler) Register() {
	qr := h.router.Group("/qr")
	qr.Post("/scan", h.middleware.RequirePermission(authz.EquipmentRead), h.scan)
	qr.Post(
		"/labels",
		h.middleware.RequireAnyPermission(authz.EquipmentRead, authz.ChemicalRead),
		h.labels,
	)
	qr.Get("/:type/:file", h.png)
}

func (h *QRHandler) scan(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("scan")

	var request qrController.ScanRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to resolve QR code")
	}

	item, err := h.controller.Scan(c.UserContext(), middleware.GetUser(c), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to resolve QR code")
	}

	return c.JSON(fiber.Map{"item": item})
}

// png serves /qr/:type/<id>.png
func (h *QRHandler) png(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("png")

	itemType, err := models.ParseItemType(c.Params("type"))
	if err != nil {
		return respondError(c, log, err, "Failed to render QR code")
	}

	permission, err := qrController.ReadPermission(itemType)
	if err != nil {
		return respondError(c, log, err, "Failed to render QR code")
	}
	if err := authz.Require(middleware.GetUser(c), permission); err != nil {
		return respondError(c, log, err, "Failed to render QR code")
	}

	id, err := uuid.Parse(strings.TrimSuffix(c.Params("file"), ".png"))
	if err != nil {
		return respondError(c, log, errInvalidID, "Failed to render QR code")
	}

	image, err := h.controller.PNG(c.UserContext(), itemType, id)
	if err != nil {
		return respondError(c, log, err, "Failed to render QR code")
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(image)
}

func (h *QRHandler) labels(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("labels")

	var request qrController.LabelsRequest
	if err := parseBody(c, &request); err != nil {
		return respondError(c, log, err, "Failed to build label sheet")
	}

	sheet, err := h.controller.Labels(c.UserContext(), middleware.GetUser(c), &request)
	if err != nil {
		return respondError(c, log, err, "Failed to build label sheet")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="qr_labels.pdf"`)
	return c.Send(sheet)
}
