package handlers

import (
	"fmt"

	"labventory/internal/app"
	"labventory/internal/authz"
	reportController "labventory/internal/controllers/reports"
	"labventory/internal/handlers/middleware"
	"labventory/internal/services"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	Handler
	controller reportController.ReportControllerInterface
}

func NewReportHandler(app app.App, router fiber.Router) *ReportHandler {
	return &ReportHandler{
		Handler:    newHandler(app, router, "report_handler"),
		controller: app.Controllers.Report,
	}
}

func (h *ReportHandler) Register() {
	reports := h.router.Group("/reports")
	reports.Get(
		"/:type",
		h.middleware.RequireAnyPermission(authz.ReportsGenerate, authz.ReportsView),
		h.generateReport,
	)
}

// generateReport streams the rendered document. Downloadable formats are
// sent as attachments, json and html are returned inline.
func (h *ReportHandler) generateReport(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("generateReport")

	rendered, err := h.controller.Generate(c.UserContext(), middleware.GetUser(c), reportController.GenerateRequest{
		Type:          c.Params("type"),
		Format:        c.Query("format"),
		Location:      c.Query("location"),
		IncludeHidden: c.QueryBool("includeHidden"),
	})
	if err != nil {
		return respondError(c, log, err, "Failed to generate report")
	}

	c.Set(fiber.HeaderContentType, rendered.ContentType)
	if rendered.Format == services.FormatCSV || rendered.Format == services.FormatPDF {
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rendered.Filename))
	}

	return c.Send(rendered.Body)
}
