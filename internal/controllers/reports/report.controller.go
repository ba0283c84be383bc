package reportController

import (
	"context"

	"labventory/internal/authz"
	. "labventory/internal/models"
	"labventory/internal/services"
	"labventory/pkg/logger"
)

type ReportController struct {
	reportService *services.ReportService
	log           logger.Logger
}

type GenerateRequest struct {
	Type          string
	Format        string
	Location      string
	IncludeHidden bool
}

// RenderedReport is a finished document ready to be written to the response
type RenderedReport struct {
	Body        []byte
	ContentType string
	Filename    string
	Format      services.ReportFormat
}

type ReportControllerInterface interface {
	Generate(ctx context.Context, user *UserProfile, request GenerateRequest) (*RenderedReport, error)
}

func New(services services.Service) ReportControllerInterface {
	return &ReportController{
		reportService: services.Report,
		log:           logger.New("reportController"),
	}
}

// viewFormats are the formats a reports:view holder may request; downloads
// need reports:generate
var viewFormats = map[services.ReportFormat]bool{
	services.FormatJSON: true,
	services.FormatHTML: true,
}

func canRender(user *UserProfile, format services.ReportFormat) bool {
	if authz.HasPermission(user, authz.ReportsGenerate) {
		return true
	}
	return viewFormats[format] && authz.HasPermission(user, authz.ReportsView)
}

func (rc *ReportController) Generate(
	ctx context.Context,
	user *UserProfile,
	request GenerateRequest,
) (*RenderedReport, error) {
	log := rc.log.Function("Generate")

	reportType, err := services.ParseReportType(request.Type)
	if err != nil {
		return nil, err
	}
	format, err := services.ParseReportFormat(request.Format)
	if err != nil {
		return nil, err
	}
	if !canRender(user, format) {
		return nil, authz.ErrForbidden
	}

	report, err := rc.reportService.Build(ctx, reportType, services.ReportOptions{
		IncludeHidden: request.IncludeHidden,
		Location:      request.Location,
	})
	if err != nil {
		return nil, log.Err("failed to build report", err, "type", reportType)
	}

	body, err := rc.reportService.Render(report, format)
	if err != nil {
		return nil, log.Err("failed to render report", err, "type", reportType, "format", format)
	}

	log.Info("Report generated", "type", reportType, "format", format, "userID", user.ID, "bytes", len(body))
	return &RenderedReport{
		Body:        body,
		ContentType: format.ContentType(),
		Filename:    report.Filename(format),
		Format:      format,
	}, nil
}
