package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strconv"
	"time"

	"labventory/internal/database"
	"labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/pkg/logger"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidReportType   = errors.New("invalid report type")
	ErrInvalidReportFormat = errors.New("invalid report format")
)

type ReportType string

const (
	ReportEquipment   ReportType = "equipment"
	ReportChemicals   ReportType = "chemicals"
	ReportCheckInOut  ReportType = "checkinout"
	ReportMaintenance ReportType = "maintenance"
)

func ParseReportType(s string) (ReportType, error) {
	switch ReportType(s) {
	case ReportEquipment, ReportChemicals, ReportCheckInOut, ReportMaintenance:
		return ReportType(s), nil
	}
	return "", ErrInvalidReportType
}

type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatCSV  ReportFormat = "csv"
	FormatPDF  ReportFormat = "pdf"
	FormatHTML ReportFormat = "html"
)

// ParseReportFormat defaults an empty format to json
func ParseReportFormat(s string) (ReportFormat, error) {
	switch ReportFormat(s) {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatPDF, FormatHTML:
		return ReportFormat(s), nil
	}
	return "", ErrInvalidReportFormat
}

func (f ReportFormat) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/json"
}

const (
	notAvailable   = "N/A"
	reportDate     = "2006-01-02"
	reportDateTime = "2006-01-02 15:04"
	reportSubtitle = "Lab Inventory Management System"
)

type ReportOptions struct {
	IncludeHidden bool
	Location      string
}

type SummaryLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type ReportSummary struct {
	Total     int              `json:"total"`
	Counts    map[string]int   `json:"counts"`
	TotalCost *decimal.Decimal `json:"totalCost,omitempty"`
	Heading   string           `json:"heading"`
	Lines     []SummaryLine    `json:"lines"`
}

type Report struct {
	Type        ReportType    `json:"type"`
	Title       string        `json:"title"`
	GeneratedAt time.Time     `json:"generatedAt"`
	DateRange   string        `json:"dateRange"`
	Records     any           `json:"records"`
	Summary     ReportSummary `json:"summary"`
	Headers     []string      `json:"-"`
	Rows        [][]string    `json:"-"`
}

var filenameSeparators = regexp.MustCompile(`[\s/]+`)

// Filename is <Title_with_underscores>_<YYYY-MM-DD>.<ext>
func (r *Report) Filename(format ReportFormat) string {
	title := filenameSeparators.ReplaceAllString(r.Title, "_")
	return fmt.Sprintf("%s_%s.%s", title, r.GeneratedAt.Format(reportDate), format)
}

type ReportService struct {
	db    database.DB
	repos repositories.Repository
	now   func() time.Time
	log   logger.Logger
}

func NewReportService(db database.DB, repos repositories.Repository) *ReportService {
	return &ReportService{
		db:    db,
		repos: repos,
		now:   time.Now,
		log:   logger.New("ReportService"),
	}
}

func (s *ReportService) Build(ctx context.Context, reportType ReportType, opts ReportOptions) (*Report, error) {
	log := logger.NewWithContext(ctx, "ReportService").Function("Build")

	report := &Report{Type: reportType, GeneratedAt: s.now().UTC()}

	switch reportType {
	case ReportEquipment:
		equipment, err := s.repos.Equipment.List(ctx, s.db.SQL, repositories.EquipmentFilter{
			Location:      opts.Location,
			IncludeHidden: opts.IncludeHidden,
		})
		if err != nil {
			return nil, log.Err("failed to load equipment", err)
		}
		buildEquipmentReport(report, equipment)

	case ReportChemicals:
		chemicals, err := s.repos.Chemical.List(ctx, s.db.SQL, repositories.ChemicalFilter{})
		if err != nil {
			return nil, log.Err("failed to load chemicals", err)
		}
		buildChemicalReport(report, chemicals)

	case ReportCheckInOut:
		entries, err := s.repos.CheckInOut.List(ctx, s.db.SQL, repositories.CheckInOutFilter{})
		if err != nil {
			return nil, log.Err("failed to load check-in/out history", err)
		}
		buildCheckInOutReport(report, entries)

	case ReportMaintenance:
		tasks, err := s.repos.Maintenance.List(ctx, s.db.SQL, repositories.MaintenanceFilter{})
		if err != nil {
			return nil, log.Err("failed to load maintenance records", err)
		}
		buildMaintenanceReport(report, tasks)

	default:
		return nil, ErrInvalidReportType
	}

	log.Info("Report built", "type", reportType, "rows", len(report.Rows))
	return report, nil
}

func buildEquipmentReport(report *Report, equipment []*models.Equipment) {
	report.Title = "Equipment Usage"
	report.DateRange = "All Records"
	report.Records = equipment
	report.Headers = []string{
		"Equipment Name", "Category", "Quantity", "Status",
		"Location", "Condition", "Purchase Date", "Last Maintenance",
	}

	counts := map[string]int{}
	for _, status := range models.EquipmentStatuses {
		counts[string(status)] = 0
	}
	for _, e := range equipment {
		counts[string(e.Status)]++
		report.Rows = append(report.Rows, []string{
			e.Name,
			e.Category,
			strconv.Itoa(e.Quantity),
			string(e.Status),
			e.Location,
			orNA(e.Condition),
			formatOptionalDate(e.PurchaseDate),
			formatOptionalDate(e.LastMaintenance),
		})
	}

	lines := []SummaryLine{{"Total Equipment", strconv.Itoa(len(equipment))}}
	for _, status := range models.EquipmentStatuses {
		lines = append(lines, SummaryLine{string(status), strconv.Itoa(counts[string(status)])})
	}
	report.Summary = ReportSummary{
		Total:   len(equipment),
		Counts:  counts,
		Heading: "Equipment Summary",
		Lines:   lines,
	}
}

func buildChemicalReport(report *Report, chemicals []*models.Chemical) {
	report.Title = "Chemical Inventory"
	report.DateRange = "Current Inventory"
	report.Records = chemicals
	report.Headers = []string{
		"Chemical Name", "Formula", "Quantity", "Unit",
		"Hazard Level", "Location", "Expiry Date", "Supplier",
	}

	counts := map[string]int{}
	for _, level := range models.HazardLevels {
		counts[string(level)] = 0
	}
	for _, c := range chemicals {
		counts[string(c.HazardLevel)]++
		report.Rows = append(report.Rows, []string{
			c.Name,
			c.Formula,
			c.Quantity.String(),
			c.Unit,
			string(c.HazardLevel),
			c.Location,
			formatOptionalDate(c.ExpiryDate),
			orNAPtr(c.Supplier),
		})
	}

	report.Summary = ReportSummary{
		Total:   len(chemicals),
		Counts:  counts,
		Heading: "Chemical Summary",
		Lines: []SummaryLine{
			{"Total Chemicals", strconv.Itoa(len(chemicals))},
			{"High Hazard", strconv.Itoa(counts[string(models.HazardHigh)])},
			{"Medium Hazard", strconv.Itoa(counts[string(models.HazardMedium)])},
			{"Low Hazard", strconv.Itoa(counts[string(models.HazardLow)])},
		},
	}
}

func buildCheckInOutReport(report *Report, entries []*models.CheckInOut) {
	report.Title = "Check-in/Out Logs"
	report.DateRange = "All Transactions"
	report.Records = entries
	report.Headers = []string{
		"Item Name", "Item Type", "User", "User Email",
		"Action", "Quantity", "Timestamp", "Purpose",
	}

	counts := map[string]int{
		string(models.ActionCheckIn):  0,
		string(models.ActionCheckOut): 0,
	}
	for _, entry := range entries {
		counts[string(entry.Action)]++
		report.Rows = append(report.Rows, []string{
			entry.ItemName,
			string(entry.ItemType),
			entry.UserName,
			entry.UserEmail,
			string(entry.Action),
			entry.Quantity.String(),
			entry.Timestamp.UTC().Format(reportDateTime),
			orNAPtr(entry.Purpose),
		})
	}

	report.Summary = ReportSummary{
		Total:   len(entries),
		Counts:  counts,
		Heading: "Transaction Summary",
		Lines: []SummaryLine{
			{"Total Transactions", strconv.Itoa(len(entries))},
			{"Check-ins", strconv.Itoa(counts[string(models.ActionCheckIn)])},
			{"Check-outs", strconv.Itoa(counts[string(models.ActionCheckOut)])},
		},
	}
}

func buildMaintenanceReport(report *Report, tasks []*models.MaintenanceTask) {
	report.Title = "Maintenance Summary"
	report.DateRange = "All Maintenance Records"
	report.Records = tasks
	report.Headers = []string{
		"Equipment", "Type", "Status", "Description",
		"Scheduled Date", "Completed Date", "Technician", "Cost",
	}

	counts := map[string]int{}
	for _, status := range models.MaintenanceStatuses {
		counts[string(status)] = 0
	}
	totalCost := decimal.Zero
	for _, task := range tasks {
		counts[string(task.Status)]++

		cost := notAvailable
		if task.Cost != nil && !task.Cost.IsZero() {
			cost = formatMoney(*task.Cost)
			totalCost = totalCost.Add(*task.Cost)
		}

		report.Rows = append(report.Rows, []string{
			task.EquipmentName,
			task.Type,
			string(task.Status),
			orNAPtr(task.Description),
			task.ScheduledDate.UTC().Format(reportDate),
			formatOptionalDate(task.CompletedDate),
			orNA(task.AssignedTo),
			cost,
		})
	}

	lines := []SummaryLine{{"Total Records", strconv.Itoa(len(tasks))}}
	for _, status := range models.MaintenanceStatuses {
		lines = append(lines, SummaryLine{string(status), strconv.Itoa(counts[string(status)])})
	}
	lines = append(lines, SummaryLine{"Total Cost", formatMoney(totalCost)})

	report.Summary = ReportSummary{
		Total:     len(tasks),
		Counts:    counts,
		TotalCost: &totalCost,
		Heading:   "Maintenance Summary",
		Lines:     lines,
	}
}

// Render encodes a built report in the requested format
func (s *ReportService) Render(report *Report, format ReportFormat) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.Marshal(report)
	case FormatCSV:
		return s.CSV(report)
	case FormatPDF:
		return s.PDF(report)
	case FormatHTML:
		return s.HTML(report)
	}
	return nil, ErrInvalidReportFormat
}

func (s *ReportService) CSV(report *Report) ([]byte, error) {
	log := s.log.Function("CSV")

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	preamble := [][]string{
		{report.Title + " Report"},
		{"Generated: " + report.GeneratedAt.Format(reportDate)},
		{"Date Range: " + report.DateRange},
	}
	if err := w.WriteAll(preamble); err != nil {
		return nil, log.Err("failed to write csv preamble", err, "type", report.Type)
	}
	buf.WriteString("\n")

	if err := w.Write(report.Headers); err != nil {
		return nil, log.Err("failed to write csv header", err, "type", report.Type)
	}
	if err := w.WriteAll(report.Rows); err != nil {
		return nil, log.Err("failed to write csv rows", err, "type", report.Type)
	}

	return buf.Bytes(), nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<div class="report">
  <div class="header">
    <h1>{{.Title}} Report</h1>
    <p>` + reportSubtitle + `</p>
  </div>
  <div class="info">
    <div class="info-item"><label>Generated Date</label><span>{{.GeneratedAt.Format "2006-01-02"}}</span></div>
    <div class="info-item"><label>Date Range</label><span>{{.DateRange}}</span></div>
    <div class="info-item"><label>Report Type</label><span>{{.Title}}</span></div>
  </div>
  {{- if .Rows}}
  <table>
    <thead>
      <tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
    </thead>
    <tbody>
      {{- range .Rows}}
      <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
      {{- end}}
    </tbody>
  </table>
  {{- else}}
  <p class="empty">No records</p>
  {{- end}}
  <div class="summary">
    <h3>{{.Summary.Heading}}</h3>
    {{- range .Summary.Lines}}
    <p>{{.Label}}: {{.Value}}</p>
    {{- end}}
  </div>
</div>
`))

func (s *ReportService) HTML(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return nil, s.log.Function("HTML").Err("failed to render html report", err, "type", report.Type)
	}
	return buf.Bytes(), nil
}

const (
	pdfMargin    = 10.0
	pdfRowHeight = 7.0
)

// PDF draws a text-selectable landscape document: header band, info block,
// table with the header repeated on each page, then the summary.
func (s *ReportService) PDF(report *Report) ([]byte, error) {
	log := s.log.Function("PDF")

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, pageHeight := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pdfMargin
	bottom := pageHeight - pdfMargin

	pdf.AddPage()

	pdf.SetFillColor(37, 99, 235)
	pdf.Rect(0, 0, pageWidth, 30, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetXY(pdfMargin, 7)
	pdf.CellFormat(contentWidth, 10, tr(report.Title+" Report"), "", 2, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentWidth, 6, reportSubtitle, "", 0, "C", false, 0, "")

	pdf.SetTextColor(31, 41, 55)
	pdf.SetFillColor(243, 244, 246)
	pdf.SetXY(pdfMargin, 35)
	info := []SummaryLine{
		{"Generated Date", report.GeneratedAt.Format(reportDate)},
		{"Date Range", report.DateRange},
		{"Report Type", report.Title},
	}
	infoWidth := contentWidth / float64(len(info))
	for _, item := range info {
		x := pdf.GetX()
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(infoWidth, 5, item.Label, "", 2, "C", true, 0, "")
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(infoWidth, 7, tr(item.Value), "", 0, "C", true, 0, "")
		pdf.SetXY(x+infoWidth, 35)
	}

	colWidth := contentWidth / float64(max(len(report.Headers), 1))
	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(229, 231, 235)
		pdf.SetX(pdfMargin)
		for _, header := range report.Headers {
			pdf.CellFormat(colWidth, pdfRowHeight, header, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}

	pdf.SetXY(pdfMargin, 52)
	drawHeader()

	if len(report.Rows) == 0 {
		pdf.CellFormat(contentWidth, pdfRowHeight, "No records", "1", 1, "C", false, 0, "")
	}

	for i, row := range report.Rows {
		if pdf.GetY()+pdfRowHeight > bottom {
			pdf.AddPage()
			drawHeader()
		}

		fill := i%2 == 1
		pdf.SetFillColor(249, 250, 251)
		pdf.SetX(pdfMargin)
		for _, cell := range row {
			pdf.CellFormat(colWidth, pdfRowHeight, fitText(pdf, tr(cell), colWidth-2), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	summaryHeight := 8 + float64(len(report.Summary.Lines))*5 + 4
	if pdf.GetY()+summaryHeight+6 > bottom {
		pdf.AddPage()
	}
	pdf.Ln(6)
	top := pdf.GetY()
	pdf.SetFillColor(240, 249, 255)
	pdf.Rect(pdfMargin, top, contentWidth, summaryHeight, "F")
	pdf.SetFillColor(37, 99, 235)
	pdf.Rect(pdfMargin, top, 1.5, summaryHeight, "F")

	pdf.SetXY(pdfMargin+4, top+2)
	pdf.SetTextColor(30, 64, 175)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentWidth-8, 7, report.Summary.Heading, "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range report.Summary.Lines {
		pdf.CellFormat(contentWidth-8, 5, tr(line.Label+": "+line.Value), "", 2, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, log.Err("failed to write pdf report", err, "type", report.Type)
	}
	return buf.Bytes(), nil
}

// fitText trims already translated single-byte text with an ellipsis until it
// fits width at the current font
func fitText(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	for end := len(text) - 1; end > 0; end-- {
		candidate := text[:end] + "..."
		if pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ""
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func orNAPtr(s *string) string {
	if s == nil {
		return notAvailable
	}
	return orNA(*s)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return notAvailable
	}
	return t.UTC().Format(reportDate)
}

func formatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
