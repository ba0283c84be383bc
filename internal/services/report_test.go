package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"labventory/internal/models"
	"labventory/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportNow = time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC)

func newReportService(t *testing.T) (*ReportService, repositories.Repository) {
	t.Helper()
	db := setupTestDB(t)
	repos := repositories.New(db, nil)
	service := NewReportService(db, repos)
	service.now = func() time.Time { return reportNow }
	return service, repos
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	return records
}

func TestReportService_EquipmentReport(t *testing.T) {
	service, repos := newReportService(t)
	ctx := context.Background()
	db := service.db.SQL

	require.NoError(t, repos.Equipment.Create(ctx, db, &models.Equipment{
		Name: `Microscope, "Deluxe"`, Category: "Optics", Quantity: 2, Location: "Lab A",
	}))
	require.NoError(t, repos.Equipment.Create(ctx, db, &models.Equipment{
		Name: "Centrifuge", Quantity: 1, Location: "lab a", Status: models.EquipmentStatusMaintenance,
	}))
	require.NoError(t, repos.Equipment.Create(ctx, db, &models.Equipment{
		Name: "Old Scale", Location: "Lab A", HideFromReports: true,
	}))
	require.NoError(t, repos.Equipment.Create(ctx, db, &models.Equipment{
		Name: "Fume Hood", Location: "Lab B",
	}))

	t.Run("hidden excluded and location case-insensitive", func(t *testing.T) {
		report, err := service.Build(ctx, ReportEquipment, ReportOptions{Location: "LAB A"})
		require.NoError(t, err)

		assert.Equal(t, "Equipment Usage", report.Title)
		assert.Equal(t, "All Records", report.DateRange)
		assert.Equal(t, 2, report.Summary.Total)
		assert.Equal(t, 1, report.Summary.Counts["Available"])
		assert.Equal(t, 1, report.Summary.Counts["Maintenance"])
		assert.Equal(t, 0, report.Summary.Counts["In Use"])
		assert.Len(t, report.Rows, 2)
	})

	t.Run("include hidden", func(t *testing.T) {
		report, err := service.Build(ctx, ReportEquipment, ReportOptions{IncludeHidden: true})
		require.NoError(t, err)
		assert.Equal(t, 4, report.Summary.Total)
	})

	t.Run("csv round-trips quotes and commas", func(t *testing.T) {
		report, err := service.Build(ctx, ReportEquipment, ReportOptions{Location: "Lab A"})
		require.NoError(t, err)

		data, err := service.CSV(report)
		require.NoError(t, err)
		records := readCSV(t, data)

		require.GreaterOrEqual(t, len(records), 4)
		assert.Equal(t, []string{"Equipment Usage Report"}, records[0])
		assert.Equal(t, []string{"Generated: 2026-04-02"}, records[1])
		assert.Equal(t, []string{"Date Range: All Records"}, records[2])
		assert.Equal(t, report.Headers, records[3])

		names := []string{}
		for _, row := range records[4:] {
			names = append(names, row[0])
		}
		assert.Contains(t, names, `Microscope, "Deluxe"`)

		for _, row := range records[4:] {
			assert.Equal(t, "N/A", row[6], "missing purchase date renders N/A")
		}
	})

	t.Run("filename", func(t *testing.T) {
		report, err := service.Build(ctx, ReportEquipment, ReportOptions{})
		require.NoError(t, err)
		assert.Equal(t, "Equipment_Usage_2026-04-02.pdf", report.Filename(FormatPDF))
	})
}

func TestReportService_OtherReports(t *testing.T) {
	service, repos := newReportService(t)
	ctx := context.Background()
	db := service.db.SQL

	require.NoError(t, repos.Chemical.Create(ctx, db, &models.Chemical{
		Name: "Acetone", Quantity: decimal.NewFromInt(2), HazardLevel: models.HazardHigh,
	}))
	require.NoError(t, repos.Chemical.Create(ctx, db, &models.Chemical{
		Name: "Salt", Quantity: decimal.NewFromInt(5),
	}))

	itemID := uuid.New()
	purpose := "titration"
	require.NoError(t, repos.CheckInOut.Create(ctx, db, &models.CheckInOut{
		ItemID: itemID, ItemName: "Burette", ItemType: models.ItemTypeEquipment,
		Action: models.ActionCheckOut, Quantity: decimal.NewFromInt(1), Purpose: &purpose,
	}))
	require.NoError(t, repos.CheckInOut.Create(ctx, db, &models.CheckInOut{
		ItemID: itemID, ItemName: "Burette", ItemType: models.ItemTypeEquipment,
		Action: models.ActionCheckIn, Quantity: decimal.NewFromInt(1),
	}))

	cost := decimal.RequireFromString("120.5")
	require.NoError(t, repos.Maintenance.Create(ctx, db, &models.MaintenanceTask{
		EquipmentID: itemID, EquipmentName: "Burette", Type: "Calibration",
		ScheduledDate: reportNow, Status: models.MaintenanceCompleted, Cost: &cost,
	}))
	require.NoError(t, repos.Maintenance.Create(ctx, db, &models.MaintenanceTask{
		EquipmentID: itemID, EquipmentName: "Burette", Type: "Cleaning",
		ScheduledDate: reportNow, Status: models.MaintenancePending,
	}))

	tests := []struct {
		reportType ReportType
		title      string
		dateRange  string
		total      int
		counts     map[string]int
	}{
		{ReportChemicals, "Chemical Inventory", "Current Inventory", 2, map[string]int{"High": 1, "Low": 1, "Medium": 0}},
		{ReportCheckInOut, "Check-in/Out Logs", "All Transactions", 2, map[string]int{"check-in": 1, "check-out": 1}},
		{ReportMaintenance, "Maintenance Summary", "All Maintenance Records", 2, map[string]int{"Completed": 1, "Pending": 1}},
	}

	for _, tt := range tests {
		t.Run(string(tt.reportType), func(t *testing.T) {
			report, err := service.Build(ctx, tt.reportType, ReportOptions{})
			require.NoError(t, err)

			assert.Equal(t, tt.title, report.Title)
			assert.Equal(t, tt.dateRange, report.DateRange)
			assert.Equal(t, tt.total, report.Summary.Total)
			for key, want := range tt.counts {
				assert.Equal(t, want, report.Summary.Counts[key], key)
			}
		})
	}

	t.Run("maintenance total cost", func(t *testing.T) {
		report, err := service.Build(ctx, ReportMaintenance, ReportOptions{})
		require.NoError(t, err)
		require.NotNil(t, report.Summary.TotalCost)
		assert.Equal(t, "120.50", report.Summary.TotalCost.StringFixed(2))
		assert.Equal(t, SummaryLine{"Total Cost", "$120.50"}, report.Summary.Lines[len(report.Summary.Lines)-1])
	})

	t.Run("check-in/out filename drops the slash", func(t *testing.T) {
		report, err := service.Build(ctx, ReportCheckInOut, ReportOptions{})
		require.NoError(t, err)
		assert.Equal(t, "Check-in_Out_Logs_2026-04-02.csv", report.Filename(FormatCSV))
	})
}

func TestReportService_Render(t *testing.T) {
	service, repos := newReportService(t)
	ctx := context.Background()

	for i := range 60 {
		require.NoError(t, repos.Equipment.Create(ctx, service.db.SQL, &models.Equipment{
			Name: "Beaker <" + string(rune('A'+i%26)) + ">", Quantity: i,
		}))
	}
	report, err := service.Build(ctx, ReportEquipment, ReportOptions{})
	require.NoError(t, err)

	t.Run("pdf", func(t *testing.T) {
		data, err := service.Render(report, FormatPDF)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	})

	t.Run("html escapes values", func(t *testing.T) {
		data, err := service.Render(report, FormatHTML)
		require.NoError(t, err)
		html := string(data)
		assert.Contains(t, html, "<h1>Equipment Usage Report</h1>")
		assert.Contains(t, html, "Beaker &lt;A&gt;")
		assert.Contains(t, html, "Total Equipment: 60")
	})

	t.Run("json", func(t *testing.T) {
		data, err := service.Render(report, FormatJSON)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "Equipment Usage", decoded["title"])
		assert.Len(t, decoded["records"], 60)
	})

	t.Run("empty report still renders", func(t *testing.T) {
		empty, err := service.Build(ctx, ReportChemicals, ReportOptions{})
		require.NoError(t, err)

		data, err := service.PDF(empty)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

		html, err := service.HTML(empty)
		require.NoError(t, err)
		assert.Contains(t, string(html), "No records")
	})
}

func TestParseReportTypeAndFormat(t *testing.T) {
	_, err := ParseReportType("inventory")
	assert.ErrorIs(t, err, ErrInvalidReportType)

	format, err := ParseReportFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, format)

	_, err = ParseReportFormat("xlsx")
	assert.ErrorIs(t, err, ErrInvalidReportFormat)

	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
}
