package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/metal-toolbox/snatt/internal/log"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/metal-toolbox/snatt/internal/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()

	ctx := context.Background()
	repo := store.NewRepository()

	require.Nil(t, repo.ReplaceDevices(ctx, []*model.Device{
		{ID: "a", IPAddress: "10.0.0.1", Hostname: "r1", Vendor: "Cisco", Status: model.DeviceStatusConnected},
		{ID: "b", IPAddress: "10.0.0.2", Status: model.DeviceStatusReachable},
	}))

	require.Nil(t, repo.ReplaceDiagnostics(ctx, []*model.DiagnosticResult{
		{
			DeviceName: "r1",
			DeviceIP:   "10.0.0.1",
			Workflow:   "cpu_memory",
			Severity:   model.SeverityWarning,
			Message:    "Found 1 warning(s), no critical issues",
			Issues: []model.Issue{
				{Type: "high_cpu", Severity: model.SeverityWarning, Description: "High CPU usage: 85%"},
			},
		},
		{
			DeviceName: "r2",
			DeviceIP:   "10.0.0.3",
			Workflow:   "cpu_memory",
			Severity:   model.SeverityInfo,
			Message:    "All checks passed, no issues found",
		},
	}))

	require.Nil(t, repo.PrependBackups(ctx, []*model.BackupRecord{
		{DeviceName: "r1", DeviceIP: "10.0.0.1", Type: model.ConfigRunning, Status: model.BackupSuccess, SizeBytes: 120},
	}))

	g := New(repo, log.NewDiscardLogger())
	g.now = func() time.Time { return time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC) }

	return g
}

func TestParse(t *testing.T) {
	_, err := ParseType("capacity")
	assert.True(t, errors.Is(err, model.ErrInvalidRequest))

	_, err = ParseFormat("docx")
	assert.True(t, errors.Is(err, model.ErrInvalidRequest))

	rt, err := ParseType("inventory")
	require.Nil(t, err)
	assert.Equal(t, model.ReportInventory, rt)
}

func TestHealthScore(t *testing.T) {
	devices := []*model.Device{
		{ID: "a", IPAddress: "10.0.0.1"},
		{ID: "b", IPAddress: "10.0.0.2"},
		{ID: "c", IPAddress: "10.0.0.3"},
		{ID: "d", IPAddress: "10.0.0.4"},
	}

	// only two devices checked, one of them with a warning
	results := []*model.DiagnosticResult{
		{DeviceIP: "10.0.0.1", Severity: model.SeverityInfo},
		{DeviceIP: "10.0.0.2", Severity: model.SeverityWarning, Issues: []model.Issue{{Severity: model.SeverityWarning}}},
	}

	assert.Equal(t, float64(0), HealthScore(nil, results))
	assert.Equal(t, float64(75), HealthScore(devices, results))
	assert.Equal(t, float64(100), HealthScore(devices, nil))

	results = append(results, &model.DiagnosticResult{DeviceIP: "10.0.0.3", Severity: model.SeverityCritical})
	assert.Equal(t, float64(50), HealthScore(devices, results))
}

func TestGenerateHealthWithoutDiagnostics(t *testing.T) {
	ctx := context.Background()
	repo := store.NewRepository()

	require.Nil(t, repo.ReplaceDevices(ctx, []*model.Device{
		{ID: "a", IPAddress: "10.0.0.1", Status: model.DeviceStatusConnected},
		{ID: "b", IPAddress: "10.0.0.2", Status: model.DeviceStatusReachable},
	}))

	r, err := New(repo, log.NewDiscardLogger()).Generate(ctx, "health", "csv")
	require.Nil(t, err)

	reader := csv.NewReader(bytes.NewReader(r.Data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	require.Nil(t, err)

	assert.Contains(t, records, []string{"Health Score", "100.0%"})
	assert.Contains(t, records, []string{"Devices With Issues", "0"})
}

func TestGenerateCSV(t *testing.T) {
	g := newTestGenerator(t)

	r, err := g.Generate(context.Background(), "health", "csv")
	require.Nil(t, err)

	assert.Equal(t, "snatt_health_report_20240501_091500.csv", r.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", r.ContentType)

	reader := csv.NewReader(bytes.NewReader(r.Data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	require.Nil(t, err)

	assert.Equal(t, []string{"Summary"}, records[0])
	assert.Equal(t, []string{"Metric", "Value"}, records[1])
	assert.Contains(t, records, []string{"Health Score", "50.0%"})
	assert.Contains(t, records, []string{"Total Devices", "2"})
	assert.Contains(t, records, []string{"r1", "10.0.0.1", "high_cpu", "High CPU usage: 85%", ""})
}

func TestGenerateXLSX(t *testing.T) {
	g := newTestGenerator(t)

	r, err := g.Generate(context.Background(), "health", "xlsx")
	require.Nil(t, err)
	assert.Equal(t, "snatt_health_report_20240501_091500.xlsx", r.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(r.Data))
	require.Nil(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Devices", "Health Status", "Critical Issues", "Warnings"}, f.GetSheetList())

	v, err := f.GetCellValue("Devices", "B2")
	require.Nil(t, err)
	assert.Equal(t, "r1", v)
}

func TestGeneratePDF(t *testing.T) {
	g := newTestGenerator(t)

	r, err := g.Generate(context.Background(), "backup", "pdf")
	require.Nil(t, err)

	assert.Equal(t, "application/pdf", r.ContentType)
	assert.True(t, bytes.HasPrefix(r.Data, []byte("%PDF-")))
}

func TestGenerateEveryTypeAndFormat(t *testing.T) {
	g := newTestGenerator(t)

	for _, rt := range []string{"health", "backup", "diagnostics", "inventory"} {
		for _, rf := range []string{"xlsx", "pdf", "csv"} {
			r, err := g.Generate(context.Background(), rt, rf)
			require.Nil(t, err, rt+"/"+rf)
			assert.NotEmpty(t, r.Data, rt+"/"+rf)
		}
	}
}

func TestGenerateEmptyRepository(t *testing.T) {
	g := New(store.NewRepository(), log.NewDiscardLogger())

	r, err := g.Generate(context.Background(), "inventory", "pdf")
	require.Nil(t, err)
	assert.NotEmpty(t, r.Data)
}
