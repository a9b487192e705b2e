package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/metal-toolbox/snatt/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var (
	pkgName = "internal/report"

	contentTypes = map[model.ReportFormat]string{
		model.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		model.FormatPDF:  "application/pdf",
		model.FormatCSV:  "text/csv; charset=utf-8",
	}

	titles = map[model.ReportType]string{
		model.ReportHealth:      "Network Health Report",
		model.ReportBackup:      "Configuration Backup Report",
		model.ReportDiagnostics: "Diagnostics Report",
		model.ReportInventory:   "Device Inventory Report",
	}
)

// Report is a rendered report file.
type Report struct {
	Filename    string
	ContentType string
	Data        []byte
}

// section is one table of a report, rendered as a sheet, a PDF table or a CSV block.
type section struct {
	Title  string
	Header []string
	Rows   [][]string
}

type document struct {
	Title     string
	Generated time.Time
	Sections  []section
}

func ParseType(s string) (model.ReportType, error) {
	t := model.ReportType(s)
	if _, ok := titles[t]; !ok {
		return "", model.InvalidRequestf("unsupported report type %q", s)
	}

	return t, nil
}

func ParseFormat(s string) (model.ReportFormat, error) {
	f := model.ReportFormat(s)
	if _, ok := contentTypes[f]; !ok {
		return "", model.InvalidRequestf("unsupported report format %q", s)
	}

	return f, nil
}

// ContentType returns the media type of the format.
func ContentType(format model.ReportFormat) string {
	return contentTypes[format]
}

// Generator builds reports from the repository contents.
type Generator struct {
	repository store.Repository
	logger     *logrus.Entry
	now        func() time.Time
}

func New(repository store.Repository, logger *logrus.Entry) *Generator {
	return &Generator{
		repository: repository,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate renders the reportType report in format.
func (g *Generator) Generate(ctx context.Context, reportType, format string) (*Report, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "report.Generate")
	defer span.End()

	rt, err := ParseType(reportType)
	if err != nil {
		return nil, err
	}

	rf, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	doc, err := g.build(ctx, rt)
	if err != nil {
		return nil, err
	}

	var data []byte

	switch rf {
	case model.FormatXLSX:
		data, err = renderXLSX(doc)
	case model.FormatPDF:
		data, err = renderPDF(doc)
	case model.FormatCSV:
		data, err = renderCSV(doc)
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to render "+string(rf)+" report")
	}

	r := &Report{
		Filename:    fmt.Sprintf("snatt_%s_report_%s.%s", rt, doc.Generated.Format("20060102_150405"), rf),
		ContentType: contentTypes[rf],
		Data:        data,
	}

	g.logger.WithFields(logrus.Fields{
		"type":   string(rt),
		"format": string(rf),
		"bytes":  len(data),
	}).Info("report generated")

	return r, nil
}

func (g *Generator) build(ctx context.Context, rt model.ReportType) (*document, error) {
	doc := &document{Title: titles[rt], Generated: g.now()}

	devices, err := g.repository.Devices(ctx)
	if err != nil {
		return nil, err
	}

	results, err := g.repository.Diagnostics(ctx)
	if err != nil {
		return nil, err
	}

	switch rt {
	case model.ReportHealth:
		doc.Sections = []section{
			summarySection(doc.Generated, devices, results),
			inventorySection(devices),
			healthSection(results),
			issueSection("Critical Issues", results, model.SeverityCritical),
			issueSection("Warnings", results, model.SeverityWarning),
		}
	case model.ReportInventory:
		doc.Sections = []section{inventorySection(devices)}
	case model.ReportDiagnostics:
		doc.Sections = []section{
			healthSection(results),
			issueSection("Critical Issues", results, model.SeverityCritical),
			issueSection("Warnings", results, model.SeverityWarning),
		}
	case model.ReportBackup:
		backups, err := g.repository.Backups(ctx)
		if err != nil {
			return nil, err
		}

		doc.Sections = []section{backupSection(backups)}
	}

	return doc, nil
}

// HealthScore is the percentage of devices without issues, 0 when there are no devices.
// Devices without a diagnostic result count as healthy.
func HealthScore(devices []*model.Device, results []*model.DiagnosticResult) float64 {
	if len(devices) == 0 {
		return 0
	}

	withIssues := min(devicesWithIssues(results), len(devices))

	return float64(len(devices)-withIssues) / float64(len(devices)) * 100
}

func hasIssues(r *model.DiagnosticResult) bool {
	return len(r.Issues) > 0 || r.Severity != model.SeverityInfo
}

// devicesWithIssues counts the distinct devices with at least one result that has issues.
func devicesWithIssues(results []*model.DiagnosticResult) int {
	seen := map[string]struct{}{}

	for _, r := range results {
		if hasIssues(r) {
			seen[r.DeviceIP] = struct{}{}
		}
	}

	return len(seen)
}

func summarySection(generated time.Time, devices []*model.Device, results []*model.DiagnosticResult) section {
	var connected, critical, warning int

	for _, d := range devices {
		if d.IsConnected() {
			connected++
		}
	}

	for _, r := range results {
		c := r.CountBySeverity(model.SeverityCritical)
		w := r.CountBySeverity(model.SeverityWarning)
		critical += c
		warning += w
	}

	return section{
		Title:  "Summary",
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Report Generated", generated.Format("2006-01-02 15:04:05")},
			{"Total Devices", strconv.Itoa(len(devices))},
			{"Connected Devices", strconv.Itoa(connected)},
			{"Devices Checked", strconv.Itoa(len(results))},
			{"Devices With Issues", strconv.Itoa(devicesWithIssues(results))},
			{"Critical Issues", strconv.Itoa(critical)},
			{"Warnings", strconv.Itoa(warning)},
			{"Health Score", fmt.Sprintf("%.1f%%", HealthScore(devices, results))},
		},
	}
}

func inventorySection(devices []*model.Device) section {
	s := section{
		Title:  "Devices",
		Header: []string{"IP Address", "Hostname", "Vendor", "Model", "OS Version", "Status", "Last Seen"},
		Rows:   [][]string{},
	}

	for _, d := range devices {
		s.Rows = append(s.Rows, []string{
			d.IPAddress,
			orNA(d.Hostname),
			orNA(d.Vendor),
			orNA(d.Model),
			orNA(d.OSVersion),
			string(d.Status),
			d.LastSeen.Format("2006-01-02 15:04:05"),
		})
	}

	return s
}

func healthSection(results []*model.DiagnosticResult) section {
	s := section{
		Title:  "Health Status",
		Header: []string{"Device", "IP Address", "Workflow", "Severity", "Summary", "Checked"},
		Rows:   [][]string{},
	}

	for _, r := range results {
		s.Rows = append(s.Rows, []string{
			r.DeviceName,
			r.DeviceIP,
			r.Workflow,
			string(r.Severity),
			r.Message,
			r.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}

	return s
}

func issueSection(title string, results []*model.DiagnosticResult, severity model.Severity) section {
	s := section{
		Title:  title,
		Header: []string{"Device", "IP Address", "Type", "Description", "Recommendation"},
		Rows:   [][]string{},
	}

	for _, r := range results {
		for _, issue := range r.Issues {
			if issue.Severity != severity {
				continue
			}

			s.Rows = append(s.Rows, []string{r.DeviceName, r.DeviceIP, issue.Type, issue.Description, issue.Recommendation})
		}
	}

	return s
}

func backupSection(backups []*model.BackupRecord) section {
	s := section{
		Title:  "Backups",
		Header: []string{"Device", "IP Address", "Type", "Timestamp", "Status", "Size (bytes)", "Checksum", "Error"},
		Rows:   [][]string{},
	}

	for _, b := range backups {
		s.Rows = append(s.Rows, []string{
			b.DeviceName,
			b.DeviceIP,
			string(b.Type),
			b.Timestamp.Format("2006-01-02 15:04:05"),
			string(b.Status),
			strconv.Itoa(b.SizeBytes),
			b.Checksum,
			b.Error,
		})
	}

	return s
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}

	return s
}
