package panel

import (
	"context"

	"github.com/metal-toolbox/snatt/internal/client"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/sirupsen/logrus"
)

var (
	reportTypeOptions = []Option{
		{Value: string(model.ReportHealth), Label: "Network Health Report"},
		{Value: string(model.ReportBackup), Label: "Backup Status Report"},
		{Value: string(model.ReportDiagnostics), Label: "Diagnostics Report"},
		{Value: string(model.ReportInventory), Label: "Device Inventory"},
	}

	formatOptions = []Option{
		{Value: string(model.FormatXLSX), Label: "Excel (.xlsx)"},
		{Value: string(model.FormatPDF), Label: "PDF (.pdf)"},
		{Value: string(model.FormatCSV), Label: "CSV (.csv)"},
	}
)

type ReportsView struct {
	Status
	ReportType  string
	ReportTypes []Option
	Format      string
	Formats     []Option
}

func (v *ReportsView) GenerateLabel() string {
	if v.Busy() {
		return "Generating Report..."
	}

	return "Generate Report"
}

// Reports generates report files for download.
type Reports struct {
	base
	api client.API

	reportType string
	format     string
}

func NewReports(api client.API, logger *logrus.Entry, notify Notifier) *Reports {
	return &Reports{
		base:       newBase(IDReports, logger, notify),
		api:        api,
		reportType: string(model.ReportHealth),
		format:     string(model.FormatXLSX),
	}
}

// Generate returns the report file, empty arguments keep the current choices.
func (p *Reports) Generate(ctx context.Context, reportType, format string) (*client.Download, error) {
	p.mu.Lock()
	if p.status.Phase == PhaseBusy {
		p.mu.Unlock()
		return nil, ErrBusy
	}

	if reportType != "" {
		p.reportType = reportType
	}

	if format != "" {
		p.format = format
	}

	reportType, format = p.reportType, p.format
	p.mu.Unlock()

	var download *client.Download

	err := p.run(ctx, "generate", func(ctx context.Context) (string, error) {
		d, err := p.api.GenerateReport(ctx, reportType, format)
		if err != nil {
			return "", err
		}

		download = d

		return "", nil
	})
	if err != nil {
		return nil, err
	}

	return download, nil
}

func (p *Reports) Snapshot() *ReportsView {
	p.mu.Lock()
	defer p.mu.Unlock()

	return deepCopy(&ReportsView{
		Status:      p.status,
		ReportType:  p.reportType,
		ReportTypes: reportTypeOptions,
		Format:      p.format,
		Formats:     formatOptions,
	})
}
