package client

import (
	"context"
	"fmt"

	"github.com/metal-toolbox/snatt/internal/configuration"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/sirupsen/logrus"
)

// API is the dashboard's view of the snatt HTTP API.
type API interface {
	Scan(ctx context.Context, ipRange string) ([]*model.Device, error)
	Connect(ctx context.Context, deviceIDs []string) (*ConnectResult, error)
	Workflows(ctx context.Context) ([]Workflow, error)
	RunDiagnostics(ctx context.Context, workflow string) (*DiagnosticsResult, error)
	CreateBackup(ctx context.Context, backupType string) (string, error)
	BackupHistory(ctx context.Context) ([]*model.BackupRecord, error)
	GenerateReport(ctx context.Context, reportType, format string) (*Download, error)
	AddCredential(ctx context.Context, in *model.CredentialInput) (string, error)
	Credentials(ctx context.Context) ([]model.Credential, error)
}

type ConnectResult struct {
	Connected int    `json:"connected"`
	Message   string `json:"message"`
}

type DiagnosticsResult struct {
	Results []*model.DiagnosticResult `json:"results"`
	Message string                    `json:"message,omitempty"`
}

type Workflow struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// Download is a generated report as returned to the browser.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("Request failed with status code %d", e.StatusCode)
	}

	return e.Detail
}

// New returns the client variant selected by the dashboard configuration.
func New(cfg *configuration.DashboardConfig, logger *logrus.Entry) (API, error) {
	if cfg.Mock {
		return NewMock(cfg.MockDelay), nil
	}

	return NewHTTP(cfg, logger)
}
