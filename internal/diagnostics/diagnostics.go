package diagnostics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/metal-toolbox/snatt/internal/configuration"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/metal-toolbox/snatt/internal/session"
	"github.com/metal-toolbox/snatt/internal/store"
	"github.com/metal-toolbox/snatt/internal/tasks"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

var (
	pkgName = "internal/diagnostics"

	// concurrent device sessions per run
	maxParallel = 10
)

// Diagnostics runs troubleshooting workflows against connected devices.
type Diagnostics struct {
	repository store.Repository
	sessions   session.Factory
	analyzer   *analyzer
	logger     *logrus.Entry
}

// New returns a Diagnostics configured from cfg.
func New(cfg *configuration.Configuration, repository store.Repository, sessions session.Factory, logger *logrus.Entry) *Diagnostics {
	return &Diagnostics{
		repository: repository,
		sessions:   sessions,
		analyzer:   &analyzer{thresholds: cfg.Diagnostics.Thresholds},
		logger:     logger,
	}
}

// Run executes the workflow on every connected device and replaces the stored results.
// It returns an empty list when no device is connected.
func (d *Diagnostics) Run(ctx context.Context, workflowName string) ([]*model.DiagnosticResult, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "diagnostics.Run")
	defer span.End()

	workflow, err := Lookup(workflowName)
	if err != nil {
		return nil, err
	}

	devices, err := d.repository.ConnectedDevices(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list connected devices")
	}

	if len(devices) == 0 {
		return []*model.DiagnosticResult{}, nil
	}

	logger := d.logger.WithFields(logrus.Fields{"workflow": workflow.Name, "devices": len(devices)})
	logger.Info("diagnostic run started")

	results := make([]*model.DiagnosticResult, len(devices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for i, device := range devices {
		g.Go(func() error {
			results[i] = d.runDevice(gctx, workflow, device)
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "diagnostic run aborted")
	}

	if err := d.repository.ReplaceDiagnostics(ctx, results); err != nil {
		return nil, errors.Wrap(err, "failed to store diagnostic results")
	}

	logger.Info("diagnostic run completed")

	return results, nil
}

func (d *Diagnostics) runDevice(ctx context.Context, workflow Workflow, device *model.Device) *model.DiagnosticResult {
	result := &model.DiagnosticResult{
		DeviceName: device.DisplayName(),
		DeviceIP:   device.IPAddress,
		Workflow:   workflow.Name,
		Severity:   model.SeverityInfo,
		Issues:     []model.Issue{},
		Timestamp:  time.Now(),
	}

	task := tasks.NewCommandTask(workflow.Name, device, workflow.Commands)
	runner := tasks.NewTaskRunner(&tasks.LogPublisher{Logger: d.logger}, task)

	if err := runner.Run(ctx, d.sessions(device)); err != nil {
		result.Severity = model.SeverityCritical
		result.Message = "Diagnostic workflow failed to execute"
		result.Details = err.Error()

		return result
	}

	data := runner.Data()

	for _, cmd := range workflow.Commands {
		result.Issues = append(result.Issues, d.analyzer.analyze(workflow.Name, cmd, data[cmd])...)
	}

	lines := make([]string, 0, len(result.Issues))

	for _, issue := range result.Issues {
		result.Severity = result.Severity.Max(issue.Severity)
		lines = append(lines, fmt.Sprintf("[%s] %s", strings.ToUpper(string(issue.Severity)), issue.Description))
	}

	result.Message = summary(result)
	result.Details = strings.Join(lines, "\n")

	return result
}

func summary(r *model.DiagnosticResult) string {
	critical := r.CountBySeverity(model.SeverityCritical)
	warning := r.CountBySeverity(model.SeverityWarning)

	switch {
	case critical > 0:
		return fmt.Sprintf("Found %d critical issue(s) and %d warning(s)", critical, warning)
	case warning > 0:
		return fmt.Sprintf("Found %d warning(s), no critical issues", warning)
	default:
		return "All checks passed, no issues found"
	}
}
