package panel

import (
	"context"

	"github.com/metal-toolbox/snatt/internal/client"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/sirupsen/logrus"
)

const defaultWorkflow = "interface_health"

// Option is a value of a select control.
type Option struct {
	Value string
	Label string
}

var workflowOptions = []Option{
	{Value: "interface_health", Label: "Interface Health Check"},
	{Value: "cpu_memory", Label: "CPU & Memory Check"},
	{Value: "connectivity", Label: "Connectivity Check"},
	{Value: "log_analysis", Label: "Log Analysis"},
}

type DiagnosticsView struct {
	Status
	Workflow  string
	Workflows []Option
	Results   []*model.DiagnosticResult
}

func (v *DiagnosticsView) RunLabel() string {
	if v.Busy() {
		return "Running Diagnostics..."
	}

	return "Run Diagnostics"
}

// Diagnostics runs a workflow against the connected devices.
type Diagnostics struct {
	base
	api client.API

	workflow string
	results  []*model.DiagnosticResult
}

func NewDiagnostics(api client.API, logger *logrus.Entry, notify Notifier) *Diagnostics {
	return &Diagnostics{
		base:     newBase(IDDiagnostics, logger, notify),
		api:      api,
		workflow: defaultWorkflow,
		results:  []*model.DiagnosticResult{},
	}
}

// Run replaces the results with those of workflow, an empty workflow keeps the current choice.
func (p *Diagnostics) Run(ctx context.Context, workflow string) error {
	p.mu.Lock()
	if p.status.Phase == PhaseBusy {
		p.mu.Unlock()
		return ErrBusy
	}

	if workflow != "" {
		p.workflow = workflow
	}

	workflow = p.workflow
	p.mu.Unlock()

	return p.run(ctx, "run", func(ctx context.Context) (string, error) {
		res, err := p.api.RunDiagnostics(ctx, workflow)
		if err != nil {
			return "", err
		}

		results := res.Results
		if results == nil {
			results = []*model.DiagnosticResult{}
		}

		p.mu.Lock()
		p.results = results
		p.mu.Unlock()

		return res.Message, nil
	})
}

func (p *Diagnostics) Snapshot() *DiagnosticsView {
	p.mu.Lock()
	defer p.mu.Unlock()

	return deepCopy(&DiagnosticsView{
		Status:    p.status,
		Workflow:  p.workflow,
		Workflows: workflowOptions,
		Results:   p.results,
	})
}
