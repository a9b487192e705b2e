package tasks

import (
	"context"
	"strconv"
	"strings"

	"github.com/metal-toolbox/snatt/internal/session"
)

// StepStatus has status about a step, to be reported as part of the overall task.
type StepStatus struct {
	Step    string `json:"step"`
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewStepStatus will create a new step status struct
func NewStepStatus(stepName string, state State, details string, err error) *StepStatus {
	status := &StepStatus{
		Step:    stepName,
		Status:  string(state),
		Details: details,
	}

	if err != nil {
		status.Error = err.Error()
	}

	return status
}

func (s *StepStatus) AsLogFields() []any {
	return []any{
		"step", s.Step,
		"status", s.Status,
		"details", s.Details,
		"error", s.Error,
	}
}

// Step is a unit of work. Multiple steps accomplish a task.
type Step interface {
	// Name of this step
	Name() string
	// Run will execute the code to accomplish this step
	Run(ctx context.Context, s session.Session, data SharedData) (string, error)
}

type commandStep struct {
	command string
}

// CommandStep runs a command on the device session and stores the output
// in SharedData under the command text.
func CommandStep(command string) Step {
	return &commandStep{command: command}
}

func (t *commandStep) Name() string {
	return t.command
}

func (t *commandStep) Run(ctx context.Context, s session.Session, data SharedData) (string, error) {
	out, err := s.Run(ctx, t.command)
	if err != nil {
		return "Command failed", err
	}

	data[t.command] = out

	return "Captured " + strconv.Itoa(strings.Count(out, "\n")) + " lines", nil
}
