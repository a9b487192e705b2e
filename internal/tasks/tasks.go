package tasks

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"

	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/metal-toolbox/snatt/internal/session"
	"github.com/pkg/errors"
)

type State string

const (
	Pending   State = "pending"
	Active    State = "active"
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

// SharedData is passed between the steps of a task.
type SharedData map[string]string

// TaskStatus has status about a task, and it's steps.
type TaskStatus struct {
	Task       string        `json:"task"`
	Status     string        `json:"status"`
	Details    string        `json:"details,omitempty"`
	Error      string        `json:"error,omitempty"`
	ActiveStep string        `json:"active_step,omitempty"`
	Steps      []*StepStatus `json:"steps"`
}

// NewTaskStatus will generate a new task status struct
func NewTaskStatus(taskName string, state State) *TaskStatus {
	return &TaskStatus{
		Task:   taskName,
		Status: string(state),
	}
}

func (r *TaskStatus) AsLogFields() []any {
	return []any{
		"task", r.Task,
		"status", r.Status,
		"details", r.Details,
		"error", r.Error,
	}
}

func (r *TaskStatus) Marshal() ([]byte, error) {
	respBytes, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal response to json")
	}

	return respBytes, nil
}

// Publisher receives task status updates.
type Publisher interface {
	Publish(ctx context.Context, deviceID string, state State, status json.RawMessage)
}

// Task is a unit of work against one device.
// The task has multiple steps to accomplish it.
type Task interface {
	// Name of the task
	Name() string
	// Device is the network device this task runs against
	Device() *model.Device
	// Steps is the multiple units of work that will accomplish this task
	Steps() []Step
}

type commandTask struct {
	name   string
	device *model.Device
	steps  []Step
}

// NewCommandTask creates a task running each command in order on the device.
func NewCommandTask(name string, device *model.Device, commands []string) Task {
	steps := make([]Step, 0, len(commands))
	for _, c := range commands {
		steps = append(steps, CommandStep(c))
	}

	return &commandTask{
		name:   name,
		device: device,
		steps:  steps,
	}
}

func (j *commandTask) Name() string {
	return j.name
}

func (j *commandTask) Steps() []Step {
	return j.steps
}

func (j *commandTask) Device() *model.Device {
	return j.device
}

// TaskRunner Will run the task by executing the individual steps in the task,
// and reports task status using the publisher.
type TaskRunner struct {
	publisher  Publisher
	task       Task
	taskStatus *TaskStatus
	data       SharedData
}

// NewTaskRunner creates a TaskRunner to run a specific Task
func NewTaskRunner(publisher Publisher, task Task) *TaskRunner {
	return &TaskRunner{
		publisher:  publisher,
		task:       task,
		taskStatus: NewTaskStatus(task.Name(), Pending),
		data:       SharedData{},
	}
}

// Data returns what the steps stored while running.
func (r *TaskRunner) Data() SharedData {
	return r.data
}

// Status returns the task status as last published.
func (r *TaskRunner) Status() *TaskStatus {
	return r.taskStatus
}

func (r *TaskRunner) Run(ctx context.Context, s session.Session) (err error) {
	slog.With(r.task.Device().AsLogFields()...).Debug("Running task", "task", r.task.Name())

	r.initTaskLog()

	defer func() {
		if rec := recover(); rec != nil {
			err = r.handlePanic(ctx, rec)
		}
	}()

	r.publishTaskUpdate(ctx, Active, "Opening session", nil)

	if err = s.Open(ctx); err != nil {
		r.publishTaskUpdate(ctx, Failed, "Failed to open session", err)
		return errors.Wrap(err, "failed to open session")
	}
	defer s.Close(ctx)

	for stepID, step := range r.task.Steps() {
		r.publishStepUpdate(ctx, stepID, "Running step")

		details, err := step.Run(ctx, s, r.data)
		if err != nil {
			r.publishFailed(ctx, stepID, details, err)
			return err
		}

		r.publishStepSuccess(ctx, stepID, details)
	}

	r.publishTaskSuccess(ctx)

	return nil
}

func (r *TaskRunner) initTaskLog() {
	steps := r.task.Steps()
	r.taskStatus.Steps = make([]*StepStatus, len(steps))

	for i, step := range steps {
		r.taskStatus.Steps[i] = NewStepStatus(step.Name(), Pending, "", nil)
	}
}

func (r *TaskRunner) handlePanic(ctx context.Context, rec any) error {
	msg := "Panic occurred while running task"
	slog.Error("!!panic occurred", "rec", rec, "stack", string(debug.Stack()))
	slog.Error(msg)
	err := errors.New("Task fatal error, check logs for details")

	r.publishTaskUpdate(ctx, Failed, msg, err)

	return err
}

func (r *TaskRunner) publishStepUpdate(ctx context.Context, stepID int, details string) {
	r.publish(ctx, stepID, Active, Active, details, nil)
}

func (r *TaskRunner) publishStepSuccess(ctx context.Context, stepID int, details string) {
	r.publish(ctx, stepID, Succeeded, Active, details, nil)
}

func (r *TaskRunner) publishFailed(ctx context.Context, stepID int, details string, err error) {
	slog.With(r.task.Device().AsLogFields()...).Warn("Task failed", "task", r.task.Name(), "error", err)
	r.publish(ctx, stepID, Failed, Failed, details, err)
}

func (r *TaskRunner) publishTaskSuccess(ctx context.Context) {
	slog.With(r.task.Device().AsLogFields()...).Debug("Task completed successfully", "task", r.task.Name())
	r.publishTaskUpdate(ctx, Succeeded, "Task completed successfully", nil)
}

func (r *TaskRunner) publish(ctx context.Context, stepID int, stepState, taskState State, details string, err error) {
	step := r.task.Steps()[stepID]
	stepStatus := NewStepStatus(step.Name(), stepState, details, err)

	slog.With(r.task.Device().AsLogFields()...).With(stepStatus.AsLogFields()...).Debug(details, "task", r.task.Name())

	r.taskStatus.Steps[stepID] = stepStatus
	r.taskStatus.ActiveStep = step.Name()

	var taskDetails string
	if err != nil {
		taskDetails = "Task failed at step " + step.Name()
	}

	r.publishTaskUpdate(ctx, taskState, taskDetails, err)
}

func (r *TaskRunner) publishTaskUpdate(ctx context.Context, state State, details string, err error) {
	r.taskStatus.Status = string(state)
	r.taskStatus.Details = details

	if err != nil {
		r.taskStatus.Error = err.Error()
	}

	if r.publisher == nil {
		return
	}

	respBytes, err := r.taskStatus.Marshal()
	if err != nil {
		slog.Error("Failed to marshal task update", "error", err)
		return
	}

	r.publisher.Publish(ctx, r.task.Device().ID, state, respBytes)
}
