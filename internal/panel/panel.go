package panel

import (
	"context"
	"sync"
	"time"

	"github.com/metal-toolbox/snatt/internal/metrics"
	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Phase is the state of a panel's single action slot.
type Phase string

const (
	PhaseIdle  Phase = "idle"
	PhaseBusy  Phase = "busy"
	PhaseError Phase = "error"
)

var ErrBusy = errors.New("an action is already in progress")

// Rejection is an action refused before any request is made, its text is shown as is.
type Rejection string

func (r Rejection) Error() string {
	return string(r)
}

const (
	ErrEmptyRange    Rejection = "Please enter an IP range"
	ErrNoSelection   Rejection = "Please select devices to connect"
	ErrMissingFields Rejection = "Please fill in all required fields"
)

// Event is published whenever a panel changes phase.
type Event struct {
	Panel string `json:"panel"`
	Phase Phase  `json:"phase"`
}

// Notifier receives panel phase changes, it must not block.
type Notifier func(Event)

// Status is embedded in every panel view.
type Status struct {
	Phase  Phase
	Alert  string
	Notice string
}

func (s Status) Busy() bool {
	return s.Phase == PhaseBusy
}

// base carries the action slot shared by all panels.
type base struct {
	id     string
	logger *logrus.Entry
	notify Notifier

	mu     sync.Mutex
	status Status
}

func newBase(id string, logger *logrus.Entry, notify Notifier) base {
	return base{
		id:     id,
		logger: logger.WithField("panel", id),
		notify: notify,
		status: Status{Phase: PhaseIdle},
	}
}

func (b *base) ID() string {
	return b.id
}

func (b *base) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.status.Phase
}

func (b *base) publish(phase Phase) {
	if b.notify != nil {
		b.notify(Event{Panel: b.id, Phase: phase})
	}
}

// run executes one action: busy is set before fn is called and cleared once it returns.
// fn commits its results itself and only when it succeeds.
func (b *base) run(ctx context.Context, action string, fn func(ctx context.Context) (string, error)) error {
	b.mu.Lock()
	if b.status.Phase == PhaseBusy {
		b.mu.Unlock()
		return ErrBusy
	}

	b.status = Status{Phase: PhaseBusy}
	b.mu.Unlock()

	b.publish(PhaseBusy)

	started := time.Now()
	notice, err := fn(ctx)

	metrics.ObservePanelAction(b.id, action, err, started)

	b.mu.Lock()
	if err != nil {
		b.status = Status{Phase: PhaseError, Alert: err.Error()}
	} else {
		b.status = Status{Phase: PhaseIdle, Notice: notice}
	}

	phase := b.status.Phase
	b.mu.Unlock()

	b.publish(phase)

	if err != nil {
		b.logger.WithError(err).WithField("action", action).Warn("panel action failed")
	}

	return err
}

// reject refuses an action without performing it.
func (b *base) reject(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.Phase == PhaseBusy {
		return ErrBusy
	}

	b.status.Alert = err.Error()
	b.status.Notice = ""

	return err
}

// Dismiss acknowledges the alert or notice dialog.
func (b *base) Dismiss() {
	b.mu.Lock()

	if b.status.Phase == PhaseBusy {
		b.mu.Unlock()
		return
	}

	changed := b.status.Phase == PhaseError
	b.status = Status{Phase: PhaseIdle}
	b.mu.Unlock()

	if changed {
		b.publish(PhaseIdle)
	}
}

func deepCopy[T any](v T) T {
	return copystructure.Must(copystructure.Copy(v)).(T)
}
