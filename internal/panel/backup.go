package panel

import (
	"context"

	"github.com/metal-toolbox/snatt/internal/client"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/sirupsen/logrus"
)

var configTypeOptions = []Option{
	{Value: string(model.ConfigRunning), Label: "Running Configuration"},
	{Value: string(model.ConfigStartup), Label: "Startup Configuration"},
	{Value: string(model.ConfigBoth), Label: "Both"},
}

type BackupView struct {
	Status
	ConfigType  string
	ConfigTypes []Option
	History     []*model.BackupRecord
}

func (v *BackupView) BackupLabel() string {
	if v.Busy() {
		return "Creating Backup..."
	}

	return "Backup Now"
}

// Backup creates configuration backups and lists their history.
type Backup struct {
	base
	api client.API

	configType string
	history    []*model.BackupRecord
	loaded     bool
}

func NewBackup(api client.API, logger *logrus.Entry, notify Notifier) *Backup {
	return &Backup{
		base:       newBase(IDBackup, logger, notify),
		api:        api,
		configType: string(model.ConfigRunning),
		history:    []*model.BackupRecord{},
	}
}

// Create backs up the connected devices, then reloads the history.
func (p *Backup) Create(ctx context.Context, configType string) error {
	p.mu.Lock()
	if p.status.Phase == PhaseBusy {
		p.mu.Unlock()
		return ErrBusy
	}

	if configType != "" {
		p.configType = configType
	}

	configType = p.configType
	p.mu.Unlock()

	return p.run(ctx, "create", func(ctx context.Context) (string, error) {
		msg, err := p.api.CreateBackup(ctx, configType)
		if err != nil {
			return "", err
		}

		// the backup itself succeeded, a failed reload keeps the previous history
		history, err := p.api.BackupHistory(ctx)
		if err != nil {
			p.logger.WithError(err).Warn("backup history reload failed")
			return msg, nil
		}

		p.setHistory(history)

		return msg, nil
	})
}

// Refresh reloads the history.
func (p *Backup) Refresh(ctx context.Context) error {
	return p.run(ctx, "refresh", func(ctx context.Context) (string, error) {
		history, err := p.api.BackupHistory(ctx)
		if err != nil {
			return "", err
		}

		p.setHistory(history)

		return "", nil
	})
}

// Load fetches the history the first time the panel is shown, failures are only logged.
func (p *Backup) Load(ctx context.Context) {
	p.mu.Lock()
	loaded := p.loaded || p.status.Phase == PhaseBusy
	p.mu.Unlock()

	if loaded {
		return
	}

	history, err := p.api.BackupHistory(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("backup history load failed")
		return
	}

	p.setHistory(history)
}

func (p *Backup) setHistory(history []*model.BackupRecord) {
	if history == nil {
		history = []*model.BackupRecord{}
	}

	p.mu.Lock()
	p.history = history
	p.loaded = true
	p.mu.Unlock()
}

func (p *Backup) Snapshot() *BackupView {
	p.mu.Lock()
	defer p.mu.Unlock()

	return deepCopy(&BackupView{
		Status:      p.status,
		ConfigType:  p.configType,
		ConfigTypes: configTypeOptions,
		History:     p.history,
	})
}
