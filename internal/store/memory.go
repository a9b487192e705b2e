package store

import (
	"context"
	"sync"

	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"
)

type memory struct {
	mu          sync.RWMutex
	devices     []*model.Device
	diagnostics []*model.DiagnosticResult
	backups     []*model.BackupRecord
}

func newMemory() *memory {
	return &memory{}
}

func (m *memory) ReplaceDevices(_ context.Context, devices []*model.Device) error {
	cp, err := clone(devices)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.devices = cp

	return nil
}

func (m *memory) Devices(_ context.Context) ([]*model.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return clone(m.devices)
}

func (m *memory) DeviceByID(_ context.Context, id string) (*model.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.devices {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}

	return nil, errors.Wrap(model.ErrUnknownDevice, id)
}

func (m *memory) UpdateDevice(_ context.Context, device *model.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, d := range m.devices {
		if d.ID == device.ID {
			cp := *device
			m.devices[i] = &cp

			return nil
		}
	}

	return errors.Wrap(model.ErrUnknownDevice, device.ID)
}

func (m *memory) ConnectedDevices(_ context.Context) ([]*model.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	connected := []*model.Device{}

	for _, d := range m.devices {
		if d.IsConnected() {
			cp := *d
			connected = append(connected, &cp)
		}
	}

	return connected, nil
}

func (m *memory) ReplaceDiagnostics(_ context.Context, results []*model.DiagnosticResult) error {
	cp, err := clone(results)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.diagnostics = cp

	return nil
}

func (m *memory) Diagnostics(_ context.Context) ([]*model.DiagnosticResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return clone(m.diagnostics)
}

func (m *memory) PrependBackups(_ context.Context, records []*model.BackupRecord) error {
	cp, err := clone(records)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.backups = append(cp, m.backups...)

	return nil
}

func (m *memory) Backups(_ context.Context) ([]*model.BackupRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return clone(m.backups)
}

// clone deep copies a slice so callers never share records with the store.
func clone[T any](in []T) ([]T, error) {
	if in == nil {
		return []T{}, nil
	}

	out, err := copystructure.Copy(in)
	if err != nil {
		return nil, errors.Wrap(err, "failed to copy records")
	}

	cp, ok := out.([]T)
	if !ok {
		return nil, errors.New("unexpected copy type")
	}

	return cp, nil
}
