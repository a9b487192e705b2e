package store

import (
	"context"

	"github.com/metal-toolbox/snatt/internal/model"
)

// Repository holds the transient inventory. Nothing outlives the process.
type Repository interface {
	// ReplaceDevices swaps the device list for the result of a new scan.
	ReplaceDevices(ctx context.Context, devices []*model.Device) error
	// Devices returns the current device list.
	Devices(ctx context.Context) ([]*model.Device, error)
	// DeviceByID returns the device with the identifier.
	DeviceByID(ctx context.Context, id string) (*model.Device, error)
	// UpdateDevice stores changes made to a known device.
	UpdateDevice(ctx context.Context, device *model.Device) error
	// ConnectedDevices returns the devices with a connected status.
	ConnectedDevices(ctx context.Context) ([]*model.Device, error)

	// ReplaceDiagnostics swaps the last diagnostic run results.
	ReplaceDiagnostics(ctx context.Context, results []*model.DiagnosticResult) error
	// Diagnostics returns the last diagnostic run results.
	Diagnostics(ctx context.Context) ([]*model.DiagnosticResult, error)

	// PrependBackups adds records ahead of the existing history.
	PrependBackups(ctx context.Context, records []*model.BackupRecord) error
	// Backups returns the backup history, most recent first.
	Backups(ctx context.Context) ([]*model.BackupRecord, error)
}

func NewRepository() Repository {
	return newMemory()
}
