package store

import (
	"context"
	"testing"
	"time"

	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceDevices(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	devices, err := repo.Devices(ctx)
	require.Nil(t, err)
	assert.Empty(t, devices)

	first := []*model.Device{
		{ID: "a", IPAddress: "10.0.0.1", Status: model.DeviceStatusReachable},
		{ID: "b", IPAddress: "10.0.0.2", Status: model.DeviceStatusReachable},
	}
	require.Nil(t, repo.ReplaceDevices(ctx, first))

	second := []*model.Device{{ID: "c", IPAddress: "10.0.1.1", Status: model.DeviceStatusReachable}}
	require.Nil(t, repo.ReplaceDevices(ctx, second))

	devices, err = repo.Devices(ctx)
	require.Nil(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "c", devices[0].ID)

	_, err = repo.DeviceByID(ctx, "a")
	assert.True(t, errors.Is(err, model.ErrUnknownDevice))
}

func TestDevicesAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	in := []*model.Device{{ID: "a", IPAddress: "10.0.0.1", Status: model.DeviceStatusReachable}}
	require.Nil(t, repo.ReplaceDevices(ctx, in))

	in[0].Status = model.DeviceStatusConnected

	out, err := repo.Devices(ctx)
	require.Nil(t, err)
	assert.Equal(t, model.DeviceStatusReachable, out[0].Status)

	out[0].Hostname = "mutated"

	got, err := repo.DeviceByID(ctx, "a")
	require.Nil(t, err)
	assert.Empty(t, got.Hostname)
}

func TestUpdateAndConnected(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.Nil(t, repo.ReplaceDevices(ctx, []*model.Device{
		{ID: "a", IPAddress: "10.0.0.1", Status: model.DeviceStatusReachable},
		{ID: "b", IPAddress: "10.0.0.2", Status: model.DeviceStatusReachable},
	}))

	d, err := repo.DeviceByID(ctx, "b")
	require.Nil(t, err)

	d.Status = model.DeviceStatusConnected
	require.Nil(t, repo.UpdateDevice(ctx, d))

	connected, err := repo.ConnectedDevices(ctx)
	require.Nil(t, err)
	require.Len(t, connected, 1)
	assert.Equal(t, "b", connected[0].ID)

	err = repo.UpdateDevice(ctx, &model.Device{ID: "zz"})
	assert.True(t, errors.Is(err, model.ErrUnknownDevice))
}

func TestBackupsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	now := time.Now()
	older := &model.BackupRecord{DeviceName: "r1", Type: model.ConfigRunning, Timestamp: now.Add(-time.Minute)}
	newer := &model.BackupRecord{DeviceName: "r1", Type: model.ConfigRunning, Timestamp: now}

	require.Nil(t, repo.PrependBackups(ctx, []*model.BackupRecord{older}))
	require.Nil(t, repo.PrependBackups(ctx, []*model.BackupRecord{newer}))

	history, err := repo.Backups(ctx)
	require.Nil(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Timestamp.Equal(now))
}

func TestReplaceDiagnostics(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.Nil(t, repo.ReplaceDiagnostics(ctx, []*model.DiagnosticResult{
		{DeviceName: "r1", Severity: model.SeverityWarning, Issues: []model.Issue{{Type: "cpu"}}},
	}))
	require.Nil(t, repo.ReplaceDiagnostics(ctx, []*model.DiagnosticResult{
		{DeviceName: "r2", Severity: model.SeverityInfo},
	}))

	results, err := repo.Diagnostics(ctx)
	require.Nil(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r2", results[0].DeviceName)
}
