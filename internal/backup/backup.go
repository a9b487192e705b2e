package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/metal-toolbox/snatt/internal/metrics"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/metal-toolbox/snatt/internal/session"
	"github.com/metal-toolbox/snatt/internal/store"
	"github.com/metal-toolbox/snatt/internal/tasks"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var (
	pkgName = "internal/backup"

	// configCommands maps a vendor to the commands printing its running and startup configuration.
	configCommands = map[string]map[model.ConfigType]string{
		session.VendorCisco: {
			model.ConfigRunning: "show running-config",
			model.ConfigStartup: "show startup-config",
		},
		session.VendorJuniper: {
			model.ConfigRunning: "show configuration",
			model.ConfigStartup: "show configuration",
		},
		session.VendorHP: {
			model.ConfigRunning: "display current-configuration",
			model.ConfigStartup: "display saved-configuration",
		},
		session.VendorHuawei: {
			model.ConfigRunning: "display current-configuration",
			model.ConfigStartup: "display saved-configuration",
		},
	}
)

// ConfigCommand returns the command capturing the configuration, unknown vendors get the Cisco command.
func ConfigCommand(vendor string, configType model.ConfigType) string {
	cmds, ok := configCommands[vendor]
	if !ok {
		cmds = configCommands[session.VendorCisco]
	}

	return cmds[configType]
}

// Filename returns the name a captured configuration is saved under.
func Filename(record *model.BackupRecord) string {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(record.DeviceName)

	return fmt.Sprintf("%s_%s_%s.cfg", name, record.Type, record.Timestamp.Format("20060102_150405"))
}

// Manager captures device configurations and keeps the backup history.
type Manager struct {
	repository store.Repository
	sessions   session.Factory
	logger     *logrus.Entry
	now        func() time.Time
}

func New(repository store.Repository, sessions session.Factory, logger *logrus.Entry) *Manager {
	return &Manager{
		repository: repository,
		sessions:   sessions,
		logger:     logger,
		now:        time.Now,
	}
}

// Create backs up the configType configuration of every connected device.
// It returns the number of devices processed.
func (m *Manager) Create(ctx context.Context, configType model.ConfigType) (int, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "backup.Create")
	defer span.End()

	if _, err := model.ParseConfigType(string(configType)); err != nil {
		return 0, err
	}

	devices, err := m.repository.ConnectedDevices(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list connected devices")
	}

	if len(devices) == 0 {
		return 0, model.ErrNoConnectedDevices
	}

	records := []*model.BackupRecord{}

	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		records = append(records, m.backupDevice(ctx, device, configType)...)
	}

	// most recent first within the batch as well
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	if err := m.repository.PrependBackups(ctx, records); err != nil {
		return 0, errors.Wrap(err, "failed to store backup records")
	}

	for _, r := range records {
		metrics.BackupsTotal.WithLabelValues(string(r.Status)).Inc()
	}

	m.logger.WithFields(logrus.Fields{
		"type":    string(configType),
		"devices": len(devices),
		"records": len(records),
	}).Info("backup completed")

	return len(devices), nil
}

// History returns every backup record, most recent first.
func (m *Manager) History(ctx context.Context) ([]*model.BackupRecord, error) {
	return m.repository.Backups(ctx)
}

func (m *Manager) backupDevice(ctx context.Context, device *model.Device, configType model.ConfigType) []*model.BackupRecord {
	types := configType.Expand()

	commands := []string{}
	for _, t := range types {
		cmd := ConfigCommand(device.Vendor, t)
		if len(commands) == 0 || commands[len(commands)-1] != cmd {
			commands = append(commands, cmd)
		}
	}

	task := tasks.NewCommandTask("backup_"+string(configType), device, commands)
	runner := tasks.NewTaskRunner(&tasks.LogPublisher{Logger: m.logger}, task)
	runErr := runner.Run(ctx, m.sessions(device))
	data := runner.Data()

	records := make([]*model.BackupRecord, 0, len(types))

	for _, t := range types {
		record := &model.BackupRecord{
			DeviceName: device.DisplayName(),
			DeviceIP:   device.IPAddress,
			Type:       t,
			Timestamp:  m.now(),
		}

		config, ok := data[ConfigCommand(device.Vendor, t)]

		switch {
		case ok && config != "":
			sum := sha256.Sum256([]byte(config))
			record.Status = model.BackupSuccess
			record.SizeBytes = len(config)
			record.Checksum = hex.EncodeToString(sum[:])
		case runErr != nil:
			record.Status = model.BackupFailure
			record.Error = runErr.Error()
		default:
			record.Status = model.BackupFailure
			record.Error = "empty configuration"
		}

		m.logger.WithFields(logrus.Fields{
			"device": record.DeviceName,
			"type":   string(record.Type),
			"status": string(record.Status),
			"file":   Filename(record),
		}).Debug("configuration captured")

		records = append(records, record)
	}

	return records
}
