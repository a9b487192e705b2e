package client

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/metal-toolbox/snatt/internal/credentials"
	"github.com/metal-toolbox/snatt/internal/model"
)

// Mock fabricates API responses after a fixed delay, without a backend.
type Mock struct {
	delay time.Duration
	now   func() time.Time

	mu          sync.Mutex
	history     []*model.BackupRecord
	credentials []model.Credential
}

// NewMock returns the mock variant with its seeded history and credentials.
func NewMock(delay time.Duration) *Mock {
	now := time.Now()

	return &Mock{
		delay: delay,
		now:   time.Now,
		history: []*model.BackupRecord{
			{DeviceName: "Router-01", Type: model.ConfigRunning, Timestamp: now.Add(-time.Hour), Status: model.BackupSuccess},
			{DeviceName: "Switch-01", Type: model.ConfigStartup, Timestamp: now.Add(-90 * time.Minute), Status: model.BackupSuccess},
		},
		credentials: []model.Credential{
			{Name: "cisco_lab", Username: "admin"},
			{Name: "switch_access", Username: "netadmin"},
		},
	}
}

func (m *Mock) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(m.delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Mock) Scan(ctx context.Context, _ string) ([]*model.Device, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	now := m.now()

	return []*model.Device{
		{ID: "1", IPAddress: "192.168.1.1", Hostname: "Router-01", Vendor: "Cisco", Status: model.DeviceStatusReachable, LastSeen: now},
		{ID: "2", IPAddress: "192.168.1.2", Hostname: "Switch-01", Vendor: "Cisco", Status: model.DeviceStatusReachable, LastSeen: now},
		{ID: "3", IPAddress: "192.168.1.3", Hostname: "Switch-02", Vendor: "Arista", Status: model.DeviceStatusReachable, LastSeen: now},
	}, nil
}

func (m *Mock) Connect(ctx context.Context, deviceIDs []string) (*ConnectResult, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	return &ConnectResult{
		Connected: len(deviceIDs),
		Message:   fmt.Sprintf("Connected to %d devices", len(deviceIDs)),
	}, nil
}

func (m *Mock) Workflows(_ context.Context) ([]Workflow, error) {
	return []Workflow{
		{Name: "interface_health", DisplayName: "Interface Health Check"},
		{Name: "cpu_memory", DisplayName: "CPU & Memory Check"},
		{Name: "connectivity", DisplayName: "Connectivity Check"},
		{Name: "log_analysis", DisplayName: "Log Analysis"},
	}, nil
}

func (m *Mock) RunDiagnostics(ctx context.Context, workflow string) (*DiagnosticsResult, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	now := m.now()

	return &DiagnosticsResult{
		Results: []*model.DiagnosticResult{
			{
				DeviceName: "Router-01",
				DeviceIP:   "192.168.1.1",
				Workflow:   workflow,
				Severity:   model.SeverityInfo,
				Message:    "All interfaces operational",
				Details:    "GigabitEthernet0/0: UP\nGigabitEthernet0/1: UP",
				Timestamp:  now,
			},
			{
				DeviceName: "Switch-01",
				DeviceIP:   "192.168.1.2",
				Workflow:   workflow,
				Severity:   model.SeverityWarning,
				Message:    "High CPU usage detected",
				Details:    "CPU: 85%\nMemory: 60%",
				Timestamp:  now,
			},
		},
	}, nil
}

func (m *Mock) CreateBackup(ctx context.Context, backupType string) (string, error) {
	configType, err := model.ParseConfigType(backupType)
	if err != nil {
		return "", err
	}

	if err := m.wait(ctx); err != nil {
		return "", err
	}

	record := &model.BackupRecord{
		DeviceName: "Router-01",
		DeviceIP:   "192.168.1.1",
		Type:       configType,
		Timestamp:  m.now(),
		Status:     model.BackupSuccess,
	}

	m.mu.Lock()
	m.history = append([]*model.BackupRecord{record}, m.history...)
	m.mu.Unlock()

	return "Backup completed successfully!", nil
}

func (m *Mock) BackupHistory(_ context.Context) ([]*model.BackupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.BackupRecord, 0, len(m.history))
	for _, r := range m.history {
		cp := *r
		out = append(out, &cp)
	}

	return out, nil
}

func (m *Mock) GenerateReport(ctx context.Context, reportType, format string) (*Download, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	data := "report_type,format,generated\n" + reportType + "," + format + "," + m.now().Format(time.RFC3339) + "\n"

	return &Download{
		Filename:    "snatt_report_" + strconv.FormatInt(m.now().UnixMilli(), 10) + ".csv",
		ContentType: "text/csv; charset=utf-8",
		Data:        []byte(data),
	}, nil
}

func (m *Mock) AddCredential(_ context.Context, in *model.CredentialInput) (string, error) {
	if err := credentials.Validate(in); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.credentials = append(m.credentials, model.Credential{Name: in.Name, Username: in.Username, HasEnablePassword: in.EnablePassword != ""})
	m.mu.Unlock()

	return "Credential added successfully!", nil
}

func (m *Mock) Credentials(_ context.Context) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]model.Credential(nil), m.credentials...), nil
}
