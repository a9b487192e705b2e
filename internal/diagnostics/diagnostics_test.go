package diagnostics

import (
	"context"
	"testing"

	"github.com/metal-toolbox/snatt/internal/configuration"
	"github.com/metal-toolbox/snatt/internal/log"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/metal-toolbox/snatt/internal/session"
	"github.com/metal-toolbox/snatt/internal/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSession struct {
	outputs map[string]string
}

func (s *scriptedSession) Open(_ context.Context) error {
	return nil
}

func (s *scriptedSession) Close(_ context.Context) error {
	return nil
}

func (s *scriptedSession) Run(_ context.Context, command string) (string, error) {
	out, ok := s.outputs[command]
	if !ok {
		return "", errors.New("% Invalid input detected")
	}

	return out, nil
}

func scripted(outputs map[string]string) session.Factory {
	return func(_ *model.Device) session.Session {
		return &scriptedSession{outputs: outputs}
	}
}

func newTestDiagnostics(t *testing.T, factory session.Factory, devices ...*model.Device) (*Diagnostics, store.Repository) {
	t.Helper()

	repo := store.NewRepository()
	require.Nil(t, repo.ReplaceDevices(context.Background(), devices))

	return New(configuration.New(), repo, factory, log.NewDiscardLogger()), repo
}

func connectedDevice(id, ip, hostname string) *model.Device {
	return &model.Device{ID: id, IPAddress: ip, Hostname: hostname, Status: model.DeviceStatusConnected}
}

func TestRunUnknownWorkflow(t *testing.T) {
	d, _ := newTestDiagnostics(t, scripted(nil))

	_, err := d.Run(context.Background(), "firmware_audit")
	assert.True(t, errors.Is(err, model.ErrInvalidRequest))
}

func TestRunNoConnectedDevices(t *testing.T) {
	d, _ := newTestDiagnostics(t, scripted(nil),
		&model.Device{ID: "a", IPAddress: "10.0.0.1", Status: model.DeviceStatusReachable})

	results, err := d.Run(context.Background(), WorkflowInterfaceHealth)
	require.Nil(t, err)
	assert.Empty(t, results)
}

func TestRunInterfaceHealth(t *testing.T) {
	factory := scripted(map[string]string{
		"show interfaces": "GigabitEthernet0/0 is up, line protocol is up\n" +
			"GigabitEthernet0/1 is down, line protocol is down\n" +
			"GigabitEthernet0/2 is administratively down, line protocol is down\n" +
			"GigabitEthernet0/3 err-disabled\n",
	})

	d, repo := newTestDiagnostics(t, factory, connectedDevice("a", "10.0.0.1", "core-sw1"))

	results, err := d.Run(context.Background(), WorkflowInterfaceHealth)
	require.Nil(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "core-sw1", r.DeviceName)
	assert.Equal(t, "10.0.0.1", r.DeviceIP)
	assert.Equal(t, model.SeverityCritical, r.Severity)
	assert.Equal(t, "Found 2 critical issue(s) and 1 warning(s)", r.Message)
	assert.Contains(t, r.Details, "[WARNING] Interface GigabitEthernet0/2 is administratively down")
	assert.Contains(t, r.Details, "[CRITICAL] Interface GigabitEthernet0/3 is error-disabled")

	stored, err := repo.Diagnostics(context.Background())
	require.Nil(t, err)
	assert.Len(t, stored, 1)
}

func TestRunCPUMemoryThresholds(t *testing.T) {
	tests := []struct {
		name     string
		cpu      string
		memory   string
		severity model.Severity
		message  string
	}{
		{
			"healthy",
			"CPU utilization for five seconds: 12%/0%; one minute: 10%",
			"Processor Pool Total: 100 Used: 40 (40% used)",
			model.SeverityInfo,
			"All checks passed, no issues found",
		},
		{
			"cpu warning",
			"CPU utilization for five seconds: 85%/1%; one minute: 80%",
			"Processor Pool Total: 100 Used: 40 (40% used)",
			model.SeverityWarning,
			"Found 1 warning(s), no critical issues",
		},
		{
			"memory critical",
			"12% CPU",
			"Processor Pool Total: 100 Used: 95 (95% used)",
			model.SeverityCritical,
			"Found 1 critical issue(s) and 0 warning(s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := scripted(map[string]string{
				"show processes cpu":     tt.cpu,
				"show memory statistics": tt.memory,
			})

			d, _ := newTestDiagnostics(t, factory, connectedDevice("a", "10.0.0.1", ""))

			results, err := d.Run(context.Background(), WorkflowCPUMemory)
			require.Nil(t, err)
			require.Len(t, results, 1)

			assert.Equal(t, "10.0.0.1", results[0].DeviceName)
			assert.Equal(t, tt.severity, results[0].Severity)
			assert.Equal(t, tt.message, results[0].Message)
		})
	}
}

func TestRunConnectivity(t *testing.T) {
	factory := scripted(map[string]string{
		"show ip route": "C 192.168.5.0/24 is directly connected, GigabitEthernet0/0\n",
		"ping 8.8.8.8":  "Success rate is 0 percent (0/5)\n",
	})

	d, _ := newTestDiagnostics(t, factory, connectedDevice("a", "10.0.0.1", "edge1"))

	results, err := d.Run(context.Background(), WorkflowConnectivity)
	require.Nil(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, model.SeverityCritical, results[0].Severity)
	assert.Equal(t, 1, results[0].CountBySeverity(model.SeverityWarning))
	assert.Equal(t, 1, results[0].CountBySeverity(model.SeverityCritical))
}

func TestRunLogAnalysis(t *testing.T) {
	factory := scripted(map[string]string{
		"show logging": "%SYS-5-CONFIG_I: Configured from console\n" +
			"%LINK-3-UPDOWN: Interface Gi0/1 failed\n" +
			"%ENV-4-NOTICE: fan notice\n",
	})

	d, _ := newTestDiagnostics(t, factory, connectedDevice("a", "10.0.0.1", "edge1"))

	results, err := d.Run(context.Background(), WorkflowLogAnalysis)
	require.Nil(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "Found 1 critical issue(s) and 1 warning(s)", results[0].Message)
}

func TestRunCommandFailure(t *testing.T) {
	d, _ := newTestDiagnostics(t, scripted(map[string]string{}), connectedDevice("a", "10.0.0.1", "edge1"))

	results, err := d.Run(context.Background(), WorkflowLogAnalysis)
	require.Nil(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, model.SeverityCritical, results[0].Severity)
	assert.Equal(t, "Diagnostic workflow failed to execute", results[0].Message)
}

func TestRunDryRunSessions(t *testing.T) {
	d, _ := newTestDiagnostics(t, session.DryRunFactory,
		connectedDevice("a", "10.0.0.1", "r1"),
		connectedDevice("b", "10.0.0.2", "r2"),
	)

	for _, w := range Workflows() {
		results, err := d.Run(context.Background(), w.Name)
		require.Nil(t, err)
		require.Len(t, results, 2)

		for _, r := range results {
			assert.NotEqual(t, "Diagnostic workflow failed to execute", r.Message, w.Name)
		}
	}
}
