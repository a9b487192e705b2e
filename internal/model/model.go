package model

import (
	"time"
)

const (
	AppName = "snatt"
)

type DeviceStatus string

const (
	DeviceStatusUnknown   DeviceStatus = "unknown"
	DeviceStatusReachable DeviceStatus = "reachable"
	DeviceStatusConnected DeviceStatus = "connected"
)

// nolint:govet // prefer to keep field ordering as is
type Device struct {
	ID        string       `json:"id"`
	IPAddress string       `json:"ip_address"`
	Hostname  string       `json:"hostname,omitempty"`
	Vendor    string       `json:"vendor,omitempty"`
	Model     string       `json:"model,omitempty"`
	OSVersion string       `json:"os_version,omitempty"`
	Status    DeviceStatus `json:"status"`
	LastSeen  time.Time    `json:"last_seen"`
}

// IsReachable returns true for devices that answered a probe, connected devices included.
func (d *Device) IsReachable() bool {
	return d.Status == DeviceStatusReachable || d.Status == DeviceStatusConnected
}

func (d *Device) IsConnected() bool {
	return d.Status == DeviceStatusConnected
}

// DisplayName returns the hostname when known, the IP address otherwise.
func (d *Device) DisplayName() string {
	if d.Hostname != "" {
		return d.Hostname
	}

	return d.IPAddress
}

func (d *Device) AsLogFields() []any {
	return []any{
		"device_id", d.ID,
		"address", d.IPAddress,
		"hostname", d.Hostname,
		"vendor", d.Vendor,
		"status", string(d.Status),
	}
}

type ConfigType string

const (
	ConfigRunning ConfigType = "running"
	ConfigStartup ConfigType = "startup"
	ConfigBoth    ConfigType = "both"
)

// ParseConfigType validates a requested backup type.
func ParseConfigType(s string) (ConfigType, error) {
	switch ConfigType(s) {
	case ConfigRunning, ConfigStartup, ConfigBoth:
		return ConfigType(s), nil
	default:
		return "", InvalidRequestf("unsupported backup type %q", s)
	}
}

// Expand returns the concrete configurations captured for the type.
func (c ConfigType) Expand() []ConfigType {
	if c == ConfigBoth {
		return []ConfigType{ConfigRunning, ConfigStartup}
	}

	return []ConfigType{c}
}

type BackupStatus string

const (
	BackupSuccess BackupStatus = "success"
	BackupFailure BackupStatus = "failure"
)

// nolint:govet // prefer to keep field ordering as is
type BackupRecord struct {
	DeviceName string       `json:"device_name"`
	DeviceIP   string       `json:"device_ip"`
	Type       ConfigType   `json:"type"`
	Timestamp  time.Time    `json:"timestamp"`
	Status     BackupStatus `json:"status"`
	SizeBytes  int          `json:"size_bytes"`
	Checksum   string       `json:"checksum,omitempty"`
	Error      string       `json:"error,omitempty"`
}

func (b *BackupRecord) AsLogFields() []any {
	return []any{
		"device", b.DeviceName,
		"address", b.DeviceIP,
		"type", string(b.Type),
		"status", string(b.Status),
		"size", b.SizeBytes,
	}
}

// Credential is the listable view of a stored credential. Secrets are never part of it.
type Credential struct {
	Name              string    `json:"name"`
	Username          string    `json:"username"`
	HasEnablePassword bool      `json:"has_enable_password"`
	CreatedAt         time.Time `json:"created_at"`
}

// CredentialInput is the write-only form of a credential.
type CredentialInput struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	EnablePassword string `json:"enable_password"`
}

type ReportType string

const (
	ReportHealth      ReportType = "health"
	ReportBackup      ReportType = "backup"
	ReportDiagnostics ReportType = "diagnostics"
	ReportInventory   ReportType = "inventory"
)

type ReportFormat string

const (
	FormatXLSX ReportFormat = "xlsx"
	FormatPDF  ReportFormat = "pdf"
	FormatCSV  ReportFormat = "csv"
)

type Args struct {
	LogLevel        string
	ConfigFile      string
	EnvFile         string
	EnableProfiling bool
	// Mock makes the dashboard fabricate responses instead of calling the API.
	Mock bool
}
