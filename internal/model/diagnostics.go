package model

import (
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Max returns the worse of the two severities.
func (s Severity) Max(other Severity) Severity {
	if other.rank() > s.rank() {
		return other
	}

	return s
}

type Issue struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// nolint:govet // prefer to keep field ordering as is
type DiagnosticResult struct {
	DeviceName string    `json:"device_name"`
	DeviceIP   string    `json:"device_ip"`
	Workflow   string    `json:"workflow"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Issues     []Issue   `json:"issues,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// CountBySeverity returns the number of issues at the given severity.
func (r *DiagnosticResult) CountBySeverity(s Severity) int {
	var n int

	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}

	return n
}
