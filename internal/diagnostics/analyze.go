package diagnostics

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/metal-toolbox/snatt/internal/configuration"
	"github.com/metal-toolbox/snatt/internal/model"
)

var (
	interfaceDownRe = regexp.MustCompile(`(?i)(\S+)\s+is\s+(administratively\s+)?down`)
	firstFieldRe    = regexp.MustCompile(`(\S+)`)
	cpuRe           = regexp.MustCompile(`(?i)CPU utilization.*?(\d+)%`)
	cpuAltRe        = regexp.MustCompile(`(?i)(\d+)%\s+CPU`)
	memoryRe        = regexp.MustCompile(`(?i)(\d+)%.*?used`)

	logErrorKeywords   = []string{"error", "critical", "alert", "emergency", "fail"}
	logWarningKeywords = []string{"warning", "notice"}
)

// analyzer turns the output of one command into issues.
type analyzer struct {
	thresholds configuration.Thresholds
}

func (a *analyzer) analyze(workflow, command, output string) []model.Issue {
	switch workflow {
	case WorkflowInterfaceHealth:
		return a.interfaces(output)
	case WorkflowCPUMemory:
		return a.cpuMemory(command, output)
	case WorkflowConnectivity:
		return a.connectivity(command, output)
	case WorkflowLogAnalysis:
		return a.logs(output)
	default:
		return nil
	}
}

func (a *analyzer) interfaces(output string) []model.Issue {
	issues := []model.Issue{}

	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)

		if strings.Contains(lower, "down") && strings.Contains(lower, "line protocol") {
			if m := interfaceDownRe.FindStringSubmatch(line); m != nil {
				adminDown := m[2] != ""

				issue := model.Issue{
					Type:           "interface_down",
					Severity:       model.SeverityCritical,
					Description:    "Interface " + m[1] + " is down",
					Recommendation: "Check interface configuration and physical connectivity",
				}

				if adminDown {
					issue.Severity = model.SeverityWarning
					issue.Description = "Interface " + m[1] + " is administratively down"
				}

				issues = append(issues, issue)
			}
		}

		if strings.Contains(lower, "err-disabled") || strings.Contains(lower, "error-disabled") {
			if m := firstFieldRe.FindStringSubmatch(line); m != nil {
				issues = append(issues, model.Issue{
					Type:           "interface_err_disabled",
					Severity:       model.SeverityCritical,
					Description:    "Interface " + m[1] + " is error-disabled",
					Recommendation: "Check for port security violations or BPDU guard triggers",
				})
			}
		}
	}

	return issues
}

func (a *analyzer) cpuMemory(command, output string) []model.Issue {
	issues := []model.Issue{}
	cmd := strings.ToLower(command)

	if strings.Contains(cmd, "cpu") {
		m := cpuRe.FindStringSubmatch(output)
		if m == nil {
			m = cpuAltRe.FindStringSubmatch(output)
		}

		if m != nil {
			usage, _ := strconv.Atoi(m[1])

			switch {
			case usage >= a.thresholds.CPUCritical:
				issues = append(issues, model.Issue{
					Type:           "high_cpu",
					Severity:       model.SeverityCritical,
					Description:    "Critical CPU usage: " + m[1] + "%",
					Recommendation: "Investigate high CPU processes and consider optimization",
				})
			case usage >= a.thresholds.CPUWarning:
				issues = append(issues, model.Issue{
					Type:           "high_cpu",
					Severity:       model.SeverityWarning,
					Description:    "High CPU usage: " + m[1] + "%",
					Recommendation: "Monitor CPU usage and investigate if sustained",
				})
			}
		}
	}

	if strings.Contains(cmd, "memory") {
		if m := memoryRe.FindStringSubmatch(output); m != nil {
			usage, _ := strconv.Atoi(m[1])

			switch {
			case usage >= a.thresholds.MemoryCritical:
				issues = append(issues, model.Issue{
					Type:           "high_memory",
					Severity:       model.SeverityCritical,
					Description:    "Critical memory usage: " + m[1] + "%",
					Recommendation: "Check for memory leaks and consider a memory upgrade",
				})
			case usage >= a.thresholds.MemoryWarning:
				issues = append(issues, model.Issue{
					Type:           "high_memory",
					Severity:       model.SeverityWarning,
					Description:    "High memory usage: " + m[1] + "%",
					Recommendation: "Monitor memory usage trends",
				})
			}
		}
	}

	return issues
}

func (a *analyzer) connectivity(command, output string) []model.Issue {
	issues := []model.Issue{}
	cmd := strings.ToLower(command)
	lower := strings.ToLower(output)

	if strings.Contains(cmd, "route") && !strings.Contains(lower, "default") && !strings.Contains(output, "0.0.0.0") {
		issues = append(issues, model.Issue{
			Type:           "no_default_route",
			Severity:       model.SeverityWarning,
			Description:    "No default route found",
			Recommendation: "Configure default gateway if required",
		})
	}

	if strings.Contains(cmd, "ping") && (strings.Contains(lower, "success rate is 0") || strings.Contains(lower, "0 received")) {
		issues = append(issues, model.Issue{
			Type:           "ping_failure",
			Severity:       model.SeverityCritical,
			Description:    "Ping test failed",
			Recommendation: "Check routing and connectivity to target",
		})
	}

	return issues
}

func (a *analyzer) logs(output string) []model.Issue {
	issues := []model.Issue{}

	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)

		switch {
		case containsAny(lower, logErrorKeywords):
			issues = append(issues, model.Issue{
				Type:           "log_error",
				Severity:       model.SeverityCritical,
				Description:    "Error found in logs: " + strings.TrimSpace(line),
				Recommendation: "Investigate and resolve error condition",
			})
		case containsAny(lower, logWarningKeywords):
			issues = append(issues, model.Issue{
				Type:           "log_warning",
				Severity:       model.SeverityWarning,
				Description:    "Warning found in logs: " + strings.TrimSpace(line),
				Recommendation: "Review warning and take action if needed",
			})
		}
	}

	return issues
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}

	return false
}
