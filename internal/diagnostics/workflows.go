package diagnostics

import (
	"github.com/metal-toolbox/snatt/internal/model"
)

const (
	WorkflowInterfaceHealth = "interface_health"
	WorkflowCPUMemory       = "cpu_memory"
	WorkflowConnectivity    = "connectivity"
	WorkflowLogAnalysis     = "log_analysis"
)

// Workflow is a named set of commands whose outputs are analyzed together.
type Workflow struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Commands    []string `json:"commands"`
}

var workflows = []Workflow{
	{
		Name:        WorkflowInterfaceHealth,
		DisplayName: "Interface Health Check",
		Description: "Check interface status, errors, and utilization",
		Commands:    []string{"show interfaces"},
	},
	{
		Name:        WorkflowCPUMemory,
		DisplayName: "CPU & Memory Check",
		Description: "Check CPU and memory utilization",
		Commands:    []string{"show processes cpu", "show memory statistics"},
	},
	{
		Name:        WorkflowConnectivity,
		DisplayName: "Connectivity Check",
		Description: "Check routing table and test connectivity",
		Commands:    []string{"show ip route", "ping 8.8.8.8"},
	},
	{
		Name:        WorkflowLogAnalysis,
		DisplayName: "Log Analysis",
		Description: "Analyze system logs for errors",
		Commands:    []string{"show logging"},
	},
}

// Workflows returns the available workflows in display order.
func Workflows() []Workflow {
	out := make([]Workflow, len(workflows))
	copy(out, workflows)

	return out
}

// Lookup returns the named workflow.
func Lookup(name string) (Workflow, error) {
	for _, w := range workflows {
		if w.Name == name {
			return w, nil
		}
	}

	return Workflow{}, model.InvalidRequestf("unknown workflow %q", name)
}
