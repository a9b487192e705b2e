package version

import (
	"encoding/json"
	"runtime"
	rdebug "runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// set by the build process with -ldflags -X
var (
	GitCommit  string
	GitBranch  string
	GitSummary string
	BuildDate  string
	AppVersion string
)

type Version struct {
	GitCommit  string `json:"git_commit"`
	GitBranch  string `json:"git_branch"`
	GitSummary string `json:"git_summary"`
	BuildDate  string `json:"build_date"`
	AppVersion string `json:"app_version"`
	GoVersion  string `json:"go_version"`
}

func Current() *Version {
	appVersion := AppVersion
	if appVersion == "" {
		appVersion = "devel"
		if info, ok := rdebug.ReadBuildInfo(); ok && info.Main.Version != "" {
			appVersion = info.Main.Version
		}
	}

	return &Version{
		GitBranch:  GitBranch,
		GitCommit:  GitCommit,
		GitSummary: GitSummary,
		BuildDate:  BuildDate,
		AppVersion: appVersion,
		GoVersion:  runtime.Version(),
	}
}

func (v *Version) AsMap() (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}

	return m, nil
}

func (v *Version) AsLogFields() []any {
	return []any{
		"version", v.AppVersion,
		"commit", v.GitCommit,
		"branch", v.GitBranch,
		"buildDate", v.BuildDate,
	}
}

// ExportBuildInfoMetric publishes the build information as a constant gauge.
func ExportBuildInfoMetric() {
	v := Current()

	buildInfo := promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snatt_build_info",
			Help: "A metric with a constant '1' value, labeled by version, commit and go version.",
		},
		[]string{"version", "commit", "branch", "goversion"},
	)

	buildInfo.WithLabelValues(v.AppVersion, v.GitCommit, v.GitBranch, v.GoVersion).Set(1)
}
