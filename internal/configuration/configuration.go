package configuration

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jeremywohl/flatten"
	"github.com/joho/godotenv"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var (
	defaultAPIListenAddress       = ":8000"
	defaultDashboardListenAddress = ":8080"
	defaultMetricsAddress         = ":9090"
	defaultAPIBaseURL             = "http://localhost:8000"
	defaultMockDelay              = 2 * time.Second
	defaultRequestTimeout         = 60 * time.Second
	defaultProbeTimeout           = time.Second
	defaultProbePorts             = []int{22, 23, 80, 443}
	defaultMaxHosts               = 1024
	defaultConcurrency            = 100
	defaultWarningPercent         = 80
	defaultCriticalPercent        = 90
)

const (
	ProbeMethodTCP  = "tcp"
	ProbeMethodICMP = "icmp"
)

// APIConfig holds the HTTP API listener configuration.
type APIConfig struct {
	ListenAddress  string   `mapstructure:"listen_address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DashboardConfig holds the dashboard listener and API client configuration.
// nolint:govet // prefer readability over field alignment optimization for this case.
type DashboardConfig struct {
	ListenAddress  string        `mapstructure:"listen_address"`
	APIBaseURL     string        `mapstructure:"api_base_url"`
	Mock           bool          `mapstructure:"mock"`
	MockDelay      time.Duration `mapstructure:"mock_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryMax       int           `mapstructure:"retry_max"`
}

// DiscoveryConfig holds the network sweep parameters.
type DiscoveryConfig struct {
	MaxHosts     int           `mapstructure:"max_hosts"`
	Concurrency  int           `mapstructure:"concurrency"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	ProbePorts   []int         `mapstructure:"probe_ports"`
	Method       string        `mapstructure:"method"`
}

// Thresholds are the CPU and memory utilization percentages that raise diagnostic issues.
type Thresholds struct {
	CPUWarning     int `mapstructure:"cpu_warning"`
	CPUCritical    int `mapstructure:"cpu_critical"`
	MemoryWarning  int `mapstructure:"memory_warning"`
	MemoryCritical int `mapstructure:"memory_critical"`
}

type DiagnosticsConfig struct {
	Thresholds Thresholds `mapstructure:"thresholds"`
}

type CredentialsConfig struct {
	MasterKey string `mapstructure:"master_key"`
}

// Configuration holds application configuration read from a YAML or set by env variables.
// nolint:govet // prefer readability over field alignment optimization for this case.
type Configuration struct {
	// LogLevel is the app verbose logging level.
	// one of - info, debug, trace
	LogLevel string `mapstructure:"log_level"`

	EnableProfiling bool `mapstructure:"enable_profiling"`

	// MetricsAddress is where the prometheus /metrics endpoint listens.
	MetricsAddress string `mapstructure:"metrics_address"`

	// Dryrun simulates probes and device sessions.
	Dryrun bool `mapstructure:"dryrun"`

	API         *APIConfig         `mapstructure:"api"`
	Dashboard   *DashboardConfig   `mapstructure:"dashboard"`
	Discovery   *DiscoveryConfig   `mapstructure:"discovery"`
	Diagnostics *DiagnosticsConfig `mapstructure:"diagnostics"`
	Credentials *CredentialsConfig `mapstructure:"credentials"`
}

// New creates a configuration populated with defaults.
func New() *Configuration {
	// nested structs are initialized here so viper can read in configuration from env vars
	// once https://github.com/spf13/viper/pull/1429 is merged, this can go.
	return &Configuration{
		LogLevel:       "info",
		MetricsAddress: defaultMetricsAddress,
		API: &APIConfig{
			ListenAddress:  defaultAPIListenAddress,
			AllowedOrigins: []string{"*"},
		},
		Dashboard: &DashboardConfig{
			ListenAddress:  defaultDashboardListenAddress,
			APIBaseURL:     defaultAPIBaseURL,
			MockDelay:      defaultMockDelay,
			RequestTimeout: defaultRequestTimeout,
		},
		Discovery: &DiscoveryConfig{
			MaxHosts:     defaultMaxHosts,
			Concurrency:  defaultConcurrency,
			ProbeTimeout: defaultProbeTimeout,
			ProbePorts:   append([]int(nil), defaultProbePorts...),
			Method:       ProbeMethodTCP,
		},
		Diagnostics: &DiagnosticsConfig{
			Thresholds: Thresholds{
				CPUWarning:     defaultWarningPercent,
				CPUCritical:    defaultCriticalPercent,
				MemoryWarning:  defaultWarningPercent,
				MemoryCritical: defaultCriticalPercent,
			},
		},
		Credentials: &CredentialsConfig{},
	}
}

func (c *Configuration) AsLogFields() []any {
	return []any{
		"logLevel", c.LogLevel,
		"enableProfiling", c.EnableProfiling,
		"metricsAddress", c.MetricsAddress,
		"dryrun", c.Dryrun,
		"apiListenAddress", c.API.ListenAddress,
		"dashboardListenAddress", c.Dashboard.ListenAddress,
		"apiBaseURL", c.Dashboard.APIBaseURL,
		"mock", c.Dashboard.Mock,
		"discoveryMethod", c.Discovery.Method,
		"discoveryConcurrency", c.Discovery.Concurrency,
	}
}

func (c *Configuration) LoadArgs(args *model.Args) {
	if args.LogLevel != "" {
		c.LogLevel = args.LogLevel
	}

	if args.EnableProfiling {
		c.EnableProfiling = true
	}

	if args.Mock {
		c.Dashboard.Mock = true
	}
}

// Load the application configuration
// Reads in the env file and configFile when available and overrides from environment variables.
func Load(args *model.Args) (*Configuration, error) {
	if args.EnvFile != "" {
		if err := godotenv.Load(args.EnvFile); err != nil {
			return nil, errors.Wrap(model.ErrConfig, "env file error: "+err.Error())
		}
	}

	viperConfig := viper.New()
	viperConfig.SetConfigType("yaml")
	viperConfig.SetEnvPrefix(model.AppName)
	viperConfig.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperConfig.AutomaticEnv()

	if args.ConfigFile != "" {
		fh, err := os.Open(args.ConfigFile)
		if err != nil {
			return nil, errors.Wrap(model.ErrConfig, err.Error())
		}
		defer fh.Close()

		if err = viperConfig.ReadConfig(fh); err != nil {
			return nil, errors.Wrap(model.ErrConfig, "ReadConfig error: "+err.Error())
		}
	}

	config := New()

	if err := config.envBindVars(viperConfig); err != nil {
		return nil, errors.Wrap(model.ErrConfig, "env var bind error: "+err.Error())
	}

	if err := viperConfig.Unmarshal(config); err != nil {
		return nil, errors.Wrap(model.ErrConfig, "Unmarshal error: "+err.Error())
	}

	config.LoadArgs(args)

	if err := config.setMasterKey(); err != nil {
		return nil, errors.Wrap(model.ErrConfig, "master key error: "+err.Error())
	}

	if err := config.validate(); err != nil {
		return nil, errors.Wrap(model.ErrConfig, err.Error())
	}

	return config, nil
}

// envBindVars binds environment variables to the struct
// without a configuration file being unmarshalled,
// this is a workaround for a viper bug,
//
// This can be replaced by the solution in https://github.com/spf13/viper/pull/1429
// once that PR is merged.
func (c *Configuration) envBindVars(viperConfig *viper.Viper) error {
	envKeysMap := map[string]interface{}{}
	if err := mapstructure.Decode(c, &envKeysMap); err != nil {
		return err
	}

	// Flatten nested conf map
	flat, err := flatten.Flatten(envKeysMap, "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "Unable to flatten configuration")
	}

	for k := range flat {
		if err := viperConfig.BindEnv(k); err != nil {
			return errors.Wrap(model.ErrConfig, "env var bind error: "+err.Error())
		}
	}

	return nil
}

// setMasterKey generates a per process key when none was configured,
// stored credentials then only live as long as the process.
func (c *Configuration) setMasterKey() error {
	if c.Credentials.MasterKey != "" {
		return nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return err
	}

	c.Credentials.MasterKey = hex.EncodeToString(buf)

	return nil
}

// nolint:gocyclo // parameter validation is cyclomatic
func (c *Configuration) validate() error {
	if c.API.ListenAddress == "" {
		return errors.New("missing parameter: api.listen_address")
	}

	if c.Dashboard.ListenAddress == "" {
		return errors.New("missing parameter: dashboard.listen_address")
	}

	u, err := url.Parse(c.Dashboard.APIBaseURL)
	if err != nil {
		return errors.New("dashboard api_base_url error: " + err.Error())
	}

	if !u.IsAbs() || u.Host == "" {
		return errors.New("dashboard api_base_url must be an absolute URL")
	}

	if c.Dashboard.RetryMax < 0 {
		return errors.New("dashboard retry_max must not be negative")
	}

	if c.Discovery.Concurrency < 1 {
		return errors.New("discovery concurrency must be at least 1")
	}

	if c.Discovery.MaxHosts < 1 {
		return errors.New("discovery max_hosts must be at least 1")
	}

	switch c.Discovery.Method {
	case ProbeMethodTCP:
		if len(c.Discovery.ProbePorts) == 0 {
			return errors.New("discovery probe_ports required for tcp probing")
		}
	case ProbeMethodICMP:
	default:
		return errors.New("unknown discovery method: " + c.Discovery.Method)
	}

	th := c.Diagnostics.Thresholds
	if th.CPUWarning > th.CPUCritical || th.MemoryWarning > th.MemoryCritical {
		return errors.New("diagnostics warning thresholds must not exceed critical thresholds")
	}

	return nil
}
