// Package config loads the exporter configuration from defaults, a TOML
// file, the environment and command line flags, in that order of
// precedence. The result is immutable once Load returns.
package config

import (
	"os"
	"sort"
	"strings"
	"time"

	"codeberg.org/mutker/metrics-exporter/internal/errors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel      = LogLevelInfo
	DefaultEnvPrefix     = "METRICS_EXPORTER"
	DefaultConfigDir     = "/etc/metrics-exporter"
	DefaultConfigName    = "metrics-exporter"
	DefaultSchedule      = "@every 1m"
	DefaultQueryTimeout  = 30 * time.Second
	DefaultListenAddress = ":8080"
	DefaultHistoryPath   = "/var/lib/metrics-exporter/history.db"
	DefaultPushJob       = "metrics_exporter"
)

// Environment names kept from earlier deployments of the exporter. They are
// read without the prefix.
var legacyEnv = map[string]string{
	"prometheus.url":      "PROMETHEUS_HOST_URL",
	"prometheus.token":    "PROMETHEUS_SERVICE_ACCOUNT_TOKEN",
	"prometheus.instance": "WORKFLOW_METRICS_BACKEND_PROMETHEUS_INSTANCE",
	"namespace":           "THOTH_BACKEND_NAMESPACE",
	"graph.dsn":           "KNOWLEDGE_GRAPH_DSN",
}

type Config struct {
	LogLevel   LogLevel         `mapstructure:"log_level"`
	Namespace  string           `mapstructure:"namespace"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Graph      GraphConfig      `mapstructure:"graph"`
	Services   []ServiceConfig  `mapstructure:"services"`

	Schedule       string `mapstructure:"schedule"`
	ListenAddress  string `mapstructure:"listen_address"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	PushJob        string `mapstructure:"push_job"`
	PIDDir         string `mapstructure:"pid_dir"`

	History HistoryConfig `mapstructure:"history"`

	// Set from flags only.
	Once bool `mapstructure:"-"`
	List bool `mapstructure:"-"`
}

type PrometheusConfig struct {
	URL          string        `mapstructure:"url"`
	Token        string        `mapstructure:"token"`
	Instance     string        `mapstructure:"instance"`
	Insecure     bool          `mapstructure:"insecure"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type GraphConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ServiceConfig is one tracked service. StackType may be empty to skip
// the knowledge graph count; Schedule overrides the global schedule.
type ServiceConfig struct {
	Name      string `mapstructure:"name"`
	StackType string `mapstructure:"stack_type"`
	Schedule  string `mapstructure:"schedule"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultServices are tracked when the configuration names none.
func DefaultServices() []ServiceConfig {
	return []ServiceConfig{
		{Name: "adviser", StackType: "ADVISED"},
		{Name: "qeb-hwt", StackType: "USER"},
	}
}

// Load reads the configuration. Flags are taken from os.Args unless
// WithArgs is given.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{
		envPrefix: DefaultEnvPrefix,
		args:      os.Args[1:],
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if err := bindEnv(v, o.envPrefix); err != nil {
		return nil, err
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, err
	}

	if err := readConfigFile(v, configPath(o, fs)); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if len(cfg.Services) == 0 {
		cfg.Services = DefaultServices()
	}

	cfg.Once, _ = fs.GetBool("once")
	cfg.List, _ = fs.GetBool("list")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", string(DefaultLogLevel))
	v.SetDefault("namespace", "")
	v.SetDefault("pushgateway_url", "")
	v.SetDefault("prometheus.url", "")
	v.SetDefault("prometheus.token", "")
	v.SetDefault("prometheus.instance", "")
	v.SetDefault("prometheus.insecure", false)
	v.SetDefault("graph.dsn", "")
	v.SetDefault("schedule", DefaultSchedule)
	v.SetDefault("listen_address", DefaultListenAddress)
	v.SetDefault("push_job", DefaultPushJob)
	v.SetDefault("pid_dir", os.TempDir())
	v.SetDefault("prometheus.query_timeout", DefaultQueryTimeout)
	v.SetDefault("graph.max_conns", 4)
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", DefaultHistoryPath)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("metrics-exporter", pflag.ContinueOnError)

	fs.String("config", "", "Path to the configuration file")
	fs.String("log-level", string(DefaultLogLevel), "Log level (debug, info, warning, error)")
	fs.Bool("once", false, "Run every job once and exit")
	fs.Bool("list", false, "List registered jobs and exit")
	fs.String("schedule", DefaultSchedule, "Default cron schedule of every job")
	fs.String("listen-address", DefaultListenAddress, "Address serving /metrics and /health")
	fs.String("pushgateway-url", "", "Pushgateway receiving metrics after --once")
	fs.String("prometheus-url", "", "Prometheus API URL")
	fs.String("instance", "", "Prometheus instance label of the workflow series")
	fs.String("namespace", "", "Namespace the workflows run in")
	fs.Duration("query-timeout", DefaultQueryTimeout, "Timeout of a single backend query")
	fs.String("graph-dsn", "", "Knowledge graph database DSN")
	fs.Bool("history", false, "Record job runs in a sqlite database")
	fs.String("history-path", DefaultHistoryPath, "Path of the run history database")
	fs.String("pid-dir", os.TempDir(), "Directory of the pid file")

	return fs
}

var flagKeys = map[string]string{
	"log-level":       "log_level",
	"schedule":        "schedule",
	"listen-address":  "listen_address",
	"pushgateway-url": "pushgateway_url",
	"prometheus-url":  "prometheus.url",
	"instance":        "prometheus.instance",
	"namespace":       "namespace",
	"query-timeout":   "prometheus.query_timeout",
	"graph-dsn":       "graph.dsn",
	"history":         "history.enabled",
	"history-path":    "history.path",
	"pid-dir":         "pid_dir",
}

// bindFlags binds flags to viper keys. Viper only prefers a flag over the
// file and the environment once it was set on the command line.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return errors.New().Wrap(errors.ErrBindFlags, err)
		}
	}
	return nil
}

func bindEnv(v *viper.Viper, prefix string) error {
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		// the prefixed name still wins over the legacy one
		if err := v.BindEnv(key, prefix+"_"+envKey(key), env); err != nil {
			return errors.New().Wrap(errors.ErrBindFlags, err)
		}
	}
	return nil
}

func envKey(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

func configPath(o options, fs *pflag.FlagSet) string {
	if path, _ := fs.GetString("config"); path != "" {
		return path
	}
	if o.configPath != "" {
		return o.configPath
	}
	return os.Getenv(o.envPrefix + "_CONFIG")
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(DefaultConfigName)
	v.AddConfigPath(DefaultConfigDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}
	return nil
}

// Validate checks values and required settings. Backend settings are not
// required when only listing jobs.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !c.LogLevel.IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel.String())
	}
	if c.Prometheus.QueryTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Prometheus.QueryTimeout.String())
	}
	if err := validateSchedule(c.Schedule); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Services))
	for _, svc := range c.Services {
		if svc.Name == "" {
			return errFactory.WithMessage(errors.ErrInvalidConfig, "service name is required")
		}
		if seen[svc.Name] {
			return errFactory.WithData(errors.ErrInvalidConfig, "duplicate service "+svc.Name)
		}
		seen[svc.Name] = true

		if svc.Schedule != "" {
			if err := validateSchedule(svc.Schedule); err != nil {
				return err
			}
		}
	}

	if c.History.Enabled && c.History.Path == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "history.path")
	}

	if c.List {
		return nil
	}

	required := map[string]string{
		"prometheus.url":      c.Prometheus.URL,
		"prometheus.instance": c.Prometheus.Instance,
		"namespace":           c.Namespace,
	}
	if c.NeedsGraph() {
		required["graph.dsn"] = c.Graph.DSN
	}

	var missing []string
	for key, value := range required {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errFactory.WithData(errors.ErrMissingConfig, strings.Join(missing, ", "))
	}

	return nil
}

// NeedsGraph reports whether any service counts knowledge graph records.
func (c *Config) NeedsGraph() bool {
	for _, svc := range c.Services {
		if svc.StackType != "" {
			return true
		}
	}
	return false
}

func validateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return errors.New().Wrap(errors.ErrInvalidSchedule, err)
	}
	return nil
}
