// Package config loads and validates the YAML configuration document
// described in spec.md §6, reshaping the teacher's Load/setDefaults/
// Validate idiom (gopkg.in/yaml.v3) onto that schema.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/therealutkarshpriyadarshi/balance/pkg/lb"
	"github.com/therealutkarshpriyadarshi/balance/pkg/logging"
	"github.com/therealutkarshpriyadarshi/balance/pkg/tracing"
)

// DefaultConfigPath is used when neither --config nor LB_CONFIG names a
// path (spec.md §6 Environment).
const DefaultConfigPath = "lb.yaml"

// EnvOverrideVar is the environment variable the CLI and test harness
// use to override the default config path.
const EnvOverrideVar = "LB_CONFIG"

// Config is the top-level document: acceptor, thread_pool, logging,
// load_balancing (spec.md §6).
type Config struct {
	Acceptor      AcceptorConfig   `yaml:"acceptor"`
	ThreadPool    ThreadPoolConfig `yaml:"thread_pool"`
	Logging       LoggingConfig    `yaml:"logging"`
	LoadBalancing lb.Config        `yaml:"load_balancing"`
	Tracing       TracingConfig    `yaml:"tracing,omitempty"`
	Admin         AdminConfig      `yaml:"admin,omitempty"`
}

// AdminConfig is another addition over spec.md §6's schema (SPEC_FULL.md
// §11): an optional admin HTTP server exposing /health, /status,
// /version, and the prometheus /metrics endpoint (pkg/admin). Disabled
// unless listen is set.
type AdminConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// TracingConfig is an addition over spec.md §6's schema (SPEC_FULL.md
// §11): optional OpenTelemetry/Jaeger export, disabled unless enabled
// is set. Not one of spec.md's named blocks, so it is entirely
// additive — omitting it from a config document changes nothing.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled,omitempty"`
	ServiceName string  `yaml:"service_name,omitempty"`
	Endpoint    string  `yaml:"endpoint,omitempty"`
	SampleRate  float64 `yaml:"sample_rate,omitempty"`
}

// AcceptorConfig is the acceptor block.
type AcceptorConfig struct {
	Port      int  `yaml:"port"`
	IPVersion *int `yaml:"ip_version"`
}

// ThreadPoolConfig is the thread_pool block. ThreadsNumber is a string
// so it can hold either "auto" or a literal count, per spec.md §6.
type ThreadPoolConfig struct {
	ThreadsNumber string `yaml:"threads_number"`
}

// LoggingConfig is the logging block.
type LoggingConfig struct {
	Console ConsoleLogConfig `yaml:"console"`
	File    *FileLogConfig   `yaml:"file,omitempty"`
}

// ConsoleLogConfig is logging.console.
type ConsoleLogConfig struct {
	Level   string `yaml:"level"`
	Pattern string `yaml:"pattern,omitempty"`
}

// FileLogConfig is logging.file.
type FileLogConfig struct {
	Level    string `yaml:"level"`
	Name     string `yaml:"name,omitempty"`
	Truncate bool   `yaml:"truncate,omitempty"`
	Pattern  string `yaml:"pattern,omitempty"`
}

// Load reads and parses the YAML document at path, applies defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return &cfg, nil
}

// ResolvePath returns the config path the CLI should load: the explicit
// flag value if non-empty, else LB_CONFIG if set, else DefaultConfigPath
// (spec.md §6 Environment/CLI).
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvOverrideVar); env != "" {
		return env
	}
	return DefaultConfigPath
}

func (c *Config) setDefaults() {
	if c.ThreadPool.ThreadsNumber == "" {
		c.ThreadPool.ThreadsNumber = "auto"
	}
	if c.Logging.Console.Level == "" {
		c.Logging.Console.Level = "info"
	}
	if c.Logging.File != nil && c.Logging.File.Level == "" {
		c.Logging.File.Level = "info"
	}
	if c.Tracing.Enabled {
		if c.Tracing.ServiceName == "" {
			c.Tracing.ServiceName = "lb"
		}
		if c.Tracing.SampleRate == 0 {
			c.Tracing.SampleRate = 1.0
		}
	}
}

// Validate checks the acceptor ip_version bug fix from spec.md's Open
// Question (§9): ip_version is read when defined, defaults to 4
// otherwise, and any other value is rejected — the original's
// `if (!acceptor_node["ip_version"].IsDefined())` guard being the thing
// this corrects.
func (c *Config) Validate() error {
	if c.Acceptor.Port <= 0 || c.Acceptor.Port > 65535 {
		return fmt.Errorf("acceptor.port must be in 1..65535, got %d", c.Acceptor.Port)
	}
	if c.Acceptor.IPVersion != nil {
		v := *c.Acceptor.IPVersion
		if v != 4 && v != 6 {
			return fmt.Errorf("acceptor.ip_version must be 4 or 6, got %d", v)
		}
	}

	if _, err := ThreadCount(c.ThreadPool.ThreadsNumber); err != nil {
		return fmt.Errorf("thread_pool: %w", err)
	}

	if _, err := logging.ParseLevel(c.Logging.Console.Level); err != nil {
		return fmt.Errorf("logging.console: %w", err)
	}
	if c.Logging.File != nil {
		if _, err := logging.ParseLevel(c.Logging.File.Level); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}

	if len(c.LoadBalancing.Endpoints) == 0 {
		return fmt.Errorf("load_balancing.endpoints must be non-empty")
	}
	// Building the selector applies its per-algorithm rules (algorithm
	// known, replicas for consistent_hash, weight only where allowed,
	// endpoint URLs parseable) at load time.
	if _, err := lb.DetectSelector(c.LoadBalancing); err != nil {
		return fmt.Errorf("load_balancing: %w", err)
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing.enabled is true")
	}

	return nil
}

// IPVersionOrDefault resolves the acceptor ip_version, applying the
// Open Question #2 fix (default 4 when unset).
func (c *Config) IPVersionOrDefault() int {
	if c.Acceptor.IPVersion == nil {
		return 4
	}
	return *c.Acceptor.IPVersion
}

// ThreadCount parses thread_pool.threads_number, mapping "auto" onto
// runtime.NumCPU().
func ThreadCount(s string) (int, error) {
	if s == "" || s == "auto" {
		return runtime.NumCPU(), nil
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("threads_number must be \"auto\" or a positive integer, got %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("threads_number must be positive, got %d", n)
	}
	return n, nil
}

// ToLoggingConfig converts the parsed block into logging.Config for
// logging.NewFromConfig.
func (l LoggingConfig) ToLoggingConfig() logging.Config {
	cfg := logging.Config{
		Console: logging.ConsoleConfig{
			Level:   l.Console.Level,
			Pattern: l.Console.Pattern,
		},
	}
	if l.File != nil {
		cfg.File = &logging.FileConfig{
			Level:    l.File.Level,
			Name:     l.File.Name,
			Truncate: l.File.Truncate,
			Pattern:  l.File.Pattern,
		}
	}
	return cfg
}

// ToTracingConfig converts the parsed block into tracing.Config for
// tracing.NewTracer.
func (t TracingConfig) ToTracingConfig() tracing.Config {
	return tracing.Config{
		Enabled:     t.Enabled,
		ServiceName: t.ServiceName,
		Endpoint:    t.Endpoint,
		SampleRate:  t.SampleRate,
	}
}
