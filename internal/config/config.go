package config

import (
	"fmt"
	"net"
	"time"
)

// Config is the daemon configuration, assembled from defaults, an
// optional YAML file, and VIBED_-prefixed environment variables.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	State       StateConfig       `koanf:"state"`
	Workflows   WorkflowsConfig   `koanf:"workflows"`
	TaskBackend TaskBackendConfig `koanf:"taskbackend"`
	Plugins     PluginsConfig     `koanf:"plugins"`
}

// ServerConfig controls the optional health/metrics HTTP sidecar.
// The MCP transport itself is stdio and needs no listener.
type ServerConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Addr            string   `koanf:"addr"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig carries the file-configurable subset of logging
// options. The cmd layer maps it onto the logging package's full config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// TelemetryConfig carries the file-configurable subset of telemetry
// options, bridged to the telemetry package at startup.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
	Protocol string `koanf:"protocol"`
	Insecure bool   `koanf:"insecure"`
}

// StateConfig locates persisted conversation state.
type StateConfig struct {
	Dir string `koanf:"dir"`
}

// WorkflowsConfig adds extra workflow definition search directories on
// top of the project-local override dir and the built-in catalog.
type WorkflowsConfig struct {
	Dirs []string `koanf:"dirs"`
}

// TaskBackendConfig selects and tunes the task-tracking backend probe.
type TaskBackendConfig struct {
	Backend        string   `koanf:"backend"`
	TrackerCommand string   `koanf:"tracker_command"`
	ProbeTimeout   Duration `koanf:"probe_timeout"`
	ProbeInterval  Duration `koanf:"probe_interval"`
}

// PluginsConfig locates the project plugin manifest and bounds hook
// subprocess execution.
type PluginsConfig struct {
	Manifest    string   `koanf:"manifest"`
	HookTimeout Duration `koanf:"hook_timeout"`
}

// Task backend kinds accepted by TaskBackendConfig.Backend.
const (
	BackendPlan    = "plan"
	BackendTracker = "tracker"
)

// applyDefaults fills zero values with production defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:9180"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}

	if cfg.TaskBackend.Backend == "" {
		cfg.TaskBackend.Backend = BackendPlan
	}
	if cfg.TaskBackend.TrackerCommand == "" {
		cfg.TaskBackend.TrackerCommand = "backlog"
	}
	if cfg.TaskBackend.ProbeTimeout == 0 {
		cfg.TaskBackend.ProbeTimeout = Duration(3 * time.Second)
	}
	if cfg.TaskBackend.ProbeInterval == 0 {
		cfg.TaskBackend.ProbeInterval = Duration(30 * time.Second)
	}

	if cfg.Plugins.Manifest == "" {
		cfg.Plugins.Manifest = ".vibed/plugins.toml"
	}
	if cfg.Plugins.HookTimeout == 0 {
		cfg.Plugins.HookTimeout = Duration(5 * time.Second)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Enabled {
		if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
			return fmt.Errorf("server.addr %q is not host:port: %w", c.Server.Addr, err)
		}
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
		}
		switch c.Telemetry.Protocol {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", c.Telemetry.Protocol)
		}
	}

	switch c.TaskBackend.Backend {
	case BackendPlan, BackendTracker:
	default:
		return fmt.Errorf("taskbackend.backend must be %q or %q, got %q",
			BackendPlan, BackendTracker, c.TaskBackend.Backend)
	}
	if c.TaskBackend.Backend == BackendTracker && c.TaskBackend.TrackerCommand == "" {
		return fmt.Errorf("taskbackend.tracker_command is required for the tracker backend")
	}
	if c.TaskBackend.ProbeTimeout.Duration() <= 0 {
		return fmt.Errorf("taskbackend.probe_timeout must be positive")
	}
	if c.TaskBackend.ProbeInterval.Duration() <= 0 {
		return fmt.Errorf("taskbackend.probe_interval must be positive")
	}

	if c.Plugins.HookTimeout.Duration() <= 0 {
		return fmt.Errorf("plugins.hook_timeout must be positive")
	}

	return nil
}
