package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/vibed/internal/config"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.False(t, cfg.Enabled) // Disabled by default for users without an OTEL collector
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.Equal(t, "vibed", cfg.ServiceName)
	assert.Equal(t, "0.1.0", cfg.ServiceVersion)
	assert.True(t, cfg.Insecure) // Insecure by default for local dev
	assert.Equal(t, 1.0, cfg.Sampling.Rate)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Metrics.ExportInterval.Duration())
	assert.Equal(t, 5*time.Second, cfg.Shutdown.Timeout.Duration())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default config",
			mutate: func(c *Config) { c.Enabled = true },
		},
		{
			name: "disabled config skips validation",
			mutate: func(c *Config) {
				c.Enabled = false
				c.Endpoint = ""
				c.ServiceName = ""
			},
		},
		{
			name: "missing endpoint",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = ""
			},
			wantErr: "endpoint is required",
		},
		{
			name: "unknown protocol",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Protocol = "thrift"
			},
			wantErr: "protocol must be grpc or http",
		},
		{
			name: "http protocol accepted",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Protocol = "http"
			},
		},
		{
			name: "missing service name",
			mutate: func(c *Config) {
				c.Enabled = true
				c.ServiceName = ""
			},
			wantErr: "service_name is required",
		},
		{
			name: "missing service version",
			mutate: func(c *Config) {
				c.Enabled = true
				c.ServiceVersion = ""
			},
			wantErr: "service_version is required",
		},
		{
			name: "insecure remote endpoint rejected",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = "collector.example.com:4317"
			},
			wantErr: "insecure connections to remote endpoints are not allowed",
		},
		{
			name: "secure remote endpoint allowed",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = "collector.example.com:4317"
				c.Insecure = false
			},
		},
		{
			name: "insecure loopback IP allowed",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = "127.0.0.1:4317"
			},
		},
		{
			name: "insecure IPv6 loopback allowed",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = "[::1]:4317"
			},
		},
		{
			name: "sampling rate below zero",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Sampling.Rate = -0.1
			},
			wantErr: "sampling.rate must be between 0 and 1",
		},
		{
			name: "sampling rate above one",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Sampling.Rate = 1.5
			},
			wantErr: "sampling.rate must be between 0 and 1",
		},
		{
			name: "zero metrics interval",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Metrics.ExportInterval = config.Duration(0)
			},
			wantErr: "metrics.export_interval must be positive",
		},
		{
			name: "metrics disabled skips interval check",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Metrics.Enabled = false
				c.Metrics.ExportInterval = config.Duration(0)
			},
		},
		{
			name: "zero shutdown timeout",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Shutdown.Timeout = config.Duration(0)
			},
			wantErr: "shutdown.timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_isLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"localhost:4317", true},
		{"localhost:4318", true},
		{"127.0.0.1:4317", true},
		{"127.0.0.53:4317", true},
		{"[::1]:4317", true},
		{"::1", true},
		{"collector.example.com:4317", false},
		{"10.0.0.5:4317", false},
		{"otel.internal:4318", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cfg := &Config{Endpoint: tt.endpoint}
			assert.Equal(t, tt.want, cfg.isLocalEndpoint())
		})
	}
}
