package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResource(t *testing.T) {
	cfg := NewDefaultConfig()

	res, err := newResource(cfg)
	require.NoError(t, err)
	require.NotNil(t, res)

	var foundName, foundVersion bool
	for _, attr := range res.Attributes() {
		switch string(attr.Key) {
		case "service.name":
			assert.Equal(t, cfg.ServiceName, attr.Value.AsString())
			foundName = true
		case "service.version":
			assert.Equal(t, cfg.ServiceVersion, attr.Value.AsString())
			foundVersion = true
		}
	}
	assert.True(t, foundName, "service.name attribute not found")
	assert.True(t, foundVersion, "service.version attribute not found")
}

func TestNewMeterProvider_MetricsDisabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Metrics.Enabled = false

	res, err := newResource(cfg)
	require.NoError(t, err)

	mp, err := newMeterProvider(context.Background(), cfg, res)
	require.NoError(t, err)
	assert.Nil(t, mp)
}

func TestStripScheme(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost:4318", "localhost:4318"},
		{"http://localhost:4318", "localhost:4318"},
		{"https://collector.example.com:4318", "collector.example.com:4318"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripScheme(tt.in))
	}
}
