package logging

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/vibed/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampledTestLogger(cfg SamplingConfig) (*zap.Logger, *observer.ObservedLogs) {
	base, observed := observer.New(TraceLevel)
	return zap.New(newSampledCore(base, cfg)), observed
}

func TestSampling_Disabled(t *testing.T) {
	logger, observed := sampledTestLogger(SamplingConfig{Enabled: false})

	for i := 0; i < 50; i++ {
		logger.Info("flood")
	}
	assert.Equal(t, 50, observed.Len())
}

func TestSampling_ErrorsNeverDropped(t *testing.T) {
	cfg := SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Second),
		Levels: map[zapcore.Level]LevelSamplingConfig{
			zapcore.InfoLevel: {Initial: 1, Thereafter: 0},
		},
	}
	logger, observed := sampledTestLogger(cfg)

	for i := 0; i < 30; i++ {
		logger.Error("boom")
	}
	assert.Equal(t, 30, observed.FilterMessage("boom").Len())
}

func TestSampling_CapsRepeatedInfo(t *testing.T) {
	cfg := SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels: map[zapcore.Level]LevelSamplingConfig{
			zapcore.InfoLevel: {Initial: 5, Thereafter: 0},
		},
	}
	logger, observed := sampledTestLogger(cfg)

	for i := 0; i < 100; i++ {
		logger.Info("repeated")
	}
	assert.Equal(t, 5, observed.FilterMessage("repeated").Len())
}

func TestSampling_UnconfiguredLevelPassesThrough(t *testing.T) {
	cfg := SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Second),
		Levels: map[zapcore.Level]LevelSamplingConfig{
			zapcore.InfoLevel: {Initial: 1, Thereafter: 0},
		},
	}
	logger, observed := sampledTestLogger(cfg)

	for i := 0; i < 20; i++ {
		logger.Warn("warned")
	}
	assert.Equal(t, 20, observed.FilterMessage("warned").Len())
}

func TestSampling_ChildLoggerKeepsBand(t *testing.T) {
	cfg := SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels: map[zapcore.Level]LevelSamplingConfig{
			zapcore.InfoLevel: {Initial: 2, Thereafter: 0},
		},
	}
	logger, observed := sampledTestLogger(cfg)
	child := logger.With(zap.String("component", "engine"))

	for i := 0; i < 10; i++ {
		child.Info("child flood")
	}
	assert.Equal(t, 2, observed.FilterMessage("child flood").Len())

	child.Error("child error")
	assert.Equal(t, 1, observed.FilterMessage("child error").Len())
}
