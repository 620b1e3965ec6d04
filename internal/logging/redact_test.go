package logging

import (
	"testing"

	"github.com/fyrsmithlabs/vibed/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func redactionTestConfig() RedactionConfig {
	return RedactionConfig{
		Enabled:  true,
		Fields:   []string{"password", "token"},
		Patterns: []string{`(?i)bearer\s+\S+`},
	}
}

func TestNewRedactingEncoder_InvalidPattern(t *testing.T) {
	_, err := NewRedactingEncoder(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		RedactionConfig{Enabled: true, Patterns: []string{"([bad"}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redaction pattern")
}

func TestNewRedactingEncoder_PatternTooLong(t *testing.T) {
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	_, err := NewRedactingEncoder(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		RedactionConfig{Enabled: true, Patterns: []string{string(long)}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long")
}

func TestRedactingEncoder_FieldNames(t *testing.T) {
	enc, err := NewRedactingEncoder(
		zapcore.NewJSONEncoder(encoderTestConfig()),
		redactionTestConfig(),
	)
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "m"}, []zapcore.Field{
		zap.String("password", "hunter2"),
		zap.String("Token", "abc123"),
		zap.String("phase", "design"),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "abc123")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "design")
}

func TestRedactingEncoder_ValuePatterns(t *testing.T) {
	enc, err := NewRedactingEncoder(
		zapcore.NewJSONEncoder(encoderTestConfig()),
		redactionTestConfig(),
	)
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "m"}, []zapcore.Field{
		zap.String("header", "Bearer sekrit-value"),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "sekrit-value")
	assert.Contains(t, out, "[REDACTED:pattern]")
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	enc, err := NewRedactingEncoder(
		zapcore.NewJSONEncoder(encoderTestConfig()),
		RedactionConfig{Enabled: false},
	)
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "m"}, []zapcore.Field{
		zap.String("password", "hunter2"),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hunter2")
}

func TestSecretField(t *testing.T) {
	enc, err := NewRedactingEncoder(
		zapcore.NewJSONEncoder(encoderTestConfig()),
		redactionTestConfig(),
	)
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "m"}, []zapcore.Field{
		Secret("api_key", config.Secret("supersecret")),
		RedactedString("session", "raw-session-value"),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "supersecret")
	assert.NotContains(t, out, "raw-session-value")
	assert.Contains(t, out, "[REDACTED:11]")
}

func encoderTestConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = ""
	return cfg
}
