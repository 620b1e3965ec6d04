package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger_Observation(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Info(ctx, "hello", zap.String("phase", "design"))
	tl.Warn(ctx, "careful")

	assert.Len(t, tl.All(), 2)
	tl.AssertLogged(t, zapcore.InfoLevel, "hello")
	tl.AssertLogged(t, zapcore.WarnLevel, "careful")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "hello")
	tl.AssertField(t, "hello", "phase", "design")

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestTestLogger_AssertNoSecrets(t *testing.T) {
	tl := NewTestLogger()

	tl.Info(context.Background(), "clean entry",
		zap.String("workflow", "waterfall"),
		RedactedString("token", "raw-token"),
	)

	tl.AssertNoSecrets(t)
}
