package logging

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/activitymap/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger_Assertions(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithRunID(context.Background(), "r1")

	tl.Trace(ctx, "looking at property", zap.String("property", "Date"))
	tl.Warn(ctx, "record skipped", zap.String("record.id", "p1"), zap.Int("line", 3))

	tl.AssertLogged(t, TraceLevel, "looking at property")
	tl.AssertLogged(t, zapcore.WarnLevel, "record skipped")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "record skipped")
	tl.AssertField(t, "record skipped", "record.id", "p1")
	tl.AssertField(t, "record skipped", "line", int64(3))
	tl.AssertField(t, "record skipped", "run.id", "r1")
	assert.Len(t, tl.All(), 2)
}

func TestTestLogger_SecretField(t *testing.T) {
	tl := NewTestLogger()

	tl.Info(context.Background(), "client ready",
		Secret("notion_token", config.Secret("ntn_123")),
		Token("authorization", "Bearer ntn_123"),
		Secret("unset_token", config.Secret("")))

	tl.AssertNoSecrets(t)
	assert.Len(t, tl.FilterMessage("client ready").All(), 1)
}
