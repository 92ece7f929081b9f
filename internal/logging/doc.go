// Package logging provides structured logging for activitymap runs.
//
// # Overview
//
// Logger wraps Zap with:
//   - Context-first methods that attach correlation fields (trace_id, run.id, pipeline)
//   - A custom Trace level (-2, below Debug)
//   - Encoder-level redaction of tokens and authorization headers
//
// # Usage
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.Info(ctx, "heatmap written", zap.String("path", path))
//
// Logs go to stderr by default so command output on stdout stays clean.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Warn(ctx, "record skipped", zap.String("record.id", "p1"))
//	tl.AssertLogged(t, zapcore.WarnLevel, "record skipped")
//	tl.AssertField(t, "record skipped", "record.id", "p1")
package logging
