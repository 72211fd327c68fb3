package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs one upstream HTTP exchange at a level matching its status
func LogRequest(l Logger, method, endpoint string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"endpoint":    endpoint,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("request completed", fields)
	case statusCode == 429:
		l.WarnWithFields("request rate limited", fields)
	case statusCode >= 400 && statusCode < 500:
		l.WarnWithFields("request client error", fields)
	default:
		l.ErrorWithFields("request server error", fields)
	}
}

// LogRateLimit logs a rate-limit backoff
func LogRateLimit(l Logger, endpoint string, wait time.Duration, attempt int) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"wait":     wait.String(),
		"attempt":  attempt,
		"action":   "rate_limited",
	}).Warn("rate limit reached, backing off")
}

// LogScanProgress logs harvest progress for one phase
func LogScanProgress(l Logger, phase string, done, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(done) / float64(total) * 100
	}

	l.WithFields(map[string]interface{}{
		"phase":      phase,
		"done":       done,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("scan progress")
}

// LogUnfollow logs the outcome of one mutation
func LogUnfollow(l Logger, userID, handle string, dryRun bool, err error) {
	entry := l.WithFields(map[string]interface{}{
		"user_id": userID,
		"handle":  handle,
		"dry_run": dryRun,
	})

	if err != nil {
		entry.WithError(err).Warn("unfollow failed")
		return
	}
	entry.Info("unfollowed")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
