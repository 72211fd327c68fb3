// Package logger provides the structured logging interface used across
// followscope. It wraps zerolog and adds field-map helpers so components can
// log without importing zerolog directly.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("phase", "collecting-ids").Info("scan started")
//	log.WarnWithFields("rate limit reached", map[string]interface{}{"endpoint": ep})
//
// Tests use NewNopLogger to discard output or NewTestLogger to assert on
// captured messages.
package logger
