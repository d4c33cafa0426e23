// Package logging provides a minimal logging interface and adapters for triage.
//
// The Logger interface defines the logging methods (Debug, Info, Warn, Error)
// that the group chat, agents, strategies and capabilities use. This package
// includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping an existing *slog.Logger
//   - StructuredLogger with component/session context and domain helpers
//   - NoOpLogger for silent operation (tests, library use)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	chat, err := groupchat.New(session, roles, agents, sel, term, func(o *groupchat.Options) {
//		o.Logger = logger
//	})
//
// Event names are dotted (chat.turn.start, tool.call.success) and extra data
// is passed as slog style key/value pairs.
package logging
