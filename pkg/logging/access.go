package logging

import "time"

// AccessEntry records one forwarded request/response cycle within a
// session, per spec.md §4.5's S2-S4 request/response steps.
type AccessEntry struct {
	SessionID     uint64
	CorrelationID string
	ClientAddr    string
	Backend       string
	Method        string
	Path          string
	StatusCode    int
	Duration      time.Duration
}

// AccessLogger writes one structured line per AccessEntry.
type AccessLogger struct {
	logger *Logger
}

// NewAccessLogger creates a new access logger writing through logger.
func NewAccessLogger(logger *Logger) *AccessLogger {
	return &AccessLogger{logger: logger}
}

// Log records one access entry.
func (al *AccessLogger) Log(entry AccessEntry) {
	if al == nil || al.logger == nil {
		return
	}
	al.logger.Info("access",
		Int64("session_id", int64(entry.SessionID)),
		String("correlation_id", entry.CorrelationID),
		String("client", entry.ClientAddr),
		String("backend", entry.Backend),
		String("method", entry.Method),
		String("path", entry.Path),
		Int("status", entry.StatusCode),
		Duration("duration", entry.Duration),
	)
}
