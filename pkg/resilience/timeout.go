package resilience

import (
	"sync/atomic"
	"time"
)

// TimeoutConfig configures the connect/read/write deadlines a Connector
// and Session apply to every socket operation (SPEC_FULL.md §11).
type TimeoutConfig struct {
	// ConnectTimeout bounds dialing a backend.
	ConnectTimeout time.Duration

	// ReadTimeout bounds reading a framed request or response off either socket.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing a framed request or response to either socket.
	WriteTimeout time.Duration
}

// DefaultTimeoutConfig returns the timeout configuration runtime.New
// applies; the config document has no timeout keys to override it.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
	}
}

// TimeoutManager holds the active TimeoutConfig and counts how often each
// deadline actually fires, surfaced via the admin server's /status
// endpoint (pkg/admin).
type TimeoutManager struct {
	config TimeoutConfig

	totalTimeouts   atomic.Uint64
	connectTimeouts atomic.Uint64
	readTimeouts    atomic.Uint64
	writeTimeouts   atomic.Uint64
}

// NewTimeoutManager creates a new timeout manager.
func NewTimeoutManager(config TimeoutConfig) *TimeoutManager {
	return &TimeoutManager{config: config}
}

// RecordConnectTimeout records a connect deadline firing, called from
// pkg/connector.classifyConnectError.
func (tm *TimeoutManager) RecordConnectTimeout() {
	tm.connectTimeouts.Add(1)
	tm.totalTimeouts.Add(1)
}

// RecordReadTimeout records a read deadline firing, called from
// pkg/session when a socket read fails with a net.Error.Timeout().
func (tm *TimeoutManager) RecordReadTimeout() {
	tm.readTimeouts.Add(1)
	tm.totalTimeouts.Add(1)
}

// RecordWriteTimeout records a write deadline firing, called from
// pkg/session when a socket write fails with a net.Error.Timeout().
func (tm *TimeoutManager) RecordWriteTimeout() {
	tm.writeTimeouts.Add(1)
	tm.totalTimeouts.Add(1)
}

// GetMetrics returns a snapshot of timeout counters.
func (tm *TimeoutManager) GetMetrics() TimeoutMetrics {
	return TimeoutMetrics{
		TotalTimeouts:   tm.totalTimeouts.Load(),
		ConnectTimeouts: tm.connectTimeouts.Load(),
		ReadTimeouts:    tm.readTimeouts.Load(),
		WriteTimeouts:   tm.writeTimeouts.Load(),
	}
}

// TimeoutMetrics is a snapshot of TimeoutManager's counters.
type TimeoutMetrics struct {
	TotalTimeouts   uint64
	ConnectTimeouts uint64
	ReadTimeouts    uint64
	WriteTimeouts   uint64
}

// GetConfig returns the active timeout configuration.
func (tm *TimeoutManager) GetConfig() TimeoutConfig {
	return tm.config
}
