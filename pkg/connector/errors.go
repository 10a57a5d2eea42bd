package connector

import (
	"errors"
	"syscall"
)

// isConnectionRefused reports whether err ultimately wraps ECONNREFUSED,
// the signal original_source/src/lb/tcp/connector.cpp retries on.
func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
