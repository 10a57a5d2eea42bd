// Package connector converts an accepted client socket into a running
// session: it asks the selector for a backend, resolves/connects to it,
// retries on connection refusal by excluding the backend and recursing,
// and on success builds a Session wired to the selector's lifecycle
// callbacks. Grounded on
// original_source/src/lb/tcp/connector.hpp/.cpp's MakeAndRunSession
// (SPEC_FULL.md §12).
package connector

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/therealutkarshpriyadarshi/balance/pkg/backend"
	"github.com/therealutkarshpriyadarshi/balance/pkg/lb"
	"github.com/therealutkarshpriyadarshi/balance/pkg/logging"
	"github.com/therealutkarshpriyadarshi/balance/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/balance/pkg/optimize"
	"github.com/therealutkarshpriyadarshi/balance/pkg/resilience"
	"github.com/therealutkarshpriyadarshi/balance/pkg/session"
	"github.com/therealutkarshpriyadarshi/balance/pkg/tracing"
)

// clientHostInterner dedupes the client-IP strings selectors hash or
// compare on every accepted connection; under a shared NAT or load test
// the same handful of strings recur across most sessions.
var clientHostInterner = optimize.NewStringInterner(4096)

// ErrOtherConnect wraps any connect failure that is not a refusal —
// these terminate the attempt rather than retrying (spec.md §7).
var ErrOtherConnect = errors.New("connector: connect failed")

// Connector holds the selector every accepted client socket is routed
// through, plus the resilience.TimeoutManager supplying its connect
// dial deadline and the per-operation read/write deadlines handed to
// every Session it builds (SPEC_FULL.md §11).
type Connector struct {
	Selector lb.Selector
	Timeouts *resilience.TimeoutManager
	Logger   *logging.Logger
	Tracer   *tracing.Tracer
	dialer   net.Dialer

	// resolve coalesces concurrent LookupHost calls for the same URL
	// backend hostname: a burst of sessions connecting to the same
	// backend at once shares one resolver round trip instead of firing
	// one per session.
	resolve singleflight.Group
}

// New constructs a Connector over sel using timeouts for its connect,
// read, and write deadlines. A nil timeouts disables all deadlines.
func New(sel lb.Selector, timeouts *resilience.TimeoutManager, logger *logging.Logger) *Connector {
	c := &Connector{
		Selector: sel,
		Timeouts: timeouts,
		Logger:   logger,
	}
	if timeouts != nil {
		c.dialer = net.Dialer{Timeout: timeouts.GetConfig().ConnectTimeout}
	}
	return c
}

// MakeAndRunSession selects a backend for clientConn's remote endpoint,
// connects to it (resolving first if it's a URL backend), retrying on
// ConnectionRefused by excluding the backend and recursing, and on
// success runs the resulting Session to completion. The caller's
// goroutine pool slot stays occupied until that session ends.
func (c *Connector) MakeAndRunSession(ctx context.Context, clientConn net.Conn) {
	clientIP, clientPort := splitHostPort(clientConn.RemoteAddr())

	b, err := c.Selector.SelectBackend(clientIP, clientPort)
	if err != nil {
		c.logError("select backend", err)
		clientConn.Close()
		return
	}

	var connectSpan trace.Span
	if c.Tracer != nil {
		ctx, connectSpan = c.Tracer.StartProxySpan(ctx, b.String(), "connect")
	}
	backendConn, err := c.connect(ctx, b)
	if connectSpan != nil {
		if err != nil {
			tracing.RecordError(connectSpan, err)
		}
		connectSpan.End()
	}
	if err != nil {
		if errors.Is(err, ErrOtherConnect) {
			clientConn.Close()
			return
		}
		// ConnectionRefused: exclude and recurse with the same client
		// socket, per spec.md §4.4 step 2/3.
		if excErr := c.Selector.ExcludeBackend(b); excErr != nil {
			c.logError("exclude backend after refusal", excErr)
			clientConn.Close()
			return
		}
		metrics.SetBackendExcluded(b.String(), true)
		c.MakeAndRunSession(ctx, clientConn)
		return
	}

	visitor := c.Selector.NewVisitor(b)
	sess := session.New(clientConn, backendConn, visitor, c.Logger)
	sess.SetTimeouts(c.Timeouts)
	if c.Tracer != nil {
		sess.SetTracer(c.Tracer)
	}
	sess.Run(ctx)
}

// connect dials b. IP-endpoint backends connect directly; a refusal is
// returned as retryable and MakeAndRunSession does the retry. URL backends are DNS-resolved first: a refusal from
// resolution itself is retryable, but once resolution succeeds each
// returned address is tried in order with no retry on any individual
// address's failure, refusal included (spec.md §4.4 steps 2-3;
// original_source/src/lb/tcp/connector.cpp).
func (c *Connector) connect(ctx context.Context, b backend.Backend) (net.Conn, error) {
	if b.IsEndpoint() {
		ip, port := b.Endpoint()
		conn, err := c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, portString(port)))
		if err != nil {
			return nil, c.classifyConnectError(err)
		}
		return conn, nil
	}

	u := b.URL()
	var resolveSpan trace.Span
	if c.Tracer != nil {
		ctx, resolveSpan = c.Tracer.StartProxySpan(ctx, b.String(), "resolve")
	}
	addrsVal, err, _ := c.resolve.Do(u.Hostname, func() (interface{}, error) {
		return net.DefaultResolver.LookupHost(ctx, u.Hostname)
	})
	var addrs []string
	if err == nil {
		addrs = addrsVal.([]string)
	}
	if resolveSpan != nil {
		if err != nil {
			tracing.RecordError(resolveSpan, err)
		}
		resolveSpan.End()
	}
	if err != nil {
		// Only the resolver's own refusal is retryable, matching
		// original_source/src/lb/tcp/connector.cpp: async_resolve's
		// error callback excludes+recurses on connection_refused;
		// every other resolve error terminates the attempt.
		if isConnectionRefused(err) {
			return nil, fmt.Errorf("%w: resolve %s: %v", errConnectionRefused, u.Hostname, err)
		}
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrOtherConnect, u.Hostname, err)
	}

	// async_connect over the resolved address sequence never excludes
	// or recurses on any per-address error, refusal included — it just
	// tries the next address, then drops the session once the list is
	// exhausted.
	var lastErr error
	for _, addr := range addrs {
		conn, err := c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, portString(u.Port)))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, fmt.Errorf("%w: no addresses for %s", ErrOtherConnect, u.Hostname)
	}
	return nil, fmt.Errorf("%w: %v", ErrOtherConnect, lastErr)
}

// errConnectionRefused is the sentinel classifyConnectError wraps actual
// refusals in, distinguishing them from ErrOtherConnect.
var errConnectionRefused = errors.New("connector: connection refused")

func (c *Connector) classifyConnectError(err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if sysErr, ok := opErr.Err.(interface{ Timeout() bool }); ok && sysErr.Timeout() {
			if c.Timeouts != nil {
				c.Timeouts.RecordConnectTimeout()
			}
			return fmt.Errorf("%w: %v", ErrOtherConnect, err)
		}
	}
	if isConnectionRefused(err) {
		return fmt.Errorf("%w: %v", errConnectionRefused, err)
	}
	return fmt.Errorf("%w: %v", ErrOtherConnect, err)
}

func (c *Connector) logError(msg string, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Error(msg, logging.Err(err))
}

func splitHostPort(addr net.Addr) (string, int) {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return clientHostInterner.Intern(addr.String()), 0
	}
	port := 0
	fmt.Sscanf(portStr, "%d", &port)
	return clientHostInterner.Intern(host), port
}

func portString(p int) string {
	return fmt.Sprintf("%d", p)
}
