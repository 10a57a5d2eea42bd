// Package acceptor implements the listening-socket loop that produces
// client sockets and hands each to the connector, per spec.md §4.6.
// Grounded on the teacher's pkg/proxy/server.go accept loop and
// graceful-shutdown pattern, generalized to the framed-HTTP session
// design. Session dispatch is bounded by a shared pkg/pool.GoroutinePool
// (thread_pool.threads_number, SPEC_FULL.md §11) rather than an
// unbounded goroutine-per-connection fan-out, and drain reuses the same
// pool's CloseWithTimeout rather than a separate coordination mechanism.
package acceptor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/therealutkarshpriyadarshi/balance/pkg/connector"
	"github.com/therealutkarshpriyadarshi/balance/pkg/logging"
	"github.com/therealutkarshpriyadarshi/balance/pkg/pool"
	"github.com/therealutkarshpriyadarshi/balance/pkg/resilience"
)

// IPVersion restricts the listener to IPv4 or IPv6, per spec.md §6.
type IPVersion int

const (
	IPv4 IPVersion = 4
	IPv6 IPVersion = 6
)

// Acceptor binds a TCP listener and loops Accept, submitting each socket
// to Executor for Connector.MakeAndRunSession and immediately re-arming
// accept.
type Acceptor struct {
	Port       int
	IPVersion  IPVersion
	Connector  *connector.Connector
	Executor   *pool.GoroutinePool
	Logger     *logging.Logger
	DrainDelay time.Duration

	listener net.Listener
	cancel   context.CancelFunc

	accepted atomic.Int64
}

// New constructs an Acceptor. Every accepted socket is dispatched
// through executor, which bounds concurrent sessions to
// thread_pool.threads_number (SPEC_FULL.md §11). DrainDelay bounds how
// long Run, once stopped, waits for in-flight sessions before returning
// (spec.md §5 shutdown sequence); Stop itself does not wait.
func New(port int, ipVersion IPVersion, c *connector.Connector, executor *pool.GoroutinePool, logger *logging.Logger, drainDelay time.Duration) (*Acceptor, error) {
	if ipVersion != IPv4 && ipVersion != IPv6 {
		return nil, fmt.Errorf("acceptor: ip_version must be 4 or 6, got %d", ipVersion)
	}
	if drainDelay <= 0 {
		drainDelay = 30 * time.Second
	}
	return &Acceptor{
		Port:       port,
		IPVersion:  ipVersion,
		Connector:  c,
		Executor:   executor,
		Logger:     logger,
		DrainDelay: drainDelay,
	}, nil
}

// Run binds the listener and loops accepting connections until ctx is
// cancelled or Stop is called. It blocks until the listener is closed
// and all in-flight sessions have drained or the drain delay elapses.
func (a *Acceptor) Run(ctx context.Context) error {
	network := "tcp4"
	if a.IPVersion == IPv6 {
		network = "tcp6"
	}

	ln, err := net.Listen(network, net.JoinHostPort("", strconv.Itoa(a.Port)))
	if err != nil {
		return fmt.Errorf("acceptor: listen: %w", err)
	}
	a.listener = ln

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	backoff := resilience.DefaultRetryPolicy()
	attempt := 0
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-runCtx.Done():
				return a.drain()
			default:
			}
			a.logError("accept", err)
			attempt++
			if !sleepBackoff(runCtx, backoff, attempt) {
				return a.drain()
			}
			continue
		}
		attempt = 0

		a.accepted.Add(1)
		sessionConn := conn
		if err := a.Executor.SubmitWithContext(runCtx, func() {
			a.Connector.MakeAndRunSession(runCtx, sessionConn)
		}); err != nil {
			a.logError("submit session", err)
			sessionConn.Close()
		}
	}
}

// sleepBackoff pauses before the next accept retry after a transient
// error, growing the delay per policy's exponential backoff
// (SPEC_FULL.md §11, mirroring net/http.Server's Accept-retry loop).
// Returns false if ctx was cancelled during the wait.
func sleepBackoff(ctx context.Context, policy resilience.RetryPolicy, attempt int) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(resilience.Backoff(attempt, policy)):
		return true
	}
}

// Stop cancels any outstanding accept and closes the listener, per
// spec.md §4.6.
func (a *Acceptor) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.listener != nil {
		a.listener.Close()
	}
}

// drain waits up to DrainDelay for all in-flight sessions to finish,
// per spec.md §5 ("Shutdown cancels the acceptor first ... then the
// executor stops after draining"). Closing Executor here, rather than
// only in runtime.Run, lets Acceptor.Run itself return once every
// session it dispatched has completed or DrainDelay has elapsed;
// Runtime's own Executor.Close is then a no-op second call if the drain
// completed, and otherwise waits for the sessions still running.
func (a *Acceptor) drain() error {
	if a.Executor == nil {
		return nil
	}
	if err := a.Executor.CloseWithTimeout(a.DrainDelay); err != nil {
		if a.Logger != nil {
			a.Logger.Warn("acceptor drain timeout exceeded", logging.Int64("accepted", a.accepted.Load()))
		}
		return nil
	}
	if a.Logger != nil {
		a.Logger.Info("acceptor drained", logging.Int64("accepted", a.accepted.Load()))
	}
	return nil
}

func (a *Acceptor) logError(msg string, err error) {
	if errors.Is(err, net.ErrClosed) {
		return
	}
	if a.Logger != nil {
		a.Logger.Error(msg, logging.Err(err))
	}
}
