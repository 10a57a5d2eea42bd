// Package session implements the per-connection HTTP forwarding state
// machine, per spec.md §4.5: a single linear cycle
// (S0 idle -> S1 read-request -> S2 forward-request -> S3 read-response
// -> S4 forward-response -> S1), firing selector lifecycle callbacks at
// each transition. This specification mandates the serial variant; the
// original C++ implementation runs both directions in parallel
// (SPEC_FULL.md §9 Design Notes).
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/therealutkarshpriyadarshi/balance/pkg/lb"
	"github.com/therealutkarshpriyadarshi/balance/pkg/logging"
	"github.com/therealutkarshpriyadarshi/balance/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/balance/pkg/pool"
	"github.com/therealutkarshpriyadarshi/balance/pkg/resilience"
	"github.com/therealutkarshpriyadarshi/balance/pkg/tracing"
)

var nextID atomic.Uint64

// generateID returns a process-wide monotonically increasing session ID,
// grounded on original_source/src/lb/tcp/session.cpp's generateId.
func generateID() uint64 {
	return nextID.Add(1)
}

// Session owns exactly two sockets for its entire lifetime (spec.md §3
// invariant) and the framed-HTTP buffers used to read/write them.
type Session struct {
	ID            uint64
	CorrelationID string

	client  net.Conn
	backend net.Conn

	clientReader  *bufio.Reader
	backendReader *bufio.Reader

	visitor lb.Visitor
	logger  *logging.Logger
	access  *logging.AccessLogger
	tracer  *tracing.Tracer

	readTimeout  time.Duration
	writeTimeout time.Duration
	timeouts     *resilience.TimeoutManager

	closeOnce int32
}

// SetTracer attaches the tracer used to open the session's top-level
// span and the per-cycle request/response child spans (SPEC_FULL.md
// §11). Nil disables tracing.
func (s *Session) SetTracer(t *tracing.Tracer) {
	s.tracer = t
}

// SetTimeouts configures the per-operation read/write deadlines applied
// to every socket read/write from tm's config, and reports which
// deadline actually fired back to tm (SPEC_FULL.md §11). Nil disables
// deadlines and timeout reporting.
func (s *Session) SetTimeouts(tm *resilience.TimeoutManager) {
	s.timeouts = tm
	if tm == nil {
		return
	}
	cfg := tm.GetConfig()
	s.readTimeout = cfg.ReadTimeout
	s.writeTimeout = cfg.WriteTimeout
}

// New constructs a Session over an already-connected client and backend
// socket pair, wiring visitor as the selector feedback callback bundle
// (may be nil, in which case lb.NullVisitor{} is used).
func New(client, backend net.Conn, visitor lb.Visitor, logger *logging.Logger) *Session {
	if visitor == nil {
		visitor = lb.NullVisitor{}
	}
	return &Session{
		ID:            generateID(),
		CorrelationID: uuid.NewString(),
		client:        client,
		backend:       backend,
		clientReader:  bufio.NewReaderSize(client, pool.SessionBufferSize),
		backendReader: bufio.NewReaderSize(backend, pool.SessionBufferSize),
		visitor:       visitor,
		logger:        logger,
		access:        logging.NewAccessLogger(logger),
	}
}

// Run drives the session through S0->S1->S2->S3->S4->S1 until a terminal
// error or EOF, then tears down (spec.md §4.5).
func (s *Session) Run(ctx context.Context) {
	s.visitor.OnConnect()
	defer s.cancel()

	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.StartSessionSpan(ctx, s.ID, s.CorrelationID, s.client.RemoteAddr().String())
		defer span.End()
	}

	for {
		if err := ctx.Err(); err != nil {
			s.logTeardown(err)
			return
		}

		cycleStart := time.Now()
		req, err := s.readRequest()
		if err != nil {
			s.logTeardown(err)
			return
		}
		s.visitor.OnRequestReceive()

		_, reqSpan := s.startHTTPSpan(ctx, "forward-request", req.Method, req.URL.Path)
		err = s.forwardRequest(req)
		s.endHTTPSpan(reqSpan, err, 0)
		if err != nil {
			s.logTeardown(err)
			return
		}
		s.visitor.OnRequestSent()

		start := time.Now()
		resp, err := s.readResponse(req)
		if err != nil {
			s.logTeardown(err)
			return
		}
		latency := time.Since(start)
		s.visitor.OnResponseReceive(latency.Nanoseconds())

		statusCode := resp.StatusCode
		_, respSpan := s.startHTTPSpan(ctx, "forward-response", req.Method, req.URL.Path)
		err = s.forwardResponse(resp)
		s.endHTTPSpan(respSpan, err, statusCode)
		if err != nil {
			s.logTeardown(err)
			return
		}
		s.visitor.OnResponseSent()

		duration := time.Since(cycleStart)
		backendAddr := s.backend.RemoteAddr().String()

		s.access.Log(logging.AccessEntry{
			SessionID:     s.ID,
			CorrelationID: s.CorrelationID,
			ClientAddr:    s.client.RemoteAddr().String(),
			Backend:       backendAddr,
			Method:        req.Method,
			Path:          req.URL.Path,
			StatusCode:    statusCode,
			Duration:      duration,
		})
		metrics.RecordRequest(backendAddr, req.Method, strconv.Itoa(statusCode), duration)
		if statusCode >= 500 {
			metrics.RecordRequestError(backendAddr, "server_error")
		}
	}
}

// startHTTPSpan opens a child span for one forward-request/forward-
// response leg, a no-op returning ctx/nil when tracing is disabled.
func (s *Session) startHTTPSpan(ctx context.Context, name, method, path string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, nil
	}
	return s.tracer.StartHTTPSpan(ctx, name, method, path)
}

// endHTTPSpan closes span (a no-op if nil), recording err and
// statusCode the way tracing.EndHTTPSpan does.
func (s *Session) endHTTPSpan(span trace.Span, err error, statusCode int) {
	if span == nil {
		return
	}
	if err != nil {
		tracing.RecordError(span, err)
		span.End()
		return
	}
	tracing.EndHTTPSpan(span, statusCode)
}

// readRequest performs S0/S1->S2: read a framed HTTP/1.1 request from
// the client stream.
func (s *Session) readRequest() (*http.Request, error) {
	s.setDeadline(s.client, s.readTimeout)
	req, err := http.ReadRequest(s.clientReader)
	if err != nil {
		s.recordTimeout(err, false)
		return nil, fmt.Errorf("read request: %w", err)
	}
	return req, nil
}

// forwardRequest performs S1->S2: write the request to the backend.
func (s *Session) forwardRequest(req *http.Request) error {
	s.setDeadline(s.backend, s.writeTimeout)
	if err := req.Write(s.backend); err != nil {
		s.recordTimeout(err, true)
		return fmt.Errorf("forward request: %w", err)
	}
	return nil
}

// readResponse performs S2->S3: read a framed HTTP/1.1 response from the
// backend stream, matching it against req for content-length/chunked
// framing rules.
func (s *Session) readResponse(req *http.Request) (*http.Response, error) {
	s.setDeadline(s.backend, s.readTimeout)
	resp, err := http.ReadResponse(s.backendReader, req)
	if err != nil {
		s.recordTimeout(err, false)
		return nil, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// forwardResponse performs S3->S4: write the response to the client.
func (s *Session) forwardResponse(resp *http.Response) error {
	defer resp.Body.Close()
	s.setDeadline(s.client, s.writeTimeout)
	if err := resp.Write(s.client); err != nil {
		s.recordTimeout(err, true)
		return fmt.Errorf("forward response: %w", err)
	}
	return nil
}

// setDeadline applies d as both read and write deadline on c, if d is
// non-zero. A single SetDeadline covers whichever of read/write the
// caller is about to perform, matching the shared connect/read/write
// timeout config pkg/resilience.TimeoutConfig exposes.
func (s *Session) setDeadline(c net.Conn, d time.Duration) {
	if d <= 0 {
		return
	}
	c.SetDeadline(time.Now().Add(d))
}

// recordTimeout reports err to the TimeoutManager as a write or read
// deadline firing, if err actually is a deadline expiry.
func (s *Session) recordTimeout(err error, isWrite bool) {
	if s.timeouts == nil {
		return
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		return
	}
	if isWrite {
		s.timeouts.RecordWriteTimeout()
		return
	}
	s.timeouts.RecordReadTimeout()
}

// cancel shuts both sockets down for read/write, closes them, and fires
// onDisconnect exactly once, per spec.md §3 invariant and §5 "Resource
// release". Idempotent: repeated calls (e.g. destructor-equivalent paths)
// are no-ops after the first.
func (s *Session) cancel() {
	if !atomic.CompareAndSwapInt32(&s.closeOnce, 0, 1) {
		return
	}
	closeSocket(s.client)
	closeSocket(s.backend)
	s.visitor.OnDisconnect()
}

// Cancel shuts the session down from outside Run (e.g. on acceptor
// shutdown); safe to call concurrently with Run.
func (s *Session) Cancel() {
	s.cancel()
}

// closeSocket shuts down the write side of a connection (where it
// supports CloseWrite) then closes it, modelled on
// original_source/src/lb/tcp/session.cpp's CloseSocket
// (SPEC_FULL.md §12). Errors from both calls are discarded and not
// logged, net.ErrClosed and any other close error alike.
func closeSocket(c net.Conn) {
	if tc, ok := c.(interface{ CloseWrite() error }); ok {
		_ = tc.CloseWrite()
	}
	if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		// Not logged: neither cancel nor this helper reports close errors.
		_ = err
	}
}

// isExpectedTeardown classifies the "expected, debug-only" conditions
// from original_source/src/lb/tcp/session.cpp's NeedErrorLogging:
// client/backend EOF (io.EOF or io.ErrUnexpectedEOF), a connection
// already closed (net.ErrClosed), and context cancellation (the Go
// equivalent of the original's operation_aborted).
func isExpectedTeardown(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, context.Canceled)
}

// logTeardown logs a session-ending error or EOF at the level the error
// taxonomy in spec.md §7 assigns: debug for expected conditions, error
// for everything else.
func (s *Session) logTeardown(err error) {
	if s.logger == nil {
		return
	}
	fields := []logging.Field{logging.Int64("session_id", int64(s.ID)), logging.Err(err)}
	if isExpectedTeardown(err) {
		s.logger.Debug("session teardown", fields...)
		return
	}
	s.logger.Error("session teardown", fields...)
}
