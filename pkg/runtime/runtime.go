// Package runtime assembles one process's worth of load-balancer
// components — config, selector, executor, acceptor — into a single
// explicit value constructed by main, replacing the singleton
// application object the source exposes process-wide (spec.md §9
// Design Notes, "Singleton application object").
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/balance/pkg/acceptor"
	"github.com/therealutkarshpriyadarshi/balance/pkg/admin"
	"github.com/therealutkarshpriyadarshi/balance/pkg/config"
	"github.com/therealutkarshpriyadarshi/balance/pkg/connector"
	"github.com/therealutkarshpriyadarshi/balance/pkg/lb"
	"github.com/therealutkarshpriyadarshi/balance/pkg/logging"
	"github.com/therealutkarshpriyadarshi/balance/pkg/pool"
	"github.com/therealutkarshpriyadarshi/balance/pkg/resilience"
	"github.com/therealutkarshpriyadarshi/balance/pkg/tracing"
)

// DrainTimeout bounds how long the acceptor's drain, after Shutdown,
// waits for in-flight sessions before Run returns.
const DrainTimeout = 30 * time.Second

// Runtime holds one running instance's components. It is constructed
// once by main and threaded into the acceptor/connector rather than
// held in package-scope globals.
type Runtime struct {
	Config    *config.Config
	Logger    *logging.Logger
	Selector  lb.Selector
	Executor  *pool.GoroutinePool
	Acceptor  *acceptor.Acceptor
	Connector *connector.Connector
	Timeouts  *resilience.TimeoutManager
	Tracer    *tracing.Tracer
	Admin     *admin.Server
}

// New builds a Runtime from a loaded, validated Config.
func New(cfg *config.Config) (*Runtime, error) {
	logger, err := logging.NewFromConfig(cfg.Logging.ToLoggingConfig())
	if err != nil {
		return nil, fmt.Errorf("runtime: logging: %w", err)
	}

	sel, err := lb.DetectSelector(cfg.LoadBalancing)
	if err != nil {
		return nil, fmt.Errorf("runtime: selector: %w", err)
	}

	threads, err := config.ThreadCount(cfg.ThreadPool.ThreadsNumber)
	if err != nil {
		return nil, fmt.Errorf("runtime: thread_pool: %w", err)
	}
	executor := pool.NewGoroutinePool(pool.GoroutinePoolConfig{
		MaxWorkers: threads,
		QueueSize:  threads * 4,
	})

	timeouts := resilience.NewTimeoutManager(resilience.DefaultTimeoutConfig())

	tracer, err := tracing.NewTracer(cfg.Tracing.ToTracingConfig())
	if err != nil {
		return nil, fmt.Errorf("runtime: tracing: %w", err)
	}

	conn := connector.New(sel, timeouts, logger)
	conn.Tracer = tracer

	ipVersion := acceptor.IPv4
	if cfg.IPVersionOrDefault() == 6 {
		ipVersion = acceptor.IPv6
	}
	acc, err := acceptor.New(cfg.Acceptor.Port, ipVersion, conn, executor, logger, DrainTimeout)
	if err != nil {
		return nil, fmt.Errorf("runtime: acceptor: %w", err)
	}

	var adminSrv *admin.Server
	if cfg.Admin.Listen != "" {
		adminSrv = admin.NewServer(admin.Config{
			Listen:        cfg.Admin.Listen,
			TimeoutStats:  timeouts.GetMetrics,
			ExecutorStats: executor.Stats,
		})
	}

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Selector:  sel,
		Executor:  executor,
		Acceptor:  acc,
		Connector: conn,
		Timeouts:  timeouts,
		Tracer:    tracer,
		Admin:     adminSrv,
	}, nil
}

// Run blocks accepting connections until ctx is cancelled, then drains
// in-flight sessions and stops the executor (spec.md §5 shutdown
// sequence: "Shutdown cancels the acceptor first ... then the executor
// stops after draining"). Acceptor.Run itself closes Executor once its
// own accept loop exits, so the Executor.Close here is a safety net for
// callers that bypass Acceptor.Run (e.g. a future admin-triggered
// restart) rather than the primary drain path.
func (r *Runtime) Run(ctx context.Context) error {
	if r.Admin != nil {
		if err := r.Admin.Start(); err != nil {
			return fmt.Errorf("runtime: admin: %w", err)
		}
	}

	runErr := make(chan error, 1)
	go func() { runErr <- r.Acceptor.Run(ctx) }()

	select {
	case <-ctx.Done():
		r.Acceptor.Stop()
		err := <-runErr
		r.Executor.Close()
		r.closeTracer()
		r.closeAdmin()
		return err
	case err := <-runErr:
		r.Executor.Close()
		r.closeTracer()
		r.closeAdmin()
		return err
	}
}

// closeAdmin shuts down the admin HTTP server, if enabled.
func (r *Runtime) closeAdmin() {
	if r.Admin == nil {
		return
	}
	if err := r.Admin.Shutdown(); err != nil && r.Logger != nil {
		r.Logger.Error("admin shutdown", logging.Err(err))
	}
}

// closeTracer flushes and shuts down the tracer's exporter, if tracing
// is enabled.
func (r *Runtime) closeTracer() {
	if r.Tracer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Tracer.Close(ctx); err != nil && r.Logger != nil {
		r.Logger.Error("tracer shutdown", logging.Err(err))
	}
}

// Shutdown stops accepting connections and returns without waiting; Run
// then drains in-flight sessions before it returns.
// Safe to call concurrently with Run (e.g. from a signal handler).
func (r *Runtime) Shutdown() {
	r.Acceptor.Stop()
}
