// Command lb runs the load balancer: it loads the YAML configuration
// named by --config (or LB_CONFIG, or the default path), builds a
// pkg/runtime.Runtime, and accepts connections until it receives
// SIGINT/SIGTERM, at which point it drains in-flight sessions before
// exiting (spec.md §6). Grounded on the teacher's cmd/balance/main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/therealutkarshpriyadarshi/balance/pkg/config"
	"github.com/therealutkarshpriyadarshi/balance/pkg/logging"
	"github.com/therealutkarshpriyadarshi/balance/pkg/profiling"
	"github.com/therealutkarshpriyadarshi/balance/pkg/runtime"
)

var (
	// Version information (set during build)
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", "", "Path to configuration file (defaults to $LB_CONFIG or lb.yaml)")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	pprofAddr := flag.String("pprof-addr", "", "Serve net/http/pprof on this address if set (e.g. localhost:6060)")
	cpuProfile := flag.String("cpuprofile", "", "Write a CPU profile to this file on exit if set")
	memProfile := flag.String("memprofile", "", "Write a heap profile to this file on exit if set")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lb %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
		return 0
	}

	if *pprofAddr != "" || *cpuProfile != "" || *memProfile != "" {
		profiler := profiling.NewProfiler(profiling.ProfileConfig{
			EnableHTTPProfile: *pprofAddr != "",
			HTTPProfileAddr:   *pprofAddr,
			CPUProfilePath:    *cpuProfile,
			MemProfilePath:    *memProfile,
		})
		if err := profiler.Start(); err != nil {
			log.Printf("lb: pprof: %v", err)
			return 1
		}
		defer profiler.Stop()
	}

	path := config.ResolvePath(*configFlag)
	cfg, err := config.Load(path)
	if err != nil {
		log.Printf("lb: %v", err)
		return 1
	}

	rt, err := runtime.New(cfg)
	if err != nil {
		log.Printf("lb: %v", err)
		return 1
	}
	rt.Logger.Info("starting", logging.Int("port", cfg.Acceptor.Port), logging.Int("ip_version", cfg.IPVersionOrDefault()))
	if cfg.Admin.Listen != "" {
		rt.Logger.Info("admin server enabled", logging.String("listen", cfg.Admin.Listen))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		rt.Logger.Info("shutdown signal received", logging.String("signal", sig.String()))
		rt.Shutdown()
		cancel()
	}()

	if err := rt.Run(ctx); err != nil {
		rt.Logger.Error("runtime exited with error", logging.Err(err))
		return 1
	}
	rt.Logger.Info("stopped")
	return 0
}
