// Package profiling wires net/http/pprof and runtime/pprof behind the
// opt-in -pprof-addr/-cpuprofile/-memprofile flags cmd/lb exposes,
// kept from the teacher's profiler with its unreachable surface (the
// package-level singleton, file-dump helpers that duplicate what the
// HTTP pprof mux already serves at /debug/pprof/) trimmed.
package profiling

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
)

// ProfileConfig contains profiling configuration.
type ProfileConfig struct {
	CPUProfilePath    string
	MemProfilePath    string
	EnableHTTPProfile bool
	HTTPProfileAddr   string
}

// Profiler manages CPU/memory/HTTP profiling for one process lifetime.
type Profiler struct {
	config     ProfileConfig
	cpuFile    *os.File
	httpServer *http.Server
}

// NewProfiler creates a new profiler.
func NewProfiler(config ProfileConfig) *Profiler {
	return &Profiler{config: config}
}

// Start begins whichever of CPU profiling and the HTTP pprof server are
// configured.
func (p *Profiler) Start() error {
	if p.config.CPUProfilePath != "" {
		if err := p.startCPUProfile(); err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
	}

	if p.config.EnableHTTPProfile {
		if err := p.startHTTPProfile(); err != nil {
			return fmt.Errorf("failed to start HTTP profile: %w", err)
		}
	}

	return nil
}

// Stop stops CPU profiling, writes the memory profile if configured,
// and closes the HTTP pprof server.
func (p *Profiler) Stop() error {
	if p.cpuFile != nil {
		p.stopCPUProfile()
	}

	if p.config.MemProfilePath != "" {
		if err := p.writeMemProfile(); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	if p.httpServer != nil {
		p.httpServer.Close()
	}

	return nil
}

func (p *Profiler) startCPUProfile() error {
	f, err := os.Create(p.config.CPUProfilePath)
	if err != nil {
		return err
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return err
	}

	p.cpuFile = f
	return nil
}

func (p *Profiler) stopCPUProfile() {
	pprof.StopCPUProfile()
	if p.cpuFile != nil {
		p.cpuFile.Close()
		p.cpuFile = nil
	}
}

func (p *Profiler) writeMemProfile() error {
	f, err := os.Create(p.config.MemProfilePath)
	if err != nil {
		return err
	}
	defer f.Close()

	runtime.GC() // up-to-date statistics before the snapshot
	return pprof.WriteHeapProfile(f)
}

// startHTTPProfile serves net/http/pprof's default mux, which also
// exposes goroutine/block/mutex profiles at /debug/pprof/{goroutine,
// block,mutex} without a separate file-dump code path.
func (p *Profiler) startHTTPProfile() error {
	mux := http.NewServeMux()
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	p.httpServer = &http.Server{
		Addr:    p.config.HTTPProfileAddr,
		Handler: mux,
	}

	go func() {
		if err := p.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("pprof server error: %v\n", err)
		}
	}()

	return nil
}
