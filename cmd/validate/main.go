// Command validate checks a load-balancer YAML config document against
// spec.md §6's schema without starting the proxy, grounded on the
// teacher's cmd/validate/main.go.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/therealutkarshpriyadarshi/balance/pkg/config"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	verbose := flag.Bool("verbose", false, "Show verbose output")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lb-validate %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
		return 0
	}

	if *verbose {
		fmt.Printf("Validating configuration file: %s\n", *configPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		return 1
	}

	fmt.Println("configuration is valid")
	if *verbose {
		fmt.Printf("\nsummary:\n")
		fmt.Printf("  acceptor: port=%d ip_version=%d\n", cfg.Acceptor.Port, cfg.IPVersionOrDefault())
		fmt.Printf("  thread_pool: threads_number=%s\n", cfg.ThreadPool.ThreadsNumber)
		fmt.Printf("  load_balancing: algorithm=%s endpoints=%d\n", cfg.LoadBalancing.Algorithm, len(cfg.LoadBalancing.Endpoints))
		if cfg.LoadBalancing.Algorithm == "consistent_hash" {
			fmt.Printf("  load_balancing: replicas=%d\n", cfg.LoadBalancing.Replicas)
		}
		fmt.Printf("  logging: console.level=%s", cfg.Logging.Console.Level)
		if cfg.Logging.File != nil {
			fmt.Printf(" file.level=%s file.name=%s", cfg.Logging.File.Level, cfg.Logging.File.Name)
		}
		fmt.Println()
		if cfg.Tracing.Enabled {
			fmt.Printf("  tracing: enabled endpoint=%s\n", cfg.Tracing.Endpoint)
		}
		if cfg.Admin.Listen != "" {
			fmt.Printf("  admin: listen=%s\n", cfg.Admin.Listen)
		}
	}
	return 0
}
