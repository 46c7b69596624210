package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/inferloop/dpkit/pkg/constants"
)

type Config struct {
	Port          int
	Host          string
	LogLevel      string
	LogFormat     string
	MetricsPort   int
	EnableMetrics bool
	BudgetEpsilon float64
	BudgetDelta   float64
	Version       bool
}

func ParseFlags() *Config {
	config := &Config{}

	flag.IntVar(&config.Port, "port", constants.DefaultPort, "Server port")
	flag.StringVar(&config.Host, "host", constants.DefaultHost, "Server host")
	flag.StringVar(&config.LogLevel, "log-level", constants.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&config.LogFormat, "log-format", constants.DefaultLogFormat, "Log format (json, text)")
	flag.IntVar(&config.MetricsPort, "metrics-port", constants.DefaultMetricsPort, "Prometheus metrics port")
	flag.BoolVar(&config.EnableMetrics, "enable-metrics", true, "Enable Prometheus metrics")
	flag.Float64Var(&config.BudgetEpsilon, "budget-epsilon", constants.DefaultEpsilon, "Configured epsilon budget (informational)")
	flag.Float64Var(&config.BudgetDelta, "budget-delta", constants.DefaultDelta, "Configured delta budget (informational)")
	flag.BoolVar(&config.Version, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nDifferential Privacy Toolkit Server\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if config.Version {
		info := GetBuildInfo()
		fmt.Printf("Version: %s\n", info.Version)
		fmt.Printf("Git Commit: %s\n", info.GitCommit)
		fmt.Printf("Build Date: %s\n", info.BuildDate)
		fmt.Printf("Go Version: %s\n", info.GoVersion)
		fmt.Printf("Platform: %s\n", info.Platform)
		os.Exit(0)
	}

	return config
}
