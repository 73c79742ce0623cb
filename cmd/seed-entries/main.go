package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/huikao/internal/seed"
	"github.com/okian/huikao/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumEntries = 200
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultSettle     = 2 * time.Minute
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the score board service")
		numEntries = flag.Int("entries", defaultNumEntries, "Number of entries to generate and submit")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettle, "How long to wait for the entries to reach the record store")
		schools    = flag.String("schools", "", "Comma separated school pool (default: built-in list)")
		seedValue  = flag.Uint64("seed", 0, "Generator seed (default: from the clock)")
		format     = flag.String("log-format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log every submission")
	)
	flag.Parse()

	if err := logger.InitWithFormat(*format, os.Stdout); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := seed.Config{
		BaseURL:    strings.TrimRight(*baseURL, "/"),
		NumEntries: *numEntries,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		Schools:    splitList(*schools),
		Seed:       *seedValue,
		Verbose:    *verbose,
	}
	if _, err := seed.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "seeding failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
