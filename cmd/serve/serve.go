package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/sig-0/btcrates/cmd/env"
	"github.com/sig-0/btcrates/ingest"
	"github.com/sig-0/btcrates/provider/coinbase"
	"github.com/sig-0/btcrates/server"
	"github.com/sig-0/btcrates/server/config"
	"github.com/sig-0/btcrates/storage/memory"
)

// serveCfg wraps the serve configuration
type serveCfg struct {
	config *config.Config

	configPath string
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		config: config.DefaultConfig(),
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve [flags]",
		LongHelp:   "Serves the btcrates backend, using an in-memory datastore",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.config.ListenAddress,
		"listen",
		config.DefaultListenAddress,
		"the IP:PORT URL for the server",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any. Overrides all other flags",
	)

	fs.StringVar(
		&c.config.LogLevel,
		"log-level",
		config.DefaultLogLevel,
		"the minimum log level (debug, info, warn, error)",
	)

	fs.StringVar(
		&c.config.Coinbase.BaseURL,
		"coinbase-url",
		config.DefaultCoinbaseBaseURL,
		"the Coinbase v2 API root",
	)

	fs.DurationVar(
		&c.config.Coinbase.Timeout,
		"coinbase-timeout",
		config.DefaultCoinbaseTimeout,
		"the timeout for Coinbase API requests",
	)

	fs.DurationVar(
		&c.config.Coinbase.MaxAge,
		"coinbase-max-age",
		0,
		"how long fetched rates are reused by quotes (0 refreshes on every quote)",
	)

	fs.DurationVar(
		&c.config.Coinbase.Interval,
		"coinbase-interval",
		config.DefaultCoinbaseInterval,
		"how often the rates are ingested into storage",
	)
}

// exec executes the serve command
func (c *serveCfg) exec(ctx context.Context, _ []string) error {
	// Read the server configuration, if any
	if c.configPath != "" {
		serverCfg, err := config.Read(c.configPath)
		if err != nil {
			return fmt.Errorf("unable to read server config, %w", err)
		}

		c.config = serverCfg
	}

	if err := config.ValidateConfig(c.config); err != nil {
		return fmt.Errorf("invalid server config, %w", err)
	}

	level, err := config.ParseLogLevel(c.config.LogLevel)
	if err != nil {
		return err
	}

	// Create a new logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelFn()

	// Set up the metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Create the rate provider
	provider, err := newCoinbaseProvider(
		runCtx,
		c.config.Coinbase,
		logger,
		coinbase.NewMetrics(reg),
	)
	if err != nil {
		return err
	}

	// Create an in-memory store
	store := memory.NewStorage()

	// Create the ingestion service
	orchestrator := ingest.New(store, ingest.WithLogger(logger))
	if err = orchestrator.Register(provider); err != nil {
		return fmt.Errorf("unable to register provider: %w", err)
	}

	// Create the server instance
	s, err := server.New(
		store,
		server.WithLogger(logger),
		server.WithConfig(c.config),
		server.WithProvider(provider),
		server.WithGatherer(reg),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	group, gCtx := errgroup.WithContext(runCtx)

	// Start the HTTP server
	group.Go(func() error {
		return s.Serve(gCtx)
	})

	// Start the ingestion service
	group.Go(func() error {
		return orchestrator.Start(gCtx)
	})

	return group.Wait()
}
