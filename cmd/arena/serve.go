package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonpython/slether-arena/internal/config"
	"github.com/sonpython/slether-arena/internal/server"
)

func serveCmd() *cobra.Command {
	var (
		envFile   string
		port      string
		addr      string
		interval  time.Duration
		strictEat bool
		logLevel  string
		logFormat string
		otlp      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the arena server",
		Long: `Run the arena server.

Configuration comes from the environment (PORT, ARENA_ADDR,
ARENA_BROADCAST_INTERVAL, ARENA_STRICT_EAT, ARENA_LOG_LEVEL,
ARENA_LOG_FORMAT, OTEL_EXPORTER_OTLP_ENDPOINT), optionally loaded from a .env file. Flags override both.

Examples:
  arena serve
  arena serve --port=8080
  arena serve --strict-eat --log-format=json
  arena serve --otlp-endpoint=http://localhost:4317`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("broadcast-interval") {
				cfg.BroadcastInterval = interval
			}
			if flags.Changed("strict-eat") {
				cfg.StrictEat = strictEat
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			if flags.Changed("otlp-endpoint") {
				cfg.OTLPEndpoint = otlp
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Environment file to load if present")
	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from PORT or 3000)")
	cmd.Flags().StringVar(&addr, "addr", "", "Host to bind to")
	cmd.Flags().DurationVar(&interval, "broadcast-interval", config.BroadcastInterval, "Player broadcast period")
	cmd.Flags().BoolVar(&strictEat, "strict-eat", false, "Reject eatFood reports for food out of the player's reach")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	cmd.Flags().StringVar(&logFormat, "log-format", "", "text or json")
	cmd.Flags().StringVar(&otlp, "otlp-endpoint", "", "OTLP/gRPC collector URL for session traces")

	return cmd
}

func runServe(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := cfg.Logger()
	log.Info("starting arena", "version", version, "addr", cfg.ListenAddr(), "strict_eat", cfg.StrictEat)

	shutdownTracing, err := server.InitTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("flush traces", "error", err)
		}
	}()
	if cfg.OTLPEndpoint != "" {
		log.Info("exporting traces", "endpoint", cfg.OTLPEndpoint)
	}

	if err := server.New(cfg, log).Run(ctx); err != nil {
		return err
	}
	log.Info("arena stopped")
	return nil
}
