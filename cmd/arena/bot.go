package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sonpython/slether-arena/internal/client"
	"github.com/sonpython/slether-arena/internal/config"
)

// botNames is the pool of names for headless players
var botNames = []string{
	"Viper", "Cobra", "Mamba", "Python", "Anaconda",
	"Sidewinder", "Krait", "Taipan", "Boomslang", "Adder",
}

func botCmd() *cobra.Command {
	var (
		url       string
		count     int
		respawn   bool
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Connect headless players that chase food",
		Long: `Connect one or more headless players to an arena server.

Each bot joins, steers toward the nearest food and reports what it eats,
exactly as a browser client would. With --respawn a bot rejoins after its
game ends or its connection drops.

Examples:
  arena bot --count=5
  arena bot --url=ws://example.com:3000/ws --respawn`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be at least 1, got %d", count)
			}
			cfg := config.Default()
			cfg.LogLevel, cfg.LogFormat = logLevel, logFormat
			return runBots(cmd.Context(), cfg, url, count, respawn)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "ws://localhost:3000"+config.WebSocketPath, "Server WebSocket URL")
	cmd.Flags().IntVarP(&count, "count", "n", 3, "Number of bots")
	cmd.Flags().BoolVar(&respawn, "respawn", false, "Rejoin after game over or disconnect")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "text or json")

	return cmd
}

func runBots(parent context.Context, cfg config.Config, url string, count int, respawn bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := cfg.Logger()
	log.Info("starting bots", "count", count, "server", url)

	g, gctx := errgroup.WithContext(ctx)
	for i := range count {
		name := fmt.Sprintf("%s %d", botNames[i%len(botNames)], i+1)
		logger := log.With("bot", name)
		g.Go(func() error {
			for {
				res, err := client.Run(gctx, client.Options{
					URL:      url,
					Nickname: name,
					Steering: client.NewSeekFood(nil),
					Logger:   logger,
				})
				if gctx.Err() != nil {
					return nil
				}
				switch {
				case err == nil:
					logger.Info("session ended", "phase", res.Phase, "score", res.Score, "ticks", res.Ticks)
				case errors.Is(err, client.ErrConnectionLost):
					logger.Warn("connection lost", "score", res.Score)
				default:
					logger.Warn("session failed", "err", err)
				}
				if !respawn {
					return nil
				}
				select {
				case <-gctx.Done():
					return nil
				case <-time.After(2 * time.Second):
				}
			}
		})
	}

	err := g.Wait()
	log.Info("all bots stopped")
	return err
}
