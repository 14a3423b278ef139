package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the runtime configuration of the arena server. The listening
// port is the only parameter most deployments touch.
type Config struct {
	Addr              string
	Port              string
	BroadcastInterval time.Duration
	StrictEat         bool
	EatTolerance      float64
	LogLevel          string
	LogFormat         string
	// OTLPEndpoint receives session traces over gRPC; empty disables export.
	OTLPEndpoint string
}

// ListenAddr returns host:port for http.Server.
func (c Config) ListenAddr() string {
	return c.Addr + ":" + c.Port
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:              "",
		Port:              "3000",
		BroadcastInterval: BroadcastInterval,
		StrictEat:         false,
		EatTolerance:      FoodMaxRadius,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load reads an optional .env file and then the process environment on top
// of Default. A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := Default()
	cfg.Addr = GetEnvDefault("ARENA_ADDR", cfg.Addr)
	cfg.Port = GetEnvDefault("PORT", cfg.Port)
	cfg.LogLevel = GetEnvDefault("ARENA_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = GetEnvDefault("ARENA_LOG_FORMAT", cfg.LogFormat)
	cfg.OTLPEndpoint = GetEnvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)

	if v := os.Getenv("ARENA_BROADCAST_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: ARENA_BROADCAST_INTERVAL: %w", err)
		}
		cfg.BroadcastInterval = d
	}
	if v := os.Getenv("ARENA_STRICT_EAT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: ARENA_STRICT_EAT: %w", err)
		}
		cfg.StrictEat = b
	}
	return cfg, cfg.Validate()
}

var ErrInvalidConfig = errors.New("config: invalid")

// Validate reports the first unusable value.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: empty port", ErrInvalidConfig)
	}
	if _, err := strconv.ParseUint(c.Port, 10, 16); err != nil {
		return fmt.Errorf("%w: port %q", ErrInvalidConfig, c.Port)
	}
	if c.BroadcastInterval <= 0 {
		return fmt.Errorf("%w: broadcast interval %s", ErrInvalidConfig, c.BroadcastInterval)
	}
	if c.EatTolerance < 0 {
		return fmt.Errorf("%w: eat tolerance %v", ErrInvalidConfig, c.EatTolerance)
	}
	return nil
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func GetEnvDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
