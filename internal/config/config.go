// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/teewatch/teewatch/internal/platform/logging"
)

// MasterSeed is one master server from the MASTER_SERVERS seed list.
type MasterSeed struct {
	Hostname string
	Port     int
}

// Config stores runtime configuration for the worker.
type Config struct {
	DBURL    string `validate:"required"`
	LogLevel logging.Level

	UDPWaitWindow      time.Duration `validate:"gt=0"`
	MasterPollInterval time.Duration `validate:"gt=0"`
	ServerPollInterval time.Duration `validate:"gt=0"`
	RankInterval       time.Duration `validate:"gt=0"`
	PlaytimeInterval   time.Duration `validate:"gt=0"`
	ReaperInterval     time.Duration `validate:"gt=0"`
	LeaseTimeout       time.Duration `validate:"gt=0"`
	PollStaleness      time.Duration `validate:"gt=0"`
	ClaimBatchSize     int           `validate:"gt=0"`

	StatusAddr    string
	MasterServers []MasterSeed
}

func Load() (Config, error) {
	cfg := Config{
		DBURL:      strings.TrimSpace(os.Getenv("DB_URL")),
		LogLevel:   parseLogLevel(getEnv("LOG_LEVEL", "info")),
		StatusAddr: strings.TrimSpace(getEnv("STATUS_ADDR", "")),
	}
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}

	var err error
	if cfg.UDPWaitWindow, err = getEnvAsDuration("UDP_WAIT_WINDOW", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.MasterPollInterval, err = getEnvAsDuration("MASTER_POLL_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ServerPollInterval, err = getEnvAsDuration("SERVER_POLL_INTERVAL", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RankInterval, err = getEnvAsDuration("RANK_INTERVAL", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PlaytimeInterval, err = getEnvAsDuration("PLAYTIME_INTERVAL", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ReaperInterval, err = getEnvAsDuration("REAPER_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.LeaseTimeout, err = getEnvAsDuration("LEASE_TIMEOUT", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.PollStaleness, err = getEnvAsDuration("POLL_STALENESS", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ClaimBatchSize, err = getEnvAsInt("CLAIM_BATCH_SIZE", 100); err != nil {
		return Config{}, fmt.Errorf("parse CLAIM_BATCH_SIZE: %w", err)
	}
	if cfg.MasterServers, err = parseMasterSeeds(getEnv("MASTER_SERVERS", "")); err != nil {
		return Config{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// parseMasterSeeds parses a comma-separated host:port list.
func parseMasterSeeds(raw string) ([]MasterSeed, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	out := make([]MasterSeed, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		host, portStr, err := net.SplitHostPort(part)
		if err != nil {
			return nil, fmt.Errorf("parse MASTER_SERVERS entry %q: %w", part, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("parse MASTER_SERVERS entry %q: bad port", part)
		}
		out = append(out, MasterSeed{Hostname: host, Port: port})
	}
	return out, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return out, nil
}
