package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	Storage     string
	RedisURL    string
	PostgresDSN string

	TimeOffset      time.Duration
	TimeDuration    time.Duration
	MatchDuration   time.Duration
	MaxPersonsLimit int

	AllowedOrigins []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

// Load reads envFile when it exists, then the environment. Variables already
// set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var errs error
	cfg := Config{
		Addr:            getEnv("RPS_ADDR", ":8080"),
		LogLevel:        getEnv("RPS_LOG_LEVEL", "info"),
		LogFormat:       getEnv("RPS_LOG_FORMAT", "json"),
		Storage:         getEnv("RPS_STORAGE", "memory"),
		RedisURL:        getEnv("RPS_REDIS_URL", "redis://localhost:6379/0"),
		PostgresDSN:     getEnv("RPS_POSTGRES_DSN", ""),
		TimeOffset:      getDuration("RPS_TIME_OFFSET", 5*time.Second, &errs),
		TimeDuration:    getDuration("RPS_TIME_DURATION", 60*time.Second, &errs),
		MatchDuration:   getDuration("RPS_MATCH_DURATION", 60*time.Second, &errs),
		MaxPersonsLimit: getInt("RPS_MAX_PERSONS_LIMIT", 30, &errs),
		AllowedOrigins:  splitList(getEnv("RPS_ALLOWED_ORIGINS", "")),
		PingInterval:    getDuration("RPS_PING_INTERVAL", 20*time.Second, &errs),
		WriteTimeout:    getDuration("RPS_WRITE_TIMEOUT", 5*time.Second, &errs),
	}
	if errs != nil {
		return Config{}, errs
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Storage {
	case "memory", "redis":
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("RPS_POSTGRES_DSN required when RPS_STORAGE=postgres")
		}
	default:
		return fmt.Errorf("invalid RPS_STORAGE %q: must be memory, redis or postgres", c.Storage)
	}
	if c.TimeDuration <= 0 || c.TimeOffset < 0 || c.MatchDuration <= 0 {
		return errors.New("match timings must be positive")
	}
	if c.MaxPersonsLimit < 2 {
		return errors.New("RPS_MAX_PERSONS_LIMIT must be at least 2")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, errs *error) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		// plain numbers are seconds, like the start request
		secs, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
			return defaultValue
		}
		d = time.Duration(secs * float64(time.Second))
	}
	return d
}

func getInt(key string, defaultValue int, errs *error) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
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
