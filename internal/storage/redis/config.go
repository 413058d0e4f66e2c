package redis

import "time"

type Config struct {
	// URL is the connection URL, e.g. redis://localhost:6379/0
	URL string

	PoolSize     int
	MinIdleConns int

	// MatchTTL expires match blobs; zero keeps them forever. Leaderboard
	// totals are never expired.
	MatchTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379/0",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}
