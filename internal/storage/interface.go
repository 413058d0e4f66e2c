package storage

import (
	"context"

	"github.com/DoyleJ11/rps-party-backend/internal/model"
)

// Storage persists finished matches.
type Storage interface {
	SaveMatch(ctx context.Context, m *model.MatchRecord) error
	GetMatch(ctx context.Context, id string) (*model.MatchRecord, error)
	// RecentMatches returns up to limit matches, most recently ended first.
	RecentMatches(ctx context.Context, limit int) ([]*model.MatchRecord, error)
	// Leaderboard aggregates human standings across all matches.
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	Close() error
}

const (
	TypeMemory   = "memory"
	TypeRedis    = "redis"
	TypePostgres = "postgres"
)
