package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DoyleJ11/rps-party-backend/internal/model"
	"github.com/DoyleJ11/rps-party-backend/internal/storage"
)

// Storage keeps match blobs as JSON strings, a recency index and per
// identity leaderboard hashes.
type Storage struct {
	client *redis.Client
	cfg    Config
}

var _ storage.Storage = (*Storage)(nil)

func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Storage{client: client, cfg: cfg}, nil
}

// NewWithClient wraps an existing client (tests).
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{client: client, cfg: cfg}
}

func (s *Storage) Close() error {
	return s.client.Close()
}

// saveRetries bounds how often SaveMatch retries when a concurrent save of
// the same match invalidates its WATCH.
const saveRetries = 3

// SaveMatch writes the blob and, the first time a match is seen, the indexes
// and leaderboard totals in one MULTI, so a failed save leaves nothing behind
// and a retry counts the match.
func (s *Storage) SaveMatch(ctx context.Context, m *model.MatchRecord) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	key := matchKey(m.ID)

	save := func(tx *redis.Tx) error {
		known, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.MatchTTL)
			if known > 0 {
				return nil // totals already counted
			}
			pipe.ZAdd(ctx, recentIndexKey(), redis.Z{Score: float64(m.EndedAt.UnixMilli()), Member: m.ID})
			for _, st := range m.Standings {
				if st.IsBot {
					continue
				}
				pkey := playerKey(st.Affiliation, st.Name)
				pipe.HSet(ctx, pkey, "affiliation", st.Affiliation, "name", st.Name)
				pipe.HIncrBy(ctx, pkey, "matches", 1)
				pipe.HIncrBy(ctx, pkey, "score", int64(st.Score))
				pipe.HIncrBy(ctx, pkey, "win", int64(st.Win))
				pipe.HIncrBy(ctx, pkey, "draw", int64(st.Draw))
				pipe.HIncrBy(ctx, pkey, "lose", int64(st.Lose))
				pipe.SAdd(ctx, playersIndexKey(), pkey)
			}
			return nil
		})
		return err
	}

	for i := 0; i < saveRetries; i++ {
		err = s.client.Watch(ctx, save, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (s *Storage) GetMatch(ctx context.Context, id string) (*model.MatchRecord, error) {
	data, err := s.client.Get(ctx, matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var m model.MatchRecord
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Storage) RecentMatches(ctx context.Context, limit int) ([]*model.MatchRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, recentIndexKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.MatchRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = matchKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*model.MatchRecord, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // expired blob
		}
		var m model.MatchRecord
		if err := json.Unmarshal([]byte(str), &m); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}

func (s *Storage) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	keys, err := s.client.SMembers(ctx, playersIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.HGetAll(ctx, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.LeaderboardEntry, 0, len(cmds))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		out = append(out, model.LeaderboardEntry{
			Affiliation: fields["affiliation"],
			Name:        fields["name"],
			Matches:     atoi(fields["matches"]),
			Score:       atoi(fields["score"]),
			Win:         atoi(fields["win"]),
			Draw:        atoi(fields["draw"]),
			Lose:        atoi(fields["lose"]),
		})
	}
	model.SortLeaderboard(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
