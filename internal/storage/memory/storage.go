package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/DoyleJ11/rps-party-backend/internal/model"
	"github.com/DoyleJ11/rps-party-backend/internal/storage"
)

// Storage keeps match records in process memory.
type Storage struct {
	mu      sync.RWMutex
	matches map[string]*model.MatchRecord
}

var _ storage.Storage = (*Storage)(nil)

func New() *Storage {
	return &Storage{matches: make(map[string]*model.MatchRecord)}
}

func (s *Storage) SaveMatch(_ context.Context, m *model.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = copyMatch(m)
	return nil
}

func (s *Storage) GetMatch(_ context.Context, id string) (*model.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return copyMatch(m), nil
}

func (s *Storage) RecentMatches(_ context.Context, limit int) ([]*model.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.MatchRecord, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, copyMatch(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndedAt.Equal(out[j].EndedAt) {
			return out[i].EndedAt.After(out[j].EndedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) Leaderboard(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type identity struct{ affiliation, name string }
	agg := map[identity]model.LeaderboardEntry{}
	for _, m := range s.matches {
		for _, st := range m.Standings {
			if st.IsBot {
				continue
			}
			k := identity{st.Affiliation, st.Name}
			e, ok := agg[k]
			if !ok {
				e = model.LeaderboardEntry{Affiliation: st.Affiliation, Name: st.Name}
			}
			agg[k] = e.Add(st)
		}
	}

	out := make([]model.LeaderboardEntry, 0, len(agg))
	for _, e := range agg {
		out = append(out, e)
	}
	model.SortLeaderboard(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) Close() error { return nil }

func copyMatch(m *model.MatchRecord) *model.MatchRecord {
	c := *m
	c.Standings = append([]model.Standing(nil), m.Standings...)
	c.Hands = append([]model.HandRecord(nil), m.Hands...)
	return &c
}
