package model

import (
	"errors"
	"sort"
	"time"
)

var ErrMatchNotFound = errors.New("match not found")

// MatchRecord is the persisted result of one finished match.
type MatchRecord struct {
	ID        string       `json:"id"`
	RoomID    int          `json:"room_id"`
	RoomName  string       `json:"room_name"`
	GameMode  string       `json:"game_mode"`
	TeamPlay  bool         `json:"team_play"`
	Rounds    int          `json:"rounds"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Standings []Standing   `json:"standings"`
	Hands     []HandRecord `json:"hands"`
}

type Standing struct {
	PlayerID    string `json:"player_id"`
	Rank        int    `json:"rank"`
	Affiliation string `json:"affiliation"`
	Name        string `json:"name"`
	Team        string `json:"team"`
	IsBot       bool   `json:"is_bot"`
	Left        bool   `json:"left"`
	Score       int    `json:"score"`
	Win         int    `json:"win"`
	Draw        int    `json:"draw"`
	Lose        int    `json:"lose"`
}

// HandRecord is the final hand a player held when a round was resolved.
type HandRecord struct {
	Round    int       `json:"round"`
	PlayerID string    `json:"player_id"`
	Hand     string    `json:"hand"`
	Score    int       `json:"score"` // delta earned in that round
	At       time.Time `json:"at"`
}

// LeaderboardEntry aggregates human standings by (affiliation, name).
type LeaderboardEntry struct {
	Affiliation string `json:"affiliation"`
	Name        string `json:"name"`
	Matches     int    `json:"matches"`
	Score       int    `json:"score"`
	Win         int    `json:"win"`
	Draw        int    `json:"draw"`
	Lose        int    `json:"lose"`
}

func (e LeaderboardEntry) Add(s Standing) LeaderboardEntry {
	e.Matches++
	e.Score += s.Score
	e.Win += s.Win
	e.Draw += s.Draw
	e.Lose += s.Lose
	return e
}

// SortLeaderboard orders entries the same way match standings are ranked.
func SortLeaderboard(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Win != b.Win {
			return a.Win > b.Win
		}
		if a.Draw != b.Draw {
			return a.Draw > b.Draw
		}
		if a.Affiliation != b.Affiliation {
			return a.Affiliation < b.Affiliation
		}
		return a.Name < b.Name
	})
}
