package postgres

import (
	"time"

	"github.com/DoyleJ11/rps-party-backend/internal/model"
)

type MatchRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	RoomID    int    `gorm:"not null"`
	RoomName  string `gorm:"not null"`
	GameMode  string `gorm:"size:16;not null"`
	TeamPlay  bool
	Rounds    int
	StartedAt time.Time
	EndedAt   time.Time     `gorm:"index"`
	Standings []StandingRow `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	Hands     []HandRow     `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
}

func (MatchRow) TableName() string { return "matches" }

type StandingRow struct {
	ID          uint   `gorm:"primaryKey"`
	MatchID     string `gorm:"size:36;index;not null"`
	PlayerID    string `gorm:"size:36"`
	Rank        int
	Affiliation string `gorm:"index:idx_standing_identity"`
	Name        string `gorm:"index:idx_standing_identity"`
	Team        string `gorm:"size:8"`
	IsBot       bool
	Left        bool
	Score       int
	Win         int
	Draw        int
	Lose        int
}

func (StandingRow) TableName() string { return "match_standings" }

type HandRow struct {
	ID       uint   `gorm:"primaryKey"`
	MatchID  string `gorm:"size:36;index;not null"`
	Round    int
	PlayerID string `gorm:"size:36"`
	Hand     string `gorm:"size:16"`
	Score    int
	At       time.Time
}

func (HandRow) TableName() string { return "match_hands" }

func toRow(m *model.MatchRecord) MatchRow {
	row := MatchRow{
		ID:        m.ID,
		RoomID:    m.RoomID,
		RoomName:  m.RoomName,
		GameMode:  m.GameMode,
		TeamPlay:  m.TeamPlay,
		Rounds:    m.Rounds,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
	}
	for _, s := range m.Standings {
		row.Standings = append(row.Standings, StandingRow{
			MatchID:     m.ID,
			PlayerID:    s.PlayerID,
			Rank:        s.Rank,
			Affiliation: s.Affiliation,
			Name:        s.Name,
			Team:        s.Team,
			IsBot:       s.IsBot,
			Left:        s.Left,
			Score:       s.Score,
			Win:         s.Win,
			Draw:        s.Draw,
			Lose:        s.Lose,
		})
	}
	for _, h := range m.Hands {
		row.Hands = append(row.Hands, HandRow{
			MatchID:  m.ID,
			Round:    h.Round,
			PlayerID: h.PlayerID,
			Hand:     h.Hand,
			Score:    h.Score,
			At:       h.At,
		})
	}
	return row
}

func (r MatchRow) toModel() *model.MatchRecord {
	m := &model.MatchRecord{
		ID:        r.ID,
		RoomID:    r.RoomID,
		RoomName:  r.RoomName,
		GameMode:  r.GameMode,
		TeamPlay:  r.TeamPlay,
		Rounds:    r.Rounds,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
	}
	for _, s := range r.Standings {
		m.Standings = append(m.Standings, model.Standing{
			PlayerID:    s.PlayerID,
			Rank:        s.Rank,
			Affiliation: s.Affiliation,
			Name:        s.Name,
			Team:        s.Team,
			IsBot:       s.IsBot,
			Left:        s.Left,
			Score:       s.Score,
			Win:         s.Win,
			Draw:        s.Draw,
			Lose:        s.Lose,
		})
	}
	for _, h := range r.Hands {
		m.Hands = append(m.Hands, model.HandRecord{
			Round:    h.Round,
			PlayerID: h.PlayerID,
			Hand:     h.Hand,
			Score:    h.Score,
			At:       h.At,
		})
	}
	return m
}
