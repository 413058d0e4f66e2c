package types

import "time"

// Server -> Client payloads carried in the data field of a message.
//
//   room_list  []RoomSummary
//   room       RoomSummary
//   game_list  []PlayerSummary
//   init_data  InitData
//   phase      PhaseInfo
//   hand_list  []HandEntry
//   game_end   GameEnd
//
// Requests and notices use {"request", "response", "type": "message", "message"}.

type InitData struct {
	Room          RoomSummary     `json:"room"`
	Players       []PlayerSummary `json:"players"`
	TimeOffset    float64         `json:"time_offset"`    // seconds
	TimeDuration  float64         `json:"time_duration"`  // seconds
	MatchDuration float64         `json:"match_duration"` // seconds
	TeamPlay      bool            `json:"team_play"`
	StartedAt     time.Time       `json:"started_at"`
}

type PhaseInfo struct {
	Phase    string `json:"phase"` // "countdown" | "collecting"
	Round    int    `json:"round"`
	EndsInMs int64  `json:"ends_in_ms"`
}

// HandEntry is one player's resolved hand; Score is what the round earned them.
type HandEntry struct {
	Round       int    `json:"round"`
	PlayerID    string `json:"player_id"`
	Affiliation string `json:"affiliation"`
	Name        string `json:"name"`
	Hand        string `json:"hand"`
	Score       int    `json:"score"`
}

type GameEnd struct {
	Standings  []PlayerSummary `json:"standings"`
	TeamScores map[string]int  `json:"team_scores,omitempty"`
}
