package types

// RoomSummary is one row of room_list and the payload of room.
type RoomSummary struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	NumPersons  int    `json:"num_persons"`
	MaxPersons  int    `json:"max_persons"`
	HasPassword bool   `json:"has_password"`
	GameMode    string `json:"game_mode"` // "normal" | "limited"
	State       string `json:"state"`     // "waiting" | "playing"
	Host        string `json:"host"`      // player id
}

// PlayerSummary is one row of game_list, ranked by score, win, draw.
type PlayerSummary struct {
	Rank        int    `json:"rank"`
	ID          string `json:"id"`
	Affiliation string `json:"affiliation"`
	Name        string `json:"name"`
	Team        string `json:"team"` // "red" | "blue" | "none"
	IsBot       bool   `json:"is_bot"`
	IsHost      bool   `json:"is_host"`
	Score       int    `json:"score"`
	Win         int    `json:"win"`
	Draw        int    `json:"draw"`
	Lose        int    `json:"lose"`
}
