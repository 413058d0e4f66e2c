package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownRequest = errors.New("unknown request")
var ErrBadRequest = errors.New("bad request")

type Kind string

const (
	KindRefresh        Kind = "refresh"
	KindCreate         Kind = "create"
	KindJoin           Kind = "join"
	KindQuickStart     Kind = "quick_start"
	KindQuit           Kind = "quit"
	KindStart          Kind = "start"
	KindHand           Kind = "hand"
	KindUpdateSettings Kind = "update_settings"
	KindTeam           Kind = "team"
	KindAddBot         Kind = "add_bot"
	KindRemoveBot      Kind = "remove_bot"
)

// Request is the closed set of things a client may ask for.
type Request interface{ Kind() Kind }

type Refresh struct{}

type Create struct {
	Name       string `json:"name"`
	Password   string `json:"password,omitempty"`
	MaxPersons int    `json:"max_persons"`
	GameMode   string `json:"game_mode,omitempty"`
}

type Join struct {
	RoomID   int    `json:"room_id"`
	Password string `json:"password,omitempty"`
}

type QuickStart struct{}

type Quit struct{}

// Start times are in seconds; nil means the server default.
type Start struct {
	TimeOffset   *float64 `json:"time_offset,omitempty"`
	TimeDuration *float64 `json:"time_duration,omitempty"`
}

type Throw struct {
	Hand  string `json:"hand"`
	Round int    `json:"round,omitempty"`
}

type UpdateSettings struct {
	Name       *string `json:"name,omitempty"`
	Password   *string `json:"password,omitempty"`
	MaxPersons *int    `json:"max_persons,omitempty"`
	GameMode   *string `json:"game_mode,omitempty"`
}

type SetTeam struct {
	Team string `json:"team"`
}

type AddBot struct {
	Name string `json:"name,omitempty"`
	Team string `json:"team,omitempty"`
}

type RemoveBot struct {
	PlayerID string `json:"player_id"`
}

func (Refresh) Kind() Kind        { return KindRefresh }
func (Create) Kind() Kind         { return KindCreate }
func (Join) Kind() Kind           { return KindJoin }
func (QuickStart) Kind() Kind     { return KindQuickStart }
func (Quit) Kind() Kind           { return KindQuit }
func (Start) Kind() Kind          { return KindStart }
func (Throw) Kind() Kind          { return KindHand }
func (UpdateSettings) Kind() Kind { return KindUpdateSettings }
func (SetTeam) Kind() Kind        { return KindTeam }
func (AddBot) Kind() Kind         { return KindAddBot }
func (RemoveBot) Kind() Kind      { return KindRemoveBot }

// DecodeRequest parses one client frame. The returned kind echoes the
// request field even when decoding fails, so errors can be attributed.
func DecodeRequest(data []byte) (Kind, Request, error) {
	var env struct {
		Request string `json:"request"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	kind := Kind(env.Request)
	var req Request
	switch kind {
	case KindRefresh:
		return kind, Refresh{}, nil
	case KindQuickStart:
		return kind, QuickStart{}, nil
	case KindQuit:
		return kind, Quit{}, nil
	case KindCreate:
		req = &Create{}
	case KindJoin:
		req = &Join{}
	case KindStart:
		req = &Start{}
	case KindHand, "throw":
		kind = KindHand
		req = &Throw{}
	case KindUpdateSettings:
		req = &UpdateSettings{}
	case KindTeam:
		req = &SetTeam{}
	case KindAddBot:
		req = &AddBot{}
	case KindRemoveBot:
		req = &RemoveBot{}
	case "":
		return "", nil, fmt.Errorf("%w: missing request field", ErrUnknownRequest)
	default:
		return kind, nil, fmt.Errorf("%w: %q", ErrUnknownRequest, env.Request)
	}

	if err := json.Unmarshal(data, req); err != nil {
		return kind, nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return kind, deref(req), nil
}

// handlers switch on value types
func deref(r Request) Request {
	switch v := r.(type) {
	case *Create:
		return *v
	case *Join:
		return *v
	case *Start:
		return *v
	case *Throw:
		return *v
	case *UpdateSettings:
		return *v
	case *SetTeam:
		return *v
	case *AddBot:
		return *v
	case *RemoveBot:
		return *v
	}
	return r
}
