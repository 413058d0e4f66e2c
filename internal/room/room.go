package room

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/DoyleJ11/rps-party-backend/internal/engine"
	pt "github.com/DoyleJ11/rps-party-backend/pkg/types"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrRoomFull = errors.New("room is full")
var ErrWrongPassword = errors.New("wrong password")
var ErrNotAuthorized = errors.New("only the host can do that")
var ErrMatchInProgress = errors.New("match in progress")
var ErrAlreadyInRoom = errors.New("already in a room")
var ErrNotMember = errors.New("not a member of this room")
var ErrInvalidSettings = errors.New("invalid room settings")

const (
	MinPersons    = 2
	MaxNameLength = 32
	// bcrypt ignores anything past 72 bytes
	maxPasswordBytes = 72
)

type State string

const (
	StateWaiting State = "waiting"
	StatePlaying State = "playing"
)

type Member struct {
	ID    string
	IsBot bool
}

type Room struct {
	ID         int
	Name       string
	MaxPersons int
	Mode       engine.GameMode
	State      State
	Host       string
	Members    []Member // join order
	CreatedAt  time.Time

	passwordHash []byte
}

func (r *Room) HasPassword() bool { return len(r.passwordHash) > 0 }

func (r *Room) NumPersons() int { return len(r.Members) }

func (r *Room) IsFull() bool { return len(r.Members) >= r.MaxPersons }

func (r *Room) Has(id string) bool { return r.index(id) >= 0 }

func (r *Room) Member(id string) (Member, bool) {
	i := r.index(id)
	if i < 0 {
		return Member{}, false
	}
	return r.Members[i], true
}

func (r *Room) index(id string) int {
	for i, m := range r.Members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (r *Room) Humans() int {
	n := 0
	for _, m := range r.Members {
		if !m.IsBot {
			n++
		}
	}
	return n
}

// CheckPassword accepts anything when the room has no password.
func (r *Room) CheckPassword(password string) bool {
	if !r.HasPassword() {
		return true
	}
	return bcrypt.CompareHashAndPassword(r.passwordHash, []byte(password)) == nil
}

func (r *Room) Summary() pt.RoomSummary {
	return pt.RoomSummary{
		ID:          r.ID,
		Name:        r.Name,
		NumPersons:  r.NumPersons(),
		MaxPersons:  r.MaxPersons,
		HasPassword: r.HasPassword(),
		GameMode:    string(r.Mode),
		State:       string(r.State),
		Host:        r.Host,
	}
}

func (r *Room) remove(id string) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.Members = append(r.Members[:i], r.Members[i+1:]...)
	if r.Host == id {
		r.Host = ""
		for _, m := range r.Members {
			if !m.IsBot {
				r.Host = m.ID
				break
			}
		}
	}
	return true
}

func validName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name must be 1 to %d characters", ErrInvalidSettings, MaxNameLength)
	}
	return nil
}

func hashPassword(password string, cost int) ([]byte, error) {
	if password == "" {
		return nil, nil
	}
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password longer than %d bytes", ErrInvalidSettings, maxPasswordBytes)
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}
