package player

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/DoyleJ11/rps-party-backend/internal/engine"
)

var ErrInvalidIdentity = errors.New("invalid identity")
var ErrPlayerNotFound = errors.New("player not found")

const MaxIdentityLength = 32

const BotAffiliation = "bot"

type Player struct {
	ID          string
	Name        string
	Affiliation string
	Team        engine.Team
	IsBot       bool
}

type identity struct{ affiliation, name string }

// Registry tracks every known player. It is not safe for concurrent use;
// the hub goroutine owns it.
type Registry struct {
	players    map[string]*Player
	byIdentity map[identity]string // humans only, latest registration wins
	bots       int
	newID      func() string
}

func NewRegistry() *Registry {
	return &Registry{
		players:    make(map[string]*Player),
		byIdentity: make(map[identity]string),
		newID:      uuid.NewString,
	}
}

// Normalize trims s and puts it in NFC so that visually equal names compare equal.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func validate(field, s string) error {
	if s == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidIdentity, field)
	}
	if utf8.RuneCountInString(s) > MaxIdentityLength {
		return fmt.Errorf("%w: %s longer than %d characters", ErrInvalidIdentity, field, MaxIdentityLength)
	}
	return nil
}

// ValidateIdentity reports whether (affiliation, name) would be accepted for
// a human player, without registering anything.
func ValidateIdentity(affiliation, name string) error {
	if err := validate("name", Normalize(name)); err != nil {
		return err
	}
	return validate("affiliation", Normalize(affiliation))
}

// Register allocates a fresh id. Bots get the "bot" affiliation and, when
// name is empty, a generated name.
func (r *Registry) Register(name, affiliation string, isBot bool) (Player, error) {
	name, affiliation = Normalize(name), Normalize(affiliation)
	if isBot {
		r.bots++
		affiliation = BotAffiliation
		if name == "" {
			name = fmt.Sprintf("Bot %d", r.bots)
		}
	}
	if err := validate("name", name); err != nil {
		return Player{}, err
	}
	if err := validate("affiliation", affiliation); err != nil {
		return Player{}, err
	}

	p := &Player{
		ID:          r.newID(),
		Name:        name,
		Affiliation: affiliation,
		Team:        engine.TeamNone,
		IsBot:       isBot,
	}
	r.players[p.ID] = p
	if !isBot {
		r.byIdentity[identity{affiliation, name}] = p.ID
	}
	return *p, nil
}

func (r *Registry) Get(id string) (Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// FindByIdentity looks up a connected human by normalised identity.
func (r *Registry) FindByIdentity(affiliation, name string) (Player, bool) {
	id, ok := r.byIdentity[identity{Normalize(affiliation), Normalize(name)}]
	if !ok {
		return Player{}, false
	}
	return r.Get(id)
}

// Remove forgets the player. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	p, ok := r.players[id]
	if !ok {
		return
	}
	delete(r.players, id)
	k := identity{p.Affiliation, p.Name}
	if r.byIdentity[k] == id {
		delete(r.byIdentity, k)
	}
}

func (r *Registry) SetTeam(id string, team engine.Team) error {
	p, ok := r.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Team = team
	return nil
}

func (r *Registry) Len() int { return len(r.players) }
