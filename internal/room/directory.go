package room

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/DoyleJ11/rps-party-backend/internal/engine"
)

type Config struct {
	MaxPersonsLimit int
	BcryptCost      int
	Now             func() time.Time
}

func DefaultConfig() Config {
	return Config{
		MaxPersonsLimit: 30,
		BcryptCost:      bcrypt.DefaultCost,
		Now:             time.Now,
	}
}

type Settings struct {
	Name       string
	Password   string
	MaxPersons int
	Mode       engine.GameMode
}

// Patch changes only the fields that are set. An empty Password removes it.
type Patch struct {
	Name       *string
	Password   *string
	MaxPersons *int
	Mode       *engine.GameMode
}

// Directory owns every room. It is not safe for concurrent use.
type Directory struct {
	cfg    Config
	nextID int
	rooms  map[int]*Room
	order  []int // creation order
}

func NewDirectory(cfg Config) *Directory {
	if cfg.MaxPersonsLimit == 0 {
		cfg.MaxPersonsLimit = DefaultConfig().MaxPersonsLimit
	}
	if cfg.MaxPersonsLimit < MinPersons {
		cfg.MaxPersonsLimit = MinPersons
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Directory{cfg: cfg, rooms: make(map[int]*Room)}
}

func (d *Directory) checkMax(n, current int) error {
	if n < MinPersons || n > d.cfg.MaxPersonsLimit {
		return fmt.Errorf("%w: max_persons must be between %d and %d", ErrInvalidSettings, MinPersons, d.cfg.MaxPersonsLimit)
	}
	if n < current {
		return fmt.Errorf("%w: max_persons below current %d", ErrInvalidSettings, current)
	}
	return nil
}

// Create makes a room with host as its first member.
func (d *Directory) Create(s Settings, host Member) (*Room, error) {
	if host.IsBot {
		return nil, ErrNotAuthorized
	}
	s.Name = strings.TrimSpace(s.Name)
	if err := validName(s.Name); err != nil {
		return nil, err
	}
	if err := d.checkMax(s.MaxPersons, 1); err != nil {
		return nil, err
	}
	if s.Mode == "" {
		s.Mode = engine.ModeNormal
	}
	if _, ok := engine.ParseGameMode(string(s.Mode)); !ok {
		return nil, fmt.Errorf("%w: unknown game mode %q", ErrInvalidSettings, s.Mode)
	}
	hash, err := hashPassword(s.Password, d.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	d.nextID++
	r := &Room{
		ID:           d.nextID,
		Name:         s.Name,
		MaxPersons:   s.MaxPersons,
		Mode:         s.Mode,
		State:        StateWaiting,
		Host:         host.ID,
		Members:      []Member{host},
		CreatedAt:    d.cfg.Now(),
		passwordHash: hash,
	}
	d.rooms[r.ID] = r
	d.order = append(d.order, r.ID)
	return r, nil
}

func (d *Directory) Get(id int) (*Room, error) {
	r, ok := d.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Join admits m after checking the password. Membership is unchanged on error.
func (d *Directory) Join(id int, m Member, password string) (*Room, error) {
	r, err := d.Get(id)
	if err != nil {
		return nil, err
	}
	if r.Has(m.ID) {
		return nil, ErrAlreadyInRoom
	}
	if !r.CheckPassword(password) {
		return nil, ErrWrongPassword
	}
	return r, d.admit(r, m)
}

// Admit adds m without a password check (bots, quick start into open rooms).
func (d *Directory) Admit(id int, m Member) (*Room, error) {
	r, err := d.Get(id)
	if err != nil {
		return nil, err
	}
	if r.Has(m.ID) {
		return nil, ErrAlreadyInRoom
	}
	return r, d.admit(r, m)
}

func (d *Directory) admit(r *Room, m Member) error {
	if r.State == StatePlaying {
		return ErrMatchInProgress
	}
	if r.IsFull() {
		return ErrRoomFull
	}
	r.Members = append(r.Members, m)
	if r.Host == "" && !m.IsBot {
		r.Host = m.ID
	}
	return nil
}

// Leave removes a member and hands the host role to the earliest human left.
// Once no human remains the room is destroyed; the returned room still lists
// the bots that were dropped with it.
func (d *Directory) Leave(id int, memberID string) (r *Room, destroyed bool, err error) {
	r, err = d.Get(id)
	if err != nil {
		return nil, false, err
	}
	if !r.remove(memberID) {
		return r, false, ErrNotMember
	}
	if r.Humans() == 0 {
		d.destroy(id)
		return r, true, nil
	}
	return r, false, nil
}

func (d *Directory) destroy(id int) {
	delete(d.rooms, id)
	for i, rid := range d.order {
		if rid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// UpdateSettings applies p atomically: either every field changes or none.
func (d *Directory) UpdateSettings(id int, by string, p Patch) (*Room, error) {
	r, err := d.Get(id)
	if err != nil {
		return nil, err
	}
	if r.Host != by {
		return nil, ErrNotAuthorized
	}
	if r.State == StatePlaying {
		return nil, ErrMatchInProgress
	}

	name := r.Name
	if p.Name != nil {
		name = strings.TrimSpace(*p.Name)
		if err := validName(name); err != nil {
			return nil, err
		}
	}
	maxPersons := r.MaxPersons
	if p.MaxPersons != nil {
		maxPersons = *p.MaxPersons
		if err := d.checkMax(maxPersons, r.NumPersons()); err != nil {
			return nil, err
		}
	}
	mode := r.Mode
	if p.Mode != nil {
		m, ok := engine.ParseGameMode(string(*p.Mode))
		if !ok {
			return nil, fmt.Errorf("%w: unknown game mode %q", ErrInvalidSettings, *p.Mode)
		}
		mode = m
	}
	hash := r.passwordHash
	if p.Password != nil {
		hash, err = hashPassword(*p.Password, d.cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
	}

	r.Name, r.MaxPersons, r.Mode, r.passwordHash = name, maxPersons, mode, hash
	return r, nil
}

// List returns rooms in creation order.
func (d *Directory) List() []*Room {
	out := make([]*Room, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.rooms[id])
	}
	return out
}

// FindOpen returns the oldest waiting room without a password that has space.
func (d *Directory) FindOpen() (*Room, bool) {
	for _, id := range d.order {
		r := d.rooms[id]
		if r.State == StateWaiting && !r.HasPassword() && !r.IsFull() {
			return r, true
		}
	}
	return nil, false
}

func (d *Directory) Len() int { return len(d.rooms) }

func (d *Directory) MaxPersonsLimit() int { return d.cfg.MaxPersonsLimit }
