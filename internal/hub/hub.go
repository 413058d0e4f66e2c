package hub

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/rps-party-backend/internal/bot"
	"github.com/DoyleJ11/rps-party-backend/internal/clock"
	"github.com/DoyleJ11/rps-party-backend/internal/engine"
	"github.com/DoyleJ11/rps-party-backend/internal/match"
	"github.com/DoyleJ11/rps-party-backend/internal/player"
	"github.com/DoyleJ11/rps-party-backend/internal/random"
	"github.com/DoyleJ11/rps-party-backend/internal/room"
	"github.com/DoyleJ11/rps-party-backend/internal/storage"
	"github.com/DoyleJ11/rps-party-backend/internal/types"
	pt "github.com/DoyleJ11/rps-party-backend/pkg/types"
)

type HubMsg interface{ isHubMsg() }

type Connect struct {
	Affiliation string
	Name        string
	Outbox      types.Outbox
	Reply       chan ConnectResult
}

type ConnectResult struct {
	PlayerID string
	Err      error
}

type Request struct {
	PlayerID string
	Kind     types.Kind
	Req      types.Request
}

type Disconnect struct{ PlayerID string }

type ListRooms struct {
	Reply chan []pt.RoomSummary
}

type GetRoom struct {
	RoomID int
	Reply  chan RoomView
}

// RoomView is nil-safe: Found is false when the room does not exist.
type RoomView struct {
	Found   bool
	Room    pt.RoomSummary
	Players []pt.PlayerSummary
}

type ShutdownHub struct{}

type matchEnded struct{ result match.Result }

func (Connect) isHubMsg()     {}
func (Request) isHubMsg()     {}
func (Disconnect) isHubMsg()  {}
func (ListRooms) isHubMsg()   {}
func (GetRoom) isHubMsg()     {}
func (ShutdownHub) isHubMsg() {}
func (matchEnded) isHubMsg()  {}

type Config struct {
	Defaults        engine.Rules
	MaxPersonsLimit int
	BcryptCost      int
	Clock           clock.Clock
	Random          random.Random
	Bot             bot.Strategy
	Storage         storage.Storage
	Logger          *zap.Logger
}

// one per connected human
type session struct {
	playerID string
	outbox   types.Outbox
	roomID   int // 0 when not in a room
}

type Hub struct {
	inbox  chan HubMsg
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config
	log    *zap.Logger

	players  *player.Registry
	rooms    *room.Directory
	sessions map[string]*session  // by player id
	matches  map[int]*match.Match // by room id

	stopped chan struct{}
	saves   sync.WaitGroup
}

func NewHub(parent context.Context, cfg Config) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Random == nil {
		cfg.Random = random.New()
	}
	if cfg.Bot == nil {
		cfg.Bot = bot.NewRandomStrategy(cfg.Random)
	}
	if cfg.Defaults.Mode == "" {
		cfg.Defaults.Mode = engine.ModeNormal
	}

	rooms := room.NewDirectory(room.Config{
		MaxPersonsLimit: cfg.MaxPersonsLimit,
		BcryptCost:      cfg.BcryptCost,
		Now:             cfg.Clock.Now,
	})

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 256),
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		log:      cfg.Logger,
		players:  player.NewRegistry(),
		rooms:    rooms,
		sessions: make(map[string]*session),
		matches:  make(map[int]*match.Match),
		stopped:  make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) send(ctx context.Context, msg HubMsg) bool {
	select {
	case <-h.ctx.Done():
		return false
	default:
	}
	select {
	case h.inbox <- msg:
		return true
	case <-h.ctx.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) loop() {
	defer close(h.stopped)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				id, err := h.connect(msg)
				msg.Reply <- ConnectResult{PlayerID: id, Err: err}

			case Request:
				h.handle(msg)

			case Disconnect:
				h.disconnect(msg.PlayerID)

			case ListRooms:
				msg.Reply <- h.roomList()

			case GetRoom:
				r, err := h.rooms.Get(msg.RoomID)
				if err != nil {
					msg.Reply <- RoomView{}
					break
				}
				msg.Reply <- RoomView{Found: true, Room: r.Summary(), Players: h.lobbyList(r)}

			case matchEnded:
				h.matchEnded(msg.result)

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, m := range h.matches {
		m.Send(match.Shutdown{})
		delete(h.matches, id)
	}
	for id, s := range h.sessions {
		s.outbox.Close("server shutting down")
		delete(h.sessions, id)
	}
}

// Wait blocks until the hub loop has exited and every pending match save
// has finished.
func (h *Hub) Wait() {
	<-h.stopped
	h.saves.Wait()
}
