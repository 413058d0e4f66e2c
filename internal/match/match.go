package match

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/rps-party-backend/internal/bot"
	"github.com/DoyleJ11/rps-party-backend/internal/clock"
	"github.com/DoyleJ11/rps-party-backend/internal/engine"
	"github.com/DoyleJ11/rps-party-backend/internal/model"
	"github.com/DoyleJ11/rps-party-backend/internal/types"
	pt "github.com/DoyleJ11/rps-party-backend/pkg/types"
)

type Msg interface{ isMatchMsg() }

type Throw struct {
	PlayerID string
	Hand     string
	Round    int
}

func (Throw) isMatchMsg() {}

// Leave takes a player out of the match. Their outbox gets nothing afterwards.
type Leave struct{ PlayerID string }

func (Leave) isMatchMsg() {}

type Shutdown struct{}

func (Shutdown) isMatchMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isMatchMsg() {}

type timerFired struct{ gen int }

func (timerFired) isMatchMsg() {}

type View struct {
	State      engine.State
	NumClients int
	TimerGen   int
}

type Participant struct {
	ID          string
	Affiliation string
	Name        string
	Team        engine.Team
	IsBot       bool
	Outbox      types.Outbox // nil for bots
}

// Result is handed to OnEnded once the match reaches Ended.
type Result struct {
	RoomID int
	Record *model.MatchRecord
}

type Config struct {
	Room         pt.RoomSummary
	Rules        engine.Rules
	Participants []Participant
	Clock        clock.Clock
	Bot          bot.Strategy
	Logger       *zap.Logger
	// OnEnded runs on the match goroutine and must not block.
	OnEnded func(Result)
}

type Match struct {
	inbox  chan Msg
	ctx    context.Context
	cancel context.CancelFunc

	cfg      Config
	log      *zap.Logger
	state    engine.State
	people   map[string]Participant
	outboxes map[string]types.Outbox
	timer    clock.Timer
	timerGen int

	lastHands map[string]engine.Hand // hands of the round being resolved
	history   []model.HandRecord
	endedAt   time.Time
}

// New starts the match right away. Rule or participant problems are reported
// before any goroutine is spawned.
func New(parent context.Context, cfg Config) (*Match, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	participants := make([]engine.Participant, 0, len(cfg.Participants))
	people := make(map[string]Participant, len(cfg.Participants))
	outboxes := make(map[string]types.Outbox)
	for _, p := range cfg.Participants {
		participants = append(participants, engine.Participant{ID: p.ID, Team: p.Team, IsBot: p.IsBot})
		people[p.ID] = p
		if p.Outbox != nil && !p.IsBot {
			outboxes[p.ID] = p.Outbox
		}
	}

	initial := engine.NewState(cfg.Rules, participants)
	events, next, err := engine.Apply(initial, engine.Command{Type: engine.CmdStart}, cfg.Clock.Now())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	m := &Match{
		inbox:    make(chan Msg, 64),
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		log:      cfg.Logger.With(zap.Int("room_id", cfg.Room.ID)),
		state:    initial,
		people:   people,
		outboxes: outboxes,
	}
	m.commit(events, next)

	go m.loop()
	return m, nil
}

// Send queues msg for the match; false once the match has shut down.
func (m *Match) Send(msg Msg) bool {
	select {
	case <-m.ctx.Done():
		return false
	default:
	}
	select {
	case m.inbox <- msg:
		return true
	case <-m.ctx.Done():
		return false
	}
}

// View asks the match goroutine for a copy of its state.
func (m *Match) View(ctx context.Context) (View, bool) {
	reply := make(chan View, 1)
	if !m.Send(GetState{Reply: reply}) {
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-ctx.Done():
		return View{}, false
	case <-m.ctx.Done():
		return View{}, false
	}
}

func (m *Match) Done() <-chan struct{} { return m.ctx.Done() }

func (m *Match) loop() {
	for {
		select {
		case <-m.ctx.Done():
			m.stopTimer()
			return

		case in := <-m.inbox:
			switch msg := in.(type) {
			case Throw:
				m.handleThrow(msg)

			case Leave:
				events, next, err := engine.Apply(m.state, engine.Command{Type: engine.CmdRemovePlayer, PlayerID: msg.PlayerID}, m.cfg.Clock.Now())
				delete(m.outboxes, msg.PlayerID)
				if err != nil {
					break
				}
				m.commit(events, next)

			case timerFired:
				if msg.gen != m.timerGen {
					break // stale
				}
				m.timer = nil
				events, next, err := engine.Apply(m.state, engine.Command{Type: engine.CmdTimerExpired}, m.cfg.Clock.Now())
				if err != nil {
					m.log.Warn("timer fired in unexpected phase", zap.String("phase", string(m.state.Phase)))
					break
				}
				m.commit(events, next)

			case GetState:
				msg.Reply <- View{
					State:      m.state.Clone(),
					NumClients: len(m.outboxes),
					TimerGen:   m.timerGen,
				}

			case Shutdown:
				m.stopTimer()
				m.cancel()
				return
			}
		}
	}
}

func (m *Match) handleThrow(msg Throw) {
	hand, ok := engine.ParseHand(msg.Hand)
	if !ok {
		m.sendTo(msg.PlayerID, types.Error(types.KindHand, engine.ErrInvalidHand))
		return
	}
	cmd := engine.Command{Type: engine.CmdThrow, PlayerID: msg.PlayerID, Hand: hand, Round: msg.Round}
	events, next, err := engine.Apply(m.state, cmd, m.cfg.Clock.Now())
	if err != nil {
		m.sendTo(msg.PlayerID, types.Error(types.KindHand, err))
		return
	}
	m.commit(events, next)
}

// commit installs next, arms the timer for the new phase and only then
// broadcasts, so anyone reacting to a phase message sees the timer armed.
func (m *Match) commit(events []engine.Event, next engine.State) {
	m.state = next
	if engine.ContainsEvent(events, engine.EvtCountdownStarted) || engine.ContainsEvent(events, engine.EvtCollectingStarted) {
		m.armTimer(m.state.PhaseEndsAt.Sub(m.cfg.Clock.Now()))
	}
	ending := engine.ContainsEvent(events, engine.EvtMatchEnded)
	if ending {
		m.stopTimer()
	}

	for _, e := range events {
		switch e.Type {
		case engine.EvtMatchStarted:
			m.broadcast(types.Data(types.TypeInitData, m.initData()))
			m.log.Info("match started", zap.Int("players", len(m.state.Order)), zap.Bool("team_play", e.TeamPlay))

		case engine.EvtCountdownStarted, engine.EvtCollectingStarted:
			if ending {
				break
			}
			m.broadcast(types.Data(types.TypePhase, pt.PhaseInfo{
				Phase:    string(phaseOf(e.Type)),
				Round:    e.Round,
				EndsInMs: e.EndsAt.Sub(e.At).Milliseconds(),
			}))

		case engine.EvtHandAccepted:
			m.sendTo(e.PlayerID, types.Notice(types.KindHand, string(e.Hand)))

		case engine.EvtRoundResolved:
			m.lastHands = e.Hands

		case engine.EvtScoresApplied:
			m.broadcast(types.Data(types.TypeHandList, m.recordRound(e)))
			if !ending {
				m.broadcast(types.Data(types.TypeGameList, m.standings(true)))
			}

		case engine.EvtPlayerLeft:
			if !ending {
				m.broadcast(types.Data(types.TypeGameList, m.standings(true)))
			}

		case engine.EvtMatchEnded:
			m.endedAt = e.At
			m.broadcast(types.Data(types.TypeGameEnd, pt.GameEnd{
				Standings:  m.standings(true),
				TeamScores: teamScores(m.state),
			}))
			m.log.Info("match ended", zap.Int("rounds", m.state.Round))
			if m.cfg.OnEnded != nil {
				m.cfg.OnEnded(Result{RoomID: m.cfg.Room.ID, Record: m.record()})
			}
		}
	}

	if engine.ContainsEvent(events, engine.EvtCollectingStarted) && !ending {
		m.throwForBots()
	}
}

func (m *Match) throwForBots() {
	if m.cfg.Bot == nil {
		return
	}
	for _, id := range m.state.Order {
		p := m.state.Players[id]
		if !p.IsBot || !p.Active {
			continue
		}
		last, hasLast := m.state.LastHands[id]
		hand := m.cfg.Bot.Choose(m.state.Rules.Mode, last, hasLast)
		events, next, err := engine.Apply(m.state, engine.Command{Type: engine.CmdThrow, PlayerID: id, Hand: hand}, m.cfg.Clock.Now())
		if err != nil {
			m.log.Debug("bot throw rejected", zap.String("player_id", id), zap.Error(err))
			continue
		}
		m.commit(events, next)
	}
}

func (m *Match) armTimer(d time.Duration) {
	m.stopTimer()
	m.timerGen++
	gen := m.timerGen
	m.timer = m.cfg.Clock.AfterFunc(d, func() {
		select {
		case m.inbox <- timerFired{gen: gen}:
		case <-m.ctx.Done():
		}
	})
}

// stopTimer also bumps the generation so a fire already queued is ignored.
func (m *Match) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
		m.timerGen++
	}
}

func (m *Match) sendTo(id string, msg types.ServerMessage) {
	if out, ok := m.outboxes[id]; ok {
		out.Send(msg)
	}
}

func (m *Match) broadcast(msg types.ServerMessage) {
	for id, out := range m.outboxes {
		if !out.Send(msg) {
			// slow or closed client; the hub removes the player when its connection goes
			delete(m.outboxes, id)
		}
	}
}

func (m *Match) recordRound(e engine.Event) []pt.HandEntry {
	entries := make([]pt.HandEntry, 0, len(m.lastHands))
	for _, id := range m.state.Order {
		h, ok := m.lastHands[id]
		if !ok {
			continue
		}
		p := m.people[id]
		delta := e.Deltas[id].Score
		entries = append(entries, pt.HandEntry{
			Round:       e.Round,
			PlayerID:    id,
			Affiliation: p.Affiliation,
			Name:        p.Name,
			Hand:        string(h),
			Score:       delta,
		})
		m.history = append(m.history, model.HandRecord{
			Round:    e.Round,
			PlayerID: id,
			Hand:     string(h),
			Score:    delta,
			At:       e.At,
		})
	}
	m.lastHands = nil
	return entries
}

func (m *Match) standings(activeOnly bool) []pt.PlayerSummary {
	ranked := engine.Ranking(m.state, activeOnly)
	out := make([]pt.PlayerSummary, 0, len(ranked))
	for _, r := range ranked {
		p := m.people[r.ID]
		out = append(out, pt.PlayerSummary{
			Rank:        r.Rank,
			ID:          r.ID,
			Affiliation: p.Affiliation,
			Name:        p.Name,
			Team:        string(m.state.Players[r.ID].Team),
			IsBot:       p.IsBot,
			IsHost:      r.ID == m.cfg.Room.Host,
			Score:       r.Tally.Score,
			Win:         r.Tally.Win,
			Draw:        r.Tally.Draw,
			Lose:        r.Tally.Lose,
		})
	}
	return out
}

func (m *Match) initData() pt.InitData {
	return pt.InitData{
		Room:          m.cfg.Room,
		Players:       m.standings(true),
		TimeOffset:    m.state.Rules.TimeOffset.Seconds(),
		TimeDuration:  m.state.Rules.TimeDuration.Seconds(),
		MatchDuration: m.state.Rules.MatchDuration.Seconds(),
		TeamPlay:      m.state.TeamPlay,
		StartedAt:     m.state.StartedAt,
	}
}

func (m *Match) record() *model.MatchRecord {
	rec := &model.MatchRecord{
		ID:        uuid.NewString(),
		RoomID:    m.cfg.Room.ID,
		RoomName:  m.cfg.Room.Name,
		GameMode:  string(m.state.Rules.Mode),
		TeamPlay:  m.state.TeamPlay,
		Rounds:    m.state.Round,
		StartedAt: m.state.StartedAt,
		EndedAt:   m.endedAt,
		Hands:     append([]model.HandRecord{}, m.history...),
	}
	for _, r := range engine.Ranking(m.state, false) {
		p := m.people[r.ID]
		rec.Standings = append(rec.Standings, model.Standing{
			PlayerID:    r.ID,
			Rank:        r.Rank,
			Affiliation: p.Affiliation,
			Name:        p.Name,
			Team:        string(m.state.Players[r.ID].Team),
			IsBot:       p.IsBot,
			Left:        !m.state.Players[r.ID].Active,
			Score:       r.Tally.Score,
			Win:         r.Tally.Win,
			Draw:        r.Tally.Draw,
			Lose:        r.Tally.Lose,
		})
	}
	return rec
}

func phaseOf(t engine.EventType) engine.Phase {
	if t == engine.EvtCollectingStarted {
		return engine.PhaseCollecting
	}
	return engine.PhaseCountdown
}

func teamScores(s engine.State) map[string]int {
	scores := engine.TeamScores(s)
	if scores == nil {
		return nil
	}
	out := make(map[string]int, len(scores))
	for team, score := range scores {
		out[string(team)] = score
	}
	return out
}
