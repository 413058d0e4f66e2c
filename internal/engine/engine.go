package engine

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPhase = errors.New("invalid phase")
var ErrSubmissionTooLate = errors.New("submission too late")
var ErrRepeatedHand = errors.New("cannot throw the same hand consecutively")
var ErrNotParticipant = errors.New("player is not in this match")
var ErrInvalidHand = errors.New("invalid hand")
var ErrNoParticipants = errors.New("match has no participants")
var ErrInvalidRules = errors.New("invalid match rules")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
	TeamNone Team = "none"
)

func ParseTeam(s string) (Team, bool) {
	switch Team(s) {
	case TeamRed, TeamBlue, TeamNone:
		return Team(s), true
	case "":
		return TeamNone, true
	default:
		return "", false
	}
}

type GameMode string

const (
	ModeNormal  GameMode = "normal"
	ModeLimited GameMode = "limited"
)

func ParseGameMode(s string) (GameMode, bool) {
	switch GameMode(s) {
	case ModeNormal, ModeLimited:
		return GameMode(s), true
	case "":
		return ModeNormal, true
	default:
		return "", false
	}
}

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseCountdown  Phase = "countdown"
	PhaseCollecting Phase = "collecting"
	PhaseResolving  Phase = "resolving"
	PhaseScoring    Phase = "scoring"
	PhaseEnded      Phase = "ended"
)

type Rules struct {
	Mode          GameMode
	TimeOffset    time.Duration
	TimeDuration  time.Duration
	MatchDuration time.Duration
}

type Participant struct {
	ID     string
	Team   Team
	IsBot  bool
	Active bool
}

type Tally struct {
	Score int
	Win   int
	Draw  int
	Lose  int
}

func (t Tally) add(o Tally) Tally {
	return Tally{Score: t.Score + o.Score, Win: t.Win + o.Win, Draw: t.Draw + o.Draw, Lose: t.Lose + o.Lose}
}

type State struct {
	Phase       Phase
	Round       int // 1-based; 0 until the match starts
	Rules       Rules
	TeamPlay    bool
	StartedAt   time.Time
	PhaseEndsAt time.Time
	Order       []string // participant ids in join order
	Players     map[string]Participant
	Throws      map[string]Hand // current round only
	LastHands   map[string]Hand // hands of the previous round
	Tallies     map[string]Tally
}

type CommandType string

const (
	CmdStart        CommandType = "Start"
	CmdThrow        CommandType = "Throw"
	CmdTimerExpired CommandType = "TimerExpired"
	CmdRemovePlayer CommandType = "RemovePlayer"
)

/*
	CmdStart        -> EvtMatchStarted -> EvtCountdownStarted
	CmdTimerExpired -> (countdown)  EvtCollectingStarted
	                -> (collecting) EvtRoundResolved -> EvtScoresApplied -> EvtCountdownStarted or EvtMatchEnded
	CmdThrow        -> EvtHandAccepted
	CmdRemovePlayer -> EvtPlayerLeft (-> EvtMatchEnded when no human is left)
*/

type Command struct {
	Type     CommandType
	PlayerID string
	Hand     Hand
	Round    int // round the sender believes is open; 0 = current
}

type EventType string

const (
	EvtMatchStarted      EventType = "MatchStarted"
	EvtCountdownStarted  EventType = "CountdownStarted"
	EvtCollectingStarted EventType = "CollectingStarted"
	EvtHandAccepted      EventType = "HandAccepted"
	EvtRoundResolved     EventType = "RoundResolved"
	EvtScoresApplied     EventType = "ScoresApplied"
	EvtPlayerLeft        EventType = "PlayerLeft"
	EvtMatchEnded        EventType = "MatchEnded"
)

type Event struct {
	Type     EventType
	Round    int
	PlayerID string
	Hand     Hand
	At       time.Time
	EndsAt   time.Time
	TeamPlay bool
	Hands    map[string]Hand
	Pairings []Pairing
	Deltas   map[string]Tally
}

// Apply validates cmd against s and returns the resulting events and state.
// s is never modified; on error the original state is returned.
func Apply(s State, cmd Command, now time.Time) ([]Event, State, error) {
	var events []Event

	switch cmd.Type {
	case CmdStart:
		if s.Phase != PhaseLobby {
			return nil, s, ErrInvalidPhase
		}
		if s.Rules.TimeDuration <= 0 || s.Rules.TimeOffset < 0 {
			return nil, s, ErrInvalidRules
		}
		if activeHumans(s) == 0 {
			return nil, s, ErrNoParticipants
		}
		events = []Event{
			{Type: EvtMatchStarted, At: now, TeamPlay: hasBothTeams(s)},
			{Type: EvtCountdownStarted, Round: 1, At: now, EndsAt: now.Add(s.Rules.TimeOffset)},
		}

	case CmdThrow:
		if err := checkThrow(s, cmd); err != nil {
			return nil, s, err
		}
		events = []Event{
			{Type: EvtHandAccepted, Round: s.Round, PlayerID: cmd.PlayerID, Hand: cmd.Hand, At: now},
		}

	case CmdTimerExpired:
		switch s.Phase {
		case PhaseCountdown:
			events = []Event{
				{Type: EvtCollectingStarted, Round: s.Round, At: now, EndsAt: now.Add(s.Rules.TimeDuration)},
			}
		case PhaseCollecting:
			events = resolveRound(s, now)
		default:
			return nil, s, ErrInvalidPhase
		}

	case CmdRemovePlayer:
		p, ok := s.Players[cmd.PlayerID]
		if !ok || !p.Active {
			return nil, s, ErrNotParticipant
		}
		events = []Event{{Type: EvtPlayerLeft, PlayerID: cmd.PlayerID, At: now}}

		running := s.Phase != PhaseLobby && s.Phase != PhaseEnded
		if running && !p.IsBot && activeHumans(s) == 1 {
			events = append(events, Event{Type: EvtMatchEnded, Round: s.Round, At: now})
		}

	default:
		return nil, s, ErrUnsupportedCommand
	}

	next := s.Clone()
	for _, e := range events {
		fold(&next, e)
	}
	return events, next, nil
}

// Reduce replays events on top of base, which carries participants and rules.
func Reduce(base State, events []Event) State {
	s := base.Clone()
	for _, e := range events {
		fold(&s, e)
	}
	return s
}

func fold(s *State, e Event) {
	switch e.Type {
	case EvtMatchStarted:
		s.StartedAt = e.At
		s.TeamPlay = e.TeamPlay
	case EvtCountdownStarted:
		s.Phase = PhaseCountdown
		s.Round = e.Round
		s.PhaseEndsAt = e.EndsAt
		clear(s.Throws)
	case EvtCollectingStarted:
		s.Phase = PhaseCollecting
		s.Round = e.Round
		s.PhaseEndsAt = e.EndsAt
		clear(s.Throws)
	case EvtHandAccepted:
		s.Throws[e.PlayerID] = e.Hand
	case EvtRoundResolved:
		s.Phase = PhaseResolving
	case EvtScoresApplied:
		s.Phase = PhaseScoring
		for id, d := range e.Deltas {
			s.Tallies[id] = s.Tallies[id].add(d)
		}
		clear(s.LastHands)
		for id, h := range s.Throws {
			s.LastHands[id] = h
		}
		clear(s.Throws)
	case EvtPlayerLeft:
		p := s.Players[e.PlayerID]
		p.Active = false
		s.Players[e.PlayerID] = p
		delete(s.Throws, e.PlayerID)
	case EvtMatchEnded:
		s.Phase = PhaseEnded
		s.PhaseEndsAt = time.Time{}
	}
}

func checkThrow(s State, cmd Command) error {
	p, ok := s.Players[cmd.PlayerID]
	if !ok || !p.Active {
		return ErrNotParticipant
	}
	if _, ok := beats[cmd.Hand]; !ok {
		return ErrInvalidHand
	}

	switch s.Phase {
	case PhaseCollecting:
		if cmd.Round != 0 && cmd.Round < s.Round {
			return ErrSubmissionTooLate
		}
		if cmd.Round > s.Round {
			return fmt.Errorf("%w: round %d is not open", ErrInvalidPhase, cmd.Round)
		}
	case PhaseCountdown:
		if s.Round > 1 {
			// the previous window already closed
			return ErrSubmissionTooLate
		}
		return fmt.Errorf("%w: match not started yet", ErrInvalidPhase)
	case PhaseEnded:
		return fmt.Errorf("%w: match has ended", ErrInvalidPhase)
	default:
		return ErrInvalidPhase
	}

	if s.Rules.Mode == ModeLimited {
		if last, ok := s.LastHands[cmd.PlayerID]; ok && last == cmd.Hand {
			return ErrRepeatedHand
		}
	}
	return nil
}

func resolveRound(s State, now time.Time) []Event {
	pairings := Resolve(s)
	hands := make(map[string]Hand, len(s.Throws))
	for id, h := range s.Throws {
		hands[id] = h
	}

	events := []Event{
		{Type: EvtRoundResolved, Round: s.Round, At: now, Hands: hands, Pairings: pairings},
		{Type: EvtScoresApplied, Round: s.Round, At: now, Deltas: Deltas(pairings)},
	}

	elapsed := now.Sub(s.StartedAt)
	if elapsed+s.Rules.TimeOffset+s.Rules.TimeDuration > s.Rules.MatchDuration {
		return append(events, Event{Type: EvtMatchEnded, Round: s.Round, At: now})
	}
	return append(events, Event{
		Type:   EvtCountdownStarted,
		Round:  s.Round + 1,
		At:     now,
		EndsAt: now.Add(s.Rules.TimeOffset),
	})
}

func activeHumans(s State) int {
	n := 0
	for _, p := range s.Players {
		if p.Active && !p.IsBot {
			n++
		}
	}
	return n
}

func hasBothTeams(s State) bool {
	var red, blue bool
	for _, p := range s.Players {
		if !p.Active {
			continue
		}
		red = red || p.Team == TeamRed
		blue = blue || p.Team == TeamBlue
	}
	return red && blue
}
