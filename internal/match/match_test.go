package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/rps-party-backend/internal/bot"
	"github.com/DoyleJ11/rps-party-backend/internal/clock"
	"github.com/DoyleJ11/rps-party-backend/internal/engine"
	"github.com/DoyleJ11/rps-party-backend/internal/types"
	pt "github.com/DoyleJ11/rps-party-backend/pkg/types"
)

var start = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// helper: receive one message with a timeout so tests never hang
func recvMsg(t *testing.T, out *types.ChanOutbox, within time.Duration) types.ServerMessage {
	t.Helper()
	select {
	case msg := <-out.C():
		return msg
	case <-out.Done():
		t.Fatalf("outbox closed unexpectedly: %s", out.Reason())
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
	}
	return types.ServerMessage{} // unreachable
}

// recvType skips messages until one of the wanted type shows up.
func recvType(t *testing.T, out *types.ChanOutbox, typ string) types.ServerMessage {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		msg := recvMsg(t, out, time.Until(deadline))
		if msg.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %s message within 1s", typ)
	return types.ServerMessage{}
}

func recvNoMsg(t *testing.T, out *types.ChanOutbox, within time.Duration) {
	t.Helper()
	select {
	case msg := <-out.C():
		t.Fatalf("expected no message within %v, got %+v", within, msg)
	case <-time.After(within):
	}
}

func recvPhase(t *testing.T, out *types.ChanOutbox, want engine.Phase, round int) pt.PhaseInfo {
	t.Helper()
	msg := recvType(t, out, types.TypePhase)
	info, ok := msg.Data.(pt.PhaseInfo)
	require.True(t, ok)
	require.Equal(t, string(want), info.Phase)
	require.Equal(t, round, info.Round)
	return info
}

type fixture struct {
	clk    *clock.Mock
	match  *Match
	outs   map[string]*types.ChanOutbox
	ended  chan Result
	cancel context.CancelFunc
}

func (f *fixture) sync(t *testing.T) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, ok := f.match.View(ctx)
	require.True(t, ok, "match not responding")
	return v
}

func newFixture(t *testing.T, rules engine.Rules, people ...Participant) *fixture {
	t.Helper()
	f := &fixture{
		clk:   clock.NewMock(start),
		outs:  map[string]*types.ChanOutbox{},
		ended: make(chan Result, 1),
	}
	for i, p := range people {
		if !p.IsBot {
			out := types.NewChanOutbox(64)
			f.outs[p.ID] = out
			people[i].Outbox = out
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	t.Cleanup(cancel)

	m, err := New(ctx, Config{
		Room:         pt.RoomSummary{ID: 7, Name: "arena", Host: people[0].ID},
		Rules:        rules,
		Participants: people,
		Clock:        f.clk,
		Bot:          bot.Fixed{Hand: engine.HandRock},
		OnEnded:      func(r Result) { f.ended <- r },
	})
	require.NoError(t, err)
	f.match = m
	return f
}

func rules(offset, duration, total time.Duration, mode engine.GameMode) engine.Rules {
	return engine.Rules{Mode: mode, TimeOffset: offset, TimeDuration: duration, MatchDuration: total}
}

func human(id string) Participant {
	return Participant{ID: id, Affiliation: "lab", Name: id, Team: engine.TeamNone}
}

func TestMatch_RockBeatsScissorsScenario(t *testing.T) {
	f := newFixture(t, rules(3*time.Second, 5*time.Second, 8*time.Second, engine.ModeNormal), human("A"), human("B"))
	a, b := f.outs["A"], f.outs["B"]

	init := recvType(t, a, types.TypeInitData).Data.(pt.InitData)
	assert.Equal(t, 3.0, init.TimeOffset)
	assert.Equal(t, 5.0, init.TimeDuration)
	assert.Len(t, init.Players, 2)
	assert.True(t, init.Players[0].IsHost)

	info := recvPhase(t, a, engine.PhaseCountdown, 1)
	assert.Equal(t, int64(3000), info.EndsInMs)

	f.clk.Advance(3 * time.Second)
	recvPhase(t, a, engine.PhaseCollecting, 1)

	f.match.Send(Throw{PlayerID: "A", Hand: "rock"})
	f.match.Send(Throw{PlayerID: "B", Hand: "scissors"})
	ack := recvType(t, a, types.TypeMessage)
	assert.Equal(t, types.ResponseSuccess, ack.Response)
	f.sync(t)

	f.clk.Advance(5 * time.Second)

	hands := recvType(t, b, types.TypeHandList).Data.([]pt.HandEntry)
	require.Len(t, hands, 2)
	assert.Equal(t, pt.HandEntry{Round: 1, PlayerID: "A", Affiliation: "lab", Name: "A", Hand: "rock", Score: 1}, hands[0])
	assert.Equal(t, -1, hands[1].Score)

	end := recvType(t, a, types.TypeGameEnd).Data.(pt.GameEnd)
	require.Len(t, end.Standings, 2)
	assert.Equal(t, "A", end.Standings[0].ID)
	assert.Equal(t, 1, end.Standings[0].Score)
	assert.Equal(t, "B", end.Standings[1].ID)
	assert.Equal(t, -1, end.Standings[1].Score)
	assert.Nil(t, end.TeamScores)

	select {
	case r := <-f.ended:
		assert.Equal(t, 7, r.RoomID)
		assert.Equal(t, 1, r.Record.Rounds)
		assert.Len(t, r.Record.Hands, 2)
		assert.Equal(t, start.Add(8*time.Second), r.Record.EndedAt)
		assert.NotEmpty(t, r.Record.ID)
	case <-time.After(time.Second):
		t.Fatalf("OnEnded not called")
	}
	assert.Equal(t, 0, f.clk.Pending(), "no timer left after the end")
}

func TestMatch_ThrowOutsideCollectingIsRejected(t *testing.T) {
	f := newFixture(t, rules(3*time.Second, 5*time.Second, time.Minute, engine.ModeNormal), human("A"), human("B"))
	a, b := f.outs["A"], f.outs["B"]
	recvPhase(t, a, engine.PhaseCountdown, 1)
	recvPhase(t, b, engine.PhaseCountdown, 1)

	f.match.Send(Throw{PlayerID: "A", Hand: "rock"})
	msg := recvType(t, a, types.TypeMessage)
	assert.True(t, msg.IsError())
	assert.Contains(t, msg.Message, engine.ErrInvalidPhase.Error())

	f.match.Send(Throw{PlayerID: "A", Hand: "lizard"})
	msg = recvType(t, a, types.TypeMessage)
	assert.Equal(t, engine.ErrInvalidHand.Error(), msg.Message)

	f.sync(t)
	recvNoMsg(t, b, 50*time.Millisecond)
}

func TestMatch_LimitedModeRejectsRepeatOnlyForOffender(t *testing.T) {
	f := newFixture(t, rules(time.Second, 2*time.Second, time.Minute, engine.ModeLimited), human("A"), human("B"))
	a, b := f.outs["A"], f.outs["B"]

	recvPhase(t, a, engine.PhaseCountdown, 1)
	recvPhase(t, b, engine.PhaseCountdown, 1)
	f.clk.Advance(time.Second)
	recvPhase(t, a, engine.PhaseCollecting, 1)
	recvPhase(t, b, engine.PhaseCollecting, 1)
	f.match.Send(Throw{PlayerID: "A", Hand: "paper"})
	f.match.Send(Throw{PlayerID: "B", Hand: "paper"})
	f.sync(t)
	f.clk.Advance(2 * time.Second)
	recvPhase(t, a, engine.PhaseCountdown, 2)
	recvPhase(t, b, engine.PhaseCountdown, 2)
	f.clk.Advance(time.Second)
	recvPhase(t, a, engine.PhaseCollecting, 2)
	recvPhase(t, b, engine.PhaseCollecting, 2)

	before := f.sync(t).State
	f.match.Send(Throw{PlayerID: "A", Hand: "paper"})
	msg := recvType(t, a, types.TypeMessage)
	require.True(t, msg.IsError())
	assert.Equal(t, engine.ErrRepeatedHand.Error(), msg.Message)

	after := f.sync(t).State
	assert.Equal(t, before.Tallies, after.Tallies)
	assert.Equal(t, before.Throws, after.Throws)
	recvNoMsg(t, b, 50*time.Millisecond)
}

func TestMatch_LateRoundIsTooLate(t *testing.T) {
	f := newFixture(t, rules(time.Second, 2*time.Second, time.Minute, engine.ModeNormal), human("A"), human("B"))
	a := f.outs["A"]

	recvPhase(t, a, engine.PhaseCountdown, 1)
	f.clk.Advance(time.Second)
	recvPhase(t, a, engine.PhaseCollecting, 1)
	f.sync(t)
	f.clk.Advance(2 * time.Second)
	recvPhase(t, a, engine.PhaseCountdown, 2)

	f.match.Send(Throw{PlayerID: "A", Hand: "rock", Round: 1})
	msg := recvType(t, a, types.TypeMessage)
	assert.Equal(t, engine.ErrSubmissionTooLate.Error(), msg.Message)
}

func TestMatch_BotsThrowWhenCollectingOpens(t *testing.T) {
	bot1 := Participant{ID: "bot-1", Affiliation: "bot", Name: "Bot 1", IsBot: true, Team: engine.TeamNone}
	f := newFixture(t, rules(time.Second, 2*time.Second, 3*time.Second, engine.ModeNormal), human("A"), bot1)
	a := f.outs["A"]

	recvPhase(t, a, engine.PhaseCountdown, 1)
	f.clk.Advance(time.Second)
	recvPhase(t, a, engine.PhaseCollecting, 1)

	v := f.sync(t)
	assert.Equal(t, engine.HandRock, v.State.Throws["bot-1"])
	assert.Equal(t, 1, v.NumClients)

	f.match.Send(Throw{PlayerID: "A", Hand: "paper"})
	f.sync(t)
	f.clk.Advance(2 * time.Second)

	end := recvType(t, a, types.TypeGameEnd).Data.(pt.GameEnd)
	require.Len(t, end.Standings, 2)
	assert.Equal(t, "A", end.Standings[0].ID)
	assert.True(t, end.Standings[1].IsBot)
	assert.Equal(t, -1, end.Standings[1].Score)
}

func TestMatch_SoleRemainingQuitEndsMatch(t *testing.T) {
	f := newFixture(t, rules(time.Second, 2*time.Second, time.Minute, engine.ModeNormal), human("A"), human("B"))
	a, b := f.outs["A"], f.outs["B"]
	recvPhase(t, a, engine.PhaseCountdown, 1)
	recvPhase(t, b, engine.PhaseCountdown, 1)

	f.match.Send(Leave{PlayerID: "B"})
	list := recvType(t, a, types.TypeGameList).Data.([]pt.PlayerSummary)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].ID)
	recvNoMsg(t, b, 50*time.Millisecond)

	f.match.Send(Leave{PlayerID: "A"})
	select {
	case r := <-f.ended:
		require.Len(t, r.Record.Standings, 2)
		assert.True(t, r.Record.Standings[0].Left)
		assert.True(t, r.Record.Standings[1].Left)
	case <-time.After(time.Second):
		t.Fatalf("match did not end")
	}

	v := f.sync(t)
	assert.Equal(t, engine.PhaseEnded, v.State.Phase)
	assert.Equal(t, 0, f.clk.Pending())
	recvNoMsg(t, a, 50*time.Millisecond)
}

func TestMatch_TeamPlayReportsTeamScores(t *testing.T) {
	red1 := Participant{ID: "r1", Name: "r1", Team: engine.TeamRed}
	red2 := Participant{ID: "r2", Name: "r2", Team: engine.TeamRed}
	blue := Participant{ID: "b1", Name: "b1", Team: engine.TeamBlue}
	f := newFixture(t, rules(time.Second, time.Second, 2*time.Second, engine.ModeNormal), red1, red2, blue)
	out := f.outs["b1"]

	init := recvType(t, out, types.TypeInitData).Data.(pt.InitData)
	assert.True(t, init.TeamPlay)
	recvPhase(t, out, engine.PhaseCountdown, 1)

	f.clk.Advance(time.Second)
	recvPhase(t, out, engine.PhaseCollecting, 1)
	f.match.Send(Throw{PlayerID: "r1", Hand: "rock"})
	f.match.Send(Throw{PlayerID: "r2", Hand: "paper"})
	f.match.Send(Throw{PlayerID: "b1", Hand: "rock"})
	f.sync(t)
	f.clk.Advance(time.Second)

	end := recvType(t, out, types.TypeGameEnd).Data.(pt.GameEnd)
	// r1 draws b1, r2 beats b1, teammates are not compared
	assert.Equal(t, map[string]int{"red": 1, "blue": -1}, end.TeamScores)
}

func TestMatch_ShutdownStopsTimer(t *testing.T) {
	f := newFixture(t, rules(time.Second, time.Second, time.Minute, engine.ModeNormal), human("A"))
	a := f.outs["A"]
	recvPhase(t, a, engine.PhaseCountdown, 1)

	f.match.Send(Shutdown{})
	select {
	case <-f.match.Done():
	case <-time.After(time.Second):
		t.Fatalf("match did not stop")
	}
	assert.Equal(t, 0, f.clk.Pending())

	f.clk.Advance(5 * time.Second)
	recvNoMsg(t, a, 50*time.Millisecond)
	assert.False(t, f.match.Send(Throw{PlayerID: "A", Hand: "rock"}))
}

func TestNew_RejectsInvalidRules(t *testing.T) {
	_, err := New(context.Background(), Config{
		Rules:        engine.Rules{TimeOffset: time.Second},
		Participants: []Participant{human("A")},
		Clock:        clock.NewMock(start),
	})
	assert.ErrorIs(t, err, engine.ErrInvalidRules)
}
