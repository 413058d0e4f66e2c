package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testRules() Rules {
	return Rules{Mode: ModeNormal, TimeOffset: 3 * time.Second, TimeDuration: 5 * time.Second, MatchDuration: 60 * time.Second}
}

func twoPlayers(rules Rules) State {
	return NewState(rules, []Participant{{ID: "A"}, {ID: "B"}})
}

func mustApply(t *testing.T, s State, cmd Command, now time.Time) ([]Event, State) {
	t.Helper()
	events, next, err := Apply(s, cmd, now)
	if err != nil {
		t.Fatalf("apply %s: unexpected err: %v", cmd.Type, err)
	}
	return events, next
}

// collecting starts the match and opens the first window.
func collecting(t *testing.T, s State) State {
	t.Helper()
	_, s = mustApply(t, s, Command{Type: CmdStart}, t0)
	_, s = mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(s.Rules.TimeOffset))
	if s.Phase != PhaseCollecting {
		t.Fatalf("want collecting, got %s", s.Phase)
	}
	return s
}

func TestCompare_AllPairings(t *testing.T) {
	cases := []struct {
		a, b Hand
		want Outcome
	}{
		{HandRock, HandScissors, Win},
		{HandScissors, HandPaper, Win},
		{HandPaper, HandRock, Win},
		{HandScissors, HandRock, Loss},
		{HandPaper, HandScissors, Loss},
		{HandRock, HandPaper, Loss},
		{HandRock, HandRock, Draw},
		{HandPaper, HandPaper, Draw},
		{HandScissors, HandScissors, Draw},
	}

	for _, tc := range cases {
		t.Run(string(tc.a)+"_vs_"+string(tc.b), func(t *testing.T) {
			if got := Compare(tc.a, tc.b); got != tc.want {
				t.Fatalf("Compare(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
			}

			s := collecting(t, twoPlayers(testRules()))
			_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "A", Hand: tc.a}, t0.Add(4*time.Second))
			_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "B", Hand: tc.b}, t0.Add(5*time.Second))
			_, s = mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(8*time.Second))

			wantA := int(tc.want)
			if s.Tallies["A"].Score != wantA || s.Tallies["B"].Score != -wantA {
				t.Fatalf("scores: got A=%d B=%d, want A=%d B=%d", s.Tallies["A"].Score, s.Tallies["B"].Score, wantA, -wantA)
			}
			if tc.want == Draw && (s.Tallies["A"].Draw != 1 || s.Tallies["B"].Draw != 1) {
				t.Fatalf("draw not counted: %+v", s.Tallies)
			}
		})
	}
}

func TestParseHand(t *testing.T) {
	if h, ok := ParseHand(" Rock "); !ok || h != HandRock {
		t.Fatalf("ParseHand rock: got %q %v", h, ok)
	}
	if _, ok := ParseHand("lizard"); ok {
		t.Fatalf("lizard should not parse")
	}
}

func TestScenario_RockBeatsScissorsAfterWindow(t *testing.T) {
	s := twoPlayers(testRules())

	events, s := mustApply(t, s, Command{Type: CmdStart}, t0)
	if !ContainsEvent(events, EvtCountdownStarted) || s.Phase != PhaseCountdown {
		t.Fatalf("start: want countdown, got %s", s.Phase)
	}
	if !s.PhaseEndsAt.Equal(t0.Add(3 * time.Second)) {
		t.Fatalf("countdown deadline: got %v", s.PhaseEndsAt)
	}

	_, s = mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(3*time.Second))
	if !s.PhaseEndsAt.Equal(t0.Add(8 * time.Second)) {
		t.Fatalf("collecting deadline: got %v", s.PhaseEndsAt)
	}

	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, t0.Add(4*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "B", Hand: HandScissors}, t0.Add(6*time.Second))

	events, s = mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(8*time.Second))
	for _, want := range []EventType{EvtRoundResolved, EvtScoresApplied, EvtCountdownStarted} {
		if !ContainsEvent(events, want) {
			t.Fatalf("resolve: missing %s in %+v", want, events)
		}
	}

	if s.Tallies["A"].Score != 1 || s.Tallies["B"].Score != -1 {
		t.Fatalf("want {A:+1, B:-1}, got %+v", s.Tallies)
	}
	if s.Round != 2 || s.Phase != PhaseCountdown {
		t.Fatalf("want round 2 countdown, got round %d %s", s.Round, s.Phase)
	}
	if len(s.Throws) != 0 {
		t.Fatalf("throws should be cleared, got %+v", s.Throws)
	}
}

func TestThrow_LastSubmissionWins(t *testing.T) {
	s := collecting(t, twoPlayers(testRules()))
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "A", Hand: HandPaper}, t0.Add(4*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, t0.Add(5*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "B", Hand: HandScissors}, t0.Add(5*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(8*time.Second))

	if s.Tallies["A"].Score != 1 {
		t.Fatalf("last submission should count: %+v", s.Tallies)
	}
}

func TestThrow_NonSubmitterUnaffected(t *testing.T) {
	s := NewState(testRules(), []Participant{{ID: "A"}, {ID: "B"}, {ID: "C"}})
	s = collecting(t, s)
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "A", Hand: HandPaper}, t0.Add(4*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "B", Hand: HandRock}, t0.Add(4*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(8*time.Second))

	if s.Tallies["C"] != (Tally{}) {
		t.Fatalf("C did not throw and must be unaffected, got %+v", s.Tallies["C"])
	}
}

func TestLimitedMode_RejectsRepeatedHand(t *testing.T) {
	rules := testRules()
	rules.Mode = ModeLimited
	s := collecting(t, twoPlayers(rules))

	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, t0.Add(4*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "B", Hand: HandScissors}, t0.Add(4*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(8*time.Second))  // round 1 resolved
	_, s = mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(11*time.Second)) // round 2 collecting

	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "A", Hand: HandPaper}, t0.Add(12*time.Second))
	before := s.Clone()

	_, after, err := Apply(s, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, t0.Add(13*time.Second))
	if !errors.Is(err, ErrRepeatedHand) {
		t.Fatalf("want ErrRepeatedHand, got %v", err)
	}
	if !reflect.DeepEqual(after, before) {
		t.Fatalf("rejected submission changed state")
	}
	if after.Throws["A"] != HandPaper || after.Tallies["A"].Score != 1 {
		t.Fatalf("hand/score changed: throws=%+v tallies=%+v", after.Throws, after.Tallies)
	}

	// the constraint is per player: B may throw rock
	if _, _, err := Apply(s, Command{Type: CmdThrow, PlayerID: "B", Hand: HandRock}, t0.Add(13*time.Second)); err != nil {
		t.Fatalf("B rock: unexpected err %v", err)
	}
}

func TestNormalMode_AllowsRepeatedHand(t *testing.T) {
	s := collecting(t, twoPlayers(testRules()))
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, t0.Add(4*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(8*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(11*time.Second))

	if _, _, err := Apply(s, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, t0.Add(12*time.Second)); err != nil {
		t.Fatalf("normal mode should allow repeats, got %v", err)
	}
}

func TestThrow_PhaseErrors(t *testing.T) {
	lobby := twoPlayers(testRules())
	_, countdown1 := mustApply(t, lobby, Command{Type: CmdStart}, t0)
	collecting1 := collecting(t, twoPlayers(testRules()))
	_, countdown2 := mustApply(t, collecting1, Command{Type: CmdTimerExpired}, t0.Add(8*time.Second))
	_, collecting2 := mustApply(t, countdown2, Command{Type: CmdTimerExpired}, t0.Add(11*time.Second))
	_, ended := mustApply(t, collecting1, Command{Type: CmdRemovePlayer, PlayerID: "A"}, t0.Add(4*time.Second))
	_, ended = mustApply(t, ended, Command{Type: CmdRemovePlayer, PlayerID: "B"}, t0.Add(4*time.Second))

	cases := []struct {
		name    string
		state   State
		cmd     Command
		wantErr error
	}{
		{"lobby", lobby, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, ErrInvalidPhase},
		{"first countdown", countdown1, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, ErrInvalidPhase},
		{"between windows", countdown2, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, ErrSubmissionTooLate},
		{"stale round", collecting2, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock, Round: 1}, ErrSubmissionTooLate},
		{"future round", collecting2, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock, Round: 3}, ErrInvalidPhase},
		{"ended", ended, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, ErrNotParticipant},
		{"stranger", collecting1, Command{Type: CmdThrow, PlayerID: "Z", Hand: HandRock}, ErrNotParticipant},
		{"bad hand", collecting1, Command{Type: CmdThrow, PlayerID: "A", Hand: "lizard"}, ErrInvalidHand},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, next, err := Apply(tc.state, tc.cmd, t0.Add(20*time.Second))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if !reflect.DeepEqual(next, tc.state) {
				t.Fatalf("state changed on error")
			}
		})
	}
}

func TestThrow_AfterEndIsInvalidPhase(t *testing.T) {
	rules := testRules()
	rules.MatchDuration = 8 * time.Second // exactly one round fits
	s := collecting(t, NewState(rules, []Participant{{ID: "A"}, {ID: "B"}}))
	events, s := mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(8*time.Second))
	if !ContainsEvent(events, EvtMatchEnded) || s.Phase != PhaseEnded {
		t.Fatalf("want ended, got %s", s.Phase)
	}

	_, _, err := Apply(s, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, t0.Add(9*time.Second))
	if !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("want ErrInvalidPhase, got %v", err)
	}
}

func TestTimer_RoundsStopWhenMatchClockRunsOut(t *testing.T) {
	rules := Rules{Mode: ModeNormal, TimeOffset: 5 * time.Second, TimeDuration: 10 * time.Second, MatchDuration: 60 * time.Second}
	s := NewState(rules, []Participant{{ID: "A"}})
	_, s = mustApply(t, s, Command{Type: CmdStart}, t0)

	now := t0
	for s.Phase != PhaseEnded {
		if s.Round > 10 {
			t.Fatalf("match did not terminate")
		}
		now = s.PhaseEndsAt
		_, s = mustApply(t, s, Command{Type: CmdTimerExpired}, now)
	}

	if s.Round != 4 {
		t.Fatalf("want 4 rounds of 15s in 60s, got %d", s.Round)
	}
	if now.Sub(t0) > rules.MatchDuration {
		t.Fatalf("match ran past its clock: %v", now.Sub(t0))
	}
}

func TestTimer_StaleFireInLobbyIsRejected(t *testing.T) {
	s := twoPlayers(testRules())
	if _, _, err := Apply(s, Command{Type: CmdTimerExpired}, t0); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("want ErrInvalidPhase, got %v", err)
	}
}

func TestStart_Validation(t *testing.T) {
	bad := testRules()
	bad.TimeDuration = 0
	if _, _, err := Apply(twoPlayers(bad), Command{Type: CmdStart}, t0); !errors.Is(err, ErrInvalidRules) {
		t.Fatalf("want ErrInvalidRules, got %v", err)
	}

	bots := NewState(testRules(), []Participant{{ID: "bot", IsBot: true}})
	if _, _, err := Apply(bots, Command{Type: CmdStart}, t0); !errors.Is(err, ErrNoParticipants) {
		t.Fatalf("want ErrNoParticipants, got %v", err)
	}

	_, started := mustApply(t, twoPlayers(testRules()), Command{Type: CmdStart}, t0)
	if _, _, err := Apply(started, Command{Type: CmdStart}, t0); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("double start: want ErrInvalidPhase, got %v", err)
	}
}

func TestRemovePlayer_SoleRemainingEndsMatch(t *testing.T) {
	s := collecting(t, twoPlayers(testRules()))

	events, s := mustApply(t, s, Command{Type: CmdRemovePlayer, PlayerID: "A"}, t0.Add(4*time.Second))
	if ContainsEvent(events, EvtMatchEnded) {
		t.Fatalf("B is still playing")
	}

	events, s = mustApply(t, s, Command{Type: CmdRemovePlayer, PlayerID: "B"}, t0.Add(5*time.Second))
	if !ContainsEvent(events, EvtMatchEnded) || s.Phase != PhaseEnded {
		t.Fatalf("want ended after last player quits, got %s", s.Phase)
	}
	if _, _, err := Apply(s, Command{Type: CmdRemovePlayer, PlayerID: "B"}, t0); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("second removal: want ErrNotParticipant, got %v", err)
	}
}

func TestRemovePlayer_OnlyBotsLeftEndsMatch(t *testing.T) {
	s := NewState(testRules(), []Participant{{ID: "A"}, {ID: "bot", IsBot: true}})
	s = collecting(t, s)
	events, s := mustApply(t, s, Command{Type: CmdRemovePlayer, PlayerID: "A"}, t0.Add(4*time.Second))
	if !ContainsEvent(events, EvtMatchEnded) || s.Phase != PhaseEnded {
		t.Fatalf("want ended when only bots remain")
	}
}

func TestRemovePlayer_DropsPendingThrow(t *testing.T) {
	s := NewState(testRules(), []Participant{{ID: "A"}, {ID: "B"}, {ID: "C"}})
	s = collecting(t, s)
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "A", Hand: HandRock}, t0.Add(4*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "B", Hand: HandScissors}, t0.Add(4*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdRemovePlayer, PlayerID: "B"}, t0.Add(5*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(8*time.Second))

	if s.Tallies["A"].Score != 0 {
		t.Fatalf("B left before resolution, A should not score: %+v", s.Tallies)
	}
}

func TestTeamPlay_TeammatesAreNotPaired(t *testing.T) {
	s := NewState(testRules(), []Participant{
		{ID: "r1", Team: TeamRed},
		{ID: "r2", Team: TeamRed},
		{ID: "b1", Team: TeamBlue},
	})
	s = collecting(t, s)
	if !s.TeamPlay {
		t.Fatalf("both teams present: team play expected")
	}
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "r1", Hand: HandRock}, t0.Add(4*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "r2", Hand: HandPaper}, t0.Add(4*time.Second))
	_, s = mustApply(t, s, Command{Type: CmdThrow, PlayerID: "b1", Hand: HandScissors}, t0.Add(4*time.Second))
	events, s := mustApply(t, s, Command{Type: CmdTimerExpired}, t0.Add(8*time.Second))

	var resolved Event
	for _, e := range events {
		if e.Type == EvtRoundResolved {
			resolved = e
		}
	}
	if len(resolved.Pairings) != 2 {
		t.Fatalf("want 2 cross-team pairings, got %+v", resolved.Pairings)
	}
	want := map[string]int{"r1": 1, "r2": -1, "b1": 0}
	for id, score := range want {
		if s.Tallies[id].Score != score {
			t.Fatalf("%s: want %d got %d", id, score, s.Tallies[id].Score)
		}
	}
	teams := TeamScores(s)
	if teams[TeamRed] != 0 || teams[TeamBlue] != 0 {
		t.Fatalf("team scores: %+v", teams)
	}
}

func TestTeamPlay_SingleTeamIsFreeForAll(t *testing.T) {
	s := NewState(testRules(), []Participant{{ID: "r1", Team: TeamRed}, {ID: "r2", Team: TeamRed}})
	s = collecting(t, s)
	if s.TeamPlay {
		t.Fatalf("only red present: free-for-all expected")
	}
	if TeamScores(s) != nil {
		t.Fatalf("team scores only reported in team play")
	}
}

func TestRanking_ScoreThenWinThenDraw(t *testing.T) {
	s := NewState(testRules(), []Participant{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}})
	s.Tallies["a"] = Tally{Score: 1, Win: 2, Lose: 1}
	s.Tallies["b"] = Tally{Score: 1, Win: 3, Lose: 2}
	s.Tallies["c"] = Tally{Score: 2, Win: 2}
	s.Tallies["d"] = Tally{Score: 1, Win: 2, Lose: 1, Draw: 4}

	got := Ranking(s, false)
	order := []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID}
	if !reflect.DeepEqual(order, []string{"c", "b", "d", "a"}) {
		t.Fatalf("ranking order: %v", order)
	}
	if got[0].Rank != 1 || got[3].Rank != 4 {
		t.Fatalf("ranks: %+v", got)
	}
}

func TestReduce_ReplaysToSameState(t *testing.T) {
	base := twoPlayers(testRules())
	var log []Event
	s := base

	step := func(cmd Command, now time.Time) {
		events, next, err := Apply(s, cmd, now)
		if err != nil {
			t.Fatalf("apply %s: %v", cmd.Type, err)
		}
		log = append(log, events...)
		s = next
	}
	step(Command{Type: CmdStart}, t0)
	step(Command{Type: CmdTimerExpired}, t0.Add(3*time.Second))
	step(Command{Type: CmdThrow, PlayerID: "A", Hand: HandPaper}, t0.Add(4*time.Second))
	step(Command{Type: CmdThrow, PlayerID: "B", Hand: HandRock}, t0.Add(4*time.Second))
	step(Command{Type: CmdTimerExpired}, t0.Add(8*time.Second))

	if got := Reduce(base, log); !reflect.DeepEqual(got, s) {
		t.Fatalf("reduce mismatch:\n got %+v\nwant %+v", got, s)
	}
}
