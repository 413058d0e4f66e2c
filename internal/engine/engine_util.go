package engine

import "sort"

func NewState(rules Rules, participants []Participant) State {
	s := State{
		Phase:     PhaseLobby,
		Rules:     rules,
		Players:   make(map[string]Participant, len(participants)),
		Throws:    map[string]Hand{},
		LastHands: map[string]Hand{},
		Tallies:   make(map[string]Tally, len(participants)),
	}
	for _, p := range participants {
		if _, dup := s.Players[p.ID]; dup {
			continue
		}
		p.Active = true
		if p.Team == "" {
			p.Team = TeamNone
		}
		s.Order = append(s.Order, p.ID)
		s.Players[p.ID] = p
		s.Tallies[p.ID] = Tally{}
	}
	return s
}

func (s State) Clone() State {
	c := s
	c.Order = append([]string(nil), s.Order...)
	c.Players = make(map[string]Participant, len(s.Players))
	for k, v := range s.Players {
		c.Players[k] = v
	}
	c.Throws = make(map[string]Hand, len(s.Throws))
	for k, v := range s.Throws {
		c.Throws[k] = v
	}
	c.LastHands = make(map[string]Hand, len(s.LastHands))
	for k, v := range s.LastHands {
		c.LastHands[k] = v
	}
	c.Tallies = make(map[string]Tally, len(s.Tallies))
	for k, v := range s.Tallies {
		c.Tallies[k] = v
	}
	return c
}

type Pairing struct {
	A, B         string
	HandA, HandB Hand
	Outcome      Outcome // from A's point of view
}

// Resolve compares every eligible pair of players that threw this round.
// With team play on, teammates are never paired.
func Resolve(s State) []Pairing {
	var pairings []Pairing
	for i, a := range s.Order {
		ha, ok := s.Throws[a]
		if !ok || !s.Players[a].Active {
			continue
		}
		for _, b := range s.Order[i+1:] {
			hb, ok := s.Throws[b]
			if !ok || !s.Players[b].Active {
				continue
			}
			if s.TeamPlay && sameTeam(s.Players[a], s.Players[b]) {
				continue
			}
			pairings = append(pairings, Pairing{A: a, B: b, HandA: ha, HandB: hb, Outcome: Compare(ha, hb)})
		}
	}
	return pairings
}

func sameTeam(a, b Participant) bool {
	return a.Team != TeamNone && a.Team == b.Team
}

func Deltas(pairings []Pairing) map[string]Tally {
	d := map[string]Tally{}
	for _, p := range pairings {
		a, b := d[p.A], d[p.B]
		switch p.Outcome {
		case Win:
			a.Score++
			a.Win++
			b.Score--
			b.Lose++
		case Loss:
			a.Score--
			a.Lose++
			b.Score++
			b.Win++
		default:
			a.Draw++
			b.Draw++
		}
		d[p.A], d[p.B] = a, b
	}
	return d
}

type Ranked struct {
	ID    string
	Rank  int
	Tally Tally
}

// Ranking orders players by score, then wins, then draws; ties keep join order.
func Ranking(s State, activeOnly bool) []Ranked {
	out := make([]Ranked, 0, len(s.Order))
	for _, id := range s.Order {
		if activeOnly && !s.Players[id].Active {
			continue
		}
		out = append(out, Ranked{ID: id, Tally: s.Tallies[id]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Tally, out[j].Tally
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Win != b.Win {
			return a.Win > b.Win
		}
		return a.Draw > b.Draw
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// TeamScores sums individual scores per team. Nil unless team play is on.
func TeamScores(s State) map[Team]int {
	if !s.TeamPlay {
		return nil
	}
	scores := map[Team]int{TeamRed: 0, TeamBlue: 0}
	for _, id := range s.Order {
		p := s.Players[id]
		if p.Team == TeamRed || p.Team == TeamBlue {
			scores[p.Team] += s.Tallies[id].Score
		}
	}
	return scores
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
