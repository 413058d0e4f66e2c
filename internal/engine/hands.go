package engine

import "strings"

type Hand string

const (
	HandRock     Hand = "rock"
	HandPaper    Hand = "paper"
	HandScissors Hand = "scissors"
)

var Hands = []Hand{HandRock, HandPaper, HandScissors}

// beats[h] is the hand that h defeats.
var beats = map[Hand]Hand{
	HandRock:     HandScissors,
	HandScissors: HandPaper,
	HandPaper:    HandRock,
}

func ParseHand(s string) (Hand, bool) {
	h := Hand(strings.ToLower(strings.TrimSpace(s)))
	_, ok := beats[h]
	return h, ok
}

func (h Hand) Beats(other Hand) bool {
	return beats[h] == other
}

type Outcome int

const (
	Loss Outcome = -1
	Draw Outcome = 0
	Win  Outcome = 1
)

// Compare reports the outcome for a when thrown against b.
func Compare(a, b Hand) Outcome {
	switch {
	case a.Beats(b):
		return Win
	case b.Beats(a):
		return Loss
	default:
		return Draw
	}
}
