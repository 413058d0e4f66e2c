package bot

import (
	"github.com/DoyleJ11/rps-party-backend/internal/engine"
	"github.com/DoyleJ11/rps-party-backend/internal/random"
)

// Strategy picks the hand a bot throws when a collecting window opens.
type Strategy interface {
	// Choose gets the bot's hand from the previous round, if it had one.
	Choose(mode engine.GameMode, last engine.Hand, hasLast bool) engine.Hand
}

// RandomStrategy throws uniformly at random among the hands it may legally throw.
type RandomStrategy struct {
	random random.Random
}

func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

func (s *RandomStrategy) Choose(mode engine.GameMode, last engine.Hand, hasLast bool) engine.Hand {
	options := engine.Hands
	if mode == engine.ModeLimited && hasLast {
		options = make([]engine.Hand, 0, len(engine.Hands)-1)
		for _, h := range engine.Hands {
			if h != last {
				options = append(options, h)
			}
		}
	}
	return options[s.random.Intn(len(options))]
}

// Fixed always throws the same hand, falling back to the next one when
// limited mode forbids a repeat. Handy in tests.
type Fixed struct {
	Hand engine.Hand
}

func (f Fixed) Choose(mode engine.GameMode, last engine.Hand, hasLast bool) engine.Hand {
	if mode == engine.ModeLimited && hasLast && last == f.Hand {
		for i, h := range engine.Hands {
			if h == f.Hand {
				return engine.Hands[(i+1)%len(engine.Hands)]
			}
		}
	}
	return f.Hand
}
