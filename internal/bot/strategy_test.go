package bot_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/DoyleJ11/rps-party-backend/internal/bot"
	"github.com/DoyleJ11/rps-party-backend/internal/engine"
	"github.com/DoyleJ11/rps-party-backend/internal/random"
)

type StrategySuite struct {
	suite.Suite
	rnd      *random.Sequence
	strategy *bot.RandomStrategy
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategySuite))
}

func (s *StrategySuite) SetupTest() {
	s.rnd = &random.Sequence{}
	s.strategy = bot.NewRandomStrategy(s.rnd)
}

func (s *StrategySuite) TestNormalModePicksFromAllHands() {
	s.rnd.Values = []int{0, 1, 2}
	s.Equal(engine.HandRock, s.strategy.Choose(engine.ModeNormal, engine.HandRock, true))
	s.Equal(engine.HandPaper, s.strategy.Choose(engine.ModeNormal, engine.HandRock, true))
	s.Equal(engine.HandScissors, s.strategy.Choose(engine.ModeNormal, engine.HandRock, true))
}

func (s *StrategySuite) TestLimitedModeNeverRepeats() {
	s.rnd.Values = []int{0, 1, 2, 3, 4, 5}
	for i := 0; i < 6; i++ {
		h := s.strategy.Choose(engine.ModeLimited, engine.HandPaper, true)
		s.NotEqual(engine.HandPaper, h)
		_, ok := engine.ParseHand(string(h))
		s.True(ok)
	}
}

func (s *StrategySuite) TestLimitedModeFirstRoundIsFree() {
	s.rnd.Values = []int{1}
	s.Equal(engine.HandPaper, s.strategy.Choose(engine.ModeLimited, "", false))
}

func TestFixedSkipsForbiddenRepeat(t *testing.T) {
	f := bot.Fixed{Hand: engine.HandScissors}
	if got := f.Choose(engine.ModeNormal, engine.HandScissors, true); got != engine.HandScissors {
		t.Fatalf("normal mode: want scissors, got %s", got)
	}
	if got := f.Choose(engine.ModeLimited, engine.HandScissors, true); got == engine.HandScissors {
		t.Fatalf("limited mode: repeated %s", got)
	}
}
