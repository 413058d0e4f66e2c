// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/DoyleJ11/rps-party-backend/internal/model"
	"github.com/DoyleJ11/rps-party-backend/internal/storage"
)

// Suite runs the storage contract against whatever New returns.
// New is called once per test and must return an empty store.
type Suite struct {
	suite.Suite
	New     func() storage.Storage
	storage storage.Storage
	ctx     context.Context
}

func (s *Suite) SetupTest() {
	s.storage = s.New()
	s.ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// Match builds a finished two-player match with one bot.
func Match(id string, endedAfter time.Duration, aliceScore int) *model.MatchRecord {
	return &model.MatchRecord{
		ID:        id,
		RoomID:    1,
		RoomName:  "Room " + id,
		GameMode:  "normal",
		Rounds:    2,
		StartedAt: base,
		EndedAt:   base.Add(endedAfter),
		Standings: []model.Standing{
			{PlayerID: "p-alice", Rank: 1, Affiliation: "lab", Name: "alice", Team: "none", Score: aliceScore, Win: 2},
			{PlayerID: "p-bob", Rank: 2, Affiliation: "lab", Name: "bob", Team: "none", Score: -1, Lose: 1, Draw: 1},
			{PlayerID: "p-bot", Rank: 3, Affiliation: "bot", Name: "Bot 1", Team: "none", IsBot: true, Score: 5, Win: 5},
		},
		Hands: []model.HandRecord{
			{Round: 1, PlayerID: "p-alice", Hand: "rock", Score: 1, At: base.Add(10 * time.Second)},
			{Round: 1, PlayerID: "p-bob", Hand: "scissors", Score: -1, At: base.Add(10 * time.Second)},
		},
	}
}

func (s *Suite) TestSaveAndGetMatch() {
	m := Match("m-1", time.Minute, 2)
	s.Require().NoError(s.storage.SaveMatch(s.ctx, m))

	got, err := s.storage.GetMatch(s.ctx, "m-1")
	s.Require().NoError(err)
	s.Equal(m.ID, got.ID)
	s.Equal(m.RoomName, got.RoomName)
	s.Equal(m.Rounds, got.Rounds)
	s.True(m.EndedAt.Equal(got.EndedAt))
	s.Require().Len(got.Standings, 3)
	s.Equal("alice", got.Standings[0].Name)
	s.Equal(2, got.Standings[0].Score)
	s.True(got.Standings[2].IsBot)
	s.Require().Len(got.Hands, 2)
	s.Equal("rock", got.Hands[0].Hand)
}

func (s *Suite) TestGetMatchNotFound() {
	_, err := s.storage.GetMatch(s.ctx, "nope")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestReturnedMatchIsACopy() {
	s.Require().NoError(s.storage.SaveMatch(s.ctx, Match("m-1", time.Minute, 2)))

	got, err := s.storage.GetMatch(s.ctx, "m-1")
	s.Require().NoError(err)
	got.Standings[0].Score = 100

	again, err := s.storage.GetMatch(s.ctx, "m-1")
	s.Require().NoError(err)
	s.Equal(2, again.Standings[0].Score)
}

func (s *Suite) TestRecentMatchesNewestFirst() {
	s.Require().NoError(s.storage.SaveMatch(s.ctx, Match("m-old", time.Minute, 1)))
	s.Require().NoError(s.storage.SaveMatch(s.ctx, Match("m-new", 3*time.Minute, 1)))
	s.Require().NoError(s.storage.SaveMatch(s.ctx, Match("m-mid", 2*time.Minute, 1)))

	all, err := s.storage.RecentMatches(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]string{"m-new", "m-mid", "m-old"}, []string{all[0].ID, all[1].ID, all[2].ID})

	two, err := s.storage.RecentMatches(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(two, 2)
	s.Equal("m-new", two[0].ID)
}

func (s *Suite) TestRecentMatchesEmpty() {
	got, err := s.storage.RecentMatches(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *Suite) TestLeaderboardAggregatesHumans() {
	s.Require().NoError(s.storage.SaveMatch(s.ctx, Match("m-1", time.Minute, 2)))
	s.Require().NoError(s.storage.SaveMatch(s.ctx, Match("m-2", 2*time.Minute, 3)))

	board, err := s.storage.Leaderboard(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(board, 2, "bots are not ranked")

	s.Equal("alice", board[0].Name)
	s.Equal(2, board[0].Matches)
	s.Equal(5, board[0].Score)
	s.Equal(4, board[0].Win)

	s.Equal("bob", board[1].Name)
	s.Equal(-2, board[1].Score)
	s.Equal(2, board[1].Draw)
	s.Equal(2, board[1].Lose)

	top, err := s.storage.Leaderboard(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(top, 1)
}

func (s *Suite) TestResaveDoesNotDoubleCount() {
	m := Match("m-1", time.Minute, 2)
	s.Require().NoError(s.storage.SaveMatch(s.ctx, m))
	s.Require().NoError(s.storage.SaveMatch(s.ctx, m))

	board, err := s.storage.Leaderboard(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().NotEmpty(board)
	s.Equal(1, board[0].Matches)
	s.Equal(2, board[0].Score)

	recent, err := s.storage.RecentMatches(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(recent, 1)
}
