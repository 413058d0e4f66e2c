package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/DoyleJ11/rps-party-backend/internal/model"
	pt "github.com/DoyleJ11/rps-party-backend/pkg/types"
)

func newHealthCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().Get(cmd.Context(), "/healthz", nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newRoomsCmd(client func() *Client, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms [id]",
		Short: "List rooms, or show the players of one room",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			if len(args) == 0 {
				var rooms []pt.RoomSummary
				if err := client().Get(cmd.Context(), "/rooms", &rooms); err != nil {
					return err
				}
				out.Print(rooms)
				return nil
			}

			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid room id %q", args[0])
			}
			var players []pt.PlayerSummary
			if err := client().Get(cmd.Context(), fmt.Sprintf("/rooms/%d/players", id), &players); err != nil {
				return err
			}
			out.Print(players)
			return nil
		},
	}
	return cmd
}

func newMatchesCmd(client func() *Client, cfg *Config) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "matches [id]",
		Short: "List recent matches, or show one match record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			if len(args) == 1 {
				var m model.MatchRecord
				if err := client().Get(cmd.Context(), "/matches/"+url.PathEscape(args[0]), &m); err != nil {
					return err
				}
				out.Print(m)
				return nil
			}

			var matches []*model.MatchRecord
			if err := client().Get(cmd.Context(), "/matches?limit="+strconv.Itoa(limit), &matches); err != nil {
				return err
			}
			out.Print(matches)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of matches")
	return cmd
}

func newLeaderboardCmd(client func() *Client, cfg *Config) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the all-time leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			var board []model.LeaderboardEntry
			if err := client().Get(cmd.Context(), "/leaderboard?limit="+strconv.Itoa(limit), &board); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(board)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	return cmd
}
