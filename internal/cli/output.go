package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/DoyleJ11/rps-party-backend/internal/model"
	pt "github.com/DoyleJ11/rps-party-backend/pkg/types"
)

// Output formats results as json or as aligned text tables.
type Output struct {
	format string
	w      io.Writer
}

func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

func (o *Output) Print(data any) {
	if o.format == "json" {
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(data)
		return
	}

	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	switch v := data.(type) {
	case []pt.RoomSummary:
		fmt.Fprintln(tw, "ID\tNAME\tPLAYERS\tMODE\tSTATE\tPASSWORD")
		for _, r := range v {
			fmt.Fprintf(tw, "%d\t%s\t%d/%d\t%s\t%s\t%t\n", r.ID, r.Name, r.NumPersons, r.MaxPersons, r.GameMode, r.State, r.HasPassword)
		}
	case []pt.PlayerSummary:
		fmt.Fprintln(tw, "RANK\tAFFILIATION\tNAME\tTEAM\tSCORE\tW/D/L")
		for _, p := range v {
			name := p.Name
			if p.IsHost {
				name += " *"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d/%d/%d\n", p.Rank, p.Affiliation, name, p.Team, p.Score, p.Win, p.Draw, p.Lose)
		}
	case []*model.MatchRecord:
		fmt.Fprintln(tw, "ID\tROOM\tMODE\tROUNDS\tENDED\tWINNER")
		for _, m := range v {
			winner := "-"
			if len(m.Standings) > 0 {
				winner = m.Standings[0].Affiliation + "/" + m.Standings[0].Name
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", m.ID, m.RoomName, m.GameMode, m.Rounds, m.EndedAt.Format("2006-01-02 15:04:05"), winner)
		}
	case []model.LeaderboardEntry:
		fmt.Fprintln(tw, "AFFILIATION\tNAME\tMATCHES\tSCORE\tW/D/L")
		for _, e := range v {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d/%d/%d\n", e.Affiliation, e.Name, e.Matches, e.Score, e.Win, e.Draw, e.Lose)
		}
	default:
		raw, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintln(tw, string(raw))
	}
}
