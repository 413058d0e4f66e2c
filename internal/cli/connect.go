package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"
)

func newConnectCmd(cfg *Config) *cobra.Command {
	var affiliation, name string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Open a game connection and exchange frames interactively",
		Long: `Connect to /ws as (affiliation, name), print every frame the server sends
and send each stdin line as a request.

A line is either raw JSON or a request kind followed by key=value fields:
  create name=arena max_persons=4
  join room_id=1
  start time_offset=3 time_duration=5
  hand hand=rock

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runConnect(ctx, cfg.ServerURL, affiliation, name, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&affiliation, "affiliation", "", "Player affiliation")
	cmd.Flags().StringVar(&name, "name", "", "Player name")
	_ = cmd.MarkFlagRequired("affiliation")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func wsURL(server, affiliation, name string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(server, "/") + "/ws")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set("affiliation", affiliation)
	q.Set("name", name)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func runConnect(ctx context.Context, server, affiliation, name string, in io.Reader, out io.Writer) error {
	target, err := wsURL(server, affiliation, name)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// stdin -> server; EOF closes the connection normally
	go func() {
		defer cancel()
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			frame, err := parseLine(line)
			if err != nil {
				fmt.Fprintf(out, "! %v\n", err)
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				return
			}
		}
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			var ce websocket.CloseError
			switch {
			case errors.As(err, &ce):
				fmt.Fprintf(out, "closed: %s\n", ce.Reason)
				return nil
			case ctx.Err() != nil:
				return nil
			default:
				return err
			}
		}
		fmt.Fprintln(out, string(data))
	}
}

// stringFields are request fields the server always decodes as strings.
var stringFields = map[string]bool{
	"name":      true,
	"password":  true,
	"game_mode": true,
	"hand":      true,
	"team":      true,
	"player_id": true,
}

// parseLine turns "kind k=v ..." into a request frame. Outside stringFields,
// numbers and booleans are sent as JSON numbers and booleans; a double-quoted
// value is always a string.
func parseLine(line string) ([]byte, error) {
	if strings.HasPrefix(line, "{") {
		if !json.Valid([]byte(line)) {
			return nil, errors.New("invalid json")
		}
		return []byte(line), nil
	}

	fields := strings.Fields(line)
	req := map[string]any{"request": fields[0]}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", f)
		}
		req[k] = literal(k, v)
	}
	return json.Marshal(req)
}

func literal(key, v string) any {
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		return v[1 : len(v)-1]
	}
	if stringFields[key] {
		return v
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
