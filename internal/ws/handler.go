package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/rps-party-backend/internal/hub"
	"github.com/DoyleJ11/rps-party-backend/internal/player"
	"github.com/DoyleJ11/rps-party-backend/internal/types"
)

type Config struct {
	// In dev you can loosen origin checks, e.g. "localhost:*".
	OriginPatterns []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	ReadLimit      int64
	Logger         *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		PingInterval: 20 * time.Second,
		WriteTimeout: 5 * time.Second,
		SendBuffer:   64,
		ReadLimit:    4096,
	}
}

func Handler(h *hub.Hub, cfg Config) http.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultConfig().SendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		affiliation, name := q.Get("affiliation"), q.Get("name")
		if err := player.ValidateIdentity(affiliation, name); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// upgrade first so a refused handshake leaves existing sessions alone
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: cfg.OriginPatterns,
		})
		if err != nil {
			cfg.Logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		out := types.NewChanOutbox(cfg.SendBuffer)
		playerID, err := h.Connect(r.Context(), affiliation, name, out)
		if err != nil {
			status := websocket.StatusTryAgainLater
			if errors.Is(err, player.ErrInvalidIdentity) {
				status = websocket.StatusPolicyViolation
			}
			_ = conn.Close(status, err.Error())
			return
		}
		// implicit quit, whatever the reason the connection goes away
		defer h.Disconnect(context.Background(), playerID)
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		if cfg.ReadLimit > 0 {
			conn.SetReadLimit(cfg.ReadLimit)
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writeLoop(ctx, cancel, conn, out, cfg)
		if cfg.PingInterval > 0 {
			go pingLoop(ctx, cancel, conn, cfg)
		}

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if ctx.Err() == nil {
						cfg.Logger.Debug("websocket read failed", zap.String("player_id", playerID), zap.Error(err))
					}
				}
				return
			}

			// text and binary frames both carry JSON
			kind, req, err := types.DecodeRequest(data)
			if err != nil {
				out.Send(types.Error(kind, err))
				continue
			}
			if !h.Handle(ctx, playerID, kind, req) {
				return
			}
		}
	}
}

func writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out *types.ChanOutbox, cfg Config) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return

		case <-out.Done():
			status := websocket.StatusNormalClosure
			if out.Reason() == types.ReasonSlowClient {
				status = websocket.StatusPolicyViolation
			}
			_ = conn.Close(status, out.Reason())
			return

		case msg := <-out.C():
			payload, err := json.Marshal(msg)
			if err != nil {
				cfg.Logger.Error("failed to encode message", zap.String("type", msg.Type), zap.Error(err))
				continue
			}
			wctx, wcancel := context.WithTimeout(ctx, cfg.WriteTimeout)
			err = conn.Write(wctx, websocket.MessageText, payload)
			wcancel()
			if err != nil {
				return
			}
		}
	}
}

func pingLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, cfg Config) {
	t := time.NewTicker(cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, cfg.WriteTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				cancel()
				return
			}
		}
	}
}
