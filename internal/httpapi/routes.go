package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/rps-party-backend/internal/hub"
	"github.com/DoyleJ11/rps-party-backend/internal/storage"
	"github.com/DoyleJ11/rps-party-backend/internal/ws"
)

type Deps struct {
	Hub     *hub.Hub
	Storage storage.Storage
	WS      ws.Config
	Logger  *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	d.WS.Logger = d.Logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, d.WS))

	// Debug reads
	r.Get("/rooms", ListRooms(d.Hub))
	r.Get("/rooms/{id}", GetRoom(d.Hub))
	r.Get("/rooms/{id}/players", RoomPlayers(d.Hub))
	r.Get("/matches", RecentMatches(d.Storage))
	r.Get("/matches/{id}", GetMatch(d.Storage))
	r.Get("/leaderboard", Leaderboard(d.Storage))
	return r
}
