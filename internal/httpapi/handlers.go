package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/rps-party-backend/internal/hub"
	"github.com/DoyleJ11/rps-party-backend/internal/model"
	"github.com/DoyleJ11/rps-party-backend/internal/room"
	"github.com/DoyleJ11/rps-party-backend/internal/storage"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := h.Rooms(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := roomView(w, r, h)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, v.Room)
	}
}

func RoomPlayers(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := roomView(w, r, h)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, v.Players)
	}
}

func roomView(w http.ResponseWriter, r *http.Request, h *hub.Hub) (hub.RoomView, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid room id"))
		return hub.RoomView{}, false
	}
	v, err := h.Room(r.Context(), id)
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err)
		return v, false
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err)
		return v, false
	}
	return v, true
}

func RecentMatches(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		matches, err := store.RecentMatches(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

func GetMatch(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := store.GetMatch(r.Context(), chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, model.ErrMatchNotFound):
			writeError(w, http.StatusNotFound, err)
		case err != nil:
			writeError(w, http.StatusInternalServerError, err)
		default:
			writeJSON(w, http.StatusOK, m)
		}
	}
}

func Leaderboard(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		board, err := store.Leaderboard(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, maxLimit), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}
