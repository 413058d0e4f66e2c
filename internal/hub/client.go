package hub

import (
	"context"
	"errors"

	"github.com/DoyleJ11/rps-party-backend/internal/room"
	"github.com/DoyleJ11/rps-party-backend/internal/types"
	pt "github.com/DoyleJ11/rps-party-backend/pkg/types"
)

var ErrHubClosed = errors.New("hub closed")

// Connect registers a human connection and returns its player id. An older
// connection with the same identity is signed out and closed.
func (h *Hub) Connect(ctx context.Context, affiliation, name string, out types.Outbox) (string, error) {
	reply := make(chan ConnectResult, 1)
	if !h.send(ctx, Connect{Affiliation: affiliation, Name: name, Outbox: out, Reply: reply}) {
		return "", ErrHubClosed
	}
	select {
	case r := <-reply:
		return r.PlayerID, r.Err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-h.ctx.Done():
		return "", ErrHubClosed
	}
}

func (h *Hub) Handle(ctx context.Context, playerID string, kind types.Kind, req types.Request) bool {
	return h.send(ctx, Request{PlayerID: playerID, Kind: kind, Req: req})
}

func (h *Hub) Disconnect(ctx context.Context, playerID string) bool {
	return h.send(ctx, Disconnect{PlayerID: playerID})
}

func (h *Hub) Rooms(ctx context.Context) ([]pt.RoomSummary, error) {
	reply := make(chan []pt.RoomSummary, 1)
	if !h.send(ctx, ListRooms{Reply: reply}) {
		return nil, ErrHubClosed
	}
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	}
}

// Room returns the summary and the current player list of one room.
func (h *Hub) Room(ctx context.Context, id int) (RoomView, error) {
	reply := make(chan RoomView, 1)
	if !h.send(ctx, GetRoom{RoomID: id, Reply: reply}) {
		return RoomView{}, ErrHubClosed
	}
	select {
	case v := <-reply:
		if !v.Found {
			return v, room.ErrRoomNotFound
		}
		return v, nil
	case <-ctx.Done():
		return RoomView{}, ctx.Err()
	case <-h.ctx.Done():
		return RoomView{}, ErrHubClosed
	}
}

func (h *Hub) Shutdown() {
	h.send(context.Background(), ShutdownHub{})
}
