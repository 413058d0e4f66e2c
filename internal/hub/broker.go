package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/rps-party-backend/internal/engine"
	"github.com/DoyleJ11/rps-party-backend/internal/match"
	"github.com/DoyleJ11/rps-party-backend/internal/room"
	"github.com/DoyleJ11/rps-party-backend/internal/types"
	pt "github.com/DoyleJ11/rps-party-backend/pkg/types"
)

var ErrNotInRoom = errors.New("not in a room")
var ErrInvalidTeam = errors.New("invalid team")
var ErrNotABot = errors.New("no such bot in this room")

const (
	ReasonReplaced = "signed in from another connection"
	QuickRoomName  = "Quick Room"
	quickRoomSize  = 10
	saveTimeout    = 5 * time.Second
)

func (h *Hub) connect(msg Connect) (string, error) {
	if old, ok := h.players.FindByIdentity(msg.Affiliation, msg.Name); ok {
		if s := h.sessions[old.ID]; s != nil {
			h.signOut(old.ID)
			s.outbox.Close(ReasonReplaced)
			h.log.Info("replaced older connection", zap.String("player_id", old.ID))
		}
	}

	p, err := h.players.Register(msg.Name, msg.Affiliation, false)
	if err != nil {
		return "", err
	}
	h.sessions[p.ID] = &session{playerID: p.ID, outbox: msg.Outbox}
	msg.Outbox.Send(types.Data(types.TypeRoomList, h.roomList()))

	h.log.Info("player connected",
		zap.String("player_id", p.ID),
		zap.String("affiliation", p.Affiliation),
		zap.String("name", p.Name))
	return p.ID, nil
}

// disconnect is an implicit quit.
func (h *Hub) disconnect(playerID string) {
	if _, ok := h.sessions[playerID]; !ok {
		return
	}
	h.signOut(playerID)
	h.log.Info("player disconnected", zap.String("player_id", playerID))
}

func (h *Hub) signOut(playerID string) {
	h.leaveRoom(playerID)
	h.players.Remove(playerID)
	delete(h.sessions, playerID)
}

func (h *Hub) handle(msg Request) {
	s := h.sessions[msg.PlayerID]
	if s == nil {
		return // connection already replaced
	}

	var err error
	switch req := msg.Req.(type) {
	case types.Refresh:
		s.outbox.Send(types.Data(types.TypeRoomList, h.roomList()))
	case types.Create:
		err = h.create(s, req)
	case types.Join:
		err = h.join(s, req)
	case types.QuickStart:
		err = h.quickStart(s)
	case types.Quit:
		h.leaveRoom(s.playerID)
		s.outbox.Send(types.Notice(types.KindQuit, "Successfully signed out"))
	case types.Start:
		err = h.start(s, req)
	case types.Throw:
		err = h.throw(s, req)
	case types.UpdateSettings:
		err = h.updateSettings(s, req)
	case types.SetTeam:
		err = h.setTeam(s, req)
	case types.AddBot:
		err = h.addBot(s, req)
	case types.RemoveBot:
		err = h.removeBot(s, req)
	default:
		err = types.ErrUnknownRequest
	}

	if err != nil {
		h.log.Debug("request failed",
			zap.String("player_id", s.playerID),
			zap.String("request", string(msg.Kind)),
			zap.Error(err))
		s.outbox.Send(types.Error(msg.Kind, err))
	}
}

func (h *Hub) create(s *session, req types.Create) error {
	if s.roomID != 0 {
		return room.ErrAlreadyInRoom
	}
	mode, ok := engine.ParseGameMode(req.GameMode)
	if !ok {
		return fmt.Errorf("%w: unknown game mode %q", room.ErrInvalidSettings, req.GameMode)
	}
	r, err := h.rooms.Create(room.Settings{
		Name:       req.Name,
		Password:   req.Password,
		MaxPersons: req.MaxPersons,
		Mode:       mode,
	}, room.Member{ID: s.playerID})
	if err != nil {
		return err
	}
	h.log.Info("room created", zap.Int("room_id", r.ID), zap.String("host", s.playerID))
	h.joined(s, r)
	return nil
}

func (h *Hub) join(s *session, req types.Join) error {
	if s.roomID != 0 {
		return room.ErrAlreadyInRoom
	}
	r, err := h.rooms.Join(req.RoomID, room.Member{ID: s.playerID}, req.Password)
	if err != nil {
		return err
	}
	h.joined(s, r)
	return nil
}

func (h *Hub) quickStart(s *session) error {
	if s.roomID != 0 {
		return room.ErrAlreadyInRoom
	}
	if r, ok := h.rooms.FindOpen(); ok {
		if _, err := h.rooms.Admit(r.ID, room.Member{ID: s.playerID}); err != nil {
			return err
		}
		h.joined(s, r)
		return nil
	}

	r, err := h.rooms.Create(room.Settings{
		Name:       QuickRoomName,
		MaxPersons: min(quickRoomSize, h.rooms.MaxPersonsLimit()),
		Mode:       engine.ModeNormal,
	}, room.Member{ID: s.playerID})
	if err != nil {
		return err
	}
	h.joined(s, r)
	return nil
}

func (h *Hub) joined(s *session, r *room.Room) {
	s.roomID = r.ID
	h.broadcastRoom(r)
	h.broadcastGameList(r)
	h.broadcastRoomList()
}

// leaveRoom detaches the player from its room and any running match.
func (h *Hub) leaveRoom(playerID string) {
	s := h.sessions[playerID]
	if s == nil || s.roomID == 0 {
		return
	}
	roomID := s.roomID
	s.roomID = 0
	_ = h.players.SetTeam(playerID, engine.TeamNone)

	if m := h.matches[roomID]; m != nil {
		m.Send(match.Leave{PlayerID: playerID})
	}

	r, destroyed, err := h.rooms.Leave(roomID, playerID)
	if err != nil {
		h.log.Warn("leave failed", zap.Int("room_id", roomID), zap.Error(err))
		return
	}
	if destroyed {
		for _, m := range r.Members {
			h.players.Remove(m.ID)
		}
		h.log.Info("room destroyed", zap.Int("room_id", roomID))
	} else {
		h.broadcastRoom(r)
		if r.State == room.StateWaiting {
			h.broadcastGameList(r)
		}
	}
	h.broadcastRoomList()
}

func (h *Hub) start(s *session, req types.Start) error {
	r, err := h.roomOf(s)
	if err != nil {
		return err
	}
	if r.Host != s.playerID {
		return room.ErrNotAuthorized
	}
	if r.State == room.StatePlaying {
		return room.ErrMatchInProgress
	}

	rules := h.cfg.Defaults
	rules.Mode = r.Mode
	if req.TimeOffset != nil {
		rules.TimeOffset = seconds(*req.TimeOffset)
	}
	if req.TimeDuration != nil {
		rules.TimeDuration = seconds(*req.TimeDuration)
	}

	participants := make([]match.Participant, 0, len(r.Members))
	for _, m := range r.Members {
		p, ok := h.players.Get(m.ID)
		if !ok {
			continue
		}
		mp := match.Participant{
			ID:          p.ID,
			Affiliation: p.Affiliation,
			Name:        p.Name,
			Team:        p.Team,
			IsBot:       p.IsBot,
		}
		if sess := h.sessions[p.ID]; sess != nil {
			mp.Outbox = sess.outbox
		}
		participants = append(participants, mp)
	}

	r.State = room.StatePlaying
	m, err := match.New(h.ctx, match.Config{
		Room:         r.Summary(),
		Rules:        rules,
		Participants: participants,
		Clock:        h.cfg.Clock,
		Bot:          h.cfg.Bot,
		Logger:       h.log,
		OnEnded:      h.onMatchEnded,
	})
	if err != nil {
		r.State = room.StateWaiting
		return err
	}
	h.matches[r.ID] = m

	h.broadcastRoom(r)
	h.broadcastRoomList()
	return nil
}

// onMatchEnded runs on the match goroutine, so it hands over to the hub
// goroutine without blocking.
func (h *Hub) onMatchEnded(res match.Result) {
	go func() {
		select {
		case h.inbox <- matchEnded{result: res}:
		case <-h.ctx.Done():
		}
	}()
}

func (h *Hub) matchEnded(res match.Result) {
	if m := h.matches[res.RoomID]; m != nil {
		m.Send(match.Shutdown{})
		delete(h.matches, res.RoomID)
	}
	if r, err := h.rooms.Get(res.RoomID); err == nil {
		r.State = room.StateWaiting
		h.broadcastRoom(r)
		// replaces the scored list the match sent last
		h.broadcastGameList(r)
		h.broadcastRoomList()
	}
	h.persist(res)
}

func (h *Hub) persist(res match.Result) {
	if h.cfg.Storage == nil || res.Record == nil {
		return
	}
	h.saves.Add(1)
	go func() {
		defer h.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := h.cfg.Storage.SaveMatch(ctx, res.Record); err != nil {
			h.log.Error("failed to save match", zap.String("match_id", res.Record.ID), zap.Error(err))
			return
		}
		h.log.Info("match saved", zap.String("match_id", res.Record.ID), zap.Int("room_id", res.RoomID))
	}()
}

func (h *Hub) throw(s *session, req types.Throw) error {
	m := h.matches[s.roomID]
	if s.roomID == 0 || m == nil {
		return fmt.Errorf("%w: no match running", engine.ErrInvalidPhase)
	}
	m.Send(match.Throw{PlayerID: s.playerID, Hand: req.Hand, Round: req.Round})
	return nil
}

func (h *Hub) updateSettings(s *session, req types.UpdateSettings) error {
	r, err := h.roomOf(s)
	if err != nil {
		return err
	}
	patch := room.Patch{Name: req.Name, Password: req.Password, MaxPersons: req.MaxPersons}
	if req.GameMode != nil {
		mode := engine.GameMode(*req.GameMode)
		patch.Mode = &mode
	}
	if _, err := h.rooms.UpdateSettings(r.ID, s.playerID, patch); err != nil {
		return err
	}
	h.broadcastRoom(r)
	h.broadcastRoomList()
	return nil
}

func (h *Hub) setTeam(s *session, req types.SetTeam) error {
	r, err := h.roomOf(s)
	if err != nil {
		return err
	}
	if r.State == room.StatePlaying {
		return room.ErrMatchInProgress
	}
	team, ok := engine.ParseTeam(req.Team)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTeam, req.Team)
	}
	if err := h.players.SetTeam(s.playerID, team); err != nil {
		return err
	}
	h.broadcastGameList(r)
	return nil
}

func (h *Hub) addBot(s *session, req types.AddBot) error {
	r, err := h.hostRoom(s)
	if err != nil {
		return err
	}
	team, ok := engine.ParseTeam(req.Team)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTeam, req.Team)
	}
	if r.IsFull() {
		return room.ErrRoomFull
	}

	b, err := h.players.Register(req.Name, "", true)
	if err != nil {
		return err
	}
	if _, err := h.rooms.Admit(r.ID, room.Member{ID: b.ID, IsBot: true}); err != nil {
		h.players.Remove(b.ID)
		return err
	}
	_ = h.players.SetTeam(b.ID, team)

	h.broadcastRoom(r)
	h.broadcastGameList(r)
	h.broadcastRoomList()
	return nil
}

func (h *Hub) removeBot(s *session, req types.RemoveBot) error {
	r, err := h.hostRoom(s)
	if err != nil {
		return err
	}
	if m, ok := r.Member(req.PlayerID); !ok || !m.IsBot {
		return ErrNotABot
	}
	if _, _, err := h.rooms.Leave(r.ID, req.PlayerID); err != nil {
		return err
	}
	h.players.Remove(req.PlayerID)

	h.broadcastRoom(r)
	h.broadcastGameList(r)
	h.broadcastRoomList()
	return nil
}

func (h *Hub) roomOf(s *session) (*room.Room, error) {
	if s.roomID == 0 {
		return nil, ErrNotInRoom
	}
	return h.rooms.Get(s.roomID)
}

// hostRoom is roomOf for host-only changes to a waiting room.
func (h *Hub) hostRoom(s *session) (*room.Room, error) {
	r, err := h.roomOf(s)
	if err != nil {
		return nil, err
	}
	if r.Host != s.playerID {
		return nil, room.ErrNotAuthorized
	}
	if r.State == room.StatePlaying {
		return nil, room.ErrMatchInProgress
	}
	return r, nil
}

func (h *Hub) roomList() []pt.RoomSummary {
	rooms := h.rooms.List()
	out := make([]pt.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	return out
}

// lobbyList is the game_list of a waiting room: join order, no scores.
func (h *Hub) lobbyList(r *room.Room) []pt.PlayerSummary {
	out := make([]pt.PlayerSummary, 0, len(r.Members))
	for _, m := range r.Members {
		p, ok := h.players.Get(m.ID)
		if !ok {
			continue
		}
		out = append(out, pt.PlayerSummary{
			Rank:        len(out) + 1,
			ID:          p.ID,
			Affiliation: p.Affiliation,
			Name:        p.Name,
			Team:        string(p.Team),
			IsBot:       p.IsBot,
			IsHost:      p.ID == r.Host,
		})
	}
	return out
}

// broadcastRoomList pushes room_list to every connection not in a room.
func (h *Hub) broadcastRoomList() {
	msg := types.Data(types.TypeRoomList, h.roomList())
	for _, s := range h.sessions {
		if s.roomID == 0 {
			s.outbox.Send(msg)
		}
	}
}

func (h *Hub) broadcastRoom(r *room.Room) {
	h.toMembers(r, types.Data(types.TypeRoom, r.Summary()))
}

func (h *Hub) broadcastGameList(r *room.Room) {
	h.toMembers(r, types.Data(types.TypeGameList, h.lobbyList(r)))
}

func (h *Hub) toMembers(r *room.Room, msg types.ServerMessage) {
	for _, m := range r.Members {
		if s := h.sessions[m.ID]; s != nil && s.roomID == r.ID {
			s.outbox.Send(msg)
		}
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
