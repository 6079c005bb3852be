package hub

import (
	"cmp"
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/DoyleJ11/khodar-backend/internal/engine"
	"github.com/DoyleJ11/khodar-backend/internal/room"
)

// CreateRoom allocates a fresh room with owner as its host and only player.
func (h *Hub) CreateRoom(ctx context.Context, owner engine.Player, sub room.Subscriber, private bool, password string) (*room.Room, error) {
	var hash []byte
	if private {
		var err error
		if hash, err = engine.HashPassword(password, h.opts.BcryptCost); err != nil {
			return nil, err
		}
	}

	reply := make(chan createResult, 1)
	res, err := request(ctx, h, createRoom{owner: owner, sub: sub, private: private, hash: hash, reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	h.log.Info("room created", zap.String("room", res.room.ID()), zap.Bool("private", private))
	return res.room, nil
}

func (h *Hub) Room(ctx context.Context, id string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	rm, err := request(ctx, h, getRoom{id: id, reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, engine.ErrRoomNotFound
	}
	return rm, nil
}

func (h *Hub) JoinRoom(ctx context.Context, id string, p engine.Player, sub room.Subscriber, password string) (*room.Room, error) {
	rm, err := h.Room(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rm.Join(ctx, p, sub, password); err != nil {
		return nil, err
	}
	h.post(bind{conn: p.ID, room: id})
	return rm, nil
}

// JoinLobby subscribes sub to a room, reclaiming the player called name when
// there is one. The reclaimed player's old connection is unbound.
func (h *Hub) JoinLobby(ctx context.Context, id string, sub room.Subscriber, name string) (room.AttachResult, error) {
	rm, err := h.Room(ctx, id)
	if err != nil {
		return room.AttachResult{}, err
	}
	res, err := rm.Attach(ctx, sub, name)
	if err != nil {
		return res, err
	}
	h.post(bind{conn: sub.ID(), room: id})
	if res.Reconnected {
		h.post(unbind{conn: res.PreviousID, room: id})
	}
	return res, nil
}

func (h *Hub) LeaveRoom(ctx context.Context, conn, id string) error {
	defer h.post(unbind{conn: conn, room: id})
	rm, err := h.Room(ctx, id)
	if err != nil {
		return err
	}
	return rm.Leave(ctx, conn)
}

func (h *Hub) Kick(ctx context.Context, id, by, target string) error {
	rm, err := h.Room(ctx, id)
	if err != nil {
		return err
	}
	if err := rm.Kick(ctx, by, target); err != nil {
		return err
	}
	h.post(unbind{conn: target, room: id})
	return nil
}

// Disconnect leaves every room conn belongs to.
func (h *Hub) Disconnect(ctx context.Context, conn string) {
	ids, err := h.RoomsOf(ctx, conn)
	if err != nil {
		return
	}
	for _, id := range ids {
		if err := h.LeaveRoom(ctx, conn, id); err != nil {
			h.log.Debug("leave on disconnect", zap.String("room", id), zap.String("conn", conn), zap.Error(err))
		}
	}
}

func (h *Hub) RoomsOf(ctx context.Context, conn string) ([]string, error) {
	reply := make(chan []string, 1)
	return request(ctx, h, roomsOf{conn: conn, reply: reply}, reply)
}

// PublicRooms lists joinable rooms: not private, in the lobby and not empty.
func (h *Hub) PublicRooms(ctx context.Context) ([]room.Description, error) {
	reply := make(chan []room.Description, 1)
	all, err := request(ctx, h, listRooms{reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(all, func(d room.Description) bool {
		return d.IsPrivate || d.State != engine.StateLobby || d.Players == 0
	})
	slices.SortFunc(out, func(a, b room.Description) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}
