package ws

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/khodar-backend/internal/engine"
	"github.com/DoyleJ11/khodar-backend/internal/hub"
	"github.com/DoyleJ11/khodar-backend/internal/room"
	"github.com/DoyleJ11/khodar-backend/pkg/types"
)

const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeUnknownType = "UNKNOWN_TYPE"
	CodeRateLimited = "RATE_LIMITED"
)

// Router turns client intents into registry and room calls. Failures become
// an error message addressed only to the client that sent the intent.
type Router struct {
	hub *hub.Hub
	log *zap.Logger
}

func NewRouter(h *hub.Hub, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{hub: h, log: logger.Named("router")}
}

func (rt *Router) Dispatch(ctx context.Context, c room.Subscriber, msg types.ClientMessage) {
	player := engine.Player{ID: c.ID(), Name: msg.Name}

	var err error
	switch msg.Type {
	case types.IntentCreateRoom:
		_, err = rt.hub.CreateRoom(ctx, player, c, msg.IsPrivate, msg.Password)

	case types.IntentJoinRoom:
		_, err = rt.hub.JoinRoom(ctx, msg.RoomID, player, c, msg.Password)

	case types.IntentJoinLobby:
		_, err = rt.hub.JoinLobby(ctx, msg.RoomID, c, msg.Name)

	case types.IntentJoinGame:
		err = rt.joinGame(ctx, c, msg.RoomID)

	case types.IntentStartGame:
		err = rt.do(ctx, msg.RoomID, engine.Command{
			Type:     engine.CmdStartGame,
			PlayerID: c.ID(),
			Settings: toPatch(msg.Settings),
		})

	case types.IntentSubmitAnswers:
		err = rt.do(ctx, msg.RoomID, engine.Command{Type: engine.CmdSubmitAnswers, PlayerID: c.ID(), Answers: msg.Answers})

	case types.IntentNextRound:
		err = rt.do(ctx, msg.RoomID, engine.Command{Type: engine.CmdNextRound, PlayerID: c.ID()})

	case types.IntentBackToLobby:
		err = rt.do(ctx, msg.RoomID, engine.Command{Type: engine.CmdBackToLobby, PlayerID: c.ID()})

	case types.IntentLeaveRoom:
		err = rt.hub.LeaveRoom(ctx, c.ID(), msg.RoomID)

	case types.IntentKickPlayer:
		err = rt.hub.Kick(ctx, msg.RoomID, c.ID(), msg.PlayerID)

	default:
		c.Send(types.ErrorMessage(CodeUnknownType, "unknown message type: "+msg.Type))
		return
	}

	if err != nil {
		rt.fail(c, msg.Type, err)
	}
}

// Disconnect is the implicit leaveRoom for every room the connection is in.
func (rt *Router) Disconnect(ctx context.Context, connID string) {
	rt.hub.Disconnect(ctx, connID)
}

func (rt *Router) do(ctx context.Context, roomID string, cmd engine.Command) error {
	rm, err := rt.hub.Room(ctx, roomID)
	if err != nil {
		return err
	}
	return rm.Do(ctx, cmd)
}

func (rt *Router) joinGame(ctx context.Context, c room.Subscriber, roomID string) error {
	rm, err := rt.hub.Room(ctx, roomID)
	if errors.Is(err, engine.ErrRoomNotFound) {
		return engine.ErrGameNotFound
	}
	if err != nil {
		return err
	}
	snap, err := rm.Sync(ctx)
	if errors.Is(err, engine.ErrRoomNotFound) {
		return engine.ErrGameNotFound
	}
	if err != nil {
		return err
	}
	c.Send(snap)
	return nil
}

func (rt *Router) fail(c room.Subscriber, intent string, err error) {
	if engine.KindOf(err) == engine.KindInternal {
		rt.log.Error("intent failed", zap.String("conn", c.ID()), zap.String("intent", intent), zap.Error(err))
		c.Send(types.ErrorMessage(engine.CodeOf(err), "internal error"))
		return
	}
	rt.log.Debug("intent rejected", zap.String("conn", c.ID()), zap.String("intent", intent), zap.Error(err))
	c.Send(types.ErrorMessage(engine.CodeOf(err), err.Error()))
}

func toPatch(p *types.SettingsPatch) *engine.SettingsPatch {
	if p == nil {
		return nil
	}
	return &engine.SettingsPatch{
		RoundTime:   p.RoundTime,
		TotalRounds: p.TotalRounds,
		Categories:  p.Categories,
	}
}
