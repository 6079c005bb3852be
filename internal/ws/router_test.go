package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/khodar-backend/internal/engine"
	"github.com/DoyleJ11/khodar-backend/internal/hub"
	"github.com/DoyleJ11/khodar-backend/pkg/types"
)

type client struct {
	id  string
	out chan types.ServerMessage
}

func newClient(id string) *client {
	return &client{id: id, out: make(chan types.ServerMessage, 128)}
}

func (c *client) ID() string { return c.id }

func (c *client) Send(m types.ServerMessage) bool {
	select {
	case c.out <- m:
		return true
	default:
		return false
	}
}

func (c *client) await(t *testing.T, typ string) types.ServerMessage {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-c.out:
			if m.Type == typ {
				return m
			}
		case <-deadline:
			t.Fatalf("%s: no %q message", c.id, typ)
			return types.ServerMessage{}
		}
	}
}

func (c *client) awaitError(t *testing.T) types.Error {
	t.Helper()
	return c.await(t, types.MsgError).Data.(types.Error)
}

type fixedLetter string

func (f fixedLetter) Draw() string { return string(f) }

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	h := hub.NewHub(context.Background(), hub.Options{
		Rules:        engine.Rules{Letters: fixedLetter("ب")},
		TickInterval: time.Hour,
		Logger:       zap.NewNop(),
	})
	t.Cleanup(h.Shutdown)
	return NewRouter(h, zap.NewNop())
}

func createRoom(t *testing.T, rt *Router, host *client) string {
	t.Helper()
	rt.Dispatch(context.Background(), host, types.ClientMessage{Type: types.IntentCreateRoom, Name: "Amal"})
	created := host.await(t, types.MsgRoomCreated).Data.(types.RoomEntered)
	require.Equal(t, host.id, created.PlayerID)
	require.Len(t, created.Room.ID, hub.CodeLength)
	return created.Room.ID
}

func TestRouter_FullRound(t *testing.T) {
	rt := newTestRouter(t)
	ctx := context.Background()
	host, guest := newClient("c1"), newClient("c2")

	roomID := createRoom(t, rt, host)

	rt.Dispatch(ctx, guest, types.ClientMessage{Type: types.IntentJoinRoom, RoomID: roomID, Name: "Badr"})
	guest.await(t, types.MsgRoomJoined)
	assert.Equal(t, "Badr", host.await(t, types.MsgPlayerJoined).Data.(types.Player).Name)

	rounds := 1
	rt.Dispatch(ctx, host, types.ClientMessage{
		Type:     types.IntentStartGame,
		RoomID:   roomID,
		Settings: &types.SettingsPatch{TotalRounds: &rounds, Categories: []string{"فواكه"}},
	})
	guest.await(t, types.MsgGameStarting)
	assert.Equal(t, types.RoundStart{Round: 1, Letter: "ب"}, guest.await(t, types.MsgRoundStart).Data)

	rt.Dispatch(ctx, host, types.ClientMessage{Type: types.IntentSubmitAnswers, RoomID: roomID, Answers: map[string]string{"فواكه": "برتقال"}})
	rt.Dispatch(ctx, guest, types.ClientMessage{Type: types.IntentSubmitAnswers, RoomID: roomID, Answers: map[string]string{"فواكه": "بطيخ"}})

	end := guest.await(t, types.MsgGameEnd).Data.(types.GameEnd)
	assert.Equal(t, map[string]int{"c1": 10, "c2": 10}, end.Scores)

	rt.Dispatch(ctx, guest, types.ClientMessage{Type: types.IntentBackToLobby, RoomID: roomID})
	state := ""
	for state != "lobby" {
		state = host.await(t, types.MsgGameUpdate).Data.(types.GameUpdate).GameState
	}
}

func TestRouter_ErrorsGoToRequester(t *testing.T) {
	rt := newTestRouter(t)
	ctx := context.Background()
	host, guest := newClient("c1"), newClient("c2")
	roomID := createRoom(t, rt, host)

	rt.Dispatch(ctx, guest, types.ClientMessage{Type: types.IntentJoinRoom, RoomID: "NOPE00", Name: "Badr"})
	assert.Equal(t, "ROOM_NOT_FOUND", guest.awaitError(t).Code)

	rt.Dispatch(ctx, guest, types.ClientMessage{Type: types.IntentJoinRoom, RoomID: roomID, Name: "Amal"})
	assert.Equal(t, "NAME_TAKEN", guest.awaitError(t).Code)

	rt.Dispatch(ctx, host, types.ClientMessage{Type: types.IntentStartGame, RoomID: roomID})
	assert.Equal(t, "NOT_ENOUGH_PLAYERS", host.awaitError(t).Code)

	rt.Dispatch(ctx, guest, types.ClientMessage{Type: types.IntentJoinRoom, RoomID: roomID, Name: "Badr"})
	guest.await(t, types.MsgRoomJoined)

	rt.Dispatch(ctx, guest, types.ClientMessage{Type: types.IntentStartGame, RoomID: roomID})
	assert.Equal(t, "NOT_HOST", guest.awaitError(t).Code)

	rt.Dispatch(ctx, host, types.ClientMessage{Type: types.IntentNextRound, RoomID: roomID})
	assert.Equal(t, "INVALID_TRANSITION", host.awaitError(t).Code)

	rt.Dispatch(ctx, guest, types.ClientMessage{Type: types.IntentSubmitAnswers, RoomID: roomID})
	assert.Equal(t, "GAME_NOT_ACTIVE", guest.awaitError(t).Code)

	rt.Dispatch(ctx, guest, types.ClientMessage{Type: "dance"})
	assert.Equal(t, CodeUnknownType, guest.awaitError(t).Code)

	for len(host.out) > 0 {
		m := <-host.out
		if e, ok := m.Data.(types.Error); ok && e.Code != "NOT_ENOUGH_PLAYERS" && e.Code != "INVALID_TRANSITION" {
			t.Fatalf("host got someone else's error: %+v", m)
		}
	}
}

func TestRouter_JoinGame(t *testing.T) {
	rt := newTestRouter(t)
	ctx := context.Background()
	host, guest, watcher := newClient("c1"), newClient("c2"), newClient("c3")
	roomID := createRoom(t, rt, host)

	rt.Dispatch(ctx, watcher, types.ClientMessage{Type: types.IntentJoinGame, RoomID: "NOPE00"})
	assert.Equal(t, "GAME_NOT_FOUND", watcher.awaitError(t).Code)

	rt.Dispatch(ctx, watcher, types.ClientMessage{Type: types.IntentJoinGame, RoomID: roomID})
	assert.Equal(t, "GAME_NOT_FOUND", watcher.awaitError(t).Code)

	rt.Dispatch(ctx, guest, types.ClientMessage{Type: types.IntentJoinRoom, RoomID: roomID, Name: "Badr"})
	guest.await(t, types.MsgRoomJoined)
	rt.Dispatch(ctx, host, types.ClientMessage{Type: types.IntentStartGame, RoomID: roomID})
	host.await(t, types.MsgRoundStart)

	rt.Dispatch(ctx, watcher, types.ClientMessage{Type: types.IntentJoinGame, RoomID: roomID})
	update := watcher.await(t, types.MsgGameUpdate).Data.(types.GameUpdate)
	assert.Equal(t, "playing", update.GameState)
	assert.Equal(t, 1, update.CurrentRound)
}

func TestRouter_JoinLobbyAndKick(t *testing.T) {
	rt := newTestRouter(t)
	ctx := context.Background()
	host, guest, watcher := newClient("c1"), newClient("c2"), newClient("c3")
	roomID := createRoom(t, rt, host)

	rt.Dispatch(ctx, watcher, types.ClientMessage{Type: types.IntentJoinLobby, RoomID: "NOPE00"})
	assert.Equal(t, "ROOM_NOT_FOUND", watcher.awaitError(t).Code)

	rt.Dispatch(ctx, watcher, types.ClientMessage{Type: types.IntentJoinLobby, RoomID: roomID})
	lobby := watcher.await(t, types.MsgLobbyUpdate).Data.(types.LobbyUpdate)
	assert.Len(t, lobby.Players, 1)

	rt.Dispatch(ctx, guest, types.ClientMessage{Type: types.IntentJoinRoom, RoomID: roomID, Name: "Badr"})
	guest.await(t, types.MsgRoomJoined)
	watcher.await(t, types.MsgPlayerJoined)

	rt.Dispatch(ctx, host, types.ClientMessage{Type: types.IntentKickPlayer, RoomID: roomID, PlayerID: "c2"})
	assert.Equal(t, "KICKED", guest.awaitError(t).Code)
	assert.Equal(t, "c2", watcher.await(t, types.MsgPlayerLeft).Data.(types.Player).ID)
}

func TestRouter_LeaveAndDisconnect(t *testing.T) {
	rt := newTestRouter(t)
	ctx := context.Background()
	host, guest := newClient("c1"), newClient("c2")
	roomID := createRoom(t, rt, host)

	rt.Dispatch(ctx, guest, types.ClientMessage{Type: types.IntentJoinRoom, RoomID: roomID, Name: "Badr"})
	guest.await(t, types.MsgRoomJoined)

	rt.Dispatch(ctx, host, types.ClientMessage{Type: types.IntentLeaveRoom, RoomID: roomID})
	lobby := guest.await(t, types.MsgLobbyUpdate).Data.(types.LobbyUpdate)
	for lobby.Players[0].ID != "c2" {
		lobby = guest.await(t, types.MsgLobbyUpdate).Data.(types.LobbyUpdate)
	}
	assert.Equal(t, []types.Player{{ID: "c2", Name: "Badr", IsHost: true}}, lobby.Players)

	rt.Disconnect(ctx, "c2")
	require.Eventually(t, func() bool {
		_, err := rt.hub.Room(ctx, roomID)
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
