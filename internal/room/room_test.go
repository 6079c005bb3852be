package room

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/DoyleJ11/khodar-backend/internal/engine"
	"github.com/DoyleJ11/khodar-backend/pkg/types"
)

type fakeSub struct {
	id  string
	out chan types.ServerMessage
}

func newSub(id string, buf int) *fakeSub {
	return &fakeSub{id: id, out: make(chan types.ServerMessage, buf)}
}

func (s *fakeSub) ID() string { return s.id }

func (s *fakeSub) Send(m types.ServerMessage) bool {
	select {
	case s.out <- m:
		return true
	default:
		return false
	}
}

type fixedLetter string

func (f fixedLetter) Draw() string { return string(f) }

// helper: receive one message with a timeout so tests never hang
func recvMsg(t *testing.T, s *fakeSub, within time.Duration) types.ServerMessage {
	t.Helper()
	select {
	case m := <-s.out:
		return m
	case <-time.After(within):
		t.Fatalf("%s: timed out waiting for message", s.id)
		return types.ServerMessage{} // unreachable
	}
}

// recvType skips messages until one of type typ arrives.
func recvType(t *testing.T, s *fakeSub, typ string, within time.Duration) types.ServerMessage {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case m := <-s.out:
			if m.Type == typ {
				return m
			}
		case <-deadline:
			t.Fatalf("%s: timed out waiting for %q", s.id, typ)
			return types.ServerMessage{}
		}
	}
}

func recvNone(t *testing.T, s *fakeSub, within time.Duration) {
	t.Helper()
	select {
	case m := <-s.out:
		t.Fatalf("%s: expected no message within %v, got %+v", s.id, within, m)
	case <-time.After(within):
	}
}

const wait = 500 * time.Millisecond

type fixture struct {
	room    *Room
	owner   *fakeSub
	updates chan Description
	closed  chan string
}

func newFixture(t *testing.T, mutate func(*Config)) fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	f := fixture{
		owner:   newSub("p0", 64),
		updates: make(chan Description, 64),
		closed:  make(chan string, 1),
	}
	settings := engine.DefaultSettings()
	settings.Categories = []string{"فواكه"}
	cfg := Config{
		ID:       "ROOM01",
		Owner:    engine.Player{ID: "p0", Name: "Amal"},
		Settings: settings,
		Rules:    engine.Rules{Letters: fixedLetter("ب")},
		Logger:   zaptest.NewLogger(t),
		Hooks: Hooks{
			OnUpdate: func(d Description) {
				select {
				case f.updates <- d:
				default:
				}
			},
			OnClosed: func(id string) { f.closed <- id },
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	r, err := New(ctx, cfg, f.owner)
	if err != nil {
		cancel()
	}
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		<-r.Done()
	})
	f.room = r
	return f
}

func (f fixture) join(t *testing.T, id, name string) *fakeSub {
	t.Helper()
	s := newSub(id, 64)
	require.NoError(t, f.room.Join(context.Background(), engine.Player{ID: id, Name: name}, s, ""))
	recvType(t, s, types.MsgRoomJoined, wait)
	recvType(t, s, types.MsgLobbyUpdate, wait)
	return s
}

func drain(s *fakeSub) {
	for {
		select {
		case <-s.out:
		default:
			return
		}
	}
}

func TestRoom_CreateAndJoin_BroadcastsAndVersionIncrements(t *testing.T) {
	f := newFixture(t, nil)

	created := recvMsg(t, f.owner, wait)
	require.Equal(t, types.MsgRoomCreated, created.Type)
	assert.Equal(t, 1, created.Version)
	entered := created.Data.(types.RoomEntered)
	assert.Equal(t, "p0", entered.PlayerID)
	assert.Equal(t, "ROOM01", entered.Room.ID)

	joiner := newSub("p1", 8)
	require.NoError(t, f.room.Join(context.Background(), engine.Player{ID: "p1", Name: "Badr"}, joiner, ""))

	joined := recvMsg(t, joiner, wait)
	assert.Equal(t, types.MsgRoomJoined, joined.Type)

	pj := recvMsg(t, f.owner, wait)
	assert.Equal(t, types.MsgPlayerJoined, pj.Type)
	assert.Equal(t, types.Player{ID: "p1", Name: "Badr"}, pj.Data)
	assert.Greater(t, pj.Version, created.Version)

	lobby := recvMsg(t, f.owner, wait)
	require.Equal(t, types.MsgLobbyUpdate, lobby.Type)
	assert.Greater(t, lobby.Version, pj.Version)
	want := []types.Player{{ID: "p0", Name: "Amal", IsHost: true}, {ID: "p1", Name: "Badr"}}
	if diff := cmp.Diff(want, lobby.Data.(types.LobbyUpdate).Players); diff != "" {
		t.Fatalf("lobby players mismatch (-want +got):\n%s", diff)
	}

	// the joiner sees the lobby update too, but not its own playerJoined
	assert.Equal(t, types.MsgLobbyUpdate, recvMsg(t, joiner, wait).Type)
}

func TestRoom_JoinRejections(t *testing.T) {
	hash, err := engine.HashPassword("sesame", bcrypt.MinCost)
	require.NoError(t, err)
	f := newFixture(t, func(c *Config) {
		c.Private = true
		c.PasswordHash = hash
	})

	err = f.room.Join(context.Background(), engine.Player{ID: "p1", Name: "Badr"}, newSub("p1", 8), "nope")
	assert.ErrorIs(t, err, engine.ErrWrongPassword)

	err = f.room.Join(context.Background(), engine.Player{ID: "p1", Name: "Amal"}, newSub("p1", 8), "sesame")
	assert.ErrorIs(t, err, engine.ErrNameTaken)

	err = f.room.Join(context.Background(), engine.Player{ID: "p1", Name: "Badr"}, newSub("p1", 8), "sesame")
	assert.NoError(t, err)
}

func TestRoom_AllSubmittedEndsRound(t *testing.T) {
	f := newFixture(t, nil)
	b := f.join(t, "p1", "Badr")
	drain(f.owner)

	ctx := context.Background()
	require.NoError(t, f.room.Do(ctx, engine.Command{Type: engine.CmdStartGame, PlayerID: "p0"}))

	assert.Equal(t, types.MsgGameStarting, recvMsg(t, b, wait).Type)
	start := recvMsg(t, b, wait)
	require.Equal(t, types.MsgRoundStart, start.Type)
	assert.Equal(t, types.RoundStart{Round: 1, Letter: "ب"}, start.Data)
	update := recvMsg(t, b, wait)
	require.Equal(t, types.MsgGameUpdate, update.Type)
	assert.Equal(t, "playing", update.Data.(types.GameUpdate).GameState)

	require.NoError(t, f.room.Do(ctx, engine.Command{Type: engine.CmdSubmitAnswers, PlayerID: "p0", Answers: map[string]string{"فواكه": "برتقال"}}))
	require.NoError(t, f.room.Do(ctx, engine.Command{Type: engine.CmdSubmitAnswers, PlayerID: "p1", Answers: map[string]string{"فواكه": "برتقال"}}))

	end := recvType(t, b, types.MsgRoundEnd, wait)
	results := end.Data.(types.RoundEnd).RoundResults
	require.Len(t, results, 2)
	assert.Equal(t, types.AnswerScore{Answer: "برتقال", Score: 5}, results[0].Answers["فواكه"])

	after := recvType(t, b, types.MsgGameUpdate, wait).Data.(types.GameUpdate)
	assert.Equal(t, "scoring", after.GameState)
	assert.Equal(t, map[string]int{"p0": 5, "p1": 5}, after.Scores)

	// a late submission cannot score the round twice
	err := f.room.Do(ctx, engine.Command{Type: engine.CmdSubmitAnswers, PlayerID: "p1"})
	assert.ErrorIs(t, err, engine.ErrGameNotActive)
}

func TestRoom_TicksCountDownAndExpire(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Settings.RoundTime = 2 })
	b := f.join(t, "p1", "Badr")

	require.NoError(t, f.room.Do(context.Background(), engine.Command{Type: engine.CmdStartGame, PlayerID: "p0"}))
	recvType(t, b, types.MsgRoundStart, wait)

	f.room.Tick()
	warn := recvType(t, b, types.MsgTimeWarning, wait)
	assert.Equal(t, types.TimeWarning{TimeLeft: 1}, warn.Data)

	f.room.Tick()
	recvType(t, b, types.MsgRoundEnd, wait)

	view, err := f.room.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.StateScoring, view.Room.State)
	assert.Equal(t, 0, view.Room.TimeLeft)
	drain(b)

	// stale ticks after the round ended change nothing
	f.room.Tick()
	recvNone(t, b, 100*time.Millisecond)
}

func TestRoom_FinalRoundSendsGameEnd(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Settings.TotalRounds = 1 })
	b := f.join(t, "p1", "Badr")
	ctx := context.Background()

	require.NoError(t, f.room.Do(ctx, engine.Command{Type: engine.CmdStartGame, PlayerID: "p0"}))
	require.NoError(t, f.room.Do(ctx, engine.Command{Type: engine.CmdSubmitAnswers, PlayerID: "p0"}))
	require.NoError(t, f.room.Do(ctx, engine.Command{Type: engine.CmdSubmitAnswers, PlayerID: "p1"}))

	end := recvType(t, b, types.MsgGameEnd, wait).Data.(types.GameEnd)
	assert.Equal(t, map[string]int{"p0": 0, "p1": 0}, end.Scores)
	assert.Len(t, end.Players, 2)
	drain(b)

	require.NoError(t, f.room.Do(ctx, engine.Command{Type: engine.CmdBackToLobby, PlayerID: "p1"}))
	lobby := recvType(t, b, types.MsgGameUpdate, wait).Data.(types.GameUpdate)
	assert.Equal(t, "lobby", lobby.GameState)
}

func TestRoom_DropSlowSubscriber(t *testing.T) {
	f := newFixture(t, nil)

	slow := newSub("watcher", 1)
	_, err := f.room.Attach(context.Background(), slow, "")
	require.NoError(t, err)

	// lobbyUpdate from attach fills the buffer; the next broadcast overflows it
	f.join(t, "p1", "Badr")

	view, err := f.room.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, view.Subscribers, "expected slow watcher to be dropped")
}

func TestRoom_KickNotifiesTarget(t *testing.T) {
	f := newFixture(t, nil)
	b := f.join(t, "p1", "Badr")
	drain(f.owner)

	ctx := context.Background()
	assert.ErrorIs(t, f.room.Kick(ctx, "p1", "p0"), engine.ErrNotHost)
	require.NoError(t, f.room.Kick(ctx, "p0", "p1"))

	kicked := recvType(t, b, types.MsgError, wait)
	assert.Equal(t, "KICKED", kicked.Data.(types.Error).Code)

	left := recvType(t, f.owner, types.MsgPlayerLeft, wait)
	assert.Equal(t, "p1", left.Data.(types.Player).ID)
	recvNone(t, b, 100*time.Millisecond)
}

func TestRoom_AttachReconnectsByName(t *testing.T) {
	f := newFixture(t, nil)
	f.join(t, "p1", "Badr")

	fresh := newSub("p0-again", 8)
	res, err := f.room.Attach(context.Background(), fresh, "Amal")
	require.NoError(t, err)
	assert.Equal(t, AttachResult{Reconnected: true, PreviousID: "p0"}, res)
	assert.Equal(t, types.MsgLobbyUpdate, recvMsg(t, fresh, wait).Type)

	view, err := f.room.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p0-again", view.Room.HostID)
	_, stillThere := view.Room.Player("p0")
	assert.False(t, stillThere)

	// an unknown name only subscribes
	res, err = f.room.Attach(context.Background(), newSub("watcher", 8), "Nobody")
	require.NoError(t, err)
	assert.False(t, res.Reconnected)
}

func TestRoom_Sync(t *testing.T) {
	f := newFixture(t, nil)
	f.join(t, "p1", "Badr")
	ctx := context.Background()

	_, err := f.room.Sync(ctx)
	assert.ErrorIs(t, err, engine.ErrGameNotFound)

	require.NoError(t, f.room.Do(ctx, engine.Command{Type: engine.CmdStartGame, PlayerID: "p0"}))
	msg, err := f.room.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.MsgGameUpdate, msg.Type)
	assert.Equal(t, "ب", msg.Data.(types.GameUpdate).CurrentLetter)
}

func TestRoom_EmptyRoomClosesImmediatelyWithoutGrace(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.room.Leave(context.Background(), "p0"))

	select {
	case id := <-f.closed:
		assert.Equal(t, "ROOM01", id)
	case <-time.After(wait):
		t.Fatal("room did not close")
	}
	<-f.room.Done()

	_, err := f.room.State(context.Background())
	assert.ErrorIs(t, err, engine.ErrRoomNotFound)
}

func TestRoom_GracePeriodCancelledByJoin(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.GracePeriod = 150 * time.Millisecond })
	ctx := context.Background()

	require.NoError(t, f.room.Leave(ctx, "p0"))
	f.join(t, "p1", "Badr")

	select {
	case <-f.room.Done():
		t.Fatal("room closed despite rejoin")
	case <-time.After(300 * time.Millisecond):
	}

	view, err := f.room.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p1", view.Room.HostID, "first player into an empty room hosts")

	require.NoError(t, f.room.Leave(ctx, "p1"))
	select {
	case <-f.room.Done():
	case <-time.After(wait):
		t.Fatal("room outlived its grace period")
	}
}

func TestRoom_SpectatorLeaveOnlyUnsubscribes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.room.Attach(ctx, newSub("watcher", 8), "")
	require.NoError(t, err)
	assert.NoError(t, f.room.Leave(ctx, "watcher"))
	assert.ErrorIs(t, f.room.Leave(ctx, "ghost"), engine.ErrPlayerNotFound)

	view, err := f.room.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Subscribers)
	assert.Len(t, view.Room.Players, 1)
}

func TestRoom_DescriptionUpdates(t *testing.T) {
	f := newFixture(t, nil)
	f.join(t, "p1", "Badr")

	require.NoError(t, f.room.Do(context.Background(), engine.Command{Type: engine.CmdStartGame, PlayerID: "p0"}))

	var last Description
	for {
		select {
		case d := <-f.updates:
			last = d
			if d.State != engine.StateActiveRound {
				continue
			}
			assert.Equal(t, Description{ID: "ROOM01", HostName: "Amal", Players: 2, MaxPlayers: 8, State: engine.StateActiveRound}, d)
			return
		case <-time.After(wait):
			t.Fatalf("no playing description, last %+v", last)
		}
	}
}

func TestRoom_DoRejectsMembershipCommands(t *testing.T) {
	f := newFixture(t, nil)
	err := f.room.Do(context.Background(), engine.Command{Type: engine.CmdJoin, PlayerID: "x", Name: "x"})
	assert.ErrorIs(t, err, engine.ErrUnsupportedCommand)
}

func TestRoom_Shutdown(t *testing.T) {
	f := newFixture(t, nil)
	f.room.Inbox() <- Shutdown{}

	select {
	case <-f.room.Done():
	case <-time.After(wait):
		t.Fatal("room did not stop")
	}
	assert.ErrorIs(t, f.room.Leave(context.Background(), "p0"), engine.ErrRoomNotFound)
}
