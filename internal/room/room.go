package room

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/khodar-backend/internal/engine"
	"github.com/DoyleJ11/khodar-backend/pkg/types"
)

// Subscriber receives the snapshots of a room. Send must not block; returning
// false means the subscriber could not keep up and is dropped.
type Subscriber interface {
	ID() string
	Send(msg types.ServerMessage) bool
}

// Description is what the registry knows about a room without asking it.
type Description struct {
	ID         string
	HostName   string
	Players    int
	MaxPlayers int
	IsPrivate  bool
	State      engine.GameState
}

type Hooks struct {
	OnUpdate func(Description)
	OnClosed func(id string)
}

type Config struct {
	ID           string
	Owner        engine.Player
	Private      bool
	PasswordHash []byte
	Settings     engine.Settings
	Rules        engine.Rules
	// GracePeriod is how long an empty room lives before it closes itself.
	// Zero closes it as soon as the last player leaves.
	GracePeriod time.Duration
	Logger      *zap.Logger
	Hooks       Hooks
}

type Msg interface{ isRoomMsg() }

type joinMsg struct {
	player engine.Player
	sub    Subscriber
	reply  chan error
}

type attachMsg struct {
	sub   Subscriber
	name  string
	reply chan AttachResult
}

type leaveMsg struct {
	id    string
	reply chan error
}

type kickMsg struct {
	by, target string
	reply      chan error
}

type commandMsg struct {
	cmd   engine.Command
	reply chan error
}

type syncMsg struct {
	reply chan syncResult
}

type syncResult struct {
	msg types.ServerMessage
	err error
}

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

func (joinMsg) isRoomMsg()    {}
func (attachMsg) isRoomMsg()  {}
func (leaveMsg) isRoomMsg()   {}
func (kickMsg) isRoomMsg()    {}
func (commandMsg) isRoomMsg() {}
func (syncMsg) isRoomMsg()    {}
func (GetState) isRoomMsg()   {}
func (Shutdown) isRoomMsg()   {}

// AttachResult reports whether attaching also reclaimed a player by name.
type AttachResult struct {
	Reconnected bool
	PreviousID  string
}

type View struct {
	Version     int
	Subscribers int
	Room        engine.Room
}

// Room is the actor that owns one engine.Room. Every transition, tick and
// broadcast for the room runs on its goroutine.
type Room struct {
	id           string
	owner        string
	private      bool
	passwordHash []byte

	inbox chan Msg
	ticks chan struct{}

	state    *engine.Room
	version  int
	subs     map[string]Subscriber
	lastDesc Description

	grace      time.Duration
	graceTimer *time.Timer
	closing    bool

	hooks  Hooks
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New validates cfg and starts the room goroutine. The owner is subscribed
// and receives roomCreated first.
func New(parent context.Context, cfg Config, owner Subscriber) (*Room, error) {
	st, err := engine.NewRoom(cfg.ID, cfg.Owner, cfg.Private, cfg.Settings, cfg.Rules)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		id:           cfg.ID,
		owner:        cfg.Owner.ID,
		private:      cfg.Private,
		passwordHash: cfg.PasswordHash,
		inbox:        make(chan Msg, 64),
		ticks:        make(chan struct{}, 4),
		state:        st,
		subs:         map[string]Subscriber{cfg.Owner.ID: owner},
		grace:        cfg.GracePeriod,
		hooks:        cfg.Hooks,
		log:          logger.With(zap.String("room", cfg.ID)),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	go r.loop()
	return r, nil
}

func (r *Room) ID() string { return r.id }

// Done is closed once the room goroutine has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

// Inbox exposes the raw mailbox for GetState and Shutdown.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Close stops the room. Pending requests fail with ErrRoomNotFound.
func (r *Room) Close() { r.cancel() }

// CheckPassword runs on the caller's goroutine so bcrypt never stalls the room.
func (r *Room) CheckPassword(password string) error {
	if !r.private {
		return nil
	}
	return engine.VerifyPassword(r.passwordHash, password)
}

func (r *Room) Join(ctx context.Context, player engine.Player, sub Subscriber, password string) error {
	if err := r.CheckPassword(password); err != nil {
		return err
	}
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, joinMsg{player: player, sub: sub, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

// Attach subscribes sub to the room without making it a player. A non-empty
// name reclaims the player of that name for sub's id.
func (r *Room) Attach(ctx context.Context, sub Subscriber, name string) (AttachResult, error) {
	reply := make(chan AttachResult, 1)
	return request(ctx, r, attachMsg{sub: sub, name: name, reply: reply}, reply)
}

// Leave removes id as a player and as a subscriber.
func (r *Room) Leave(ctx context.Context, id string) error {
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, leaveMsg{id: id, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

func (r *Room) Kick(ctx context.Context, by, target string) error {
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, kickMsg{by: by, target: target, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

// Do applies a game command: start, submit, next round, back to lobby or end round.
func (r *Room) Do(ctx context.Context, cmd engine.Command) error {
	switch cmd.Type {
	case engine.CmdStartGame, engine.CmdSubmitAnswers, engine.CmdNextRound, engine.CmdBackToLobby, engine.CmdEndRound:
	default:
		return engine.ErrUnsupportedCommand
	}
	reply := make(chan error, 1)
	err, reqErr := request(ctx, r, commandMsg{cmd: cmd, reply: reply}, reply)
	if reqErr != nil {
		return reqErr
	}
	return err
}

// Sync returns the current gameUpdate, or ErrGameNotFound while in the lobby.
func (r *Room) Sync(ctx context.Context) (types.ServerMessage, error) {
	reply := make(chan syncResult, 1)
	res, err := request(ctx, r, syncMsg{reply: reply}, reply)
	if err != nil {
		return types.ServerMessage{}, err
	}
	return res.msg, res.err
}

func (r *Room) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	return request(ctx, r, GetState{Reply: reply}, reply)
}

// Tick advances the round clock by one second. It never blocks; a room that
// is behind on ticks skips the extra ones.
func (r *Room) Tick() {
	select {
	case r.ticks <- struct{}{}:
	default:
	}
}

func request[T any](ctx context.Context, r *Room, msg Msg, reply chan T) (T, error) {
	var zero T
	select {
	case r.inbox <- msg:
	case <-r.done:
		return zero, engine.ErrRoomNotFound
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-r.done:
		// the room may have answered right before exiting
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, engine.ErrRoomNotFound
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (r *Room) loop() {
	defer close(r.done)
	defer r.finish()

	r.log.Info("room created", zap.String("owner", r.owner))
	if sub, ok := r.subs[r.owner]; ok {
		r.send(sub, types.MsgRoomCreated, types.RoomEntered{Room: roomView(r.state), PlayerID: r.owner})
	}
	r.describe()

	for {
		var graceC <-chan time.Time
		if r.graceTimer != nil {
			graceC = r.graceTimer.C
		}

		select {
		case <-r.ctx.Done():
			return

		case <-r.ticks:
			_ = r.apply(engine.Command{Type: engine.CmdTick})

		case <-graceC:
			r.graceTimer = nil
			if len(r.state.Players) == 0 {
				r.log.Info("grace period over")
				return
			}

		case m := <-r.inbox:
			switch msg := m.(type) {
			case joinMsg:
				msg.reply <- r.join(msg.player, msg.sub)

			case attachMsg:
				msg.reply <- r.attach(msg.sub, msg.name)

			case leaveMsg:
				msg.reply <- r.leave(msg.id)

			case kickMsg:
				err := r.apply(engine.Command{Type: engine.CmdKick, PlayerID: msg.by, TargetID: msg.target})
				if err == nil {
					r.log.Info("player kicked", zap.String("player", msg.target))
				}
				msg.reply <- err

			case commandMsg:
				msg.reply <- r.apply(msg.cmd)

			case syncMsg:
				if r.state.State == engine.StateLobby {
					msg.reply <- syncResult{err: engine.ErrGameNotFound}
					break
				}
				msg.reply <- syncResult{msg: types.ServerMessage{
					Type:    types.MsgGameUpdate,
					Version: r.version,
					Data:    gameView(r.state),
				}}

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{Version: r.version, Subscribers: len(r.subs), Room: r.state.Clone()}

			case Shutdown:
				return
			}
		}

		if r.closing {
			return
		}
	}
}

func (r *Room) finish() {
	r.cancel()
	if r.graceTimer != nil {
		r.graceTimer.Stop()
	}
	clear(r.subs)
	r.log.Info("room closed")
	if r.hooks.OnClosed != nil {
		r.hooks.OnClosed(r.id)
	}
}

func (r *Room) join(p engine.Player, sub Subscriber) error {
	events, err := engine.Apply(r.state, engine.Command{Type: engine.CmdJoin, PlayerID: p.ID, Name: p.Name})
	if err != nil {
		return err
	}
	r.stopGrace()
	r.subs[p.ID] = sub
	r.log.Info("player joined", zap.String("player", p.ID), zap.String("name", p.Name))

	r.send(sub, types.MsgRoomJoined, types.RoomEntered{Room: roomView(r.state), PlayerID: p.ID})
	r.publish(events)
	return nil
}

func (r *Room) attach(sub Subscriber, name string) AttachResult {
	id := sub.ID()
	r.subs[id] = sub

	var res AttachResult
	if name != "" {
		events, err := engine.Apply(r.state, engine.Command{Type: engine.CmdReconnect, PlayerID: id, Name: name})
		if err == nil && len(events) > 0 {
			prev := events[0].PreviousID
			res = AttachResult{Reconnected: true, PreviousID: prev}
			delete(r.subs, prev)
			r.stopGrace()
			r.log.Info("player reconnected", zap.String("player", id), zap.String("previous", prev))
			r.publish(events)
		}
	}

	r.send(sub, types.MsgLobbyUpdate, lobbyView(r.state))
	if r.state.State != engine.StateLobby {
		r.send(sub, types.MsgGameUpdate, gameView(r.state))
	}
	return res
}

func (r *Room) leave(id string) error {
	_, subscribed := r.subs[id]
	delete(r.subs, id)

	err := r.apply(engine.Command{Type: engine.CmdLeave, PlayerID: id})
	if errors.Is(err, engine.ErrPlayerNotFound) && subscribed {
		// spectators only unsubscribe
		return nil
	}
	if err == nil {
		r.log.Info("player left", zap.String("player", id))
	}
	return err
}

func (r *Room) apply(cmd engine.Command) error {
	events, err := engine.Apply(r.state, cmd)
	if err != nil {
		return err
	}
	r.publish(events)
	return nil
}

// publish turns engine events into snapshots. Round-ending events feed back
// into CmdEndRound, which is a no-op once the round is already over.
func (r *Room) publish(events []engine.Event) {
	if len(events) == 0 {
		return
	}

	inGame := r.state.State != engine.StateLobby
	var lobbyChanged, gameChanged, endRound bool

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtPlayerJoined, engine.EvtPlayerReconnected:
			r.broadcastExcept(ev.Player.ID, types.MsgPlayerJoined, playerView(ev.Player))
			lobbyChanged = true
			gameChanged = gameChanged || inGame

		case engine.EvtPlayerLeft:
			r.broadcastExcept(ev.Player.ID, types.MsgPlayerLeft, playerView(ev.Player))
			lobbyChanged = true
			gameChanged = gameChanged || inGame

		case engine.EvtPlayerKicked:
			if sub, ok := r.subs[ev.Player.ID]; ok {
				delete(r.subs, ev.Player.ID)
				msg := types.ErrorMessage("KICKED", "you were removed from the room")
				r.version++
				msg.Version = r.version
				sub.Send(msg)
			}

		case engine.EvtHostChanged:
			lobbyChanged = true

		case engine.EvtRoomEmptied:
			r.startGrace()

		case engine.EvtGameStarted:
			r.broadcast(types.MsgGameStarting, nil)

		case engine.EvtRoundStarted:
			r.log.Info("round started", zap.Int("round", ev.Round), zap.String("letter", ev.Letter))
			r.broadcast(types.MsgRoundStart, types.RoundStart{Round: ev.Round, Letter: ev.Letter})
			gameChanged = true

		case engine.EvtAnswersSubmitted:
			gameChanged = true
			endRound = endRound || ev.AllSubmitted

		case engine.EvtTimerTicked:
			gameChanged = true

		case engine.EvtTimeWarning:
			r.broadcast(types.MsgTimeWarning, types.TimeWarning{TimeLeft: ev.TimeLeft})

		case engine.EvtTimerExpired:
			endRound = true

		case engine.EvtRoundEnded:
			r.log.Info("round ended", zap.Int("round", ev.Round))
			r.broadcast(types.MsgRoundEnd, types.RoundEnd{RoundResults: resultsView(r.state.RoundResults)})
			gameChanged = true

		case engine.EvtGameCompleted:
			r.broadcast(types.MsgGameEnd, types.GameEnd{
				Scores:  copyScores(r.state.Scores),
				Players: playersView(r.state.Players),
			})

		case engine.EvtReturnedToLobby:
			lobbyChanged = true
			gameChanged = true
		}
	}

	if lobbyChanged {
		r.broadcast(types.MsgLobbyUpdate, lobbyView(r.state))
	}
	if gameChanged {
		r.broadcast(types.MsgGameUpdate, gameView(r.state))
	}
	if endRound {
		ended, _ := engine.Apply(r.state, engine.Command{Type: engine.CmdEndRound})
		r.publish(ended)
	}
	r.describe()
}

func (r *Room) broadcast(typ string, data any) {
	r.broadcastExcept("", typ, data)
}

func (r *Room) broadcastExcept(skip, typ string, data any) {
	r.version++
	msg := types.ServerMessage{Type: typ, Version: r.version, Data: data}
	for id, sub := range r.subs {
		if id == skip {
			continue
		}
		r.deliver(id, sub, msg)
	}
}

func (r *Room) send(sub Subscriber, typ string, data any) {
	r.version++
	r.deliver(sub.ID(), sub, types.ServerMessage{Type: typ, Version: r.version, Data: data})
}

func (r *Room) deliver(id string, sub Subscriber, msg types.ServerMessage) {
	if sub.Send(msg) {
		return
	}
	// Subscriber is slow/full - drop them.
	delete(r.subs, id)
	r.log.Warn("dropped slow subscriber", zap.String("subscriber", id))
}

func (r *Room) startGrace() {
	r.stopGrace()
	if r.grace <= 0 {
		r.closing = true
		return
	}
	r.graceTimer = time.NewTimer(r.grace)
	r.log.Info("room empty", zap.Duration("grace", r.grace))
}

func (r *Room) stopGrace() {
	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
}

func (r *Room) describe() {
	d := Description{
		ID:         r.id,
		Players:    len(r.state.Players),
		MaxPlayers: maxPlayers(r.state),
		IsPrivate:  r.private,
		State:      r.state.State,
	}
	if h, ok := r.state.Host(); ok {
		d.HostName = h.Name
	}
	if d == r.lastDesc {
		return
	}
	r.lastDesc = d
	if r.hooks.OnUpdate != nil {
		r.hooks.OnUpdate(d)
	}
}

func maxPlayers(st *engine.Room) int {
	if st.Rules.MaxPlayers > 0 {
		return st.Rules.MaxPlayers
	}
	return engine.DefaultMaxPlayers
}
