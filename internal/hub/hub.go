package hub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/khodar-backend/internal/engine"
	"github.com/DoyleJ11/khodar-backend/internal/room"
)

var ErrClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type createRoom struct {
	owner   engine.Player
	sub     room.Subscriber
	private bool
	hash    []byte
	reply   chan createResult
}

type createResult struct {
	room *room.Room
	err  error
}

type getRoom struct {
	id    string
	reply chan *room.Room
}

type bind struct{ conn, room string }

type unbind struct{ conn, room string }

type roomsOf struct {
	conn  string
	reply chan []string
}

type listRooms struct {
	reply chan []room.Description
}

type describe struct{ desc room.Description }

type removeRoom struct{ id string }

type ShutdownHub struct{}

func (createRoom) isHubMsg()  {}
func (getRoom) isHubMsg()     {}
func (bind) isHubMsg()        {}
func (unbind) isHubMsg()      {}
func (roomsOf) isHubMsg()     {}
func (listRooms) isHubMsg()   {}
func (describe) isHubMsg()    {}
func (removeRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Settings    engine.Settings
	Rules       engine.Rules
	BcryptCost  int
	GracePeriod time.Duration

	// TickInterval is the round clock period, one second unless overridden.
	TickInterval time.Duration
	Tickers      TickerFactory
	// Codes generates candidate room ids; GenerateCode when nil.
	Codes  func() (string, error)
	Logger *zap.Logger
}

// Hub is the room registry. It owns the room table, the connection to room
// bindings and the round clock, and never blocks on a room.
type Hub struct {
	inbox chan HubMsg
	rooms map[string]*room.Room
	descs map[string]room.Description
	conns map[string]map[string]struct{}
	opts  Options
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Tickers == nil {
		opts.Tickers = SystemTickers{}
	}
	if opts.Codes == nil {
		opts.Codes = GenerateCode
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.Settings.Categories) == 0 {
		opts.Settings = engine.DefaultSettings()
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		descs:  make(map[string]room.Description),
		conns:  make(map[string]map[string]struct{}),
		opts:   opts,
		log:    opts.Logger.Named("hub"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.done }

// Shutdown closes every room and stops the hub.
func (h *Hub) Shutdown() { h.post(ShutdownHub{}) }

func (h *Hub) loop() {
	defer close(h.done)

	tickC, stop := h.opts.Tickers.Create(h.opts.TickInterval)
	defer stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-tickC:
			for id, d := range h.descs {
				if d.State != engine.StateActiveRound {
					continue
				}
				if rm := h.rooms[id]; rm != nil {
					rm.Tick()
				}
			}

		case m := <-h.inbox:
			switch msg := m.(type) {
			case createRoom:
				rm, err := h.create(msg)
				msg.reply <- createResult{room: rm, err: err}

			case getRoom:
				msg.reply <- h.rooms[msg.id] // May be nil

			case bind:
				if _, ok := h.rooms[msg.room]; ok {
					h.bindConn(msg.conn, msg.room)
				}

			case unbind:
				h.unbindConn(msg.conn, msg.room)

			case roomsOf:
				ids := make([]string, 0, len(h.conns[msg.conn]))
				for id := range h.conns[msg.conn] {
					ids = append(ids, id)
				}
				slices.Sort(ids)
				msg.reply <- ids

			case listRooms:
				out := make([]room.Description, 0, len(h.descs))
				for _, d := range h.descs {
					out = append(out, d)
				}
				msg.reply <- out

			case describe:
				if _, ok := h.rooms[msg.desc.ID]; ok {
					h.descs[msg.desc.ID] = msg.desc
				}

			case removeRoom:
				delete(h.rooms, msg.id)
				delete(h.descs, msg.id)
				for conn := range h.conns {
					h.unbindConn(conn, msg.id)
				}
				h.log.Info("room removed", zap.String("room", msg.id))

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(msg createRoom) (*room.Room, error) {
	id, err := h.uniqueCode()
	if err != nil {
		return nil, err
	}

	settings := h.opts.Settings
	settings.Categories = slices.Clone(settings.Categories)
	rm, err := room.New(h.ctx, room.Config{
		ID:           id,
		Owner:        msg.owner,
		Private:      msg.private,
		PasswordHash: msg.hash,
		Settings:     settings,
		Rules:        h.opts.Rules,
		GracePeriod:  h.opts.GracePeriod,
		Logger:       h.opts.Logger,
		Hooks: room.Hooks{
			OnUpdate: func(d room.Description) { h.post(describe{desc: d}) },
			OnClosed: func(id string) { h.post(removeRoom{id: id}) },
		},
	}, msg.sub)
	if err != nil {
		return nil, err
	}

	h.rooms[id] = rm
	h.bindConn(msg.owner.ID, id)
	return rm, nil
}

const maxCodeAttempts = 32

func (h *Hub) uniqueCode() (string, error) {
	for range maxCodeAttempts {
		c, err := h.opts.Codes()
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		c = strings.ToUpper(c)
		if _, taken := h.rooms[c]; !taken {
			return c, nil
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", c))
	}
	return "", fmt.Errorf("no free room code after %d attempts", maxCodeAttempts)
}

func (h *Hub) bindConn(conn, id string) {
	set := h.conns[conn]
	if set == nil {
		set = make(map[string]struct{})
		h.conns[conn] = set
	}
	set[id] = struct{}{}
}

func (h *Hub) unbindConn(conn, id string) {
	set := h.conns[conn]
	delete(set, id)
	if len(set) == 0 {
		delete(h.conns, conn)
	}
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Close()
	}
	clear(h.rooms)
	clear(h.descs)
	clear(h.conns)
	h.cancel()
	h.log.Info("hub stopped")
}

// post delivers m unless the hub has stopped. Rooms call it from their own
// goroutines.
func (h *Hub) post(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

func request[T any](ctx context.Context, h *Hub, msg HubMsg, reply chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- msg:
	case <-h.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
