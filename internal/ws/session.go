package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/khodar-backend/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	pingPeriod   = 30 * time.Second
)

// Session is one websocket connection. Its id is the player's identity in
// every room it joins.
type Session struct {
	id      string
	conn    *websocket.Conn
	out     chan types.ServerMessage
	limiter *rate.Limiter
	log     *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newSession(parent context.Context, conn *websocket.Conn, cfg Config) *Session {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	return &Session{
		id:      id,
		conn:    conn,
		out:     make(chan types.ServerMessage, cfg.SendBuffer),
		limiter: rate.NewLimiter(cfg.Rate, cfg.Burst),
		log:     cfg.Logger.With(zap.String("conn", id)),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Session) ID() string { return s.id }

// Send queues msg without blocking. A session that cannot keep up is closed.
func (s *Session) Send(msg types.ServerMessage) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.out <- msg:
		return true
	default:
		s.log.Warn("send buffer full, closing session")
		s.Close()
		return false
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(s.cancel)
}

// run blocks until the client goes away, then leaves every room.
func (s *Session) run(rt *Router) {
	s.log.Info("session opened")
	defer s.log.Info("session closed")
	defer s.conn.Close(websocket.StatusNormalClosure, "bye")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rt.Disconnect(ctx, s.id)
	}()
	defer s.Close()

	go s.writePump()
	s.readPump(rt)
}

func (s *Session) readPump(rt *Router) {
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if s.ctx.Err() == nil {
					s.log.Debug("read failed", zap.Error(err))
				}
			}
			return
		}

		if !s.limiter.Allow() {
			s.Send(types.ErrorMessage(CodeRateLimited, "slow down"))
			continue
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			s.Send(types.ErrorMessage(CodeBadRequest, "bad json"))
			continue
		}
		rt.Dispatch(s.ctx, s, cm)
	}
}

func (s *Session) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.out:
			payload, err := json.Marshal(msg)
			if err != nil {
				s.log.Error("encode message", zap.String("type", msg.Type), zap.Error(err))
				continue
			}
			ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
			err = s.conn.Write(ctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				s.Close()
				return
			}

		case <-ping.C:
			ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
			err := s.conn.Ping(ctx)
			cancel()
			if err != nil {
				s.Close()
				return
			}
		}
	}
}
