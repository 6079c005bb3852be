package ws

import (
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/khodar-backend/internal/hub"
)

type Config struct {
	// OriginPatterns are host patterns accepted besides the request's own host.
	OriginPatterns []string
	Rate           rate.Limit
	Burst          int
	SendBuffer     int
	Logger         *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Rate <= 0 {
		c.Rate = 10
	}
	if c.Burst <= 0 {
		c.Burst = 20
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 32
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

func Handler(h *hub.Hub, cfg Config) http.HandlerFunc {
	cfg = cfg.withDefaults()
	rt := NewRouter(h, cfg.Logger)
	log := cfg.Logger.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: cfg.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept", zap.Error(err))
			return
		}

		s := newSession(r.Context(), conn, Config{
			Rate:       cfg.Rate,
			Burst:      cfg.Burst,
			SendBuffer: cfg.SendBuffer,
			Logger:     log,
		})
		s.run(rt)
	}
}
