package httpapi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/khodar-backend/internal/hub"
	"github.com/DoyleJ11/khodar-backend/internal/ws"
)

type Deps struct {
	Hub            *hub.Hub
	PublicURL      string
	AllowedOrigins []string
	WS             ws.Config
	Logger         *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	wsCfg := d.WS
	wsCfg.OriginPatterns = OriginHosts(d.AllowedOrigins)
	wsCfg.Logger = d.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/rooms", ListRooms(d.Hub))
	r.Get("/rooms/{roomID}/qr.png", RoomQR(d.Hub, d.PublicURL, d.Logger))
	r.Get("/ws", ws.Handler(d.Hub, wsCfg))
	return r
}

// OriginHosts turns allowed origins such as "http://localhost:3000" into the
// host patterns the websocket handshake checks.
func OriginHosts(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
