package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/khodar-backend/internal/engine"
	"github.com/DoyleJ11/khodar-backend/internal/hub"
	"github.com/DoyleJ11/khodar-backend/pkg/types"
)

const qrSize = 256

func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// ListRooms serves the public room browser.
func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		descs, err := h.PublicRooms(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "rooms unavailable")
			return
		}
		out := make([]types.RoomSummary, 0, len(descs))
		for _, d := range descs {
			out = append(out, types.RoomSummary{ID: d.ID, HostName: d.HostName, Players: d.Players, MaxPlayers: d.MaxPlayers})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// RoomQR renders an invite link to the room's lobby as a PNG QR code.
func RoomQR(h *hub.Hub, publicURL string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "roomID")
		if _, err := h.Room(r.Context(), id); err != nil {
			if errors.Is(err, engine.ErrRoomNotFound) {
				writeError(w, http.StatusNotFound, engine.CodeOf(err), err.Error())
				return
			}
			writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "rooms unavailable")
			return
		}

		png, err := qrcode.Encode(publicURL+"/lobby/"+id, qrcode.Medium, qrSize)
		if err != nil {
			log.Error("encode qr", zap.String("room", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to render qr code")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.Error{Message: msg, Code: code})
}
