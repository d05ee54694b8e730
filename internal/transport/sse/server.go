// Package sse отдаёт события комнаты потоком Server-Sent Events.
package sse

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/meet-service/internal/bus"
	"github.com/cwrk-planet/meet-service/internal/protocol"
	httpmw "github.com/cwrk-planet/meet-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/meet-service/pkg/httputil"
	"github.com/cwrk-planet/meet-service/pkg/logger"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	buses     *bus.Registry
	pingEvery time.Duration
	buffer    int
}

type Option func(*Server)

func WithPingEvery(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pingEvery = d
		}
	}
}

func WithBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.buffer = n
		}
	}
}

func NewServer(buses *bus.Registry, opts ...Option) *Server {
	s := &Server{buses: buses, pingEvery: 15 * time.Second, buffer: 64}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// HandleConnect GET /api/connect/{roomId}. Подписка живёт, пока открыто соединение.
func (s *Server) HandleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID, err := protocol.ParseRoomID(chi.URLParam(r, "roomId"))
	if err != nil {
		httputil.Error(ctx, w, http.StatusBadRequest, "invalid room id", nil)
		return
	}
	caller, _ := httpmw.CallerFromCtx(ctx)
	log := logger.FromContext(ctx).With(slog.Int64("room_id", roomID))

	rc := http.NewResponseController(w)
	// сервер ставит WriteTimeout на весь ответ, стриму он не нужен
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn("sse.connect: clear write deadline", slog.Any("err", err))
	}

	b := s.buses.Open(roomID)
	defer b.Close()
	feed := b.Feed(s.buffer, func(ev protocol.Event) {
		log.Warn("sse.connect: subscriber queue full, event dropped", slog.String("kind", string(ev.Kind())))
	})
	defer feed.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.Error("sse.connect: streaming unsupported", slog.Any("err", err))
		return
	}
	log.Info("sse.connect: subscribed", slog.String("user", caller.Username))

	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sse.connect: client gone")
			return
		case ev := <-feed.C():
			data, err := protocol.MarshalEvent(ev)
			if err != nil {
				log.Error("sse.connect: marshal", slog.Any("err", err))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
