// Package ws WebSocket-транспорт комнаты: исходящие события шины и входящие запросы клиента.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/meet-service/internal/bus"
	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/internal/protocol"
	httpmw "github.com/cwrk-planet/meet-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/meet-service/pkg/httputil"
	"github.com/cwrk-planet/meet-service/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type Sender interface {
	Send(ctx context.Context, caller domain.User, req protocol.SendRequest) (protocol.Event, error)
}

type Server struct {
	upgrader websocket.Upgrader
	buses    *bus.Registry
	relay    Sender

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

// WithCheckOrigin по умолчанию разрешены все origin.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

func NewServer(buses *bus.Registry, relay Sender, opts ...Option) *Server {
	s := &Server{
		buses: buses,
		relay: relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
		buffer:    64,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// HandleWS GET /ws/rooms/{id}; вызывающий уже прошёл httpmw.Auth.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID, err := protocol.ParseRoomID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid room id", nil)
		return
	}
	caller, ok := httpmw.CallerFromCtx(r.Context())
	if !ok {
		httputil.Error(r.Context(), w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	log := logger.FromContext(r.Context()).With(slog.Int64("room_id", roomID))

	// подписка до апгрейда: к концу рукопожатия клиент уже получает события
	b := s.buses.Open(roomID)
	defer b.Close()
	feed := b.Feed(s.buffer, func(ev protocol.Event) {
		log.Warn("ws: subscriber queue full, event dropped", slog.String("kind", string(ev.Kind())))
	})
	defer feed.Close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам ответил клиенту
		log.Warn("ws upgrade failed", slog.Any("err", err))
		return
	}

	ctx, cancel := context.WithCancel(logger.IntoContext(r.Context(), log))
	defer cancel()

	c := &wsConn{conn: conn, roomID: roomID, caller: caller}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop(ctx, c, feed)
	}()
	s.readLoop(ctx, c)

	cancel()
	<-done
	if err := conn.Close(); err != nil {
		log.Debug("ws close failed", slog.Any("err", err))
	}
}

type wsConn struct {
	conn   *websocket.Conn
	roomID int64
	caller domain.User
}

// readLoop входящие кадры: SendRequest без roomId (он берётся из сокета).
func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	log := logger.FromContext(ctx)

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("ws read", slog.Any("err", err))
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}

		req, err := protocol.DecodeSendRequestInRoom(data, c.roomID)
		if err != nil {
			log.Warn("ws: bad frame skipped", slog.Any("err", err))
			continue
		}
		if _, err := s.relay.Send(ctx, c.caller, req); err != nil {
			log.Warn("ws: relay failed", slog.String("kind", string(req.Kind)), slog.Any("err", err))
		}
	}
}

// writeLoop единственный писатель в соединение (gorilla не допускает конкурентной записи).
func (s *Server) writeLoop(ctx context.Context, c *wsConn, feed *bus.Feed) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case ev := <-feed.C():
			data, err := protocol.MarshalEvent(ev)
			if err != nil {
				log.Error("ws: marshal", slog.Any("err", err))
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("ws write", slog.Any("err", err))
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}
