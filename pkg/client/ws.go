package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/cwrk-planet/meet-service/internal/protocol"

	"github.com/coder/websocket"
)

// WSStream поток комнаты по WebSocket. Через него же можно отправлять запросы.
type WSStream struct {
	conn   *websocket.Conn
	roomID int64
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// SubscribeWS подключается к /ws/rooms/{id}.
func (c *Client) SubscribeWS(ctx context.Context, roomID int64) (*WSStream, error) {
	u := *c.baseURL
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path += "/ws/rooms/" + strconv.FormatInt(roomID, 10)

	header := http.Header{}
	if c.token != "" {
		header.Set("Cookie", (&http.Cookie{Name: c.cookie, Value: c.token}).String())
	}

	ctx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPClient: c.http,
		HTTPHeader: header,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	conn.SetReadLimit(1 << 20)

	return &WSStream{conn: conn, roomID: roomID, ctx: ctx, cancel: cancel}, nil
}

func (s *WSStream) Next() (protocol.Event, error) {
	for {
		typ, data, err := s.conn.Read(s.ctx)
		if err != nil {
			return nil, err
		}
		if typ != websocket.MessageText {
			continue
		}
		return protocol.UnmarshalEvent(data)
	}
}

// Send отправляет запрос кадром; roomId по умолчанию: комната сокета.
func (s *WSStream) Send(ctx context.Context, req protocol.SendRequest) error {
	if req.RoomID == 0 {
		req.RoomID = s.roomID
	}
	if err := req.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *WSStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close(websocket.StatusNormalClosure, "")
		s.cancel()
	})

	return err
}
