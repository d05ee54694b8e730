package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/pkg/errs"
)

const DefaultCookie = "meet_token"

// Client HTTP-клиент сервиса. Токен уходит в cookie, как у браузера.
type Client struct {
	baseURL *url.URL
	token   string
	cookie  string
	http    *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func WithCookieName(name string) ClientOption {
	return func(c *Client) { c.cookie = name }
}

func New(baseURL, token string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http(s), got %q", baseURL)
	}
	c := &Client{baseURL: u, token: token, cookie: DefaultCookie, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

type RoomView struct {
	RoomID       int64                  `json:"roomId"`
	RoomName     string                 `json:"roomName"`
	IsOwner      bool                   `json:"isOwner"`
	Participants []protocol.Participant `json:"participants"`
	User         User                   `json:"user"`
}

type RoomSummary struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	OwnerName    string     `json:"ownerName"`
	Participants int        `json:"participants"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
}

type Message struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"roomId"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl"`
	Text      string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Send POST /api/send. Успех значит только, что сервер опубликовал событие.
func (c *Client) Send(ctx context.Context, req protocol.SendRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/send", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func (c *Client) SendVote(ctx context.Context, roomID int64, result bool) error {
	return c.Send(ctx, protocol.SendRequest{Kind: protocol.KindVote, RoomID: roomID, Result: result})
}

func (c *Client) SendParticipant(ctx context.Context, roomID int64) error {
	return c.Send(ctx, protocol.SendRequest{Kind: protocol.KindParticipant, RoomID: roomID})
}

func (c *Client) SendInitialize(ctx context.Context, roomID int64) error {
	return c.Send(ctx, protocol.SendRequest{Kind: protocol.KindInitialize, RoomID: roomID})
}

func (c *Client) SendText(ctx context.Context, roomID int64, text string) error {
	return c.Send(ctx, protocol.SendRequest{Kind: protocol.KindText, RoomID: roomID, Message: text})
}

func (c *Client) SendTyping(ctx context.Context, roomID int64) error {
	return c.Send(ctx, protocol.SendRequest{Kind: protocol.KindTyping, RoomID: roomID})
}

// CreateRoom возвращает id новой комнаты или существующей с тем же именем.
func (c *Client) CreateRoom(ctx context.Context, name string) (int64, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/create_room", "text/plain; charset=utf-8", strings.NewReader(name))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected room id %q", errs.ErrUpstream, raw)
	}

	return id, nil
}

// JoinRoom отмечает вход и возвращает начальное состояние комнаты.
func (c *Client) JoinRoom(ctx context.Context, roomID int64) (RoomView, error) {
	var out RoomView
	err := c.getData(ctx, http.MethodPost, "/api/rooms/"+strconv.FormatInt(roomID, 10)+"/join", &out)

	return out, err
}

func (c *Client) Rooms(ctx context.Context) ([]RoomSummary, error) {
	var out []RoomSummary
	err := c.getData(ctx, http.MethodGet, "/api/rooms", &out)

	return out, err
}

func (c *Client) Messages(ctx context.Context, roomID int64, limit int) ([]Message, error) {
	path := "/api/rooms/" + strconv.FormatInt(roomID, 10) + "/messages"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []Message
	err := c.getData(ctx, http.MethodGet, path, &out)

	return out, err
}

func (c *Client) getData(ctx context.Context, method, path string, dst any) error {
	resp, err := c.do(ctx, method, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	env := struct {
		Data any `json:"data"`
	}{Data: dst}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode response: %v", errs.ErrUpstream, err)
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	rel, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	u.Path += rel.Path
	u.RawQuery = rel.RawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: c.cookie, Value: c.token})
	}

	return req, nil
}

// do выполняет запрос; не-2xx превращается в ошибку с сентинелом errs.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, contentType, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, errorFromResponse(resp)
	}

	return resp, nil
}

func errorFromResponse(resp *http.Response) error {
	sentinel := errs.FromHTTP(resp.StatusCode)

	var env struct {
		Error struct {
			Message string         `json:"message"`
			Meta    map[string]any `json:"meta"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		if reason, ok := env.Error.Meta["reason"].(string); ok && reason != "" {
			return fmt.Errorf("%w: %s: %s", sentinel, env.Error.Message, reason)
		}
		return fmt.Errorf("%w: %s", sentinel, env.Error.Message)
	}

	return fmt.Errorf("%w: http %d", sentinel, resp.StatusCode)
}
