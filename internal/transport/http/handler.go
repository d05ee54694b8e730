package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/internal/service"
	httpmw "github.com/cwrk-planet/meet-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/meet-service/pkg/errs"
	"github.com/cwrk-planet/meet-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

const maxBody = 64 << 10

type Handler struct {
	relay *service.Relay
	rooms *service.RoomService
	chat  *service.ChatService
}

func NewHandler(relay *service.Relay, rooms *service.RoomService, chat *service.ChatService) *Handler {
	return &Handler{relay: relay, rooms: rooms, chat: chat}
}

// POST /api/send
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := httpmw.CallerFromCtx(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		httputil.Error(ctx, w, http.StatusBadRequest, "read body failed", nil)
		return
	}
	req, err := protocol.DecodeSendRequest(body)
	if err != nil {
		httputil.Fail(ctx, w, "send", err)
		return
	}
	if _, err := h.relay.Send(ctx, caller, req); err != nil {
		httputil.Fail(ctx, w, "send", err)
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

// POST /api/create_room, тело: имя комнаты текстом.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := httpmw.CallerFromCtx(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		httputil.Error(ctx, w, http.StatusBadRequest, "read body failed", nil)
		return
	}
	id, err := h.rooms.EnsureRoom(ctx, string(body), caller.ID)
	if err != nil {
		httputil.Fail(ctx, w, "create room", err)
		return
	}

	httputil.Text(w, http.StatusCreated, strconv.FormatInt(id, 10))
}

// POST /api/rooms/{id}/join
//
// Порядок важен: сначала проверяем комнату, потом записываем участника,
// и только потом объявляем его остальным.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := httpmw.CallerFromCtx(ctx)

	roomID, err := protocol.ParseRoomID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(ctx, w, "join room", err)
		return
	}
	info, err := h.rooms.Info(ctx, roomID)
	if err != nil {
		httputil.Fail(ctx, w, "join room", err)
		return
	}
	parts, err := h.rooms.RecordParticipant(ctx, roomID, caller.ID)
	if err != nil {
		httputil.Fail(ctx, w, "join room", err)
		return
	}
	h.relay.Publish(ctx, roomID, protocol.ParticipantEvent{From: caller.Participant()})

	httputil.OK(ctx, w, RoomView{
		RoomID:       roomID,
		RoomName:     info.Name,
		IsOwner:      info.OwnerID == caller.ID,
		Participants: parts,
		User:         UserView{ID: caller.ID, Name: caller.Username, AvatarURL: caller.AvatarURL},
	})
}

// GET /api/rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	list, err := h.rooms.List(r.Context())
	if err != nil {
		httputil.Fail(r.Context(), w, "list rooms", err)
		return
	}

	httputil.OK(r.Context(), w, list)
}

// GET /api/rooms/{id}/messages?limit=
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID, err := protocol.ParseRoomID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(ctx, w, "messages", err)
		return
	}
	limit := 0
	if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			httputil.Fail(ctx, w, "messages", errs.ErrBadRequest)
			return
		}
	}

	msgs, err := h.chat.History(ctx, roomID, limit)
	if err != nil {
		httputil.Fail(ctx, w, "messages", err)
		return
	}

	httputil.OK(ctx, w, msgs)
}
