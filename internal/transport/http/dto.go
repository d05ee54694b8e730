package http

import "github.com/cwrk-planet/meet-service/internal/protocol"

type UserView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

// RoomView ответ на вход в комнату: всё, что нужно клиенту для начального ростера.
type RoomView struct {
	RoomID       int64                  `json:"roomId"`
	RoomName     string                 `json:"roomName"`
	IsOwner      bool                   `json:"isOwner"`
	Participants []protocol.Participant `json:"participants"`
	User         UserView               `json:"user"`
}
