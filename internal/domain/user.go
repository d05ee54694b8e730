package domain

import (
	"time"

	"github.com/cwrk-planet/meet-service/internal/protocol"
)

type User struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	AvatarURL string    `db:"avatar_url"`
	CreatedAt time.Time `db:"created_at"`
}

// Participant то, как пользователь виден остальным в комнате.
func (u User) Participant() protocol.Participant {
	return protocol.Participant{Name: u.Username, AvatarURL: u.AvatarURL}
}
