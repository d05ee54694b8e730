package service

import (
	"context"

	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/internal/protocol"
)

// Хранилища реализованы в internal/postgres и internal/sqlite.

type UserStore interface {
	// ByTokenHash domain.ErrUserNotFound, если токен не найден.
	ByTokenHash(ctx context.Context, tokenHash string) (domain.User, error)
	ByID(ctx context.Context, id int64) (domain.User, error)
	// Upsert создаёт или обновляет пользователя; u.ID == 0: id выдаёт база.
	Upsert(ctx context.Context, u domain.User, tokenHash string) (domain.User, error)
}

type RoomStore interface {
	Get(ctx context.Context, id int64) (domain.Room, error)
	// Create domain.ErrRoomExists при занятом имени.
	Create(ctx context.Context, name string, ownerID int64) (int64, error)
	IDByName(ctx context.Context, name string) (int64, error)
	List(ctx context.Context) ([]domain.RoomSummary, error)
	// AddParticipant идемпотентен.
	AddParticipant(ctx context.Context, roomID, userID int64) error
	// Participants в порядке входа.
	Participants(ctx context.Context, roomID int64) ([]protocol.Participant, error)
}

type MessageStore interface {
	Insert(ctx context.Context, roomID, userID int64, text string) (domain.ChatMessage, error)
	// ListByRoom последние limit сообщений, от старых к новым.
	ListByRoom(ctx context.Context, roomID int64, limit int) ([]domain.ChatMessage, error)
}
