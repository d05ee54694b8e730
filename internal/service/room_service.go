package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/pkg/errs"
)

const maxRoomNameLen = 100

type RoomService struct {
	rooms RoomStore
}

func NewRoomService(rooms RoomStore) *RoomService {
	return &RoomService{rooms: rooms}
}

// Participants участники комнаты в порядке входа.
func (s *RoomService) Participants(ctx context.Context, roomID int64) ([]protocol.Participant, error) {
	parts, err := s.rooms.Participants(ctx, roomID)
	if err != nil {
		return nil, upstream("rooms.Participants", err)
	}

	return parts, nil
}

// RecordParticipant отмечает вход пользователя и возвращает обновлённый список. Идемпотентен.
func (s *RoomService) RecordParticipant(ctx context.Context, roomID, userID int64) ([]protocol.Participant, error) {
	if err := s.rooms.AddParticipant(ctx, roomID, userID); err != nil {
		return nil, upstream("rooms.AddParticipant", err)
	}

	return s.Participants(ctx, roomID)
}

func (s *RoomService) Info(ctx context.Context, roomID int64) (domain.RoomInfo, error) {
	rm, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return domain.RoomInfo{}, domain.ErrRoomNotFound
		}
		return domain.RoomInfo{}, upstream("rooms.Get", err)
	}

	return domain.RoomInfo{Name: rm.Name, OwnerID: rm.OwnerID}, nil
}

// EnsureRoom создаёт комнату; если имя занято, возвращает id существующей.
func (s *RoomService) EnsureRoom(ctx context.Context, name string, ownerID int64) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: room name is required", errs.ErrBadRequest)
	}
	if utf8.RuneCountInString(name) > maxRoomNameLen {
		return 0, fmt.Errorf("%w: room name longer than %d chars", errs.ErrBadRequest, maxRoomNameLen)
	}

	id, err := s.rooms.Create(ctx, name, ownerID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, domain.ErrRoomExists) {
		return 0, upstream("rooms.Create", err)
	}

	id, err = s.rooms.IDByName(ctx, name)
	if err != nil {
		return 0, upstream("rooms.IDByName", err)
	}

	return id, nil
}

// List комнаты, сначала с недавними сообщениями.
func (s *RoomService) List(ctx context.Context) ([]domain.RoomSummary, error) {
	list, err := s.rooms.List(ctx)
	if err != nil {
		return nil, upstream("rooms.List", err)
	}
	if list == nil {
		list = []domain.RoomSummary{}
	}

	return list, nil
}
