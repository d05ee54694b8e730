package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/pkg/errs"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type ChatService struct {
	messages MessageStore
}

func NewChatService(messages MessageStore) *ChatService {
	return &ChatService{messages: messages}
}

func (s *ChatService) Save(ctx context.Context, roomID, userID int64, text string) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: empty message", errs.ErrBadRequest)
	}
	if utf8.RuneCountInString(text) > protocol.MaxMessageLen {
		return domain.ChatMessage{}, fmt.Errorf("%w: message too long", errs.ErrBadRequest)
	}

	msg, err := s.messages.Insert(ctx, roomID, userID, text)
	if err != nil {
		return domain.ChatMessage{}, upstream("messages.Insert", err)
	}

	return msg, nil
}

// History последние limit сообщений комнаты, от старых к новым.
func (s *ChatService) History(ctx context.Context, roomID int64, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	msgs, err := s.messages.ListByRoom(ctx, roomID, limit)
	if err != nil {
		return nil, upstream("messages.ListByRoom", err)
	}

	return msgs, nil
}
