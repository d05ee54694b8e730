// Package protocol описывает события комнаты и их JSON-представление.
//
// Event закрытый набор: TextEvent, TypingEvent, ParticipantEvent, VoteEvent, InitializeEvent.
// Потребители разбирают его через type switch.
package protocol

import (
	"time"
)

type Kind string

const (
	KindText        Kind = "text"
	KindTyping      Kind = "isTyping"
	KindParticipant Kind = "participant"
	KindVote        Kind = "vote"
	KindInitialize  Kind = "initialize"
)

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindTyping, KindParticipant, KindVote, KindInitialize:
		return true
	}

	return false
}

// Participant отображаемая личность; в ростере участники сравниваются по Name.
type Participant struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

type Event interface {
	Kind() Kind
	event()
}

type TextEvent struct {
	Message   string
	From      Participant
	CreatedAt time.Time
}

type TypingEvent struct {
	From Participant
}

type ParticipantEvent struct {
	From Participant
}

type VoteEvent struct {
	Result bool
	From   Participant
}

// InitializeEvent сбрасывает голоса, участники остаются.
type InitializeEvent struct{}

func (TextEvent) Kind() Kind        { return KindText }
func (TypingEvent) Kind() Kind      { return KindTyping }
func (ParticipantEvent) Kind() Kind { return KindParticipant }
func (VoteEvent) Kind() Kind        { return KindVote }
func (InitializeEvent) Kind() Kind  { return KindInitialize }

func (TextEvent) event()        {}
func (TypingEvent) event()      {}
func (ParticipantEvent) event() {}
func (VoteEvent) event()        {}
func (InitializeEvent) event()  {}
