// Package client клиент комнаты: ростер голосов, сведение событий и HTTP/SSE/WS-транспорт.
package client

import "github.com/cwrk-planet/meet-service/internal/protocol"

// Vote строка ростера. Result == nil: участник ещё не голосовал.
type Vote struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Result    *bool  `json:"result,omitempty"`
}

// Roster упорядоченный по первому появлению список голосов.
// Участники сравниваются по имени: два участника с одинаковым именем сливаются в одну строку.
// Не потокобезопасен, для конкурентного доступа есть Reconciler.
type Roster struct {
	votes []Vote
}

// NewRoster начальный список участников, дубликаты по имени отбрасываются.
func NewRoster(seed []protocol.Participant) *Roster {
	r := &Roster{votes: make([]Vote, 0, len(seed))}
	for _, p := range seed {
		if r.index(p.Name) < 0 {
			r.votes = append(r.votes, Vote{Name: p.Name, AvatarURL: p.AvatarURL})
		}
	}

	return r
}

// Apply применяет событие и сообщает, нужно ли перерисовать ростер.
// Повторный такой же голос и повторный participant переходом не считаются.
func (r *Roster) Apply(ev protocol.Event) bool {
	switch e := ev.(type) {
	case protocol.VoteEvent:
		i := r.index(e.From.Name)
		if i < 0 {
			// голос неизвестного участника не добавляет строку
			return false
		}
		if cur := r.votes[i].Result; cur != nil && *cur == e.Result {
			return false
		}
		res := e.Result
		r.votes[i].Result = &res
		return true
	case protocol.ParticipantEvent:
		if r.index(e.From.Name) >= 0 {
			return false
		}
		r.votes = append(r.votes, Vote{Name: e.From.Name, AvatarURL: e.From.AvatarURL})
		return true
	case protocol.InitializeEvent:
		// сброс всегда переход, даже если голосов не было: ростер перерисовывается
		for i := range r.votes {
			r.votes[i].Result = nil
		}
		return true
	case protocol.TextEvent, protocol.TypingEvent:
		return false
	default:
		return false
	}
}

// Entries глубокая копия.
func (r *Roster) Entries() []Vote {
	out := make([]Vote, len(r.votes))
	for i, v := range r.votes {
		out[i] = v
		if v.Result != nil {
			res := *v.Result
			out[i].Result = &res
		}
	}

	return out
}

func (r *Roster) index(name string) int {
	for i := range r.votes {
		if r.votes[i].Name == name {
			return i
		}
	}

	return -1
}
