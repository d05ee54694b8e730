package domain

import "time"

type Room struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	OwnerID   int64     `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
}

type RoomInfo struct {
	Name    string
	OwnerID int64
}

// RoomSummary строка списка комнат; LastActivity nil, если сообщений ещё не было.
type RoomSummary struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	OwnerName    string     `json:"ownerName"`
	Participants int        `json:"participants"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
}
