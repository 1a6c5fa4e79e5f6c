package domain

import "time"

// ChatMessage is one entry of a room history. Index is room-local,
// 1-based and never reused; only Body and Edited change after creation.
type ChatMessage struct {
	Room      RoomName  `json:"room"`
	Index     int       `json:"index"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"ts"`
	Edited    bool      `json:"edited"`
}

// PrivateMessage is delivered and discarded; it never enters a room history.
type PrivateMessage struct {
	Author    string    `json:"author"`
	Recipient string    `json:"recipient"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"ts"`
}
