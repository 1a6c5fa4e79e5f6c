package signal

import (
	"time"

	"github.com/dkeye/Parley/internal/domain"
)

// MessageKind is the closed set of wire message types. Dispatch switches
// over it exhaustively; adding a kind means touching that switch.
type MessageKind string

const (
	KindLogin   MessageKind = "login"
	KindChat    MessageKind = "chat"
	KindPrivate MessageKind = "private"
	KindWho     MessageKind = "who"
	KindCommand MessageKind = "command"

	KindInfo  MessageKind = "info"
	KindUsers MessageKind = "users"
	KindRooms MessageKind = "rooms"
)

type envelope struct {
	Type MessageKind `json:"type"`
}

type LoginPayload struct {
	Type     MessageKind `json:"type"`
	Username string      `json:"username"`
}

type ChatPayload struct {
	Type   MessageKind `json:"type"`
	Room   string      `json:"room,omitempty"`
	Index  int         `json:"index,omitempty"`
	Author string      `json:"author,omitempty"`
	Body   string      `json:"body"`
	Edited bool        `json:"edited,omitempty"`
	Ts     time.Time   `json:"ts,omitempty"`
}

type PrivatePayload struct {
	Type MessageKind `json:"type"`
	From string      `json:"from,omitempty"`
	To   string      `json:"to"`
	Body string      `json:"body"`
	Ts   time.Time   `json:"ts,omitempty"`
}

type InfoPayload struct {
	Type MessageKind `json:"type"`
	Text string      `json:"text"`
}

type UsersPayload struct {
	Type  MessageKind `json:"type"`
	Users []string    `json:"users"`
}

type RoomsPayload struct {
	Type  MessageKind `json:"type"`
	Rooms []string    `json:"rooms"`
}

type CommandPayload struct {
	Type MessageKind `json:"type"`
	Text string      `json:"text"`
}

func chatPayload(msg domain.ChatMessage) ChatPayload {
	return ChatPayload{
		Type:   KindChat,
		Room:   string(msg.Room),
		Index:  msg.Index,
		Author: msg.Author,
		Body:   msg.Body,
		Edited: msg.Edited,
		Ts:     msg.Timestamp,
	}
}

func privatePayload(pm domain.PrivateMessage) PrivatePayload {
	return PrivatePayload{
		Type: KindPrivate,
		From: pm.Author,
		To:   pm.Recipient,
		Body: pm.Body,
		Ts:   pm.Timestamp,
	}
}
