package core

import "github.com/dkeye/Parley/internal/domain"

// Frame is an encoded outbound payload (JSON on the wire).
type Frame []byte

type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds a user and its transport endpoint.
// This is what rooms and the registry store and fan out to.
type MemberSession interface {
	User() *domain.User
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	Username string `json:"username"`
}

// RoomService is the core-facing API of a room. It owns the joined-member
// set (the membership relation; the active-room relation lives in the
// registry) but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	MembersSnapshot() []MemberDTO

	AddMember(sid SessionID, ms MemberSession)
	RemoveMember(sid SessionID)
	Broadcast(from SessionID, data Frame) PublishResult
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

type RoomManager interface {
	GetOrCreate(name domain.RoomName) RoomService
	Get(name domain.RoomName) (RoomService, bool)
	List() []RoomInfo
}

// History is the per-room message store. Indices are assigned at append
// time, strictly increasing, and survive eviction of older entries.
type History interface {
	Append(room domain.RoomName, author, body string) domain.ChatMessage
	Get(room domain.RoomName, index int) (domain.ChatMessage, bool)
	Edit(room domain.RoomName, index int, editor, newBody string) (domain.ChatMessage, error)
	Tail(room domain.RoomName, n int) []domain.ChatMessage
}
