package core

import (
	"sync"
	"time"

	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// historyImpl keeps one capped, append-only sequence per room. Each room
// has its own lock so edits and appends in one room never stall another.
type historyImpl struct {
	cap   int
	mu    sync.RWMutex
	rooms map[domain.RoomName]*roomHistory
}

type roomHistory struct {
	mu      sync.Mutex
	counter int
	msgs    []domain.ChatMessage
}

func NewHistory(cap int) History {
	if cap <= 0 {
		cap = 10
	}
	return &historyImpl{
		cap:   cap,
		rooms: make(map[domain.RoomName]*roomHistory),
	}
}

func (h *historyImpl) forRoom(room domain.RoomName) *roomHistory {
	h.mu.RLock()
	rh, ok := h.rooms[room]
	h.mu.RUnlock()
	if ok {
		return rh
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if rh, ok = h.rooms[room]; ok {
		return rh
	}
	rh = &roomHistory{}
	h.rooms[room] = rh
	return rh
}

// Append stamps the next room-local index and evicts the oldest entry once
// the cap is exceeded, under one lock so concurrent appends keep indices
// strictly increasing.
func (h *historyImpl) Append(room domain.RoomName, author, body string) domain.ChatMessage {
	rh := h.forRoom(room)
	rh.mu.Lock()
	defer rh.mu.Unlock()

	rh.counter++
	msg := domain.ChatMessage{
		Room:      room,
		Index:     rh.counter,
		Author:    author,
		Body:      body,
		Timestamp: time.Now(),
	}
	rh.msgs = append(rh.msgs, msg)
	if len(rh.msgs) > h.cap {
		rh.msgs = rh.msgs[1:]
	}
	log.Debug().Str("module", "core.history").Str("room", string(room)).Int("index", msg.Index).Msg("message appended")
	return msg
}

func (h *historyImpl) Get(room domain.RoomName, index int) (domain.ChatMessage, bool) {
	rh := h.forRoom(room)
	rh.mu.Lock()
	defer rh.mu.Unlock()
	msg, pos := rh.locate(index)
	if pos < 0 {
		return domain.ChatMessage{}, false
	}
	return msg, true
}

// Edit replaces the body in place; index, author, room and the creation
// timestamp stay untouched. Only the original author may edit.
func (h *historyImpl) Edit(room domain.RoomName, index int, editor, newBody string) (domain.ChatMessage, error) {
	rh := h.forRoom(room)
	rh.mu.Lock()
	defer rh.mu.Unlock()
	msg, pos := rh.locate(index)
	if pos < 0 {
		return domain.ChatMessage{}, ErrNotFound
	}
	if msg.Author != editor {
		return domain.ChatMessage{}, ErrUnauthorized
	}
	rh.msgs[pos].Body = newBody
	rh.msgs[pos].Edited = true
	log.Info().Str("module", "core.history").Str("room", string(room)).Int("index", index).Str("editor", editor).Msg("message edited")
	return rh.msgs[pos], nil
}

// Tail returns the most recent up to n entries, oldest first.
func (h *historyImpl) Tail(room domain.RoomName, n int) []domain.ChatMessage {
	rh := h.forRoom(room)
	rh.mu.Lock()
	defer rh.mu.Unlock()
	if n <= 0 || len(rh.msgs) == 0 {
		return nil
	}
	start := len(rh.msgs) - n
	if start < 0 {
		start = 0
	}
	out := make([]domain.ChatMessage, len(rh.msgs)-start)
	copy(out, rh.msgs[start:])
	return out
}

// locate maps an external index to a slice position. Entries are contiguous
// and sorted by index, so position follows from the oldest surviving index.
func (rh *roomHistory) locate(index int) (domain.ChatMessage, int) {
	if len(rh.msgs) == 0 {
		return domain.ChatMessage{}, -1
	}
	first := rh.msgs[0].Index
	pos := index - first
	if pos < 0 || pos >= len(rh.msgs) {
		return domain.ChatMessage{}, -1
	}
	return rh.msgs[pos], pos
}
