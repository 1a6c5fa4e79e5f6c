package orch

import (
	"fmt"
	"time"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// replyExcerptLen bounds the quoted part of the original message.
const replyExcerptLen = 40

// Post appends body to the sender's active room and returns the stamped
// message for broadcast.
func (o *Orchestrator) Post(sid core.SessionID, body string) (domain.ChatMessage, error) {
	author, ok := o.Registry.UsernameOf(sid)
	if !ok {
		return domain.ChatMessage{}, core.ErrNotFound
	}
	room, ok := o.Registry.ActiveRoomOf(sid)
	if !ok {
		return domain.ChatMessage{}, core.ErrNoActiveRoom
	}
	msg := o.History.Append(room, author, body)
	return msg, nil
}

// Edit rewrites a message body in the sender's active room. Only the
// original author may edit; index, author and creation timestamp stay
// fixed. The updated message is returned for re-broadcast to the room.
func (o *Orchestrator) Edit(sid core.SessionID, index int, newBody string) (domain.ChatMessage, error) {
	editor, ok := o.Registry.UsernameOf(sid)
	if !ok {
		return domain.ChatMessage{}, core.ErrNotFound
	}
	room, ok := o.Registry.ActiveRoomOf(sid)
	if !ok {
		return domain.ChatMessage{}, core.ErrNoActiveRoom
	}
	msg, err := o.History.Edit(room, index, editor, newBody)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

// Reply posts a new message quoting a bounded excerpt of the target. The
// original is never mutated.
func (o *Orchestrator) Reply(sid core.SessionID, index int, text string) (domain.ChatMessage, error) {
	author, ok := o.Registry.UsernameOf(sid)
	if !ok {
		return domain.ChatMessage{}, core.ErrNotFound
	}
	room, ok := o.Registry.ActiveRoomOf(sid)
	if !ok {
		return domain.ChatMessage{}, core.ErrNoActiveRoom
	}
	original, found := o.History.Get(room, index)
	if !found {
		return domain.ChatMessage{}, core.ErrNotFound
	}
	excerpt := original.Body
	// truncate on rune boundaries, a byte slice could split a multi-byte
	// character and emit invalid UTF-8
	if runes := []rune(excerpt); len(runes) > replyExcerptLen {
		excerpt = string(runes[:replyExcerptLen]) + "..."
	}
	body := fmt.Sprintf("💬 Reply to %s: %q\n%s", original.Author, excerpt, text)
	msg := o.History.Append(room, author, body)
	log.Info().Str("module", "app.orch").Str("room", string(room)).Int("target", index).Int("index", msg.Index).Msg("reply posted")
	return msg, nil
}

// Tail returns the last up to n messages of the sender's active room,
// oldest first.
func (o *Orchestrator) Tail(sid core.SessionID, n int) ([]domain.ChatMessage, domain.RoomName, error) {
	room, ok := o.Registry.ActiveRoomOf(sid)
	if !ok {
		return nil, "", core.ErrNoActiveRoom
	}
	return o.History.Tail(room, n), room, nil
}

// Private builds a private message from sid to recipient and records it in
// the audit log. Delivery is the adapter's concern.
func (o *Orchestrator) Private(sid core.SessionID, recipient, body string) (domain.PrivateMessage, error) {
	author, ok := o.Registry.UsernameOf(sid)
	if !ok {
		return domain.PrivateMessage{}, core.ErrNotFound
	}
	pm := domain.PrivateMessage{
		Author:    author,
		Recipient: recipient,
		Body:      body,
		Timestamp: time.Now(),
	}
	if o.Audit != nil {
		if err := o.Audit.Record(pm); err != nil {
			log.Error().Err(err).Str("module", "app.orch").Msg("audit record failed")
		}
	}
	return pm, nil
}
