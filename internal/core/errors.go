package core

import "errors"

var (
	// ErrUnauthorized is returned when an edit targets someone else's message.
	ErrUnauthorized = errors.New("not the author")
	// ErrNotFound covers unknown rooms, evicted or unassigned indices, and
	// offline recipients.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument covers malformed commands (non-numeric index,
	// missing arguments).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoActiveRoom rejects room-scoped operations after /LEAVEROOM.
	ErrNoActiveRoom = errors.New("no active room")
	// ErrBackpressure is returned by TrySend when a peer's queue is full.
	ErrBackpressure = errors.New("backpressure")
)
