package orch

import (
	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// CreateRoom is idempotent: creating an existing room is a no-op.
func (o *Orchestrator) CreateRoom(raw string) (domain.RoomName, error) {
	name, err := domain.NewRoomName(raw)
	if err != nil {
		return "", core.ErrInvalidArgument
	}
	o.Rooms.GetOrCreate(name)
	log.Info().Str("module", "app.orch").Str("room", string(name)).Msg("room ensured")
	return name, nil
}

// JoinRoom adds sid to the room's member set (creating the room if absent)
// and makes that room the session's active room.
func (o *Orchestrator) JoinRoom(sid core.SessionID, name domain.RoomName) error {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return core.ErrNotFound
	}
	room := o.Rooms.GetOrCreate(name)
	room.AddMember(sid, sess)
	o.Registry.MarkJoined(sid, name)
	o.Registry.SetActiveRoom(sid, name)
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(name)).Msg("joined room")
	return nil
}

// SetActiveRoom retargets room-scoped traffic without touching the
// membership relation. The room must already exist.
func (o *Orchestrator) SetActiveRoom(sid core.SessionID, name domain.RoomName) error {
	if _, ok := o.Rooms.Get(name); !ok {
		return core.ErrNotFound
	}
	if !o.Registry.SetActiveRoom(sid, name) {
		return core.ErrNotFound
	}
	return nil
}

// LeaveRoom removes sid from its active room's member set and leaves the
// session with no active room; posting is rejected until the next join.
func (o *Orchestrator) LeaveRoom(sid core.SessionID) (domain.RoomName, error) {
	name, ok := o.Registry.ActiveRoomOf(sid)
	if !ok {
		return "", core.ErrNoActiveRoom
	}
	if room, found := o.Rooms.Get(name); found {
		room.RemoveMember(sid)
	}
	o.Registry.MarkLeft(sid, name)
	o.Registry.ClearActiveRoom(sid)
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(name)).Msg("left room")
	return name, nil
}

// ListRooms returns all room names, lexicographically sorted.
func (o *Orchestrator) ListRooms() []string {
	infos := o.Rooms.List()
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		out = append(out, string(info.Name))
	}
	return out
}

// ActiveMembers lists who currently receives broadcast traffic in name.
func (o *Orchestrator) ActiveMembers(name domain.RoomName) []string {
	return o.Registry.ActiveUsernames(name)
}
