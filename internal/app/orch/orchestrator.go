package orch

import (
	"context"

	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator coordinates the registry, the room directory and the
// message store. Adapters call it for every state change and render the
// results onto the wire themselves.
type Orchestrator struct {
	Registry    *app.Registry
	Rooms       core.RoomManager
	History     core.History
	Audit       *app.AuditLog
	DefaultRoom domain.RoomName
}

// Connect binds a fresh pre-login session for sid.
func (o *Orchestrator) Connect(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	o.Registry.Bind(sid, sess, cancel)
}

// Login claims username for sid and seeds it into the default room. A
// prior live session under the same name is closed and scrubbed first.
func (o *Orchestrator) Login(sid core.SessionID, username string) error {
	evicted, err := o.Registry.Login(sid, username)
	if err != nil {
		return err
	}
	if evicted != "" {
		// close the transport too, a canceled context alone leaves a
		// silent peer's read blocked forever
		if sess, found := o.Registry.GetSession(evicted); found {
			sess.Signal().Close()
		}
		o.scrubMemberships(evicted)
		o.Registry.Cancel(evicted)
		o.Registry.Logout(evicted)
		log.Info().Str("module", "app.orch").Str("user", username).Str("sid", string(evicted)).Msg("prior session closed")
	}
	o.JoinRoom(sid, o.DefaultRoom)
	return nil
}

// Disconnect releases every room membership and the session mapping.
// Calling it for an unknown sid is a no-op.
func (o *Orchestrator) Disconnect(sid core.SessionID) (username string, ok bool) {
	o.scrubMemberships(sid)
	username, _, ok = o.Registry.Logout(sid)
	return username, ok
}

func (o *Orchestrator) scrubMemberships(sid core.SessionID) {
	for _, name := range o.Registry.JoinedRooms(sid) {
		if room, found := o.Rooms.Get(name); found {
			room.RemoveMember(sid)
		}
		o.Registry.MarkLeft(sid, name)
	}
	o.Registry.ClearActiveRoom(sid)
}

// Who lists every logged-in user.
func (o *Orchestrator) Who() []string {
	return o.Registry.OnlineUsernames()
}

// LookupUser resolves a username to its live session.
func (o *Orchestrator) LookupUser(username string) (core.MemberSession, bool) {
	return o.Registry.Lookup(username)
}
