package app

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	User    *domain.User
	Session core.MemberSession
	Cancel  context.CancelFunc
	// Active is the single room receiving this session's room-scoped
	// traffic; Joined is the wider membership relation.
	Active domain.RoomName
	Joined map[domain.RoomName]struct{}
}

// Registry owns username↔session state. All access goes through its
// methods; the maps are never handed out.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	byUser   map[string]core.SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		byUser:   make(map[string]core.SessionID),
	}
}

// Bind installs a pre-login session for a fresh connection.
func (r *Registry) Bind(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{
		User:    sess.User(),
		Session: sess,
		Cancel:  cancel,
		Joined:  make(map[domain.RoomName]struct{}),
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
}

// Login claims username for sid. A still-live prior holder is evicted, not
// rejected (last login wins); its sid is returned so the caller can cancel
// it and clean up its room memberships.
func (r *Registry) Login(sid core.SessionID, username string) (evicted core.SessionID, err error) {
	if _, err := domain.NewUser(username); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return "", core.ErrNotFound
	}
	if prior, ok := r.byUser[username]; ok && prior != sid {
		evicted = prior
		delete(r.byUser, username)
		log.Info().Str("module", "app.registry").Str("user", username).Str("sid", string(prior)).Msg("evicting prior session")
	}
	// a re-login under a new name releases the old one, otherwise WHO and
	// Lookup would keep routing through the stale entry
	if old := entry.User.Username; old != "" && old != username {
		if owner, exists := r.byUser[old]; exists && owner == sid {
			delete(r.byUser, old)
		}
	}
	entry.User.Username = username
	r.byUser[username] = sid
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", username).Msg("login")
	return evicted, nil
}

// Logout drops whichever session owns sid. Idempotent: unknown sids are a
// no-op. Returns the username and the rooms the session had joined.
func (r *Registry) Logout(sid core.SessionID) (username string, joined []domain.RoomName, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, found := r.sessions[sid]
	if !found {
		return "", nil, false
	}
	username = entry.User.Username
	if owner, exists := r.byUser[username]; exists && owner == sid {
		delete(r.byUser, username)
	}
	for room := range entry.Joined {
		joined = append(joined, room)
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", username).Msg("logout")
	return username, joined, true
}

// Lookup returns the live session for a username.
func (r *Registry) Lookup(username string) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.byUser[username]
	if !ok {
		return nil, false
	}
	e, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	return e.Session, true
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// UsernameOf reports the login name of sid, if it has logged in.
func (r *Registry) UsernameOf(sid core.SessionID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.User.Username == "" {
		return "", false
	}
	if owner, exists := r.byUser[e.User.Username]; !exists || owner != sid {
		return "", false
	}
	return e.User.Username, true
}

func (r *Registry) ActiveRoomOf(sid core.SessionID) (domain.RoomName, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Active == "" {
		return "", false
	}
	return e.Active, true
}

func (r *Registry) SetActiveRoom(sid core.SessionID, room domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Active = room
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("active room set")
	return true
}

func (r *Registry) ClearActiveRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Active = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("active room cleared")
}

func (r *Registry) MarkJoined(sid core.SessionID, room domain.RoomName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Joined[room] = struct{}{}
	}
}

// JoinedRooms snapshots the membership relation of sid.
func (r *Registry) JoinedRooms(sid core.SessionID) []domain.RoomName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	out := make([]domain.RoomName, 0, len(e.Joined))
	for room := range e.Joined {
		out = append(out, room)
	}
	return out
}

func (r *Registry) MarkLeft(sid core.SessionID, room domain.RoomName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		delete(e.Joined, room)
	}
}

type RegSnap struct {
	SID     core.SessionID
	Session core.MemberSession
}

// MembersOfRoom returns the sessions whose active room is name. This is
// the broadcast-scoping relation, not historical membership.
func (r *Registry) MembersOfRoom(name domain.RoomName) []RegSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if e.Active == name {
			out = append(out, RegSnap{SID: sid, Session: e.Session})
		}
	}
	return out
}

// ActiveUsernames lists, sorted, who currently receives broadcasts in name.
func (r *Registry) ActiveUsernames(name domain.RoomName) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0)
	for sid, e := range r.sessions {
		if e.Active != name || e.User.Username == "" {
			continue
		}
		if owner, exists := r.byUser[e.User.Username]; exists && owner == sid {
			out = append(out, e.User.Username)
		}
	}
	sort.Strings(out)
	return out
}

// OnlineUsernames lists every logged-in user, sorted.
func (r *Registry) OnlineUsernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byUser))
	for username := range r.byUser {
		out = append(out, username)
	}
	sort.Strings(out)
	return out
}

// AllSessions snapshots every live session, for server-wide notices.
func (r *Registry) AllSessions() []RegSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, RegSnap{SID: sid, Session: e.Session})
	}
	return out
}

// Cancel fires the stored cancel func of sid, tearing down its pumps.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
