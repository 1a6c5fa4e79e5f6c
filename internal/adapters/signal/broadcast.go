package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

func (ctl *ChatWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *ChatWSController) sendInfo(c core.SignalConnection, text string) {
	ctl.sendJSON(c, InfoPayload{Type: KindInfo, Text: text})
}

// sendInfoTo exists for readability at call sites that address a session
// other than the originator.
func (ctl *ChatWSController) sendInfoTo(c core.SignalConnection, text string) {
	ctl.sendInfo(c, text)
}

func (ctl *ChatWSController) sendRooms(c core.SignalConnection) {
	ctl.sendJSON(c, RoomsPayload{Type: KindRooms, Rooms: ctl.Orch.ListRooms()})
}

// BroadcastRoom delivers v to every session whose active room is room.
// Pass an empty except to include the originator.
func (ctl *ChatWSController) BroadcastRoom(room domain.RoomName, v any, except core.SessionID) {
	for _, snap := range ctl.Orch.Registry.MembersOfRoom(room) {
		if except != "" && snap.SID == except {
			continue
		}
		ctl.sendJSON(snap.Session.Signal(), v)
	}
}

// BroadcastMembers delivers v to the full joined membership of room,
// regardless of active-room scoping (used for edit re-broadcast).
func (ctl *ChatWSController) BroadcastMembers(room domain.RoomName, v any) {
	svc, ok := ctl.Orch.Rooms.Get(room)
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("BroadcastMembers marshal")
		return
	}
	svc.Broadcast("", b)
}

// BroadcastAll delivers v to every live session on the server.
func (ctl *ChatWSController) BroadcastAll(v any) {
	for _, snap := range ctl.Orch.Registry.AllSessions() {
		ctl.sendJSON(snap.Session.Signal(), v)
	}
}

// SendPrivate delivers pm to its recipient's live connection. Returns
// false when the recipient is offline; the caller decides whether that is
// worth a notice.
func (ctl *ChatWSController) SendPrivate(pm domain.PrivateMessage) bool {
	sess, ok := ctl.Orch.LookupUser(pm.Recipient)
	if !ok {
		return false
	}
	if err := sess.Signal().TrySend(mustMarshal(privatePayload(pm))); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("to", pm.Recipient).Msg("private send failed")
		return false
	}
	return true
}

// SendMulticast applies SendPrivate independently per message; offline
// recipients are skipped, the rest still get theirs.
func (ctl *ChatWSController) SendMulticast(pms []domain.PrivateMessage) int {
	delivered := 0
	for _, pm := range pms {
		if ctl.SendPrivate(pm) {
			delivered++
		}
	}
	return delivered
}

// broadcastUserList pushes the active-member roster of room to everyone
// currently active in it.
func (ctl *ChatWSController) broadcastUserList(room domain.RoomName) {
	users := ctl.Orch.ActiveMembers(room)
	ctl.BroadcastRoom(room, UsersPayload{Type: KindUsers, Users: users}, "")
}

func mustMarshal(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal")
		return core.Frame("{}")
	}
	return b
}
