package signal

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

// isBareCommand recognizes the slash-less tokens of the grammar.
func isBareCommand(body string) bool {
	switch strings.ToUpper(strings.TrimSpace(body)) {
	case "WHO", "BYE":
		return true
	}
	return false
}

// dispatchCommand routes a control string. The verb is case-insensitive;
// argument text keeps its original casing. Malformed input gets an info
// notice, never a dropped connection.
func (ctl *ChatWSController) dispatchCommand(sid core.SessionID, c core.SignalConnection, text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	parts := strings.Fields(trimmed)
	verb := strings.ToUpper(strings.TrimPrefix(parts[0], "/"))

	switch verb {
	case "CREATE":
		ctl.cmdCreate(c, parts)
	case "LISTROOMS":
		ctl.sendRooms(c)
	case "JOIN":
		ctl.cmdJoin(sid, c, parts)
	case "ROOM":
		ctl.cmdRoom(sid, c, parts)
	case "INVITE":
		ctl.cmdInvite(sid, c, parts)
	case "HISTORY":
		ctl.cmdHistory(sid, c, parts)
	case "GETMOREMESSAGES":
		ctl.cmdTail(sid, c, 20, "📜 Loading additional messages:")
	case "LEAVEROOM":
		ctl.cmdLeaveRoom(sid, c)
	case "REPLY":
		ctl.cmdReply(sid, c, parts)
	case "EDIT":
		ctl.cmdEdit(sid, c, parts)
	case "WHO":
		ctl.handleWho(c)
	case "BYE":
		ctl.cmdBye(sid, c)
	default:
		log.Warn().Str("module", "signal").Str("verb", verb).Msg("unknown command")
		ctl.sendInfo(c, "⚠️ Unknown command.")
	}
}

func (ctl *ChatWSController) cmdCreate(c core.SignalConnection, parts []string) {
	if len(parts) < 2 {
		ctl.sendInfo(c, "⚠️ Usage: /CREATE <room>")
		return
	}
	name, err := ctl.Orch.CreateRoom(parts[1])
	if err != nil {
		ctl.reportError(c, err)
		return
	}
	ctl.BroadcastAll(InfoPayload{Type: KindInfo, Text: "🆕 New chat room created: " + string(name)})
	ctl.sendRooms(c)
}

func (ctl *ChatWSController) cmdJoin(sid core.SessionID, c core.SignalConnection, parts []string) {
	if len(parts) < 2 {
		ctl.sendInfo(c, "⚠️ Usage: /JOIN <room>")
		return
	}
	name, err := domain.NewRoomName(parts[1])
	if err != nil {
		ctl.sendInfo(c, "⚠️ Invalid room name.")
		return
	}
	prev, hadPrev := ctl.Orch.Registry.ActiveRoomOf(sid)
	if err := ctl.Orch.JoinRoom(sid, name); err != nil {
		ctl.reportError(c, err)
		return
	}
	ctl.sendRooms(c)
	ctl.broadcastUserList(name)
	if hadPrev && prev != name {
		ctl.broadcastUserList(prev)
	}
}

func (ctl *ChatWSController) cmdRoom(sid core.SessionID, c core.SignalConnection, parts []string) {
	if len(parts) < 2 {
		ctl.sendInfo(c, "⚠️ Usage: /ROOM <room>")
		return
	}
	name := domain.RoomName(parts[1])
	prev, hadPrev := ctl.Orch.Registry.ActiveRoomOf(sid)
	if err := ctl.Orch.SetActiveRoom(sid, name); err != nil {
		ctl.sendInfo(c, "⚠️ Room '"+parts[1]+"' not found.")
		return
	}
	ctl.sendInfo(c, "Active room set to '"+parts[1]+"'.")
	ctl.broadcastUserList(name)
	if hadPrev && prev != name {
		ctl.broadcastUserList(prev)
	}
}

func (ctl *ChatWSController) cmdInvite(sid core.SessionID, c core.SignalConnection, parts []string) {
	if len(parts) < 3 {
		ctl.sendInfo(c, "⚠️ Usage: /INVITE <user> <room>")
		return
	}
	inviter, _ := ctl.Orch.Registry.UsernameOf(sid)
	invited := strings.TrimSpace(strings.ReplaceAll(parts[1], "@", ""))
	roomName := strings.TrimSpace(strings.ReplaceAll(parts[2], "@", ""))

	sess, ok := ctl.Orch.LookupUser(invited)
	if !ok {
		ctl.sendInfo(c, "⚠️ User "+invited+" is not found / offline.")
		return
	}
	ctl.sendInfoTo(sess.Signal(), "📩 "+inviter+" invites you to join room '"+roomName+"'.")
	ctl.sendInfo(c, "✅ Invite sent to user "+invited+", room: '"+roomName+"'.")
}

func (ctl *ChatWSController) cmdHistory(sid core.SessionID, c core.SignalConnection, parts []string) {
	if len(parts) < 2 {
		ctl.sendInfo(c, "⚠️ Usage: /HISTORY <n>")
		return
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n <= 0 {
		ctl.sendInfo(c, "⚠️ Invalid message number.")
		return
	}
	ctl.cmdTail(sid, c, n, "")
}

func (ctl *ChatWSController) cmdTail(sid core.SessionID, c core.SignalConnection, n int, header string) {
	msgs, room, err := ctl.Orch.Tail(sid, n)
	if err != nil {
		ctl.reportError(c, err)
		return
	}
	if len(msgs) == 0 {
		ctl.sendInfo(c, "⚠️ No messages found in this room.")
		return
	}
	if header == "" {
		header = "📜 Last " + strconv.Itoa(len(msgs)) + " messages from '" + string(room) + "':"
	}
	ctl.sendInfo(c, header)
	for _, msg := range msgs {
		ctl.sendJSON(c, chatPayload(msg))
	}
}

func (ctl *ChatWSController) cmdLeaveRoom(sid core.SessionID, c core.SignalConnection) {
	room, err := ctl.Orch.LeaveRoom(sid)
	if err != nil {
		ctl.reportError(c, err)
		return
	}
	ctl.broadcastUserList(room)
	// clear the leaver's roster
	ctl.sendJSON(c, UsersPayload{Type: KindUsers, Users: []string{}})
	ctl.sendInfo(c, "You left '"+string(room)+"'.")
}

func (ctl *ChatWSController) cmdReply(sid core.SessionID, c core.SignalConnection, parts []string) {
	if len(parts) < 3 {
		ctl.sendInfo(c, "⚠️ Usage: /REPLY <index> <text>")
		return
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		ctl.sendInfo(c, "⚠️ Invalid message number.")
		return
	}
	text := strings.Join(parts[2:], " ")
	msg, err := ctl.Orch.Reply(sid, index, text)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			ctl.sendInfo(c, "⚠️ Message with index "+parts[1]+" not found.")
			return
		}
		ctl.reportError(c, err)
		return
	}
	ctl.BroadcastRoom(msg.Room, chatPayload(msg), "")
}

func (ctl *ChatWSController) cmdEdit(sid core.SessionID, c core.SignalConnection, parts []string) {
	if len(parts) < 3 {
		ctl.sendInfo(c, "⚠️ Usage: /EDIT <index> <text>")
		return
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		ctl.sendInfo(c, "⚠️ Invalid message number.")
		return
	}
	newBody := strings.Join(parts[2:], " ")
	msg, err := ctl.Orch.Edit(sid, index, newBody)
	if err != nil {
		ctl.reportError(c, err)
		return
	}
	// edits go to the full membership of the room, not just active members
	ctl.BroadcastMembers(msg.Room, chatPayload(msg))
}

func (ctl *ChatWSController) cmdBye(sid core.SessionID, c core.SignalConnection) {
	if username, ok := ctl.Orch.Registry.UsernameOf(sid); ok {
		ctl.sendInfo(c, "👋 Bye "+username)
	}
	ctl.Orch.Registry.Cancel(sid)
}
