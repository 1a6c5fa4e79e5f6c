package signal

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

func (ctl *ChatWSController) handleFrame(sid core.SessionID, c core.SignalConnection, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	if env.Type != KindLogin {
		if _, ok := ctl.Orch.Registry.UsernameOf(sid); !ok {
			ctl.sendInfo(c, "⚠️ Please log in first.")
			return
		}
	}

	switch env.Type {
	case KindLogin:
		ctl.handleLogin(sid, c, data)
	case KindChat:
		ctl.handleChat(sid, c, data)
	case KindPrivate:
		ctl.handlePrivate(sid, c, data)
	case KindWho:
		ctl.handleWho(c)
	case KindCommand:
		ctl.handleCommandPayload(sid, c, data)
	case KindInfo, KindUsers, KindRooms:
		// server→client kinds, never expected inbound
		log.Warn().Str("module", "signal").Str("type", string(env.Type)).Msg("outbound kind received")
	default:
		log.Warn().Str("module", "signal").Str("type", string(env.Type)).Msg("unknown message kind")
	}
}

func (ctl *ChatWSController) handleLogin(sid core.SessionID, c core.SignalConnection, data []byte) {
	var p LoginPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad login payload")
		return
	}
	username := strings.TrimSpace(p.Username)
	if err := ctl.Orch.Login(sid, username); err != nil {
		ctl.sendInfo(c, "⚠️ Invalid username.")
		return
	}
	ctl.sendInfo(c, "👋 Welcome "+username)
	ctl.sendRooms(c)
	ctl.BroadcastAll(InfoPayload{Type: KindInfo, Text: "User " + username + " joined the server."})
	ctl.broadcastUserList(ctl.Orch.DefaultRoom)
}

func (ctl *ChatWSController) handleChat(sid core.SessionID, c core.SignalConnection, data []byte) {
	var p ChatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}
	body := strings.TrimSpace(p.Body)
	if body == "" {
		return
	}
	if strings.HasPrefix(body, "/") || isBareCommand(body) {
		ctl.dispatchCommand(sid, c, body)
		return
	}
	if addr, ok := parseAddress(body); ok {
		ctl.deliverAddressed(sid, c, addr)
		return
	}
	msg, err := ctl.Orch.Post(sid, body)
	if err != nil {
		ctl.reportError(c, err)
		return
	}
	ctl.BroadcastRoom(msg.Room, chatPayload(msg), "")
}

func (ctl *ChatWSController) handlePrivate(sid core.SessionID, c core.SignalConnection, data []byte) {
	var p PrivatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad private payload")
		return
	}
	ctl.deliverAddressed(sid, c, address{recipients: []string{p.To}, body: p.Body})
}

// deliverAddressed handles @user and @{u1,u2} traffic. A single recipient
// being offline is reported to the sender; multicast skips offline
// recipients silently, best effort per recipient.
func (ctl *ChatWSController) deliverAddressed(sid core.SessionID, c core.SignalConnection, addr address) {
	if len(addr.recipients) == 1 {
		recipient := addr.recipients[0]
		pm, err := ctl.Orch.Private(sid, recipient, addr.body)
		if err != nil {
			ctl.reportError(c, err)
			return
		}
		if !ctl.SendPrivate(pm) {
			ctl.sendInfo(c, "⚠️ User '"+recipient+"' is not online.")
		}
		return
	}
	pms := make([]domain.PrivateMessage, 0, len(addr.recipients))
	for _, recipient := range addr.recipients {
		pm, err := ctl.Orch.Private(sid, recipient, addr.body)
		if err != nil {
			ctl.reportError(c, err)
			return
		}
		pms = append(pms, pm)
	}
	ctl.SendMulticast(pms)
}

func (ctl *ChatWSController) handleWho(c core.SignalConnection) {
	ctl.sendJSON(c, UsersPayload{Type: KindUsers, Users: ctl.Orch.Who()})
}

func (ctl *ChatWSController) handleCommandPayload(sid core.SessionID, c core.SignalConnection, data []byte) {
	var p CommandPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad command payload")
		return
	}
	ctl.dispatchCommand(sid, c, p.Text)
}

func (ctl *ChatWSController) handleDisconnect(sid core.SessionID) {
	username, ok := ctl.Orch.Disconnect(sid)
	if !ok || username == "" {
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", username).Msg("disconnected")
	ctl.BroadcastAll(InfoPayload{Type: KindInfo, Text: "User " + username + " has disconnected."})
}

// reportError turns a core error into an informational notice. Nothing
// here ever terminates the connection.
func (ctl *ChatWSController) reportError(c core.SignalConnection, err error) {
	switch {
	case err == nil:
	case errors.Is(err, core.ErrNoActiveRoom):
		ctl.sendInfo(c, "⚠️ You are not in a room. /JOIN one first.")
	case errors.Is(err, core.ErrUnauthorized):
		ctl.sendInfo(c, "❌ You can only edit your own messages.")
	case errors.Is(err, core.ErrNotFound):
		ctl.sendInfo(c, "⚠️ Not found.")
	case errors.Is(err, core.ErrInvalidArgument):
		ctl.sendInfo(c, "⚠️ Invalid command arguments.")
	default:
		ctl.sendInfo(c, "⚠️ Something went wrong.")
	}
}
