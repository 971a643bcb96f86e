package wa

import (
	"github.com/wafleet/wafleet/internal/transport"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

// handleEvent translates whatsmeow events into sink calls. It runs on
// whatsmeow's dispatch goroutine, so everything here must return quickly;
// the sink implementations schedule heavy work elsewhere.
func (h *handle) handleEvent(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Connected:
		h.logger.Info("connection open")
		h.sink.OnConnState(transport.ConnState{Kind: transport.StateOpen})
	case *events.PairSuccess:
		h.logger.Info("paired", zap.String("jid", evt.ID.String()))
		h.sink.OnCredsChanged(marshalCred(evt.ID, evt.Platform))
	case *events.Disconnected:
		h.logger.Warn("connection closed")
		h.sink.OnConnState(transport.ConnState{Kind: transport.StateClose, Reason: transport.CloseOther})
	case *events.LoggedOut:
		h.logger.Warn("logged out", zap.String("reason", evt.Reason.String()))
		h.sink.OnConnState(transport.ConnState{Kind: transport.StateClose, Reason: transport.CloseLoggedOut})
	case *events.TemporaryBan:
		h.logger.Warn("temporary ban", zap.String("code", evt.Code.String()))
		h.sink.OnConnState(transport.ConnState{Kind: transport.StateClose, Reason: transport.CloseBlocked})
	case *events.ClientOutdated:
		h.logger.Warn("client outdated")
		h.sink.OnConnState(transport.ConnState{Kind: transport.StateClose, Reason: transport.CloseBlocked})
	case *events.StreamReplaced:
		h.logger.Warn("stream replaced by another client")
		h.sink.OnConnState(transport.ConnState{Kind: transport.StateClose, Reason: transport.CloseRestartRequired})
	case *events.Message:
		h.sink.OnMessageUpsert(parseLiveMessage(evt))
	case *events.HistorySync:
		batch := parseHistorySync(evt)
		if len(batch.Chats) > 0 || len(batch.Messages) > 0 {
			h.sink.OnHistorySync(batch)
		}
	case *events.GroupInfo:
		if upd, ok := chatUpdateFromGroupInfo(evt); ok {
			h.sink.OnChatUpdate(upd)
		}
	case *events.JoinedGroup:
		h.sink.OnChatUpsert(chatFromJoinedGroup(evt))
	case *events.Archive:
		archived := evt.Action.GetArchived()
		h.sink.OnChatUpdate(transport.ChatEvent{
			JID:      normalizeJID(evt.JID.String()),
			IsGroup:  evt.JID.Server == types.GroupServer,
			Archived: &archived,
		})
	}
}

// chatUpdateFromGroupInfo turns a group-info delta into a chat update.
// Deltas that carry nothing we track (topic changes, ephemeral settings)
// are dropped.
func chatUpdateFromGroupInfo(evt *events.GroupInfo) (transport.ChatEvent, bool) {
	upd := transport.ChatEvent{
		JID:     normalizeJID(evt.JID.String()),
		IsGroup: true,
	}
	changed := false
	if evt.Name != nil {
		upd.Name = evt.Name.Name
		changed = true
	}
	if len(evt.Join) > 0 || len(evt.Leave) > 0 {
		changed = true
	}
	return upd, changed
}

func chatFromJoinedGroup(evt *events.JoinedGroup) transport.ChatEvent {
	ev := transport.ChatEvent{
		JID:     normalizeJID(evt.JID.String()),
		Name:    evt.Name,
		IsGroup: true,
	}
	for _, p := range evt.Participants {
		ev.Participants = append(ev.Participants, p.JID.ToNonAD().String())
	}
	return ev
}
