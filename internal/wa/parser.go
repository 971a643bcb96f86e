package wa

import (
	"github.com/wafleet/wafleet/internal/transport"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// parseLiveMessage normalizes a live whatsmeow message event.
func parseLiveMessage(evt *events.Message) transport.MessageEvent {
	return transport.MessageEvent{
		ChatJID:    normalizeJID(evt.Info.Chat.String()),
		ID:         evt.Info.ID,
		Sender:     normalizeJID(evt.Info.Sender.String()),
		SenderName: evt.Info.PushName,
		Body:       extractTextBody(evt.Message),
		Type:       detectMessageType(evt.Message),
		FromMe:     evt.Info.IsFromMe,
		Timestamp:  evt.Info.Timestamp.UnixMilli(),
	}
}

// parseHistorySync flattens a history sync payload into chat and message
// events. Conversations without messages still yield a chat event so the
// chat list is complete after the initial sync.
func parseHistorySync(evt *events.HistorySync) transport.HistorySync {
	var out transport.HistorySync
	data := evt.Data
	if data == nil {
		return out
	}

	for _, conv := range data.GetConversations() {
		chatJID := normalizeJID(conv.GetID())
		if chatJID == "" {
			continue
		}
		out.Chats = append(out.Chats, transport.ChatEvent{
			JID:      chatJID,
			Name:     conv.GetName(),
			IsGroup:  isGroupJID(chatJID),
			Archived: conv.Archived,
		})

		for _, hm := range conv.GetMessages() {
			wmsg := hm.GetMessage()
			if wmsg == nil || wmsg.GetMessage() == nil {
				continue
			}
			body := wmsg.GetMessage()
			sender := normalizeJID(wmsg.GetKey().GetParticipant())
			if sender == "" {
				sender = chatJID
			}
			out.Messages = append(out.Messages, transport.MessageEvent{
				ChatJID:   chatJID,
				ID:        wmsg.GetKey().GetID(),
				Sender:    sender,
				Body:      extractTextBody(body),
				Type:      detectMessageType(body),
				FromMe:    wmsg.GetKey().GetFromMe(),
				Timestamp: int64(wmsg.GetMessageTimestamp()) * 1000,
			})
		}
	}
	return out
}

// normalizeJID strips device and agent suffixes so history sync and live
// messages produce the same JID for the same chat. Unparseable input is
// returned as-is.
func normalizeJID(jid string) string {
	if jid == "" {
		return ""
	}
	parsed, err := types.ParseJID(jid)
	if err != nil {
		return jid
	}
	return parsed.ToNonAD().String()
}

func isGroupJID(jid string) bool {
	parsed, err := types.ParseJID(jid)
	if err != nil {
		return false
	}
	return parsed.Server == types.GroupServer
}

func extractTextBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}

func detectMessageType(msg *waE2E.Message) string {
	if msg == nil {
		return "unknown"
	}
	switch {
	case msg.GetConversation() != "" || msg.GetExtendedTextMessage() != nil:
		return "text"
	case msg.GetImageMessage() != nil:
		return "image"
	case msg.GetVideoMessage() != nil:
		return "video"
	case msg.GetAudioMessage() != nil:
		return "audio"
	case msg.GetDocumentMessage() != nil:
		return "document"
	case msg.GetStickerMessage() != nil:
		return "sticker"
	case msg.GetContactMessage() != nil:
		return "contact"
	case msg.GetLocationMessage() != nil:
		return "location"
	default:
		return "unknown"
	}
}
