package transport

// EventSink receives transport events for one session. Implementations must
// return quickly; heavy work is scheduled elsewhere.
type EventSink interface {
	OnConnState(ConnState)
	OnCredsChanged(blob []byte)
	OnHistorySync(HistorySync)
	OnChatUpsert(ChatEvent)
	OnChatUpdate(ChatEvent)
	OnMessageUpsert(MessageEvent)
	OnMessageUpdate(MessageEvent)
}

// ConnStateKind enumerates connection-state event kinds.
type ConnStateKind string

const (
	StateConnecting   ConnStateKind = "connecting"
	StateNeedsPairing ConnStateKind = "needs_pairing"
	StateOpen         ConnStateKind = "open"
	StateClose        ConnStateKind = "close"
)

// CloseReason enumerates why a connection closed. Only meaningful when the
// ConnState kind is StateClose.
type CloseReason string

const (
	CloseLoggedOut       CloseReason = "logged_out"
	CloseBlocked         CloseReason = "blocked"
	CloseRestartRequired CloseReason = "restart_required"
	CloseOther           CloseReason = "other"
)

// ConnState is a connection-state event.
type ConnState struct {
	Kind   ConnStateKind
	Reason CloseReason
}

// ChatEvent is a chat upsert/update as reported by the transport. Zero-value
// LastMessage means the event carried no last-message information; a nil
// Archived means it carried no archive flag.
type ChatEvent struct {
	JID          string
	Name         string
	IsGroup      bool
	Archived     *bool
	Participants []string
	LastMessage  MessageRef
}

// MessageEvent is a message upsert/update as reported by the transport.
type MessageEvent struct {
	ChatJID    string
	ID         string
	Sender     string
	SenderName string
	Body       string
	Type       string
	FromMe     bool
	Timestamp  int64
}

// HistorySync carries the bulk history payload delivered once after connect.
type HistorySync struct {
	Chats    []ChatEvent
	Messages []MessageEvent
}
