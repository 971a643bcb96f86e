package store

// Session is a durable logical identity tied to one phone number.
type Session struct {
	ID          string
	PhoneNumber string
	CreatedBy   string
	CreatedAt   int64
}

// Chat represents a synced chat or group, keyed by (session, jid).
// The last-message fields only ever move forward in event time.
type Chat struct {
	SessionID     string
	JID           string
	Name          string
	IsGroup       bool
	// Archived is nil when the source event said nothing about the archive
	// flag; a nil write keeps whatever the row already holds.
	Archived      *bool
	Participants  []string
	LastMsgID     string
	LastMsgSender string
	LastMsgFromMe bool
	LastMsgAt     int64
}

// Message represents a synced message, keyed by (session, chat, msg id).
type Message struct {
	ID          int64
	SessionID   string
	ChatJID     string
	MsgID       string
	SenderJID   string
	SenderName  string
	Body        string
	MessageType string
	FromMe      bool
	Timestamp   int64
}

// BulkRun records one bulk operation execution.
type BulkRun struct {
	ID        string
	SessionID string
	Kind      string
	Total     int
	Succeeded int
	CreatedAt int64
}

// BulkItem is the per-target outcome of a bulk run, in input order.
type BulkItem struct {
	RunID     string
	Position  int
	Target    string
	Success   bool
	MessageID string
	Error     string
}
