// Package transport defines the contract the lifecycle manager consumes from
// the wire transport. The concrete implementation lives in internal/wa; tests
// substitute fakes.
package transport

import "context"

// Transport opens live connections for sessions.
type Transport interface {
	// Open establishes a connection using the given credential blob (nil
	// for a brand-new session). Events are delivered to sink; group
	// metadata lookups made by the transport go through fetch.
	Open(ctx context.Context, sessionID string, cred []byte, sink EventSink, fetch MetadataFetcher) (Handle, error)
}

// Handle is a live connection to the messaging backend.
type Handle interface {
	// SendText sends a text message. Returns the server-issued message id.
	SendText(ctx context.Context, target string, text string) (string, error)
	// RequestPairingCode requests a pairing code for a new session.
	RequestPairingCode(ctx context.Context, phoneNumber string) (string, error)
	// DeleteMessageForMe removes a message locally, referencing the chat's
	// last-message pointer.
	DeleteMessageForMe(ctx context.Context, chat string, ref MessageRef) error
	// Archive archives or unarchives a chat, referencing the chat's
	// last-message pointer.
	Archive(ctx context.Context, chat string, archived bool, ref MessageRef) error
	// GroupMetadata fetches group metadata from the backend.
	GroupMetadata(ctx context.Context, groupJID string) (*GroupMetadata, error)
	// Logout invalidates the credential on the backend.
	Logout(ctx context.Context) error
	// Close tears down the connection without logging out.
	Close() error
}

// MetadataFetcher resolves group metadata on behalf of the transport.
type MetadataFetcher func(ctx context.Context, groupJID string) (*GroupMetadata, error)

// GroupMetadata is a group descriptor as reported by the backend.
type GroupMetadata struct {
	JID          string
	Subject      string
	Participants []string
}

// MessageRef identifies a message within a chat, as needed by chat-modify
// operations.
type MessageRef struct {
	ID        string
	Sender    string
	FromMe    bool
	Timestamp int64
}

// Valid reports whether the ref carries enough to reference a message.
func (r MessageRef) Valid() bool {
	return r.ID != "" && r.Timestamp > 0
}
