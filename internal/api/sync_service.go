package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/wafleet/wafleet/internal/bus"
	"github.com/wafleet/wafleet/internal/store"
)

// SyncService exposes sync progress and the live event stream.
type SyncService struct {
	bus *bus.Bus
	db  *store.DB
}

// NewSyncService creates a sync service.
func NewSyncService(b *bus.Bus, db *store.DB) *SyncService {
	return &SyncService{bus: b, db: db}
}

// Envelope is one event on the watch stream.
type Envelope struct {
	EventID          string `json:"event_id"`
	Session          string `json:"session,omitempty"`
	Kind             string `json:"kind"`
	OccurredAtUnixMS int64  `json:"occurred_at_unix_ms"`
	Payload          any    `json:"payload,omitempty"`
}

// Watch streams bus events matching the namespace prefix until ctx is done.
// A slow consumer drops events rather than blocking the publishers.
func (s *SyncService) Watch(ctx context.Context, namespace string) <-chan Envelope {
	ch, unsub := s.bus.Subscribe(namespace, 256)
	out := make(chan Envelope, 256)

	go func() {
		defer close(out)
		defer unsub()
		for {
			select {
			case evt, ok := <-ch:
				if !ok {
					return
				}
				env := Envelope{
					EventID:          uuid.NewString(),
					Session:          evt.Session,
					Kind:             evt.Kind,
					OccurredAtUnixMS: evt.Timestamp.UnixMilli(),
					Payload:          evt.Payload,
				}
				select {
				case out <- env:
				default:
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Counts summarizes what has been synced for a session.
type Counts struct {
	Chats    int `json:"chats"`
	Messages int `json:"messages"`
}

// Stats reports sync counters for a session.
func (s *SyncService) Stats(sessionID string) (*Counts, error) {
	chats, err := s.db.ChatCount(sessionID)
	if err != nil {
		return nil, rpcError(err)
	}
	msgs, err := s.db.MessageCount(sessionID)
	if err != nil {
		return nil, rpcError(err)
	}
	return &Counts{Chats: chats, Messages: msgs}, nil
}
