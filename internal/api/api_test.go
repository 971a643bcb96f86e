package api

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/wafleet/wafleet/internal/bus"
	"github.com/wafleet/wafleet/internal/fault"
	"github.com/wafleet/wafleet/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRPCErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", fault.NotFound("session %q", "s1"), codes.NotFound},
		{"not ready", fault.NotReady("session %q still connecting", "s1"), codes.FailedPrecondition},
		{"validation", fault.Validation("bad id"), codes.InvalidArgument},
		{"transport", fault.Transport("send", errors.New("socket closed")), codes.Unavailable},
		{"unknown", errors.New("disk full"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rpcError(tt.err)
			if grpcstatus.Code(got) != tt.want {
				t.Errorf("code = %v, want %v", grpcstatus.Code(got), tt.want)
			}
		})
	}
}

func TestRPCErrorNil(t *testing.T) {
	if rpcError(nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestSyncServiceStats(t *testing.T) {
	db := testDB(t)
	svc := NewSyncService(bus.New(), db)

	_ = db.UpsertChat(&store.Chat{SessionID: "s1", JID: "g1@g.us", IsGroup: true})
	_ = db.UpsertMessage(&store.Message{SessionID: "s1", ChatJID: "g1@g.us", MsgID: "m1", Timestamp: 1000})
	_ = db.UpsertMessage(&store.Message{SessionID: "s2", ChatJID: "g1@g.us", MsgID: "m1", Timestamp: 1000})

	counts, err := svc.Stats("s1")
	if err != nil {
		t.Fatal(err)
	}
	if counts.Chats != 1 || counts.Messages != 1 {
		t.Errorf("counts = %+v, want 1 chat / 1 message", counts)
	}
}

func TestSyncServiceWatch(t *testing.T) {
	b := bus.New()
	svc := NewSyncService(b, testDB(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := svc.Watch(ctx, "sync.")

	b.Emit("sync.chat_upserted", "s1", nil)
	b.Emit("bulk.completed", "s1", nil)

	select {
	case env := <-out:
		if env.Kind != "sync.chat_upserted" || env.Session != "s1" {
			t.Errorf("envelope = %+v", env)
		}
		if env.EventID == "" {
			t.Error("envelope missing event id")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for envelope")
	}

	// The bulk event does not match the namespace.
	select {
	case env := <-out:
		t.Errorf("unexpected envelope: %+v", env)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMessageServiceListDefaultsLimit(t *testing.T) {
	db := testDB(t)
	svc := NewMessageService(nil, nil, db)

	for i := range 5 {
		_ = db.UpsertMessage(&store.Message{
			SessionID: "s1", ChatJID: "g1@g.us",
			MsgID: string(rune('a' + i)), Timestamp: int64(1000 + i),
		})
	}

	msgs, err := svc.ListMessages("s1", "g1@g.us", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 5 {
		t.Errorf("messages = %d, want 5", len(msgs))
	}
	// Newest first.
	if msgs[0].Timestamp != 1004 {
		t.Errorf("first timestamp = %d, want 1004", msgs[0].Timestamp)
	}
}

func TestGroupServiceListFiltersDirects(t *testing.T) {
	db := testDB(t)
	svc := NewGroupService(nil, db)

	_ = db.UpsertChat(&store.Chat{SessionID: "s1", JID: "g1@g.us", IsGroup: true})
	_ = db.UpsertChat(&store.Chat{SessionID: "s1", JID: "d1@s.whatsapp.net"})

	chats, err := svc.List("s1", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 1 || chats[0].JID != "g1@g.us" {
		t.Errorf("chats = %+v, want only the group", chats)
	}
}
