package wa

import (
	"encoding/json"
	"testing"

	"github.com/wafleet/wafleet/internal/transport"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waHistorySync"
	"go.mau.fi/whatsmeow/proto/waSyncAction"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

// recordingSink captures sink calls for assertions. handleEvent is
// synchronous, so no locking is needed.
type recordingSink struct {
	states   []transport.ConnState
	creds    [][]byte
	history  []transport.HistorySync
	upserts  []transport.ChatEvent
	updates  []transport.ChatEvent
	messages []transport.MessageEvent
}

func (r *recordingSink) OnConnState(s transport.ConnState)       { r.states = append(r.states, s) }
func (r *recordingSink) OnCredsChanged(blob []byte)              { r.creds = append(r.creds, blob) }
func (r *recordingSink) OnHistorySync(h transport.HistorySync)   { r.history = append(r.history, h) }
func (r *recordingSink) OnChatUpsert(c transport.ChatEvent)      { r.upserts = append(r.upserts, c) }
func (r *recordingSink) OnChatUpdate(c transport.ChatEvent)      { r.updates = append(r.updates, c) }
func (r *recordingSink) OnMessageUpsert(m transport.MessageEvent) {
	r.messages = append(r.messages, m)
}
func (r *recordingSink) OnMessageUpdate(m transport.MessageEvent) {
	r.messages = append(r.messages, m)
}

func testHandle(t *testing.T) (*handle, *recordingSink) {
	t.Helper()
	rec := &recordingSink{}
	return &handle{session: "s1", sink: rec, logger: zap.NewNop()}, rec
}

func TestHandleEventConnStates(t *testing.T) {
	tests := []struct {
		name   string
		evt    any
		kind   transport.ConnStateKind
		reason transport.CloseReason
	}{
		{"connected", &events.Connected{}, transport.StateOpen, ""},
		{"disconnected", &events.Disconnected{}, transport.StateClose, transport.CloseOther},
		{"logged out", &events.LoggedOut{}, transport.StateClose, transport.CloseLoggedOut},
		{"temporary ban", &events.TemporaryBan{}, transport.StateClose, transport.CloseBlocked},
		{"client outdated", &events.ClientOutdated{}, transport.StateClose, transport.CloseBlocked},
		{"stream replaced", &events.StreamReplaced{}, transport.StateClose, transport.CloseRestartRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, rec := testHandle(t)
			h.handleEvent(tt.evt)

			if len(rec.states) != 1 {
				t.Fatalf("states = %d, want 1", len(rec.states))
			}
			if rec.states[0].Kind != tt.kind || rec.states[0].Reason != tt.reason {
				t.Errorf("state = %+v, want kind=%s reason=%s", rec.states[0], tt.kind, tt.reason)
			}
		})
	}
}

func TestHandleEventPairSuccess(t *testing.T) {
	h, rec := testHandle(t)

	jid := types.JID{User: "558592403672", Server: types.DefaultUserServer}
	h.handleEvent(&events.PairSuccess{ID: jid, Platform: "smba"})

	if len(rec.creds) != 1 {
		t.Fatalf("cred blobs = %d, want 1", len(rec.creds))
	}
	var blob credBlob
	if err := json.Unmarshal(rec.creds[0], &blob); err != nil {
		t.Fatal(err)
	}
	if blob.JID != jid.String() {
		t.Errorf("blob jid = %q, want %q", blob.JID, jid.String())
	}
}

func TestHandleEventMessage(t *testing.T) {
	h, rec := testHandle(t)

	h.handleEvent(&events.Message{
		Info: types.MessageInfo{
			ID: "m1",
			MessageSource: types.MessageSource{
				Chat:   types.JID{User: "120363000001", Server: types.GroupServer},
				Sender: types.JID{User: "alice", Server: types.DefaultUserServer},
			},
		},
		Message: &waE2E.Message{Conversation: proto.String("hi")},
	})

	if len(rec.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(rec.messages))
	}
	if rec.messages[0].ID != "m1" || rec.messages[0].Body != "hi" {
		t.Errorf("message = %+v", rec.messages[0])
	}
}

func TestHandleEventHistorySync(t *testing.T) {
	h, rec := testHandle(t)

	h.handleEvent(&events.HistorySync{
		Data: &waHistorySync.HistorySync{
			Conversations: []*waHistorySync.Conversation{
				{ID: proto.String("c@s.whatsapp.net")},
			},
		},
	})

	if len(rec.history) != 1 {
		t.Fatalf("history batches = %d, want 1", len(rec.history))
	}
	if len(rec.history[0].Chats) != 1 {
		t.Errorf("chats in batch = %d, want 1", len(rec.history[0].Chats))
	}
}

func TestHandleEventEmptyHistorySyncDropped(t *testing.T) {
	h, rec := testHandle(t)

	h.handleEvent(&events.HistorySync{Data: nil})

	if len(rec.history) != 0 {
		t.Errorf("history batches = %d, want 0", len(rec.history))
	}
}

func TestHandleEventGroupRename(t *testing.T) {
	h, rec := testHandle(t)

	h.handleEvent(&events.GroupInfo{
		JID:  types.JID{User: "120363000001", Server: types.GroupServer},
		Name: &types.GroupName{Name: "New Subject"},
	})

	if len(rec.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(rec.updates))
	}
	if rec.updates[0].Name != "New Subject" || !rec.updates[0].IsGroup {
		t.Errorf("update = %+v", rec.updates[0])
	}
	if rec.updates[0].Archived != nil {
		t.Error("rename delta must not carry an archive flag")
	}
}

func TestHandleEventArchive(t *testing.T) {
	h, rec := testHandle(t)

	h.handleEvent(&events.Archive{
		JID:    types.JID{User: "120363000001", Server: types.GroupServer},
		Action: &waSyncAction.ArchiveChatAction{Archived: proto.Bool(true)},
	})

	if len(rec.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(rec.updates))
	}
	upd := rec.updates[0]
	if upd.Archived == nil || !*upd.Archived || !upd.IsGroup {
		t.Errorf("update = %+v, want archived set", upd)
	}
}

func TestHandleEventGroupInfoWithoutTrackedChanges(t *testing.T) {
	h, rec := testHandle(t)

	h.handleEvent(&events.GroupInfo{
		JID: types.JID{User: "120363000001", Server: types.GroupServer},
	})

	if len(rec.updates) != 0 {
		t.Errorf("updates = %d, want 0 for deltas we do not track", len(rec.updates))
	}
}

func TestMarshalCredRoundTrip(t *testing.T) {
	jid := types.JID{User: "558592403672", Server: types.DefaultUserServer}
	blob := marshalCred(jid, "smba")

	var got credBlob
	if err := json.Unmarshal(blob, &got); err != nil {
		t.Fatal(err)
	}
	if got.JID != jid.String() || got.Platform != "smba" || got.PairedAt == 0 {
		t.Errorf("cred = %+v", got)
	}
}
