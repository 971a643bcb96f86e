// Package wa implements the wire transport over whatsmeow. Each open
// connection gets its own whatsmeow client backed by a per-session device
// database; domain events are translated and forwarded to the caller's sink.
package wa

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wafleet/wafleet/internal/fault"
	"github.com/wafleet/wafleet/internal/transport"
	"github.com/wafleet/wafleet/internal/workdir"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/appstate"
	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	_ "github.com/mattn/go-sqlite3"
)

// Transport opens whatsmeow-backed connections. It implements
// transport.Transport.
type Transport struct {
	dirs   *workdir.Dir
	logger *zap.Logger

	osInfoOnce sync.Once
}

// NewTransport creates the whatsmeow transport.
func NewTransport(dirs *workdir.Dir, logger *zap.Logger) *Transport {
	return &Transport{dirs: dirs, logger: logger}
}

// Open creates a whatsmeow client for the session and connects it. The
// credential blob is the identity marker persisted on the last pair; the
// actual signal keys live in the per-session device database, so a non-nil
// blob with an empty device store means the device database was wiped and
// the session must pair again.
func (t *Transport) Open(ctx context.Context, sessionID string, cred []byte, sink transport.EventSink, fetch transport.MetadataFetcher) (transport.Handle, error) {
	t.osInfoOnce.Do(func() {
		// Device name shown on the phone's linked devices list.
		wastore.SetOSInfo("Wafleet", [3]uint32{0, 1, 0})
	})

	if err := t.dirs.EnsureSessionDir(sessionID); err != nil {
		return nil, err
	}

	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", t.dirs.DeviceDBPath(sessionID)),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create device store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device store: %w", err)
	}

	client := whatsmeow.NewClient(device, nil)
	h := &handle{
		session: sessionID,
		client:  client,
		sink:    sink,
		fetch:   fetch,
		logger:  t.logger.With(zap.String("session", sessionID)),
	}
	client.AddEventHandler(h.handleEvent)

	if cred != nil && client.Store.ID == nil {
		h.logger.Warn("stored credential has no matching device identity, pairing required")
	}

	sink.OnConnState(transport.ConnState{Kind: transport.StateConnecting})
	if err := client.Connect(); err != nil {
		return nil, fault.Transport("connect", err)
	}
	if client.Store.ID == nil {
		sink.OnConnState(transport.ConnState{Kind: transport.StateNeedsPairing})
	}
	return h, nil
}

// credBlob is the serialized identity persisted through the credential store.
type credBlob struct {
	JID      string `json:"jid"`
	Platform string `json:"platform"`
	PairedAt int64  `json:"paired_at"`
}

// handle is one live whatsmeow connection. It implements transport.Handle.
type handle struct {
	session string
	client  *whatsmeow.Client
	sink    transport.EventSink
	fetch   transport.MetadataFetcher
	logger  *zap.Logger
}

func (h *handle) SendText(ctx context.Context, target string, text string) (string, error) {
	to, err := types.ParseJID(target)
	if err != nil {
		return "", fault.Validation("parse jid %q: %v", target, err)
	}
	resp, err := h.client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return "", fault.Transport("send message", err)
	}
	return resp.ID, nil
}

func (h *handle) RequestPairingCode(ctx context.Context, phoneNumber string) (string, error) {
	code, err := h.client.PairPhone(ctx, phoneNumber, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
	if err != nil {
		return "", fault.Transport("pair phone", err)
	}
	return code, nil
}

func (h *handle) DeleteMessageForMe(ctx context.Context, chat string, ref transport.MessageRef) error {
	jid, err := types.ParseJID(chat)
	if err != nil {
		return fault.Validation("parse jid %q: %v", chat, err)
	}
	if err := h.client.SendAppState(ctx, buildDeleteMessageForMe(jid, ref)); err != nil {
		return fault.Transport("delete message", err)
	}
	return nil
}

func (h *handle) Archive(ctx context.Context, chat string, archived bool, ref transport.MessageRef) error {
	jid, err := types.ParseJID(chat)
	if err != nil {
		return fault.Validation("parse jid %q: %v", chat, err)
	}
	patch := appstate.BuildArchive(jid, archived, time.UnixMilli(ref.Timestamp), messageKey(jid, ref))
	if err := h.client.SendAppState(ctx, patch); err != nil {
		return fault.Transport("archive", err)
	}
	return nil
}

func (h *handle) GroupMetadata(ctx context.Context, groupJID string) (*transport.GroupMetadata, error) {
	jid, err := types.ParseJID(groupJID)
	if err != nil {
		return nil, fault.Validation("parse jid %q: %v", groupJID, err)
	}
	info, err := h.client.GetGroupInfo(ctx, jid)
	if err != nil {
		return nil, fault.Transport("group info", err)
	}
	return groupMetadataFromInfo(info), nil
}

func (h *handle) Logout(ctx context.Context) error {
	if err := h.client.Logout(ctx); err != nil {
		return fault.Transport("logout", err)
	}
	return nil
}

func (h *handle) Close() error {
	h.client.Disconnect()
	return nil
}

// messageKey builds the app-state message key for a chat-modify operation
// referencing the chat's last message.
func messageKey(chat types.JID, ref transport.MessageRef) *waCommon.MessageKey {
	key := &waCommon.MessageKey{
		RemoteJID: proto.String(chat.String()),
		ID:        proto.String(ref.ID),
		FromMe:    proto.Bool(ref.FromMe),
	}
	if !ref.FromMe && ref.Sender != "" {
		key.Participant = proto.String(ref.Sender)
	}
	return key
}

func groupMetadataFromInfo(info *types.GroupInfo) *transport.GroupMetadata {
	meta := &transport.GroupMetadata{
		JID:     info.JID.String(),
		Subject: info.Name,
	}
	for _, p := range info.Participants {
		meta.Participants = append(meta.Participants, p.JID.ToNonAD().String())
	}
	return meta
}

func marshalCred(jid types.JID, platform string) []byte {
	blob, _ := json.Marshal(credBlob{
		JID:      jid.String(),
		Platform: platform,
		PairedAt: time.Now().UnixMilli(),
	})
	return blob
}
