package manager

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/wafleet/wafleet/internal/transport"
)

// fakeTransport records opens and exposes each session's event sink so tests
// can inject transport events.
type fakeTransport struct {
	mu      sync.Mutex
	opens   int
	openErr error
	sinks   map[string]transport.EventSink
	handles map[string]*fakeHandle
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sinks:   make(map[string]transport.EventSink),
		handles: make(map[string]*fakeHandle),
	}
}

func (f *fakeTransport) Open(_ context.Context, sessionID string, _ []byte, sink transport.EventSink, fetch transport.MetadataFetcher) (transport.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	h := &fakeHandle{pairCode: "ABCD-1234"}
	f.sinks[sessionID] = sink
	f.handles[sessionID] = h
	return h, nil
}

func (f *fakeTransport) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *fakeTransport) sink(sessionID string) transport.EventSink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sinks[sessionID]
}

func (f *fakeTransport) handle(sessionID string) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[sessionID]
}

type fakeHandle struct {
	pairCalls   atomic.Int32
	pairCode    string
	pairErr     error
	logoutCalls atomic.Int32
	logoutErr   error

	metaCalls atomic.Int32
	metaErr   error
	meta      *transport.GroupMetadata

	sendCalls atomic.Int32
	closed    atomic.Bool
}

func (h *fakeHandle) SendText(context.Context, string, string) (string, error) {
	h.sendCalls.Add(1)
	return "srv-msg-1", nil
}

func (h *fakeHandle) RequestPairingCode(context.Context, string) (string, error) {
	h.pairCalls.Add(1)
	if h.pairErr != nil {
		return "", h.pairErr
	}
	return h.pairCode, nil
}

func (h *fakeHandle) DeleteMessageForMe(context.Context, string, transport.MessageRef) error {
	return nil
}

func (h *fakeHandle) Archive(context.Context, string, bool, transport.MessageRef) error {
	return nil
}

func (h *fakeHandle) GroupMetadata(_ context.Context, jid string) (*transport.GroupMetadata, error) {
	h.metaCalls.Add(1)
	if h.metaErr != nil {
		return nil, h.metaErr
	}
	if h.meta != nil {
		return h.meta, nil
	}
	return &transport.GroupMetadata{JID: jid, Subject: "fake"}, nil
}

func (h *fakeHandle) Logout(context.Context) error {
	h.logoutCalls.Add(1)
	return h.logoutErr
}

func (h *fakeHandle) Close() error {
	h.closed.Store(true)
	return nil
}
