package manager

import (
	"sync"

	"github.com/wafleet/wafleet/internal/status"
	"github.com/wafleet/wafleet/internal/transport"
)

// Connection is the in-memory live handle for one session. It is never
// persisted; on restart it is reconstructed from the session record and the
// credential blob. Exactly one Connection per session lives in the registry.
type Connection struct {
	SessionID   string
	PhoneNumber string
	// Generation identifies this Connection instance. Scheduled reconnects
	// carry the generation and no-op when the registry holds a different
	// instance, so a stale timer cannot revive a deliberately closed
	// session.
	Generation string

	machine *status.Machine

	mu          sync.Mutex
	handle      transport.Handle
	pairingCode string
	pairingReq  bool
	attempts    int
}

// Status returns the connection's lifecycle state.
func (c *Connection) Status() status.State {
	return c.machine.Current()
}

// Handle returns the transport handle, or nil before open completes.
func (c *Connection) Handle() transport.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

func (c *Connection) setHandle(h transport.Handle) {
	c.mu.Lock()
	c.handle = h
	c.mu.Unlock()
}

// PairingCode returns the stored pairing code, or empty if not yet issued.
func (c *Connection) PairingCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pairingCode
}

func (c *Connection) setPairingCode(code string) {
	c.mu.Lock()
	c.pairingCode = code
	c.mu.Unlock()
}

// markPairingRequested flips the request guard. Returns false if a pairing
// code request was already made for this connection.
func (c *Connection) markPairingRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pairingReq {
		return false
	}
	c.pairingReq = true
	return true
}

func (c *Connection) attemptCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Connection) resetAttempts() {
	c.mu.Lock()
	c.attempts = 0
	c.mu.Unlock()
}

// connSink adapts transport events for one connection into manager handling
// and bus publication. Methods must return quickly; anything slow is run on a
// fresh goroutine by the manager.
type connSink struct {
	m    *Manager
	conn *Connection
}

func (s *connSink) OnConnState(st transport.ConnState) {
	s.m.handleConnState(s.conn, st)
}

func (s *connSink) OnCredsChanged(blob []byte) {
	s.m.handleCredsChanged(s.conn, blob)
}

func (s *connSink) OnHistorySync(h transport.HistorySync) {
	s.m.bus.Emit("wa.history", s.conn.SessionID, h)
}

func (s *connSink) OnChatUpsert(e transport.ChatEvent) {
	s.m.bus.Emit("wa.chat_upsert", s.conn.SessionID, e)
}

func (s *connSink) OnChatUpdate(e transport.ChatEvent) {
	s.m.bus.Emit("wa.chat_update", s.conn.SessionID, e)
}

func (s *connSink) OnMessageUpsert(e transport.MessageEvent) {
	s.m.bus.Emit("wa.message_upsert", s.conn.SessionID, e)
}

func (s *connSink) OnMessageUpdate(e transport.MessageEvent) {
	s.m.bus.Emit("wa.message_update", s.conn.SessionID, e)
}
