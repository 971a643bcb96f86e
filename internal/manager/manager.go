// Package manager owns the per-session connection registry and drives the
// connection lifecycle state machine.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wafleet/wafleet/internal/bus"
	"github.com/wafleet/wafleet/internal/config"
	"github.com/wafleet/wafleet/internal/creds"
	"github.com/wafleet/wafleet/internal/fault"
	"github.com/wafleet/wafleet/internal/groupcache"
	"github.com/wafleet/wafleet/internal/status"
	"github.com/wafleet/wafleet/internal/store"
	"github.com/wafleet/wafleet/internal/transport"
	"github.com/wafleet/wafleet/internal/workdir"
	"go.uber.org/zap"
)

// Manager is the connection lifecycle manager. It is the single owner of all
// Connection instances; everything else reaches the transport through it.
type Manager struct {
	mu    sync.Mutex
	conns map[string]*Connection

	db        *store.DB
	creds     creds.Store
	transport transport.Transport
	cache     *groupcache.Cache
	cfg       *config.Config
	dirs      *workdir.Dir
	bus       *bus.Bus
	logger    *zap.Logger

	// afterFunc schedules reconnects; tests shorten it.
	afterFunc func(d time.Duration, f func())
}

// SessionStatus pairs a session id with its live connection state.
type SessionStatus struct {
	SessionID string
	Status    status.State
}

// New creates a Manager.
func New(db *store.DB, cs creds.Store, tr transport.Transport, cache *groupcache.Cache, cfg *config.Config, dirs *workdir.Dir, b *bus.Bus, logger *zap.Logger) *Manager {
	return &Manager{
		conns:     make(map[string]*Connection),
		db:        db,
		creds:     cs,
		transport: tr,
		cache:     cache,
		cfg:       cfg,
		dirs:      dirs,
		bus:       b,
		logger:    logger,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// CreateConnection opens a connection for the session, creating the session
// record if it is new. Idempotent: an existing live connection is returned
// unchanged.
func (m *Manager) CreateConnection(ctx context.Context, sessionID, phoneNumber, actor string) (status.State, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return "", err
	}
	if err := ValidatePhoneNumber(phoneNumber); err != nil {
		return "", err
	}

	m.mu.Lock()
	if c, ok := m.conns[sessionID]; ok {
		m.mu.Unlock()
		return c.Status(), nil
	}

	existing, err := m.db.GetSession(sessionID)
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	if existing == nil {
		if err := m.db.UpsertSession(&store.Session{
			ID:          sessionID,
			PhoneNumber: phoneNumber,
			CreatedBy:   actor,
			CreatedAt:   time.Now().UnixMilli(),
		}); err != nil {
			m.mu.Unlock()
			return "", err
		}
		m.logger.Info("session created",
			zap.String("session", sessionID), zap.String("actor", actor))
	}

	conn := m.newConnection(sessionID, phoneNumber, 0)
	m.conns[sessionID] = conn
	m.mu.Unlock()

	if err := m.open(ctx, conn); err != nil {
		m.removeIf(conn)
		return "", err
	}
	return conn.Status(), nil
}

func (m *Manager) newConnection(sessionID, phoneNumber string, attempts int) *Connection {
	return &Connection{
		SessionID:   sessionID,
		PhoneNumber: phoneNumber,
		Generation:  uuid.NewString(),
		machine:     status.NewMachine(sessionID, m.bus),
		attempts:    attempts,
	}
}

// open loads the credential blob and opens the transport with this
// connection's event sink and metadata fetcher.
func (m *Manager) open(ctx context.Context, conn *Connection) error {
	cred, err := m.creds.Get(conn.SessionID)
	if err != nil {
		// Treat an unreadable blob like a fresh pairing; the transport
		// will report needs-pairing.
		m.logger.Warn("failed to read credentials",
			zap.String("session", conn.SessionID), zap.Error(err))
		cred = nil
	}

	sink := &connSink{m: m, conn: conn}
	h, err := m.transport.Open(ctx, conn.SessionID, cred, sink, m.fetcherFor(conn))
	if err != nil {
		return fault.Transport("open", err)
	}
	conn.setHandle(h)
	return nil
}

// Get returns the live connection for a session, or nil.
func (m *Manager) Get(sessionID string) *Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conns[sessionID]
}

// Status returns the lifecycle state for a session's connection.
func (m *Manager) Status(sessionID string) (status.State, error) {
	conn := m.Get(sessionID)
	if conn == nil {
		return "", fault.NotFound("no connection for session %q", sessionID)
	}
	return conn.Status(), nil
}

// PairingCode returns the pairing code issued for a new session.
func (m *Manager) PairingCode(sessionID string) (string, error) {
	conn := m.Get(sessionID)
	if conn == nil {
		return "", fault.NotFound("no connection for session %q", sessionID)
	}
	code := conn.PairingCode()
	if code == "" {
		return "", fault.NotReady("pairing code not issued yet for session %q", sessionID)
	}
	return code, nil
}

// ListActive returns all sessions with a live connection.
func (m *Manager) ListActive() []SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionStatus, 0, len(m.conns))
	for id, c := range m.conns {
		out = append(out, SessionStatus{SessionID: id, Status: c.Status()})
	}
	return out
}

// ConnectedHandle returns the transport handle for a connected session.
// Callers that need to issue transport calls (bulk executor, send) go
// through here so the connected precondition is checked in one place.
func (m *Manager) ConnectedHandle(sessionID string) (transport.Handle, error) {
	conn := m.Get(sessionID)
	if conn == nil {
		return nil, fault.NotFound("no connection for session %q", sessionID)
	}
	if conn.Status() != status.Connected {
		return nil, fault.NotReady("session %q is %s", sessionID, conn.Status())
	}
	h := conn.Handle()
	if h == nil {
		return nil, fault.NotReady("session %q has no transport handle", sessionID)
	}
	return h, nil
}

// CloseConnection logs out best-effort and removes the connection. The
// persisted session record and credential remain; a later CreateConnection
// resumes the session.
func (m *Manager) CloseConnection(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	conn, ok := m.conns[sessionID]
	if ok {
		delete(m.conns, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return fault.NotFound("no connection for session %q", sessionID)
	}

	if h := conn.Handle(); h != nil {
		if err := h.Logout(ctx); err != nil {
			m.logger.Warn("logout failed on close",
				zap.String("session", sessionID), zap.Error(err))
		}
		_ = h.Close()
	}
	m.logger.Info("connection closed", zap.String("session", sessionID))
	return nil
}

// Shutdown detaches every live connection without logging out. The platform
// link and stored credentials survive, so RestoreSessions resumes the same
// sessions on the next start.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	conns := make([]*Connection, 0, len(m.conns))
	for _, conn := range m.conns {
		conns = append(conns, conn)
	}
	m.conns = make(map[string]*Connection)
	m.mu.Unlock()

	for _, conn := range conns {
		if h := conn.Handle(); h != nil {
			conn.setHandle(nil)
			_ = h.Close()
		}
		m.logger.Info("connection detached", zap.String("session", conn.SessionID))
	}
}

// RestoreSessions reconnects every persisted session on process start. A
// failure for one session is logged and does not abort the others.
func (m *Manager) RestoreSessions(ctx context.Context) {
	sessions, err := m.db.ListSessions()
	if err != nil {
		m.logger.Error("failed to list sessions for restore", zap.Error(err))
		return
	}
	for _, s := range sessions {
		if s.PhoneNumber == "" {
			continue
		}
		if _, err := m.CreateConnection(ctx, s.ID, s.PhoneNumber, "restore"); err != nil {
			m.logger.Error("failed to restore session",
				zap.String("session", s.ID), zap.Error(err))
		}
	}
}

// GroupMetadata resolves group metadata through the cache, falling back to a
// live transport fetch on a miss. Fetch failures are not cached.
func (m *Manager) GroupMetadata(ctx context.Context, sessionID, groupJID string) (*transport.GroupMetadata, error) {
	if meta := m.cache.Get(groupJID); meta != nil {
		return meta, nil
	}
	h, err := m.ConnectedHandle(sessionID)
	if err != nil {
		return nil, err
	}
	meta, err := h.GroupMetadata(ctx, groupJID)
	if err != nil {
		return nil, fault.Transport("group metadata", err)
	}
	m.cache.Set(groupJID, meta)
	return meta, nil
}

// fetcherFor builds the metadata-fetch callback wired into transport.Open.
func (m *Manager) fetcherFor(conn *Connection) transport.MetadataFetcher {
	return func(ctx context.Context, groupJID string) (*transport.GroupMetadata, error) {
		if meta := m.cache.Get(groupJID); meta != nil {
			return meta, nil
		}
		h := conn.Handle()
		if h == nil {
			return nil, fault.NotReady("session %q has no transport handle", conn.SessionID)
		}
		meta, err := h.GroupMetadata(ctx, groupJID)
		if err != nil {
			return nil, fault.Transport("group metadata", err)
		}
		m.cache.Set(groupJID, meta)
		return meta, nil
	}
}

// removeIf deletes conn from the registry only if it is still the registered
// instance for its session.
func (m *Manager) removeIf(conn *Connection) {
	m.mu.Lock()
	if cur, ok := m.conns[conn.SessionID]; ok && cur.Generation == conn.Generation {
		delete(m.conns, conn.SessionID)
	}
	m.mu.Unlock()
}
