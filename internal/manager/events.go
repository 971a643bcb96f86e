package manager

import (
	"context"

	"github.com/wafleet/wafleet/internal/status"
	"github.com/wafleet/wafleet/internal/transport"
	"go.uber.org/zap"
)

// handleConnState drives the state machine from transport connection-state
// events.
func (m *Manager) handleConnState(conn *Connection, st transport.ConnState) {
	switch st.Kind {
	case transport.StateConnecting:
		_ = conn.machine.Transition(status.Connecting)

	case transport.StateNeedsPairing:
		m.requestPairing(conn)

	case transport.StateOpen:
		_ = conn.machine.Transition(status.Connected)
		conn.resetAttempts()
		m.logger.Info("session connected", zap.String("session", conn.SessionID))

	case transport.StateClose:
		m.handleClose(conn, st.Reason)
	}
}

// requestPairing asks the transport for a pairing code exactly once per
// connection. Repeated needs-pairing signals are swallowed by the guard.
func (m *Manager) requestPairing(conn *Connection) {
	if !conn.markPairingRequested() {
		return
	}
	h := conn.Handle()
	if h == nil {
		m.logger.Warn("needs-pairing before transport handle is set",
			zap.String("session", conn.SessionID))
		return
	}
	go func() {
		code, err := h.RequestPairingCode(context.Background(), conn.PhoneNumber)
		if err != nil {
			// State stays connecting; the operator retries by closing
			// and recreating the connection.
			m.logger.Error("failed to request pairing code",
				zap.String("session", conn.SessionID), zap.Error(err))
			return
		}
		conn.setPairingCode(code)
		_ = conn.machine.Transition(status.Pairing)
		m.bus.Emit("session.pairing_code", conn.SessionID, code)
		m.logger.Info("pairing code issued", zap.String("session", conn.SessionID))
	}()
}

// handleClose applies the close-reason policy from one place.
func (m *Manager) handleClose(conn *Connection, reason transport.CloseReason) {
	m.logger.Warn("connection closed",
		zap.String("session", conn.SessionID), zap.String("reason", string(reason)))

	switch reason {
	case transport.CloseLoggedOut:
		_ = conn.machine.Transition(status.LoggedOut)
		m.wipe(conn)

	case transport.CloseBlocked:
		_ = conn.machine.Transition(status.Blocked)
		m.wipe(conn)

	case transport.CloseRestartRequired:
		// A requested restart is a fresh connection, not a counted retry.
		m.removeIf(conn)
		m.closeHandleAsync(conn)
		go func() {
			if _, err := m.CreateConnection(context.Background(), conn.SessionID, conn.PhoneNumber, "restart"); err != nil {
				m.logger.Error("restart reconnect failed",
					zap.String("session", conn.SessionID), zap.Error(err))
			}
		}()

	default:
		m.scheduleReconnect(conn)
	}
}

// scheduleReconnect charges the reconnect budget and arms the delayed
// reconnect, or terminates the session at disconnected when the budget is
// spent. The timer carries the connection generation; see recreate.
func (m *Manager) scheduleReconnect(conn *Connection) {
	conn.mu.Lock()
	if conn.attempts >= m.cfg.MaxReconnectAttempts {
		conn.mu.Unlock()
		_ = conn.machine.Transition(status.Disconnected)
		m.removeIf(conn)
		m.closeHandleAsync(conn)
		m.logger.Warn("reconnect budget exhausted, session disconnected",
			zap.String("session", conn.SessionID),
			zap.Int("attempts", m.cfg.MaxReconnectAttempts))
		return
	}
	conn.attempts++
	attempts := conn.attempts
	conn.mu.Unlock()

	_ = conn.machine.Transition(status.Reconnecting)
	m.closeHandleAsync(conn)
	m.logger.Info("reconnect scheduled",
		zap.String("session", conn.SessionID), zap.Int("attempt", attempts))

	sessionID, phone, gen := conn.SessionID, conn.PhoneNumber, conn.Generation
	m.afterFunc(m.cfg.ReconnectDelay(), func() {
		m.recreate(sessionID, phone, gen, attempts)
	})
}

// recreate replaces the registered connection with a fresh one carrying the
// inherited attempt count. It no-ops unless the registry still holds the
// generation the timer was armed for, so a connection closed or replaced in
// the meantime is left alone.
func (m *Manager) recreate(sessionID, phone, gen string, attempts int) {
	m.mu.Lock()
	cur, ok := m.conns[sessionID]
	if !ok || cur.Generation != gen {
		m.mu.Unlock()
		return
	}
	conn := m.newConnection(sessionID, phone, attempts)
	m.conns[sessionID] = conn
	m.mu.Unlock()

	if err := m.open(context.Background(), conn); err != nil {
		m.logger.Error("reconnect open failed",
			zap.String("session", sessionID), zap.Int("attempt", attempts), zap.Error(err))
		m.scheduleReconnect(conn)
	}
}

// handleCredsChanged persists the new credential blob. Failures are logged
// only; the transport raises this event frequently, so the next one retries.
func (m *Manager) handleCredsChanged(conn *Connection, blob []byte) {
	if err := m.creds.Set(conn.SessionID, blob); err != nil {
		m.logger.Warn("failed to persist credentials",
			zap.String("session", conn.SessionID), zap.Error(err))
	}
}

// wipe erases the credential, the persisted session and the session's
// directory (device database included) for terminal logged-out/blocked
// closes, then drops the connection.
func (m *Manager) wipe(conn *Connection) {
	if err := m.creds.Delete(conn.SessionID); err != nil {
		m.logger.Warn("failed to delete credentials",
			zap.String("session", conn.SessionID), zap.Error(err))
	}
	if err := m.db.DeleteSession(conn.SessionID); err != nil {
		m.logger.Warn("failed to delete session record",
			zap.String("session", conn.SessionID), zap.Error(err))
	}
	if err := m.dirs.RemoveSessionDir(conn.SessionID); err != nil {
		m.logger.Warn("failed to remove session directory",
			zap.String("session", conn.SessionID), zap.Error(err))
	}
	m.removeIf(conn)
	m.closeHandleAsync(conn)
	m.logger.Info("session wiped", zap.String("session", conn.SessionID))
}

// closeHandleAsync tears down the transport handle off the event goroutine;
// some transports do not allow closing from inside their own callbacks.
func (m *Manager) closeHandleAsync(conn *Connection) {
	h := conn.Handle()
	if h == nil {
		return
	}
	conn.setHandle(nil)
	go func() { _ = h.Close() }()
}
