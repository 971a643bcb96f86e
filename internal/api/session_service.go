package api

import (
	"context"

	"github.com/wafleet/wafleet/internal/manager"
	"github.com/wafleet/wafleet/internal/status"
	"github.com/wafleet/wafleet/internal/store"
)

// SessionService handles session lifecycle requests.
type SessionService struct {
	mgr *manager.Manager
	db  *store.DB
}

// NewSessionService creates a session service.
func NewSessionService(mgr *manager.Manager, db *store.DB) *SessionService {
	return &SessionService{mgr: mgr, db: db}
}

// SessionInfo is the API view of a session.
type SessionInfo struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// Create starts (or returns) the connection for a session. Repeat calls for
// an existing session report its current status instead of erroring.
func (s *SessionService) Create(ctx context.Context, sessionID, phoneNumber string) (*SessionInfo, error) {
	st, err := s.mgr.CreateConnection(ctx, sessionID, phoneNumber, "api")
	if err != nil {
		return nil, rpcError(err)
	}
	return &SessionInfo{ID: sessionID, PhoneNumber: phoneNumber, Status: string(st)}, nil
}

// Status reports the live status of a session's connection.
func (s *SessionService) Status(sessionID string) (*SessionInfo, error) {
	st, err := s.mgr.Status(sessionID)
	if err != nil {
		return nil, rpcError(err)
	}
	return &SessionInfo{ID: sessionID, Status: string(st)}, nil
}

// PairingCode returns the pairing code once issued.
func (s *SessionService) PairingCode(sessionID string) (string, error) {
	code, err := s.mgr.PairingCode(sessionID)
	if err != nil {
		return "", rpcError(err)
	}
	return code, nil
}

// List merges stored sessions with the live registry. Sessions without an
// active connection report DISCONNECTED.
func (s *SessionService) List() ([]SessionInfo, error) {
	stored, err := s.db.ListSessions()
	if err != nil {
		return nil, rpcError(err)
	}

	active := make(map[string]status.State)
	for _, ss := range s.mgr.ListActive() {
		active[ss.SessionID] = ss.Status
	}

	out := make([]SessionInfo, 0, len(stored))
	for _, sess := range stored {
		st, ok := active[sess.ID]
		if !ok {
			st = status.Disconnected
		}
		out = append(out, SessionInfo{
			ID:          sess.ID,
			PhoneNumber: sess.PhoneNumber,
			Status:      string(st),
			CreatedAt:   sess.CreatedAt,
		})
	}
	return out, nil
}

// Close tears down a session's connection, keeping its stored data and
// credentials for a later restart.
func (s *SessionService) Close(ctx context.Context, sessionID string) error {
	return rpcError(s.mgr.CloseConnection(ctx, sessionID))
}
