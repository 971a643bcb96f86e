package api

import (
	"context"

	"github.com/wafleet/wafleet/internal/bulk"
	"github.com/wafleet/wafleet/internal/manager"
	"github.com/wafleet/wafleet/internal/store"
)

// MessageService handles message sends and reads.
type MessageService struct {
	mgr *manager.Manager
	ex  *bulk.Executor
	db  *store.DB
}

// NewMessageService creates a message service.
func NewMessageService(mgr *manager.Manager, ex *bulk.Executor, db *store.DB) *MessageService {
	return &MessageService{mgr: mgr, ex: ex, db: db}
}

// Send delivers one text message through a connected session. Returns the
// server-issued message id.
func (s *MessageService) Send(ctx context.Context, sessionID, target, text string) (string, error) {
	h, err := s.mgr.ConnectedHandle(sessionID)
	if err != nil {
		return "", rpcError(err)
	}
	msgID, err := h.SendText(ctx, target, text)
	if err != nil {
		return "", rpcError(err)
	}
	return msgID, nil
}

// BulkSend delivers the same text to many targets with pacing. The call
// blocks until the whole run finishes.
func (s *MessageService) BulkSend(ctx context.Context, sessionID string, targets []string, text string) (*bulk.Outcome, error) {
	out, err := s.ex.Send(ctx, sessionID, targets, text)
	if err != nil {
		return nil, rpcError(err)
	}
	return out, nil
}

// BulkClear clears and archives many chats with pacing.
func (s *MessageService) BulkClear(ctx context.Context, sessionID string, targets []string) (*bulk.Outcome, error) {
	out, err := s.ex.Clear(ctx, sessionID, targets)
	if err != nil {
		return nil, rpcError(err)
	}
	return out, nil
}

// ListMessages pages through a chat's synced messages, newest first.
// beforeTS of zero starts from the newest message.
func (s *MessageService) ListMessages(sessionID, chatJID string, beforeTS int64, limit int) ([]store.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	msgs, err := s.db.ListMessages(sessionID, chatJID, beforeTS, limit)
	if err != nil {
		return nil, rpcError(err)
	}
	return msgs, nil
}

// BulkRuns lists recent bulk runs for a session.
func (s *MessageService) BulkRuns(sessionID string, limit int) ([]store.BulkRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs, err := s.db.ListBulkRuns(sessionID, limit)
	if err != nil {
		return nil, rpcError(err)
	}
	return runs, nil
}

// BulkRunItems lists the per-target results of one bulk run.
func (s *MessageService) BulkRunItems(runID string) ([]store.BulkItem, error) {
	items, err := s.db.ListBulkItems(runID)
	if err != nil {
		return nil, rpcError(err)
	}
	return items, nil
}
