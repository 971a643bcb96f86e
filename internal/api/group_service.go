package api

import (
	"context"

	"github.com/wafleet/wafleet/internal/manager"
	"github.com/wafleet/wafleet/internal/store"
	"github.com/wafleet/wafleet/internal/transport"
)

// GroupService handles group metadata and listing requests.
type GroupService struct {
	mgr *manager.Manager
	db  *store.DB
}

// NewGroupService creates a group service.
func NewGroupService(mgr *manager.Manager, db *store.DB) *GroupService {
	return &GroupService{mgr: mgr, db: db}
}

// Metadata resolves group metadata through the session's cache, hitting the
// backend only on a miss.
func (s *GroupService) Metadata(ctx context.Context, sessionID, groupJID string) (*transport.GroupMetadata, error) {
	meta, err := s.mgr.GroupMetadata(ctx, sessionID, groupJID)
	if err != nil {
		return nil, rpcError(err)
	}
	return meta, nil
}

// List pages through a session's synced group chats, most recent activity
// first.
func (s *GroupService) List(sessionID string, limit, offset int) ([]store.Chat, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	chats, err := s.db.ListChats(sessionID, true, limit, offset)
	if err != nil {
		return nil, rpcError(err)
	}
	return chats, nil
}
