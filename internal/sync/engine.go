// Package sync reconciles inbound transport events into the durable store.
package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/wafleet/wafleet/internal/bus"
	"github.com/wafleet/wafleet/internal/store"
	"github.com/wafleet/wafleet/internal/transport"
	"go.uber.org/zap"
)

const groupSuffix = "@g.us"

// Engine subscribes to "wa.*" events on the bus and applies idempotent,
// timestamp-ordered upserts. Store failures are logged and swallowed; the
// next event for the same record heals the gap.
type Engine struct {
	db         *store.DB
	bus        *bus.Bus
	logger     *zap.Logger
	groupsOnly bool
	cancel     context.CancelFunc
}

// NewEngine creates a sync engine. With groupsOnly set, chats that are not
// groups are ignored along with their messages.
func NewEngine(db *store.DB, b *bus.Bus, groupsOnly bool, logger *zap.Logger) *Engine {
	return &Engine{
		db:         db,
		bus:        b,
		logger:     logger,
		groupsOnly: groupsOnly,
	}
}

// Start subscribes to inbound transport events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("wa.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	// One broken event must not take down the subscription loop.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("sync handler panicked",
				zap.String("kind", evt.Kind), zap.Any("panic", r))
		}
	}()

	switch evt.Kind {
	case "wa.chat_upsert", "wa.chat_update":
		ce, ok := evt.Payload.(transport.ChatEvent)
		if !ok {
			return
		}
		if err := e.ApplyChatEvent(evt.Session, ce); err != nil {
			e.logger.Error("failed to apply chat event",
				zap.String("session", evt.Session), zap.String("chat", ce.JID), zap.Error(err))
		}
	case "wa.message_upsert", "wa.message_update":
		me, ok := evt.Payload.(transport.MessageEvent)
		if !ok {
			return
		}
		if err := e.ApplyMessageEvent(evt.Session, me); err != nil {
			e.logger.Error("failed to apply message event",
				zap.String("session", evt.Session), zap.String("msg", me.ID), zap.Error(err))
		}
	case "wa.history":
		h, ok := evt.Payload.(transport.HistorySync)
		if !ok {
			return
		}
		if err := e.ApplyHistory(evt.Session, h); err != nil {
			e.logger.Error("failed to apply history sync",
				zap.String("session", evt.Session), zap.Error(err))
		} else {
			e.logger.Info("history sync applied",
				zap.String("session", evt.Session),
				zap.Int("chats", len(h.Chats)), zap.Int("messages", len(h.Messages)))
		}
	}
}

// inScope applies the group-only filter by the JID suffix convention.
func (e *Engine) inScope(jid string) bool {
	if !e.groupsOnly {
		return true
	}
	return strings.HasSuffix(jid, groupSuffix)
}

// ApplyChatEvent upserts one chat. Descriptive fields win unconditionally;
// the last-message pointer only advances in event time.
func (e *Engine) ApplyChatEvent(sessionID string, ce transport.ChatEvent) error {
	if !e.inScope(ce.JID) {
		return nil
	}
	if err := e.db.UpsertChat(chatFromEvent(sessionID, ce)); err != nil {
		return fmt.Errorf("upsert chat: %w", err)
	}
	e.bus.Emit("sync.chat_upserted", sessionID, ce.JID)
	return nil
}

// ApplyMessageEvent upserts one message and advances its chat's last-message
// pointer. Duplicate message ids are replay-safe.
func (e *Engine) ApplyMessageEvent(sessionID string, me transport.MessageEvent) error {
	if !e.inScope(me.ChatJID) {
		return nil
	}
	if err := e.db.TouchChatLastMessage(sessionID, me.ChatJID,
		strings.HasSuffix(me.ChatJID, groupSuffix), me.ID, me.Sender, me.FromMe, me.Timestamp); err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	if err := e.db.UpsertMessage(messageFromEvent(sessionID, me)); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	e.bus.Emit("sync.message_upserted", sessionID, map[string]string{
		"chat_jid": me.ChatJID,
		"msg_id":   me.ID,
	})
	return nil
}

// ApplyHistory processes a bulk history payload with one batched upsert
// instead of one write per item. Chat rows come only from the chat list;
// messages advance last-message pointers inside the batch without touching
// descriptive chat fields.
func (e *Engine) ApplyHistory(sessionID string, h transport.HistorySync) error {
	var chats []*store.Chat
	for _, ce := range h.Chats {
		if !e.inScope(ce.JID) {
			continue
		}
		chats = append(chats, chatFromEvent(sessionID, ce))
	}

	var msgs []*store.Message
	for _, me := range h.Messages {
		if !e.inScope(me.ChatJID) {
			continue
		}
		msgs = append(msgs, messageFromEvent(sessionID, me))
	}

	if len(chats) == 0 && len(msgs) == 0 {
		return nil
	}
	if err := e.db.BatchUpsert(chats, msgs); err != nil {
		return fmt.Errorf("batch upsert: %w", err)
	}
	e.bus.Emit("sync.history_applied", sessionID, map[string]int{
		"chats":    len(chats),
		"messages": len(msgs),
	})
	return nil
}

func chatFromEvent(sessionID string, ce transport.ChatEvent) *store.Chat {
	return &store.Chat{
		SessionID:     sessionID,
		JID:           ce.JID,
		Name:          ce.Name,
		IsGroup:       ce.IsGroup,
		Archived:      ce.Archived,
		Participants:  ce.Participants,
		LastMsgID:     ce.LastMessage.ID,
		LastMsgSender: ce.LastMessage.Sender,
		LastMsgFromMe: ce.LastMessage.FromMe,
		LastMsgAt:     ce.LastMessage.Timestamp,
	}
}

func messageFromEvent(sessionID string, me transport.MessageEvent) *store.Message {
	msgType := me.Type
	if msgType == "" {
		msgType = "text"
	}
	return &store.Message{
		SessionID:   sessionID,
		ChatJID:     me.ChatJID,
		MsgID:       me.ID,
		SenderJID:   me.Sender,
		SenderName:  me.SenderName,
		Body:        me.Body,
		MessageType: msgType,
		FromMe:      me.FromMe,
		Timestamp:   me.Timestamp,
	}
}
