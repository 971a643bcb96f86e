package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// upsertChatSQL overwrites descriptive fields and advances the last-message
// pointer only when the incoming event time is strictly newer. Events arrive
// out of order during history sync, so this is keyed by event time, not
// arrival order. Archived is tri-state: a NULL bind means the event carried
// no archive information and the stored flag is kept.
const upsertChatSQL = `
	INSERT INTO chats (session_id, jid, name, is_group, archived, participants,
		last_msg_id, last_msg_sender, last_msg_from_me, last_msg_at, updated_at)
	VALUES (?, ?, ?, ?, COALESCE(?, 0), ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, jid) DO UPDATE SET
		name = CASE WHEN excluded.name != '' THEN excluded.name ELSE chats.name END,
		is_group = excluded.is_group,
		archived = COALESCE(?, chats.archived),
		participants = CASE WHEN excluded.participants != '[]' THEN excluded.participants ELSE chats.participants END,
		last_msg_id = CASE WHEN excluded.last_msg_at > chats.last_msg_at THEN excluded.last_msg_id ELSE chats.last_msg_id END,
		last_msg_sender = CASE WHEN excluded.last_msg_at > chats.last_msg_at THEN excluded.last_msg_sender ELSE chats.last_msg_sender END,
		last_msg_from_me = CASE WHEN excluded.last_msg_at > chats.last_msg_at THEN excluded.last_msg_from_me ELSE chats.last_msg_from_me END,
		last_msg_at = MAX(chats.last_msg_at, excluded.last_msg_at),
		updated_at = excluded.updated_at`

// UpsertChat inserts or updates a chat record.
func (db *DB) UpsertChat(c *Chat) error {
	_, err := db.Exec(upsertChatSQL, chatArgs(c)...)
	return err
}

func chatArgs(c *Chat) []any {
	participants := c.Participants
	if participants == nil {
		participants = []string{}
	}
	pjson, _ := json.Marshal(participants)
	// Archived binds twice: once for the insert values, once for the
	// conflict clause's COALESCE.
	return []any{
		c.SessionID, c.JID, c.Name, c.IsGroup, c.Archived, string(pjson),
		c.LastMsgID, c.LastMsgSender, c.LastMsgFromMe, c.LastMsgAt,
		time.Now().UnixMilli(),
		c.Archived,
	}
}

// touchChatSQL ensures a chat row exists and advances its last-message
// pointer, leaving descriptive fields (name, archived, participants) alone.
const touchChatSQL = `
	INSERT INTO chats (session_id, jid, is_group, last_msg_id, last_msg_sender, last_msg_from_me, last_msg_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, jid) DO UPDATE SET
		last_msg_id = CASE WHEN excluded.last_msg_at > chats.last_msg_at THEN excluded.last_msg_id ELSE chats.last_msg_id END,
		last_msg_sender = CASE WHEN excluded.last_msg_at > chats.last_msg_at THEN excluded.last_msg_sender ELSE chats.last_msg_sender END,
		last_msg_from_me = CASE WHEN excluded.last_msg_at > chats.last_msg_at THEN excluded.last_msg_from_me ELSE chats.last_msg_from_me END,
		last_msg_at = MAX(chats.last_msg_at, excluded.last_msg_at),
		updated_at = excluded.updated_at`

// TouchChatLastMessage advances a chat's last-message pointer. Used when a
// message event arrives for a chat we have not seen a chat event for.
func (db *DB) TouchChatLastMessage(sessionID, jid string, isGroup bool, msgID, sender string, fromMe bool, ts int64) error {
	_, err := db.Exec(touchChatSQL,
		sessionID, jid, isGroup, msgID, sender, fromMe, ts, time.Now().UnixMilli())
	return err
}

const selectChatSQL = `
	SELECT session_id, jid, name, is_group, archived, participants,
		last_msg_id, last_msg_sender, last_msg_from_me, last_msg_at
	FROM chats`

func scanChat(scan func(dest ...any) error) (*Chat, error) {
	var c Chat
	var archived bool
	var pjson string
	if err := scan(&c.SessionID, &c.JID, &c.Name, &c.IsGroup, &archived, &pjson,
		&c.LastMsgID, &c.LastMsgSender, &c.LastMsgFromMe, &c.LastMsgAt); err != nil {
		return nil, err
	}
	c.Archived = &archived
	if err := json.Unmarshal([]byte(pjson), &c.Participants); err != nil {
		c.Participants = nil
	}
	return &c, nil
}

// GetChat returns a single chat, or nil if absent.
func (db *DB) GetChat(sessionID, jid string) (*Chat, error) {
	row := db.QueryRow(selectChatSQL+` WHERE session_id = ? AND jid = ?`, sessionID, jid)
	c, err := scanChat(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListChats returns a session's chats sorted by last message time descending.
func (db *DB) ListChats(sessionID string, groupsOnly bool, limit, offset int) ([]Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	q := selectChatSQL + ` WHERE session_id = ?`
	if groupsOnly {
		q += ` AND is_group = 1`
	}
	q += ` ORDER BY last_msg_at DESC LIMIT ? OFFSET ?`

	rows, err := db.Query(q, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		c, err := scanChat(rows.Scan)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, rows.Err()
}

// ChatCount returns the number of chats synced for a session.
func (db *DB) ChatCount(sessionID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM chats WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
