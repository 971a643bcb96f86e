package store

import "time"

const upsertMessageSQL = `
	INSERT INTO messages (session_id, chat_jid, msg_id, sender_jid, sender_name,
		body, message_type, from_me, timestamp, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, chat_jid, msg_id) DO UPDATE SET
		sender_name = excluded.sender_name,
		body = excluded.body,
		message_type = excluded.message_type`

// UpsertMessage inserts or updates a message (idempotent on session + chat +
// msg id, safe to replay).
func (db *DB) UpsertMessage(m *Message) error {
	_, err := db.Exec(upsertMessageSQL, messageArgs(m)...)
	return err
}

func messageArgs(m *Message) []any {
	return []any{
		m.SessionID, m.ChatJID, m.MsgID, m.SenderJID, m.SenderName,
		m.Body, m.MessageType, m.FromMe, m.Timestamp, time.Now().UnixMilli(),
	}
}

// ListMessages returns messages for a chat using keyset pagination by timestamp.
func (db *DB) ListMessages(sessionID, chatJID string, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT id, session_id, chat_jid, msg_id, sender_jid, sender_name,
			body, message_type, from_me, timestamp
		FROM messages
		WHERE session_id = ? AND chat_jid = ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT ?`, sessionID, chatJID, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.ChatJID, &m.MsgID, &m.SenderJID,
			&m.SenderName, &m.Body, &m.MessageType, &m.FromMe, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the number of messages synced for a session.
func (db *DB) MessageCount(sessionID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// BatchUpsert applies many chat and message upserts in one transaction.
// History sync delivers thousands of items; one commit instead of one per
// item. Each message also touches its chat's last-message pointer, so a chat
// absent from the chat list still gets a row, and descriptive fields like the
// archived flag are never rewritten by message traffic.
func (db *DB) BatchUpsert(chats []*Chat, msgs []*Message) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	groups := make(map[string]bool, len(chats))
	for _, c := range chats {
		groups[c.JID] = c.IsGroup
		if _, err := tx.Exec(upsertChatSQL, chatArgs(c)...); err != nil {
			return err
		}
	}
	now := time.Now().UnixMilli()
	for _, m := range msgs {
		if _, err := tx.Exec(touchChatSQL,
			m.SessionID, m.ChatJID, groups[m.ChatJID], m.MsgID, m.SenderJID,
			m.FromMe, m.Timestamp, now); err != nil {
			return err
		}
		if _, err := tx.Exec(upsertMessageSQL, messageArgs(m)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
