package store

import "database/sql"

// UpsertSession inserts or refreshes a session record. Identity fields are
// never mutated after creation; only metadata is refreshed.
func (db *DB) UpsertSession(s *Session) error {
	_, err := db.Exec(`
		INSERT INTO sessions (id, phone_number, created_by, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phone_number = excluded.phone_number`,
		s.ID, s.PhoneNumber, s.CreatedBy, s.CreatedAt)
	return err
}

// GetSession returns a session by id, or nil if absent.
func (db *DB) GetSession(id string) (*Session, error) {
	var s Session
	err := db.QueryRow(`
		SELECT id, phone_number, created_by, created_at
		FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.PhoneNumber, &s.CreatedBy, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns all persisted sessions, oldest first.
func (db *DB) ListSessions() ([]Session, error) {
	rows, err := db.Query(`
		SELECT id, phone_number, created_by, created_at
		FROM sessions ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.PhoneNumber, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeleteSession removes the session row and all its synced state. Used on
// logout/blocked wipes.
func (db *DB) DeleteSession(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM messages WHERE session_id = ?`,
		`DELETE FROM chats WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
