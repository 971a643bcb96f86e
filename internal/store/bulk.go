package store

// InsertBulkRun records a completed bulk run and its per-target items in one
// transaction.
func (db *DB) InsertBulkRun(run *BulkRun, items []BulkItem) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO bulk_runs (id, session_id, kind, total, succeeded, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, run.Kind, run.Total, run.Succeeded, run.CreatedAt); err != nil {
		return err
	}
	for _, it := range items {
		if _, err := tx.Exec(`
			INSERT INTO bulk_items (run_id, position, target, success, message_id, error)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, it.Position, it.Target, it.Success, it.MessageID, it.Error); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListBulkRuns returns a session's bulk runs, newest first.
func (db *DB) ListBulkRuns(sessionID string, limit int) ([]BulkRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, session_id, kind, total, succeeded, created_at
		FROM bulk_runs WHERE session_id = ?
		ORDER BY created_at DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []BulkRun
	for rows.Next() {
		var r BulkRun
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Kind, &r.Total, &r.Succeeded, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListBulkItems returns the items of a run in input order.
func (db *DB) ListBulkItems(runID string) ([]BulkItem, error) {
	rows, err := db.Query(`
		SELECT run_id, position, target, success, message_id, error
		FROM bulk_items WHERE run_id = ? ORDER BY position ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []BulkItem
	for rows.Next() {
		var it BulkItem
		if err := rows.Scan(&it.RunID, &it.Position, &it.Target, &it.Success, &it.MessageID, &it.Error); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
