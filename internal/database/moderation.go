package database

import (
	"context"
	"database/sql"
	"time"
)

func (d *Database) GetWarnings(ctx context.Context, userID string) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT count FROM warns WHERE user_id = ?`, userID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr(err, "get warnings of %s", userID)
	}
	return count, nil
}

// AddWarning increments the warning count of userID and returns the new total.
func (d *Database) AddWarning(ctx context.Context, userID string) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		`INSERT INTO warns (user_id, count) VALUES (?, 1)
		 ON CONFLICT(user_id) DO UPDATE SET count = count + 1
		 RETURNING count`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, storageErr(err, "add warning to %s", userID)
	}
	return count, nil
}

func (d *Database) ClearWarnings(ctx context.Context, userID string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM warns WHERE user_id = ?`, userID); err != nil {
		return storageErr(err, "clear warnings of %s", userID)
	}
	return nil
}

func (d *Database) AppendModerationLog(ctx context.Context, entry ModerationLogEntry) (int64, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO moderation_logs (action, user_id, moderator_id, reason, timestamp) VALUES (?, ?, ?, ?, ?)`,
		entry.Action, entry.UserID, entry.ModeratorID, entry.Reason, toMillis(entry.Timestamp),
	)
	if err != nil {
		return 0, storageErr(err, "append moderation log")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr(err, "append moderation log")
	}
	return id, nil
}

// ModerationHistory lists the most recent entries for userID, newest first.
func (d *Database) ModerationHistory(ctx context.Context, userID string, limit int) ([]ModerationLogEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, action, user_id, moderator_id, reason, timestamp FROM moderation_logs
		 WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, storageErr(err, "load moderation history of %s", userID)
	}
	defer rows.Close()

	var out []ModerationLogEntry
	for rows.Next() {
		var (
			e  ModerationLogEntry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.UserID, &e.ModeratorID, &e.Reason, &ts); err != nil {
			return nil, storageErr(err, "scan moderation log")
		}
		e.Timestamp = fromMillis(ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "load moderation history of %s", userID)
	}
	return out, nil
}
