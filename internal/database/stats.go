package database

import (
	"context"
	"database/sql"
)

func (d *Database) GetMessageStat(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, `SELECT count FROM message_stats WHERE user_id = ?`, userID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr(err, "get message stats of %s", userID)
	}
	return count, nil
}

// AddMessageCount adds delta to the stored message count of userID.
func (d *Database) AddMessageCount(ctx context.Context, userID string, delta int64) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO message_stats (user_id, count) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET count = count + excluded.count`,
		userID, delta,
	)
	if err != nil {
		return storageErr(err, "add message stats of %s", userID)
	}
	return nil
}

func (d *Database) TopMessageStats(ctx context.Context, limit int) ([]MessageStat, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT user_id, count FROM message_stats ORDER BY count DESC, user_id LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr(err, "list message stats")
	}
	defer rows.Close()

	var out []MessageStat
	for rows.Next() {
		var s MessageStat
		if err := rows.Scan(&s.UserID, &s.Count); err != nil {
			return nil, storageErr(err, "scan message stat")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list message stats")
	}
	return out, nil
}
