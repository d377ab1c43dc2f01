package database

import (
	"context"
	"database/sql"
)

// GetUserLevel returns nil when the user has never been seen.
func (d *Database) GetUserLevel(ctx context.Context, userID string) (*UserLevel, error) {
	var (
		ul   UserLevel
		last int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT user_id, xp, level, last_message_time FROM user_levels WHERE user_id = ?`,
		userID,
	).Scan(&ul.UserID, &ul.XP, &ul.Level, &last)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "get level of %s", userID)
	}
	ul.LastMessageTime = fromMillis(last)
	return &ul, nil
}

func (d *Database) UpsertUserLevel(ctx context.Context, ul UserLevel) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO user_levels (user_id, xp, level, last_message_time) VALUES (?, ?, ?, ?)`,
		ul.UserID, ul.XP, ul.Level, toMillis(ul.LastMessageTime),
	)
	if err != nil {
		return storageErr(err, "upsert level of %s", ul.UserID)
	}
	return nil
}

func (d *Database) DeleteUserLevel(ctx context.Context, userID string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM user_levels WHERE user_id = ?`, userID); err != nil {
		return storageErr(err, "delete level of %s", userID)
	}
	return nil
}

// Leaderboard lists users by xp, highest first.
func (d *Database) Leaderboard(ctx context.Context, limit int) ([]UserLevel, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT user_id, xp, level, last_message_time FROM user_levels ORDER BY xp DESC, user_id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, storageErr(err, "load leaderboard")
	}
	defer rows.Close()

	var out []UserLevel
	for rows.Next() {
		var (
			ul   UserLevel
			last int64
		)
		if err := rows.Scan(&ul.UserID, &ul.XP, &ul.Level, &last); err != nil {
			return nil, storageErr(err, "scan leaderboard")
		}
		ul.LastMessageTime = fromMillis(last)
		out = append(out, ul)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "load leaderboard")
	}
	return out, nil
}

// RankOf returns the 1-based leaderboard position of userID, or 0 if unranked.
func (d *Database) RankOf(ctx context.Context, userID string) (int, error) {
	var rank int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) + 1 FROM user_levels, (SELECT xp AS own FROM user_levels WHERE user_id = ?)
		 WHERE xp > own`,
		userID,
	).Scan(&rank)
	if err != nil {
		return 0, storageErr(err, "rank of %s", userID)
	}
	ul, err := d.GetUserLevel(ctx, userID)
	if err != nil || ul == nil {
		return 0, err
	}
	return rank, nil
}

func (d *Database) UpsertLevelReward(ctx context.Context, r LevelReward) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO level_rewards (level, role_id, role_name) VALUES (?, ?, ?)`,
		r.Level, r.RoleID, r.RoleName,
	)
	if err != nil {
		return storageErr(err, "upsert reward for level %d", r.Level)
	}
	return nil
}

// DeleteLevelReward reports whether a reward existed for level.
func (d *Database) DeleteLevelReward(ctx context.Context, level int) (bool, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM level_rewards WHERE level = ?`, level)
	if err != nil {
		return false, storageErr(err, "delete reward for level %d", level)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(err, "delete reward for level %d", level)
	}
	return n > 0, nil
}

func (d *Database) ListLevelRewards(ctx context.Context) ([]LevelReward, error) {
	return d.queryRewards(ctx, `SELECT level, role_id, role_name FROM level_rewards ORDER BY level ASC`)
}

// RewardsUpTo lists rewards with level <= level, highest level first.
func (d *Database) RewardsUpTo(ctx context.Context, level int) ([]LevelReward, error) {
	return d.queryRewards(ctx,
		`SELECT level, role_id, role_name FROM level_rewards WHERE level <= ? ORDER BY level DESC`, level)
}

// RewardsAbove lists rewards with level > level, lowest level first.
func (d *Database) RewardsAbove(ctx context.Context, level int) ([]LevelReward, error) {
	return d.queryRewards(ctx,
		`SELECT level, role_id, role_name FROM level_rewards WHERE level > ? ORDER BY level ASC`, level)
}

func (d *Database) queryRewards(ctx context.Context, query string, args ...interface{}) ([]LevelReward, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(err, "list level rewards")
	}
	defer rows.Close()

	var out []LevelReward
	for rows.Next() {
		var r LevelReward
		if err := rows.Scan(&r.Level, &r.RoleID, &r.RoleName); err != nil {
			return nil, storageErr(err, "scan level reward")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list level rewards")
	}
	return out, nil
}
