package database

import (
	"context"
	"database/sql"
)

// GetVoicePreference returns nil when the user never customised a channel.
func (d *Database) GetVoicePreference(ctx context.Context, userID string) (*VoicePreference, error) {
	var (
		p      VoicePreference
		locked int
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT user_id, channel_name, user_limit, is_locked FROM voice_settings WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.ChannelName, &p.UserLimit, &locked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "get voice preference of %s", userID)
	}
	p.Locked = locked != 0
	return &p, nil
}

func (d *Database) UpsertVoicePreference(ctx context.Context, p VoicePreference) error {
	locked := 0
	if p.Locked {
		locked = 1
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO voice_settings (user_id, channel_name, user_limit, is_locked) VALUES (?, ?, ?, ?)`,
		p.UserID, p.ChannelName, p.UserLimit, locked,
	)
	if err != nil {
		return storageErr(err, "upsert voice preference of %s", p.UserID)
	}
	return nil
}

func (d *Database) DeleteVoicePreference(ctx context.Context, userID string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM voice_settings WHERE user_id = ?`, userID); err != nil {
		return storageErr(err, "delete voice preference of %s", userID)
	}
	return nil
}
