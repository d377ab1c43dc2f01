package database

import (
	"context"
	"database/sql"
)

// Setting returns the stored value and whether the key is present.
func (d *Database) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr(err, "get setting %s", key)
	}
	return value, true, nil
}

func (d *Database) SetSetting(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return storageErr(err, "set setting %s", key)
	}
	return nil
}

func (d *Database) DeleteSetting(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return storageErr(err, "delete setting %s", key)
	}
	return nil
}

func (d *Database) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, storageErr(err, "list settings")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, storageErr(err, "scan setting")
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list settings")
	}
	return out, nil
}
