package database

import (
	"context"
	"database/sql"
)

func (d *Database) GetReactionRole(ctx context.Context, messageID, emoji string) (*ReactionRole, error) {
	rr := ReactionRole{MessageID: messageID, Emoji: emoji}
	err := d.db.QueryRowContext(ctx,
		`SELECT role_id FROM reaction_roles WHERE message_id = ? AND emoji = ?`,
		messageID, emoji,
	).Scan(&rr.RoleID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "get reaction role %s/%s", messageID, emoji)
	}
	return &rr, nil
}

// UpsertReactionRole replaces any earlier binding for the same message and emoji.
func (d *Database) UpsertReactionRole(ctx context.Context, rr ReactionRole) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reaction_roles (message_id, emoji, role_id) VALUES (?, ?, ?)`,
		rr.MessageID, rr.Emoji, rr.RoleID,
	)
	if err != nil {
		return storageErr(err, "upsert reaction role %s/%s", rr.MessageID, rr.Emoji)
	}
	return nil
}

func (d *Database) DeleteReactionRole(ctx context.Context, messageID, emoji string) error {
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM reaction_roles WHERE message_id = ? AND emoji = ?`, messageID, emoji)
	if err != nil {
		return storageErr(err, "delete reaction role %s/%s", messageID, emoji)
	}
	return nil
}

func (d *Database) ListReactionRoles(ctx context.Context, messageID string) ([]ReactionRole, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT message_id, emoji, role_id FROM reaction_roles WHERE message_id = ? ORDER BY emoji`, messageID)
	if err != nil {
		return nil, storageErr(err, "list reaction roles of %s", messageID)
	}
	defer rows.Close()

	var out []ReactionRole
	for rows.Next() {
		var rr ReactionRole
		if err := rows.Scan(&rr.MessageID, &rr.Emoji, &rr.RoleID); err != nil {
			return nil, storageErr(err, "scan reaction role")
		}
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list reaction roles of %s", messageID)
	}
	return out, nil
}
