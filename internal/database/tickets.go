package database

import (
	"context"
	"database/sql"
)

func (d *Database) GetTicket(ctx context.Context, channelID string) (*Ticket, error) {
	return d.scanTicket(d.db.QueryRowContext(ctx,
		`SELECT channel_id, user_id, created_at FROM tickets WHERE channel_id = ?`, channelID), channelID)
}

// TicketByOwner returns the open ticket of ownerID, or nil.
func (d *Database) TicketByOwner(ctx context.Context, ownerID string) (*Ticket, error) {
	return d.scanTicket(d.db.QueryRowContext(ctx,
		`SELECT channel_id, user_id, created_at FROM tickets WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`, ownerID), ownerID)
}

func (d *Database) scanTicket(row *sql.Row, key string) (*Ticket, error) {
	var (
		t       Ticket
		created int64
	)
	err := row.Scan(&t.ChannelID, &t.OwnerID, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "get ticket %s", key)
	}
	t.CreatedAt = fromMillis(created)
	return &t, nil
}

func (d *Database) UpsertTicket(ctx context.Context, t Ticket) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tickets (channel_id, user_id, created_at) VALUES (?, ?, ?)`,
		t.ChannelID, t.OwnerID, toMillis(t.CreatedAt),
	)
	if err != nil {
		return storageErr(err, "upsert ticket %s", t.ChannelID)
	}
	return nil
}

func (d *Database) DeleteTicket(ctx context.Context, channelID string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM tickets WHERE channel_id = ?`, channelID); err != nil {
		return storageErr(err, "delete ticket %s", channelID)
	}
	return nil
}

func (d *Database) ListTickets(ctx context.Context) ([]Ticket, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT channel_id, user_id, created_at FROM tickets ORDER BY created_at`)
	if err != nil {
		return nil, storageErr(err, "list tickets")
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		var (
			t       Ticket
			created int64
		)
		if err := rows.Scan(&t.ChannelID, &t.OwnerID, &created); err != nil {
			return nil, storageErr(err, "scan ticket")
		}
		t.CreatedAt = fromMillis(created)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list tickets")
	}
	return out, nil
}
