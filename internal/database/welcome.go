package database

import "context"

func (d *Database) UpsertWelcomeChannel(ctx context.Context, wc WelcomeChannel) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO welcome_channels (channel_type, channel_id, channel_name, description) VALUES (?, ?, ?, ?)`,
		wc.ChannelType, wc.ChannelID, wc.ChannelName, wc.Description,
	)
	if err != nil {
		return storageErr(err, "upsert welcome channel %s", wc.ChannelType)
	}
	return nil
}

func (d *Database) DeleteWelcomeChannel(ctx context.Context, channelType string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM welcome_channels WHERE channel_type = ?`, channelType); err != nil {
		return storageErr(err, "delete welcome channel %s", channelType)
	}
	return nil
}

func (d *Database) ListWelcomeChannels(ctx context.Context) ([]WelcomeChannel, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT channel_type, channel_id, channel_name, description FROM welcome_channels ORDER BY channel_type`)
	if err != nil {
		return nil, storageErr(err, "list welcome channels")
	}
	defer rows.Close()

	var out []WelcomeChannel
	for rows.Next() {
		var wc WelcomeChannel
		if err := rows.Scan(&wc.ChannelType, &wc.ChannelID, &wc.ChannelName, &wc.Description); err != nil {
			return nil, storageErr(err, "scan welcome channel")
		}
		out = append(out, wc)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list welcome channels")
	}
	return out, nil
}
