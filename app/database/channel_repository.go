package database

import (
	"context"
	"fmt"
)

var _ ChannelRepository = (*ChannelRepo)(nil)

// ChannelRepo handles database operations for channels
type ChannelRepo struct {
	db *DB
}

func NewChannelRepo(db *DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// Upsert creates or replaces a channel by gid. Channels are read-mostly
// reference data, the latest remote copy always wins.
func (r *ChannelRepo) Upsert(ctx context.Context, channel Channel) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO channels (gid, title, container_id)
		VALUES (?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			title = excluded.title,
			container_id = excluded.container_id,
			updated_at = CURRENT_TIMESTAMP
	`, channel.GID, channel.Title, channel.ContainerID)
	if err != nil {
		return fmt.Errorf("failed to upsert channel %s: %w", channel.GID, err)
	}

	return nil
}

func (r *ChannelRepo) GetChannels(ctx context.Context) ([]Channel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT gid, title, container_id, updated_at FROM channels ORDER BY gid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels: %w", err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var channel Channel
		if err := rows.Scan(&channel.GID, &channel.Title, &channel.ContainerID, &channel.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, channel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel rows: %w", err)
	}

	return channels, nil
}

func (r *ChannelRepo) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM channels").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get channel count: %w", err)
	}
	return count, nil
}
