package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChannelRepository handles the set of channels users must join before
// the bot serves them. Insertion order is preserved for display.
type ChannelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository creates a new ChannelRepository instance.
func NewChannelRepository(pool *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{pool: pool}
}

// Add inserts a channel handle. Returns false if it was already present.
func (r *ChannelRepository) Add(ctx context.Context, handle string) (bool, error) {
	const query = `
		INSERT INTO channels (handle)
		VALUES ($1)
		ON CONFLICT (handle) DO NOTHING
	`

	res, err := r.pool.Exec(ctx, query, handle)
	if err != nil {
		return false, fmt.Errorf("failed to add channel: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

// Remove deletes a channel handle. Returns false if it was absent.
func (r *ChannelRepository) Remove(ctx context.Context, handle string) (bool, error) {
	const query = `DELETE FROM channels WHERE handle = $1`

	res, err := r.pool.Exec(ctx, query, handle)
	if err != nil {
		return false, fmt.Errorf("failed to remove channel: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

// List returns all channel handles in insertion order.
func (r *ChannelRepository) List(ctx context.Context) ([]string, error) {
	const query = `SELECT handle FROM channels ORDER BY position`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var handle string
		if err := rows.Scan(&handle); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		handles = append(handles, handle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channels: %w", err)
	}

	return handles, nil
}
