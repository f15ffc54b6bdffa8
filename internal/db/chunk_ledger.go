package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/newsbrief/internal/vectorstore"
)

// -----------------------------------------------------------------------------
// Chunk Ledger
// -----------------------------------------------------------------------------

// ChunkLedger implements vectorstore.Ledger on the vector_chunks table.
type ChunkLedger struct {
	db *DB
}

var _ vectorstore.Ledger = (*ChunkLedger)(nil)

// NewChunkLedger returns a ledger backed by db
func NewChunkLedger(db *DB) *ChunkLedger {
	return &ChunkLedger{db: db}
}

// Record stores ledger entries, ignoring chunk ids that are already present
func (l *ChunkLedger) Record(ctx context.Context, entries []vectorstore.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO vector_chunks (chunk_id, user_id, link, indexed_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (chunk_id) DO NOTHING`,
			e.ChunkID, e.UserID, e.Link, e.IndexedAt,
		)
	}

	if err := l.db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to record chunks: %w", err)
	}
	return nil
}

// Expired returns entries indexed before cutoff, oldest first
func (l *ChunkLedger) Expired(ctx context.Context, cutoff time.Time) ([]vectorstore.LedgerEntry, error) {
	rows, err := l.db.pool.Query(ctx,
		`SELECT user_id, chunk_id, link, indexed_at
		 FROM vector_chunks
		 WHERE indexed_at < $1
		 ORDER BY indexed_at, chunk_id`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired chunks: %w", err)
	}
	return scanEntries(rows)
}

// Overflow returns a user's entries beyond the newest keep, oldest first
func (l *ChunkLedger) Overflow(ctx context.Context, userID int64, keep int) ([]vectorstore.LedgerEntry, error) {
	rows, err := l.db.pool.Query(ctx,
		`SELECT user_id, chunk_id, link, indexed_at
		 FROM (
		     SELECT user_id, chunk_id, link, indexed_at,
		            ROW_NUMBER() OVER (ORDER BY indexed_at DESC, chunk_id DESC) AS rn
		     FROM vector_chunks
		     WHERE user_id = $1
		 ) ranked
		 WHERE rn > $2
		 ORDER BY indexed_at, chunk_id`,
		userID, keep,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list overflow chunks: %w", err)
	}
	return scanEntries(rows)
}

// Remove deletes entries by chunk id
func (l *ChunkLedger) Remove(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	_, err := l.db.pool.Exec(ctx, `DELETE FROM vector_chunks WHERE chunk_id = ANY($1)`, chunkIDs)
	if err != nil {
		return fmt.Errorf("failed to remove chunks: %w", err)
	}
	return nil
}

// RemoveUser deletes every entry belonging to userID
func (l *ChunkLedger) RemoveUser(ctx context.Context, userID int64) error {
	_, err := l.db.pool.Exec(ctx, `DELETE FROM vector_chunks WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to remove user chunks: %w", err)
	}
	return nil
}

// Users returns the distinct user ids present in the ledger
func (l *ChunkLedger) Users(ctx context.Context) ([]int64, error) {
	rows, err := l.db.pool.Query(ctx, `SELECT DISTINCT user_id FROM vector_chunks ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}
	return users, nil
}

// CountByUser returns the number of ledger entries for userID
func (l *ChunkLedger) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := l.db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM vector_chunks WHERE user_id = $1`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func scanEntries(rows pgx.Rows) ([]vectorstore.LedgerEntry, error) {
	defer rows.Close()

	var entries []vectorstore.LedgerEntry
	for rows.Next() {
		var e vectorstore.LedgerEntry
		if err := rows.Scan(&e.UserID, &e.ChunkID, &e.Link, &e.IndexedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}
	return entries, nil
}
