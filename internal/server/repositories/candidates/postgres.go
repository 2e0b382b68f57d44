// Package candidates provides PostgreSQL-backed storage for generated
// candidate batches.
package candidates

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tilgarden/tilgarden/internal/dbx"
	"github.com/tilgarden/tilgarden/internal/server/models"
)

// PostgresRepository implements candidate storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ReplaceBatch runs a delete plus ordered inserts. Callers needing the
// replace to be atomic with other writes run it inside dbx.WithTx.
func (r *PostgresRepository) ReplaceBatch(ctx context.Context, entryID string, bodies []string) ([]*models.Candidate, error) {
	if err := r.DeleteByEntry(ctx, entryID); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO candidates (id, entry_id, idx, body)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	result := make([]*models.Candidate, 0, len(bodies))
	for i, body := range bodies {
		c := &models.Candidate{
			ID:      uuid.NewString(),
			EntryID: entryID,
			Index:   i,
			Body:    body,
		}
		if err := r.db.QueryRowContext(ctx, query, c.ID, c.EntryID, c.Index, c.Body).Scan(&c.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}

	return result, nil
}

func (r *PostgresRepository) ListByEntry(ctx context.Context, entryID string) ([]*models.Candidate, error) {
	query := `
		SELECT id, entry_id, idx, body, created_at
		FROM candidates
		WHERE entry_id = $1
		ORDER BY idx
	`
	rows, err := r.db.QueryContext(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.EntryID, &c.Index, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteByEntry(ctx context.Context, entryID string) error {
	query := `DELETE FROM candidates WHERE entry_id = $1`
	if _, err := r.db.ExecContext(ctx, query, entryID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
