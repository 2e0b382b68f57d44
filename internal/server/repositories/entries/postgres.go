// Package entries provides the PostgreSQL-backed entry repository,
// including the one-shot publish-audit transition.
package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tilgarden/tilgarden/internal/common"
	"github.com/tilgarden/tilgarden/internal/dbx"
	"github.com/tilgarden/tilgarden/internal/server/models"
)

// PostgresRepository implements entry storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	query := `
		INSERT INTO entries (id, user_id, entry_date, notes, final_text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.ID, entry.UserID, entry.EntryDate, entry.Notes, entry.FinalText).
		Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	query := `
		SELECT id, user_id, entry_date, notes, final_text,
		       selected_candidate_index, generated_at,
		       published, published_at, file_path, commit_ref, repository_url,
		       created_at, updated_at
		FROM entries
		WHERE id = $1
	`
	entry := &models.Entry{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID, &entry.UserID, &entry.EntryDate, &entry.Notes, &entry.FinalText,
		&entry.SelectedCandidateIndex, &entry.GeneratedAt,
		&entry.Published, &entry.PublishedAt, &entry.FilePath, &entry.CommitRef, &entry.RepositoryURL,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

func (r *PostgresRepository) MarkGenerated(ctx context.Context, entryID string, at time.Time) error {
	query := `
		UPDATE entries
		SET generated_at = $2, selected_candidate_index = NULL
		WHERE id = $1
	`
	ok, err := dbx.ExecAffected(ctx, r.db, query, entryID, at)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetSelection(ctx context.Context, entryID string, index int, finalText string) error {
	query := `
		UPDATE entries
		SET selected_candidate_index = $2, final_text = $3, updated_at = now()
		WHERE id = $1
	`
	ok, err := dbx.ExecAffected(ctx, r.db, query, entryID, index, finalText)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrNotFound
	}
	return nil
}

// MarkPublished is the only writer of the audit block. The published guard
// doubles as the mutual-exclusion token for concurrent publish attempts.
func (r *PostgresRepository) MarkPublished(ctx context.Context, entryID string, at time.Time, filePath, repoURL string, commitRef sql.NullString) (bool, error) {
	query := `
		UPDATE entries
		SET published = TRUE, published_at = $2, file_path = $3, repository_url = $4, commit_ref = $5
		WHERE id = $1 AND published = FALSE
	`
	return dbx.ExecAffected(ctx, r.db, query, entryID, at, filePath, repoURL, commitRef)
}
