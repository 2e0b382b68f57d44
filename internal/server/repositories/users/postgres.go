// Package users provides the PostgreSQL-backed account repository,
// including the guarded quota updates the seed ledger relies on.
package users

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

// PostgresRepository implements account storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, username, timezone, quota_count)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Timezone, user.QuotaCount).Scan(&user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, username, timezone, quota_count, last_watering_at, last_share_at,
		       hosting_username, hosting_repo_name,
		       hosting_token_ciphertext, hosting_token_nonce, hosting_token_salt,
		       created_at
		FROM users
		WHERE id = $1
	`
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Timezone, &user.QuotaCount,
		&user.LastWateringAt, &user.LastShareAt,
		&user.HostingUsername, &user.HostingRepoName,
		&user.HostingTokenCiphertext, &user.HostingTokenNonce, &user.HostingTokenSalt,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// ConsumeQuota is the single atomic debit path: the WHERE guard makes two
// concurrent consumes on a counter of 1 impossible to both succeed.
func (r *PostgresRepository) ConsumeQuota(ctx context.Context, userID string) (bool, error) {
	query := `
		UPDATE users SET quota_count = quota_count - 1
		WHERE id = $1 AND quota_count > 0
	`
	return dbx.ExecAffected(ctx, r.db, query, userID)
}

func (r *PostgresRepository) ReplenishWatering(ctx context.Context, userID string, prevCount int, prevAt sql.NullTime, now time.Time, max int) (bool, error) {
	query := `
		UPDATE users SET quota_count = quota_count + 1, last_watering_at = $2
		WHERE id = $1 AND quota_count = $3 AND last_watering_at IS NOT DISTINCT FROM $4 AND quota_count < $5
	`
	return dbx.ExecAffected(ctx, r.db, query, userID, now, prevCount, prevAt, max)
}

func (r *PostgresRepository) ReplenishShare(ctx context.Context, userID string, prevCount int, prevAt sql.NullTime, now time.Time, max int) (bool, error) {
	query := `
		UPDATE users SET quota_count = quota_count + 1, last_share_at = $2
		WHERE id = $1 AND quota_count = $3 AND last_share_at IS NOT DISTINCT FROM $4 AND quota_count < $5
	`
	return dbx.ExecAffected(ctx, r.db, query, userID, now, prevCount, prevAt, max)
}

func (r *PostgresRepository) SetHostingToken(ctx context.Context, userID string, ciphertext, nonce, salt []byte) error {
	query := `
		UPDATE users
		SET hosting_token_ciphertext = $2, hosting_token_nonce = $3, hosting_token_salt = $4
		WHERE id = $1
	`
	ok, err := dbx.ExecAffected(ctx, r.db, query, userID, ciphertext, nonce, salt)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ClearHostingToken(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET hosting_token_ciphertext = NULL, hosting_token_nonce = NULL, hosting_token_salt = NULL
		WHERE id = $1
	`
	ok, err := dbx.ExecAffected(ctx, r.db, query, userID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrNotFound
	}
	return nil
}
