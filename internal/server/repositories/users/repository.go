package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/tilgarden/tilgarden/internal/server/models"
)

// Repository is the storage contract for accounts. All quota mutations are
// guarded single-statement updates: the boolean result reports whether the
// guard held (and the row changed), never an error.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// ConsumeQuota decrements the seed counter iff it is positive.
	ConsumeQuota(ctx context.Context, userID string) (bool, error)

	// ReplenishWatering and ReplenishShare each add one seed iff the
	// counter and timestamp still match the values the caller read and
	// the counter is below max. The matching timestamp column is set to
	// now on success.
	ReplenishWatering(ctx context.Context, userID string, prevCount int, prevAt sql.NullTime, now time.Time, max int) (bool, error)
	ReplenishShare(ctx context.Context, userID string, prevCount int, prevAt sql.NullTime, now time.Time, max int) (bool, error)

	SetHostingToken(ctx context.Context, userID string, ciphertext, nonce, salt []byte) error
	ClearHostingToken(ctx context.Context, userID string) error
}
