package candidates

import (
	"context"

	"github.com/tilgarden/tilgarden/internal/server/models"
)

// Repository is the storage contract for candidate batches. Batches are
// replaced wholesale; individual candidates are never updated.
type Repository interface {
	// ReplaceBatch deletes any existing batch for the entry and inserts
	// the given bodies in order.
	ReplaceBatch(ctx context.Context, entryID string, bodies []string) ([]*models.Candidate, error)

	ListByEntry(ctx context.Context, entryID string) ([]*models.Candidate, error)

	DeleteByEntry(ctx context.Context, entryID string) error
}
