package entries

import (
	"context"
	"database/sql"
	"time"

	"github.com/tilgarden/tilgarden/internal/server/models"
)

// Repository is the storage contract for diary entries. The audit columns
// are written only through MarkPublished, whose guard makes the publish
// transition one-shot.
type Repository interface {
	Create(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	GetByID(ctx context.Context, id string) (*models.Entry, error)

	// MarkGenerated stamps a fresh candidate batch and clears any prior
	// selection.
	MarkGenerated(ctx context.Context, entryID string, at time.Time) error

	// SetSelection records the chosen candidate and copies its text into
	// final_text.
	SetSelection(ctx context.Context, entryID string, index int, finalText string) error

	// MarkPublished writes the whole audit block iff the entry is still
	// unpublished; false means a concurrent publish won.
	MarkPublished(ctx context.Context, entryID string, at time.Time, filePath, repoURL string, commitRef sql.NullString) (bool, error)
}
