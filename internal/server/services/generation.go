package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tilgarden/tilgarden/internal/common"
	"github.com/tilgarden/tilgarden/internal/dbx"
	"github.com/tilgarden/tilgarden/internal/genai"
	"github.com/tilgarden/tilgarden/internal/logging"
	"github.com/tilgarden/tilgarden/internal/sanitize"
	sc "github.com/tilgarden/tilgarden/internal/server/config"
	"github.com/tilgarden/tilgarden/internal/server/models"
	"github.com/tilgarden/tilgarden/internal/server/repositories/repomanager"
)

// GenerationOrchestrator turns an entry's notes into a batch of sanitized
// TIL candidates. Candidate persistence and the seed debit commit in one
// transaction: a crash between them is never observable.
type GenerationOrchestrator struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	provider genai.Provider
	filter   *sanitize.Filter
	config   *sc.Config
	log      logging.Logger
	now      func() time.Time
}

func NewGenerationOrchestrator(db *sql.DB, rm repomanager.RepositoryManager, provider genai.Provider, filter *sanitize.Filter, config *sc.Config, log logging.Logger) *GenerationOrchestrator {
	return &GenerationOrchestrator{
		db:       db,
		rm:       rm,
		provider: provider,
		filter:   filter,
		config:   config,
		log:      log,
		now:      time.Now,
	}
}

// GenerateCandidates produces the configured number of candidates for an
// entry. Blank notes are a no-op, not an error. The provider is never
// called without quota, and quota is never debited unless the full batch
// persists.
func (o *GenerationOrchestrator) GenerateCandidates(ctx context.Context, entryID string) ([]*models.Candidate, error) {
	entry, err := o.rm.Entries(o.db).GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(entry.Notes) == "" {
		return nil, nil
	}

	user, err := o.rm.Users(o.db).GetByID(ctx, entry.UserID)
	if err != nil {
		return nil, err
	}
	if user.QuotaCount <= 0 {
		return nil, common.ErrInsufficientQuota
	}

	bodies, err := o.generateBatch(ctx, entry)
	if err != nil {
		return nil, err
	}

	var result []*models.Candidate
	err = dbx.WithTx(ctx, o.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		result, err = o.rm.Candidates(tx).ReplaceBatch(ctx, entry.ID, bodies)
		if err != nil {
			return err
		}
		if err := o.rm.Entries(tx).MarkGenerated(ctx, entry.ID, o.now()); err != nil {
			return err
		}
		ok, err := o.rm.Users(tx).ConsumeQuota(ctx, entry.UserID)
		if err != nil {
			return err
		}
		if !ok {
			// a concurrent batch spent the last seed; roll everything back
			return common.ErrInsufficientQuota
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.log.Info(ctx, "candidates generated", "entry_id", entry.ID, "count", len(result))
	return result, nil
}

// Regenerate replaces the entry's existing batch. It is only valid when
// notes or final text changed since the last generation.
func (o *GenerationOrchestrator) Regenerate(ctx context.Context, entryID string) ([]*models.Candidate, error) {
	entry, err := o.rm.Entries(o.db).GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if !entry.NeedsRegeneration() {
		return nil, fmt.Errorf("%w: entry unchanged since last generation", common.ErrValidation)
	}
	return o.GenerateCandidates(ctx, entryID)
}

// SelectCandidate records the user's choice and copies its text into the
// entry's final text.
func (o *GenerationOrchestrator) SelectCandidate(ctx context.Context, entryID string, index int) error {
	batch, err := o.rm.Candidates(o.db).ListByEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(batch) {
		return fmt.Errorf("%w: candidate index %d out of range", common.ErrValidation, index)
	}
	return o.rm.Entries(o.db).SetSelection(ctx, entryID, index, batch[index].Body)
}

// generateBatch runs the provider calls and the security filter. Any
// failure discards the whole batch.
func (o *GenerationOrchestrator) generateBatch(ctx context.Context, entry *models.Entry) ([]string, error) {
	n := o.config.CandidateCount
	bodies := make([]string, 0, n)

	for i := 0; i < n; i++ {
		raw, err := o.complete(ctx, entry)
		if err != nil {
			o.log.Warn(ctx, "generation call failed", "entry_id", entry.ID, "call", i, "error", err)
			return nil, fmt.Errorf("%w: %v", common.ErrProviderUnavailable, err)
		}

		res, err := o.filter.Sanitize(ctx, raw)
		if err != nil {
			// discard the batch; the offending text is not returned or persisted
			o.log.Warn(ctx, "candidate rejected by security filter", "entry_id", entry.ID, "candidate", i, "error", err)
			return nil, err
		}
		bodies = append(bodies, res.Text)
	}

	return bodies, nil
}

func (o *GenerationOrchestrator) complete(ctx context.Context, entry *models.Entry) (string, error) {
	callCtx := ctx
	if o.config.GenTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.config.GenTimeout)
		defer cancel()
	}
	req := genai.BuildTILRequest(entry.EntryDate, entry.Notes, o.config.GenTemperature, o.config.GenMaxTokens)
	return o.provider.Complete(callCtx, req)
}
