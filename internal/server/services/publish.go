package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tilgarden/tilgarden/internal/common"
	"github.com/tilgarden/tilgarden/internal/cryptox"
	"github.com/tilgarden/tilgarden/internal/hosting"
	"github.com/tilgarden/tilgarden/internal/logging"
	"github.com/tilgarden/tilgarden/internal/markdownx"
	sc "github.com/tilgarden/tilgarden/internal/server/config"
	"github.com/tilgarden/tilgarden/internal/server/models"
	"github.com/tilgarden/tilgarden/internal/server/repositories/repomanager"
)

// PublishEngine synchronizes a finalized entry to the user's hosting
// repository. Publishing is idempotent per entry: the published flag is a
// one-way transition and the second writer always loses.
type PublishEngine struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	provider hosting.Provider
	box      *cryptox.Box
	config   *sc.Config
	log      logging.Logger
	now      func() time.Time
}

func NewPublishEngine(db *sql.DB, rm repomanager.RepositoryManager, provider hosting.Provider, box *cryptox.Box, config *sc.Config, log logging.Logger) *PublishEngine {
	return &PublishEngine{
		db:       db,
		rm:       rm,
		provider: provider,
		box:      box,
		config:   config,
		log:      log,
		now:      time.Now,
	}
}

// AuditRecord is the persisted outcome of a successful publish.
type AuditRecord struct {
	FilePath      string
	RepositoryURL string
	CommitRef     string
	PublishedAt   time.Time
}

// Publish upserts the entry's final text into the hosting repository and
// records the audit block. Preconditions are checked in order, each with
// its own terminal failure, before any provider call.
func (p *PublishEngine) Publish(ctx context.Context, entryID string) (*AuditRecord, error) {
	entry, err := p.rm.Entries(p.db).GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	user, err := p.rm.Users(p.db).GetByID(ctx, entry.UserID)
	if err != nil {
		return nil, err
	}

	if !user.HostingConfigured() {
		return nil, fmt.Errorf("%w: hosting repository not configured", common.ErrValidation)
	}
	if entry.Published {
		return nil, common.ErrAlreadyPublished
	}

	creds, err := p.credentials(user)
	if err != nil {
		return nil, err
	}

	content, err := buildPublishContent(entry)
	if err != nil {
		return nil, err
	}

	repo := hosting.Repo{Owner: user.HostingUsername.String, Name: user.HostingRepoName.String}
	path := entry.PublishFileName()
	message := p.config.CommitMessagePrefix + entry.EntryDate.Format("2006-01-02")

	ref, err := p.upsertFile(ctx, creds, repo, path, content, message)
	if err != nil {
		return nil, p.mapHostingError(ctx, user.ID, err)
	}

	publishedAt := p.now()
	repoURL := p.provider.RepoURL(repo)
	commitRef := sql.NullString{String: ref.SHA, Valid: ref.SHA != ""}

	ok, err := p.rm.Entries(p.db).MarkPublished(ctx, entry.ID, publishedAt, path, repoURL, commitRef)
	if err != nil {
		return nil, err
	}
	if !ok {
		// a concurrent publish won the flag; the file write was redundant
		// but harmless (same content, same path)
		return nil, common.ErrAlreadyPublished
	}

	p.log.Info(ctx, "entry published", "entry_id", entry.ID, "path", path, "commit", ref.SHA)

	return &AuditRecord{
		FilePath:      path,
		RepositoryURL: repoURL,
		CommitRef:     ref.SHA,
		PublishedAt:   publishedAt,
	}, nil
}

// Preview renders the file exactly as Publish would write it, as HTML for
// the review screen. It shares the precondition on final text but touches
// neither the hosting side nor the audit block.
func (p *PublishEngine) Preview(ctx context.Context, entryID string) (string, error) {
	entry, err := p.rm.Entries(p.db).GetByID(ctx, entryID)
	if err != nil {
		return "", err
	}
	content, err := buildPublishContent(entry)
	if err != nil {
		return "", err
	}
	return markdownx.RenderHTML(string(content))
}

// EnsureRepository validates and creates the account's configured
// repository on the hosting side. Called from settings flows, not from
// Publish.
func (p *PublishEngine) EnsureRepository(ctx context.Context, userID string) (*hosting.RepoHandle, error) {
	user, err := p.rm.Users(p.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HostingRepoName.Valid || user.HostingRepoName.String == "" {
		return nil, fmt.Errorf("%w: hosting repository not configured", common.ErrValidation)
	}

	name := user.HostingRepoName.String
	if err := hosting.ValidateRepoName(name); err != nil {
		return nil, err
	}

	creds, err := p.credentials(user)
	if err != nil {
		return nil, err
	}

	handle, err := p.provider.CreateRepository(ctx, creds, name, hosting.CreateRepoOptions{AutoInit: true})
	if err != nil {
		return nil, p.mapHostingError(ctx, userID, err)
	}
	return handle, nil
}

// credentials decrypts the stored hosting token. Missing or undecryptable
// tokens both surface as a reauth requirement.
func (p *PublishEngine) credentials(user *models.User) (hosting.Credentials, error) {
	if !user.HasHostingToken() {
		return hosting.Credentials{}, common.ErrRequiresReauth
	}
	token, err := p.box.Open(user.HostingTokenCiphertext, user.HostingTokenNonce, user.HostingTokenSalt)
	if err != nil {
		return hosting.Credentials{}, common.ErrRequiresReauth
	}
	return hosting.Credentials{Username: user.HostingUsername.String, Token: token}, nil
}

// upsertFile is the read-then-act create-or-update. The race between two
// creators is accepted: the loser surfaces ErrConflict and the caller
// reruns the sequence.
func (p *PublishEngine) upsertFile(ctx context.Context, creds hosting.Credentials, repo hosting.Repo, path string, content []byte, message string) (*hosting.CommitRef, error) {
	existing, err := p.provider.GetFile(ctx, creds, repo, path, "")
	switch {
	case err == nil:
		return p.provider.UpdateFile(ctx, creds, repo, path, content, message, existing.VersionToken)
	case errors.Is(err, common.ErrNotFoundUpstream):
		return p.provider.CreateFile(ctx, creds, repo, path, content, message)
	default:
		return nil, err
	}
}

// mapHostingError applies the propagation policy: a rejected token is
// cleared and reported as a reauth requirement, and unexpected errors are
// logged with full context but surfaced generically.
func (p *PublishEngine) mapHostingError(ctx context.Context, userID string, err error) error {
	if errors.Is(err, common.ErrUnauthorized) {
		if clearErr := p.rm.Users(p.db).ClearHostingToken(ctx, userID); clearErr != nil {
			p.log.Error(ctx, "failed to clear rejected hosting token", "user_id", userID, "error", clearErr)
		} else {
			p.log.Warn(ctx, "hosting token rejected and cleared", "user_id", userID)
		}
		return common.ErrRequiresReauth
	}
	if errors.Is(err, common.ErrInternal) {
		p.log.Error(ctx, "unexpected hosting failure", "user_id", userID, "error", err)
	}
	return err
}

// buildPublishContent renders the file body. A final text that does not
// open with a heading gets one derived from the entry date.
func buildPublishContent(entry *models.Entry) ([]byte, error) {
	text := strings.TrimSpace(entry.FinalText)
	if text == "" {
		return nil, fmt.Errorf("%w: entry has no final text", common.ErrValidation)
	}
	if !strings.HasPrefix(text, "#") {
		text = "# TIL: " + entry.EntryDate.Format("2006-01-02") + "\n\n" + text
	}
	return []byte(text + "\n"), nil
}
