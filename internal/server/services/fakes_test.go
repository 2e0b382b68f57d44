package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/tilgarden/tilgarden/internal/common"
	"github.com/tilgarden/tilgarden/internal/dbx"
	"github.com/tilgarden/tilgarden/internal/hosting"
	"github.com/tilgarden/tilgarden/internal/logging"
	"github.com/tilgarden/tilgarden/internal/server/models"
	"github.com/tilgarden/tilgarden/internal/server/repositories/candidates"
	"github.com/tilgarden/tilgarden/internal/server/repositories/entries"
	"github.com/tilgarden/tilgarden/internal/server/repositories/users"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) With(...any) logging.Logger            { return nopLogger{} }

// fakeUsersRepo holds a single account in memory and mirrors the guard
// semantics of the postgres implementation.
type fakeUsersRepo struct {
	user *models.User

	getErr   error
	clearErr error

	// consumeFail forces ConsumeQuota to report a lost guard regardless
	// of the balance, simulating a concurrent debit.
	consumeFail bool

	consumeCalls int
	clearCalls   int
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.user = u
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.user == nil || f.user.ID != id {
		return nil, common.ErrNotFound
	}
	u := *f.user
	return &u, nil
}

func (f *fakeUsersRepo) ConsumeQuota(ctx context.Context, userID string) (bool, error) {
	f.consumeCalls++
	if f.consumeFail {
		return false, nil
	}
	if f.user == nil || f.user.QuotaCount <= 0 {
		return false, nil
	}
	f.user.QuotaCount--
	return true, nil
}

func (f *fakeUsersRepo) ReplenishWatering(ctx context.Context, userID string, prevCount int, prevAt sql.NullTime, now time.Time, max int) (bool, error) {
	if !f.casHolds(prevCount, prevAt, f.user.LastWateringAt, max) {
		return false, nil
	}
	f.user.QuotaCount++
	f.user.LastWateringAt = sql.NullTime{Time: now, Valid: true}
	return true, nil
}

func (f *fakeUsersRepo) ReplenishShare(ctx context.Context, userID string, prevCount int, prevAt sql.NullTime, now time.Time, max int) (bool, error) {
	if !f.casHolds(prevCount, prevAt, f.user.LastShareAt, max) {
		return false, nil
	}
	f.user.QuotaCount++
	f.user.LastShareAt = sql.NullTime{Time: now, Valid: true}
	return true, nil
}

func (f *fakeUsersRepo) casHolds(prevCount int, prevAt, current sql.NullTime, max int) bool {
	if f.user.QuotaCount != prevCount || f.user.QuotaCount >= max {
		return false
	}
	if prevAt.Valid != current.Valid {
		return false
	}
	if prevAt.Valid && !prevAt.Time.Equal(current.Time) {
		return false
	}
	return true
}

func (f *fakeUsersRepo) SetHostingToken(ctx context.Context, userID string, ciphertext, nonce, salt []byte) error {
	f.user.HostingTokenCiphertext = ciphertext
	f.user.HostingTokenNonce = nonce
	f.user.HostingTokenSalt = salt
	return nil
}

func (f *fakeUsersRepo) ClearHostingToken(ctx context.Context, userID string) error {
	f.clearCalls++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.user.HostingTokenCiphertext = nil
	f.user.HostingTokenNonce = nil
	f.user.HostingTokenSalt = nil
	return nil
}

type fakeEntriesRepo struct {
	entry *models.Entry

	getErr error

	// publishLost forces MarkPublished to report a lost guard, simulating
	// a concurrent publish that won the flag.
	publishLost bool

	markGeneratedCalls int
	markPublishedCalls int

	selectionIndex int
	selectionText  string
}

func (f *fakeEntriesRepo) Create(ctx context.Context, e *models.Entry) (*models.Entry, error) {
	f.entry = e
	return e, nil
}

func (f *fakeEntriesRepo) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.entry == nil || f.entry.ID != id {
		return nil, common.ErrNotFound
	}
	e := *f.entry
	return &e, nil
}

func (f *fakeEntriesRepo) MarkGenerated(ctx context.Context, entryID string, at time.Time) error {
	f.markGeneratedCalls++
	f.entry.GeneratedAt = sql.NullTime{Time: at, Valid: true}
	f.entry.SelectedCandidateIndex = sql.NullInt32{}
	return nil
}

func (f *fakeEntriesRepo) SetSelection(ctx context.Context, entryID string, index int, finalText string) error {
	f.selectionIndex = index
	f.selectionText = finalText
	f.entry.SelectedCandidateIndex = sql.NullInt32{Int32: int32(index), Valid: true}
	f.entry.FinalText = finalText
	return nil
}

func (f *fakeEntriesRepo) MarkPublished(ctx context.Context, entryID string, at time.Time, filePath, repoURL string, commitRef sql.NullString) (bool, error) {
	f.markPublishedCalls++
	if f.publishLost || f.entry.Published {
		return false, nil
	}
	f.entry.Published = true
	f.entry.PublishedAt = sql.NullTime{Time: at, Valid: true}
	f.entry.FilePath = sql.NullString{String: filePath, Valid: true}
	f.entry.RepositoryURL = sql.NullString{String: repoURL, Valid: true}
	f.entry.CommitRef = commitRef
	return true, nil
}

type fakeCandidatesRepo struct {
	batch []*models.Candidate

	replaceCalls int
}

func (f *fakeCandidatesRepo) ReplaceBatch(ctx context.Context, entryID string, bodies []string) ([]*models.Candidate, error) {
	f.replaceCalls++
	f.batch = make([]*models.Candidate, 0, len(bodies))
	for i, body := range bodies {
		f.batch = append(f.batch, &models.Candidate{EntryID: entryID, Index: i, Body: body})
	}
	return f.batch, nil
}

func (f *fakeCandidatesRepo) ListByEntry(ctx context.Context, entryID string) ([]*models.Candidate, error) {
	return f.batch, nil
}

func (f *fakeCandidatesRepo) DeleteByEntry(ctx context.Context, entryID string) error {
	f.batch = nil
	return nil
}

// fakeRepoManager vends the in-memory fakes regardless of the DBTX, so
// service tests exercise the orchestration logic without SQL.
type fakeRepoManager struct {
	users      *fakeUsersRepo
	entries    *fakeEntriesRepo
	candidates *fakeCandidatesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:      &fakeUsersRepo{},
		entries:    &fakeEntriesRepo{},
		candidates: &fakeCandidatesRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                  { return m.users }
func (m *fakeRepoManager) Entries(db dbx.DBTX) entries.Repository              { return m.entries }
func (m *fakeRepoManager) Candidates(db dbx.DBTX) candidates.Repository        { return m.candidates }

// fakeHosting scripts per-call results for the publish engine tests.
type fakeHosting struct {
	getFile *hosting.File
	getErr  error

	createRef *hosting.CommitRef
	createErr error

	updateRef *hosting.CommitRef
	updateErr error

	repoHandle *hosting.RepoHandle
	repoErr    error

	getCalls    int
	createCalls int
	updateCalls int

	lastPath    string
	lastContent []byte
	lastMessage string
	lastToken   string
}

func (f *fakeHosting) GetFile(ctx context.Context, creds hosting.Credentials, repo hosting.Repo, path, ref string) (*hosting.File, error) {
	f.getCalls++
	f.lastPath = path
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getFile, nil
}

func (f *fakeHosting) CreateFile(ctx context.Context, creds hosting.Credentials, repo hosting.Repo, path string, content []byte, message string) (*hosting.CommitRef, error) {
	f.createCalls++
	f.lastPath = path
	f.lastContent = content
	f.lastMessage = message
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createRef, nil
}

func (f *fakeHosting) UpdateFile(ctx context.Context, creds hosting.Credentials, repo hosting.Repo, path string, content []byte, message, versionToken string) (*hosting.CommitRef, error) {
	f.updateCalls++
	f.lastPath = path
	f.lastContent = content
	f.lastMessage = message
	f.lastToken = versionToken
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateRef, nil
}

func (f *fakeHosting) CreateRepository(ctx context.Context, creds hosting.Credentials, name string, opts hosting.CreateRepoOptions) (*hosting.RepoHandle, error) {
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	return f.repoHandle, nil
}

func (f *fakeHosting) RepoURL(repo hosting.Repo) string {
	return "https://example.test/" + repo.Owner + "/" + repo.Name
}
