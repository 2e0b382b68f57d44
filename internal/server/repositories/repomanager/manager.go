package repomanager

import (
	"context"
	"database/sql"

	"github.com/tilgarden/tilgarden/internal/dbx"
	"github.com/tilgarden/tilgarden/internal/server/repositories/candidates"
	"github.com/tilgarden/tilgarden/internal/server/repositories/entries"
	"github.com/tilgarden/tilgarden/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so services can use
// the same repository code inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Entries(db dbx.DBTX) entries.Repository
	Candidates(db dbx.DBTX) candidates.Repository
}
