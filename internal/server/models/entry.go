package models

import (
	"database/sql"
	"time"
)

// Entry is one day's diary record. The publish audit block (Published and
// the four nullable fields after it) is written exactly once, by the
// publish engine, and never changes afterwards.
type Entry struct {
	ID        string
	UserID    string
	EntryDate time.Time

	Notes                  string
	FinalText              string
	SelectedCandidateIndex sql.NullInt32
	GeneratedAt            sql.NullTime

	Published     bool
	PublishedAt   sql.NullTime
	FilePath      sql.NullString
	CommitRef     sql.NullString
	RepositoryURL sql.NullString

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublishFileName computes the deterministic file name for the entry's
// date, e.g. "250314_til.md".
func (e *Entry) PublishFileName() string {
	return e.EntryDate.Format("060102") + "_til.md"
}

// NeedsRegeneration reports whether notes or final text changed after the
// last candidate batch was generated.
func (e *Entry) NeedsRegeneration() bool {
	if !e.GeneratedAt.Valid {
		return true
	}
	return e.UpdatedAt.After(e.GeneratedAt.Time)
}
