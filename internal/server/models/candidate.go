package models

import "time"

// Candidate is one generated alternative text for an entry. Candidates are
// created in ordered batches and replaced wholesale; they are never edited
// in place.
type Candidate struct {
	ID        string
	EntryID   string
	Index     int
	Body      string
	CreatedAt time.Time
}
