// Package models defines the persisted entities of the TIL pipeline.
package models

import (
	"database/sql"
	"time"
)

// DefaultMaxQuota is the seed cap a fresh account starts at.
const DefaultMaxQuota = 5

// User is the account view the pipeline needs: the seed ledger, the two
// replenish timestamps, and the hosting identity. Quota fields are mutated
// only through the users repository's guarded updates.
type User struct {
	ID       string
	Username string
	Timezone string

	QuotaCount     int
	LastWateringAt sql.NullTime
	LastShareAt    sql.NullTime

	HostingUsername sql.NullString
	HostingRepoName sql.NullString

	// Encrypted hosting access token; all three are set or cleared together.
	HostingTokenCiphertext []byte
	HostingTokenNonce      []byte
	HostingTokenSalt       []byte

	CreatedAt time.Time
}

// Location resolves the account's IANA time zone, falling back to UTC when
// the stored name does not load.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HostingConfigured reports whether a target repository is set up.
func (u *User) HostingConfigured() bool {
	return u.HostingUsername.Valid && u.HostingUsername.String != "" &&
		u.HostingRepoName.Valid && u.HostingRepoName.String != ""
}

// HasHostingToken reports whether an encrypted token is stored.
func (u *User) HasHostingToken() bool {
	return len(u.HostingTokenCiphertext) > 0
}
