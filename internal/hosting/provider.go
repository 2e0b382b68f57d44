// Package hosting abstracts the external source-control hosting service the
// pipeline publishes to. Implementations map provider failures onto the
// sentinel errors in internal/common; no raw provider error crosses this
// boundary.
package hosting

import "context"

// Credentials identify the account on the hosting side. The token is the
// decrypted per-user access token.
type Credentials struct {
	Username string
	Token    string
}

// Repo addresses one repository.
type Repo struct {
	Owner string
	Name  string
}

// File is the current state of a hosted file. VersionToken is the
// optimistic-concurrency token required to update it (content SHA on
// GitHub, ETag on S3).
type File struct {
	Content      []byte
	VersionToken string
}

// CommitRef identifies the write the provider recorded.
type CommitRef struct {
	SHA string
	URL string
}

// RepoHandle is the result of creating a repository.
type RepoHandle struct {
	Name string
	URL  string
}

// CreateRepoOptions mirrors the small subset of creation options the
// product exposes.
type CreateRepoOptions struct {
	Private     bool
	Description string
	AutoInit    bool
}

// Provider is the capability interface the publish engine calls through.
//
// GetFile returns common.ErrNotFoundUpstream when the file (or the whole
// repository) does not exist. UpdateFile fails with common.ErrConflict when
// the version token no longer matches; CreateFile fails the same way when
// the file appeared between the read and the write.
type Provider interface {
	GetFile(ctx context.Context, creds Credentials, repo Repo, path, ref string) (*File, error)
	CreateFile(ctx context.Context, creds Credentials, repo Repo, path string, content []byte, message string) (*CommitRef, error)
	UpdateFile(ctx context.Context, creds Credentials, repo Repo, path string, content []byte, message, versionToken string) (*CommitRef, error)
	CreateRepository(ctx context.Context, creds Credentials, name string, opts CreateRepoOptions) (*RepoHandle, error)

	// RepoURL renders the user-visible URL recorded in the audit block.
	RepoURL(repo Repo) string
}
