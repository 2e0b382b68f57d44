package hosting

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tilgarden/tilgarden/internal/common"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHub talks to the GitHub contents API. One instance serves all users;
// per-user tokens are passed per call.
type GitHub struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewGitHub(baseURL string, client *http.Client) *GitHub {
	if baseURL == "" {
		baseURL = defaultGitHubAPI
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GitHub{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		now:     time.Now,
	}
}

type githubContent struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

type githubWriteResp struct {
	Content *struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	} `json:"commit"`
}

type githubWriteReq struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

type githubRepoReq struct {
	Name        string `json:"name"`
	Private     bool   `json:"private"`
	Description string `json:"description,omitempty"`
	AutoInit    bool   `json:"auto_init"`
}

type githubRepoResp struct {
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

type githubError struct {
	Message string `json:"message"`
}

func (g *GitHub) contentsURL(repo Repo, path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		g.baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Name), url.PathEscape(path))
}

func (g *GitHub) do(ctx context.Context, creds Credentials, method, rawURL string, body any) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	return resp, data, nil
}

// GetFile reads the current content and SHA of a file. A 404 maps to
// common.ErrNotFoundUpstream whether the file or the repository is missing.
func (g *GitHub) GetFile(ctx context.Context, creds Credentials, repo Repo, path, ref string) (*File, error) {
	u := g.contentsURL(repo, path)
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}

	resp, data, err := g.do(ctx, creds, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyGitHub(resp.StatusCode, resp.Header, data, g.now())
	}

	var c githubContent
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: decoding contents response: %v", common.ErrInternal, err)
	}
	// the API wraps base64 payloads with newlines
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(c.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding file content: %v", common.ErrInternal, err)
	}
	return &File{Content: decoded, VersionToken: c.SHA}, nil
}

// CreateFile writes a new file. If another writer created it first, the
// provider rejects the tokenless write and the error maps to
// common.ErrConflict so the caller can rerun the read-then-act sequence.
func (g *GitHub) CreateFile(ctx context.Context, creds Credentials, repo Repo, path string, content []byte, message string) (*CommitRef, error) {
	return g.putContents(ctx, creds, repo, path, content, message, "")
}

// UpdateFile overwrites an existing file guarded by its current SHA.
func (g *GitHub) UpdateFile(ctx context.Context, creds Credentials, repo Repo, path string, content []byte, message, versionToken string) (*CommitRef, error) {
	return g.putContents(ctx, creds, repo, path, content, message, versionToken)
}

func (g *GitHub) putContents(ctx context.Context, creds Credentials, repo Repo, path string, content []byte, message, sha string) (*CommitRef, error) {
	body := githubWriteReq{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
	}

	resp, data, err := g.do(ctx, creds, http.MethodPut, g.contentsURL(repo, path), body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, classifyGitHub(resp.StatusCode, resp.Header, data, g.now())
	}

	var w githubWriteResp
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decoding write response: %v", common.ErrInternal, err)
	}
	return &CommitRef{SHA: w.Commit.SHA, URL: w.Commit.HTMLURL}, nil
}

// CreateRepository creates a repository under the authenticated user.
func (g *GitHub) CreateRepository(ctx context.Context, creds Credentials, name string, opts CreateRepoOptions) (*RepoHandle, error) {
	body := githubRepoReq{
		Name:        name,
		Private:     opts.Private,
		Description: opts.Description,
		AutoInit:    opts.AutoInit,
	}

	resp, data, err := g.do(ctx, creds, http.MethodPost, g.baseURL+"/user/repos", body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, classifyGitHub(resp.StatusCode, resp.Header, data, g.now())
	}

	var r githubRepoResp
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding repo response: %v", common.ErrInternal, err)
	}
	return &RepoHandle{Name: r.Name, URL: r.HTMLURL}, nil
}

func (g *GitHub) RepoURL(repo Repo) string {
	host := "https://github.com"
	if g.baseURL != defaultGitHubAPI {
		host = g.baseURL
	}
	return fmt.Sprintf("%s/%s/%s", host, repo.Owner, repo.Name)
}

// classifyGitHub maps a non-success status onto the error taxonomy. It is a
// pure function of the response so tests can drive it directly.
func classifyGitHub(status int, hdr http.Header, body []byte, now time.Time) error {
	var ge githubError
	_ = json.Unmarshal(body, &ge)

	switch status {
	case http.StatusUnauthorized:
		return common.ErrUnauthorized
	case http.StatusForbidden, http.StatusTooManyRequests:
		if hdr.Get("X-RateLimit-Remaining") == "0" || status == http.StatusTooManyRequests {
			return common.RateLimited(WaitSeconds(resetFromHeader(hdr, now), now))
		}
		return common.ErrForbidden
	case http.StatusNotFound:
		return common.ErrNotFoundUpstream
	case http.StatusConflict:
		return common.ErrConflict
	case http.StatusUnprocessableEntity:
		// a stale or missing sha on PUT comes back as 422
		msg := strings.ToLower(ge.Message)
		if strings.Contains(msg, "sha") || strings.Contains(msg, "already exists") {
			return common.ErrConflict
		}
		return fmt.Errorf("%w: %s", common.ErrValidation, ge.Message)
	default:
		return fmt.Errorf("%w: hosting returned status %d", common.ErrInternal, status)
	}
}

// resetFromHeader parses the X-RateLimit-Reset epoch seconds, preferring
// Retry-After when present.
func resetFromHeader(hdr http.Header, now time.Time) *time.Time {
	if ra := hdr.Get("Retry-After"); ra != "" {
		if secs, err := strconv.ParseInt(ra, 10, 64); err == nil {
			t := now.Add(time.Duration(secs) * time.Second)
			return &t
		}
	}
	if v := hdr.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := time.Unix(epoch, 0)
			return &t
		}
	}
	return nil
}
