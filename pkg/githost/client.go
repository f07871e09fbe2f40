// Package githost is an authenticated client for the GitHub REST API,
// covering the operations a branch-based content store needs: refs,
// contents, git objects, merges and commit history. One HTTP call per
// logical operation; transient transport failures are retried by the
// underlying retryable client, semantic responses (404, 409, 422) are not.
package githost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/draftforge/draftforge/pkg/logging"
)

const (
	DefaultBaseURL = "https://api.github.com"

	acceptHeader     = "application/vnd.github+json"
	apiVersionValue  = "2022-11-28"
	apiVersionHeader = "X-GitHub-Api-Version"

	defaultHTTPTimeout = 30 * time.Second
)

// Params configures a Client.
type Params struct {
	// Token is the bearer credential attached to every request.
	Token string
	// Owner and Repo identify the target repository.
	Owner string
	Repo  string
	// BaseURL overrides the API host, for tests. Empty means api.github.com.
	BaseURL string
	// HTTPTimeout bounds each request, zero means 30s.
	HTTPTimeout time.Duration
	Logger      logging.Logger
}

// Client talks to a single repository with a single credential.
type Client struct {
	baseURL string
	token   string
	owner   string
	repo    string
	client  *http.Client
	log     logging.Logger
}

type retryLogAdapter struct {
	logging.Logger
}

func (l *retryLogAdapter) Printf(msg string, args ...interface{}) {
	l.Debugf(msg, args...)
}

func NewClient(p Params) *Client {
	log := p.Logger
	if log == nil {
		log = logging.Default()
	}
	timeout := p.HTTPTimeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = &retryLogAdapter{Logger: log}
	retryClient.HTTPClient.Timeout = timeout
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   p.Token,
		owner:   p.Owner,
		repo:    p.Repo,
		client:  retryClient.StandardClient(),
		log:     log,
	}
}

// Token returns the credential this client was constructed with.
func (c *Client) Token() string { return c.token }

// Repository returns the bound repository coordinate as "owner/repo".
func (c *Client) Repository() string { return c.owner + "/" + c.repo }

func (c *Client) repoPath(format string, args ...interface{}) string {
	return fmt.Sprintf("/repos/%s/%s", c.owner, c.repo) + fmt.Sprintf(format, args...)
}

// escapePath escapes each segment of a repository file path, keeping the
// separating slashes.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// do issues one API request and returns the response status and body.
// A transport-level failure is an error; any HTTP status is a result, and
// interpreting it is the calling operation's job.
func (c *Client) do(ctx context.Context, method, apiPath string, body interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		serialized, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("serialize request: %w", err)
		}
		reqBody = bytes.NewReader(serialized)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPath, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set(apiVersionHeader, apiVersionValue)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, apiPath, err)
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// doJSON runs do and decodes a 2xx response into out. Any non-2xx status
// becomes an *APIError.
func (c *Client) doJSON(ctx context.Context, method, apiPath string, body, out interface{}) error {
	status, respBody, err := c.do(ctx, method, apiPath, body)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return &APIError{StatusCode: status, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeJSON(body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

type userResponse struct {
	Login string `json:"login"`
}

// GetAuthenticatedUser returns the login of the user the credential belongs
// to. Callers cache this per credential, see pkg/drafts.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (string, error) {
	var user userResponse
	if err := c.doJSON(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return "", err
	}
	return user.Login, nil
}

type repoResponse struct {
	DefaultBranch string `json:"default_branch"`
}

// GetDefaultBranch reads the repository's default branch from its metadata.
// Read fresh on every call, the default branch can legitimately change.
func (c *Client) GetDefaultBranch(ctx context.Context) (string, error) {
	var repo repoResponse
	if err := c.doJSON(ctx, http.MethodGet, c.repoPath(""), nil, &repo); err != nil {
		return "", err
	}
	return repo.DefaultBranch, nil
}
