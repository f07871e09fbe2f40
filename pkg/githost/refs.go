package githost

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type refResponse struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA  string `json:"sha"`
		Type string `json:"type"`
	} `json:"object"`
}

// GetBranchRef looks up the commit SHA a branch points at. An absent branch
// is (_, false, nil), not an error.
func (c *Client) GetBranchRef(ctx context.Context, branch string) (string, bool, error) {
	apiPath := c.repoPath("/git/ref/heads/%s", url.PathEscape(branch))
	status, body, err := c.do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return "", false, err
	}
	if status == http.StatusNotFound {
		return "", false, nil
	}
	if !isSuccess(status) {
		return "", false, &APIError{StatusCode: status, Body: string(body)}
	}
	var ref refResponse
	if err := decodeJSON(body, &ref); err != nil {
		return "", false, err
	}
	return ref.Object.SHA, true, nil
}

type createRefRequest struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// CreateBranch creates refs/heads/<branch> pointing at fromSHA. A remote
// "reference already exists" rejection counts as success, so concurrent
// creators across processes converge instead of failing.
func (c *Client) CreateBranch(ctx context.Context, branch, fromSHA string) error {
	req := createRefRequest{
		Ref: "refs/heads/" + branch,
		SHA: fromSHA,
	}
	status, body, err := c.do(ctx, http.MethodPost, c.repoPath("/git/refs"), req)
	if err != nil {
		return err
	}
	if status == http.StatusUnprocessableEntity || status == http.StatusConflict {
		c.log.WithContext(ctx).WithField("branch", branch).Debug("branch already exists")
		return nil
	}
	if !isSuccess(status) {
		return &APIError{StatusCode: status, Body: string(body)}
	}
	return nil
}

type updateRefRequest struct {
	SHA   string `json:"sha"`
	Force bool   `json:"force"`
}

// UpdateRef moves a branch to sha. force is false, so a non-fast-forward
// update (the branch moved underneath us) is rejected by the remote and
// surfaces as ErrConflict.
func (c *Client) UpdateRef(ctx context.Context, branch, sha string) error {
	apiPath := c.repoPath("/git/refs/heads/%s", url.PathEscape(branch))
	return c.doJSON(ctx, http.MethodPatch, apiPath, updateRefRequest{SHA: sha}, nil)
}

// DeleteBranch removes refs/heads/<branch>.
func (c *Client) DeleteBranch(ctx context.Context, branch string) error {
	apiPath := c.repoPath("/git/refs/heads/%s", url.PathEscape(branch))
	return c.doJSON(ctx, http.MethodDelete, apiPath, nil, nil)
}

type mergeRequest struct {
	Base          string `json:"base"`
	Head          string `json:"head"`
	CommitMessage string `json:"commit_message"`
}

// MergeResult reports the merge commit, if one was created. An empty SHA
// means base already contained head.
type MergeResult struct {
	SHA string
}

// Merge asks the remote to merge head into base. Merge conflicts are the
// caller's problem: the error wraps ErrConflict and carries the remote's
// response untouched.
func (c *Client) Merge(ctx context.Context, base, head, message string) (MergeResult, error) {
	req := mergeRequest{
		Base:          base,
		Head:          head,
		CommitMessage: message,
	}
	status, body, err := c.do(ctx, http.MethodPost, c.repoPath("/merges"), req)
	if err != nil {
		return MergeResult{}, err
	}
	if status == http.StatusNoContent {
		// base already contains head
		return MergeResult{}, nil
	}
	if !isSuccess(status) {
		return MergeResult{}, fmt.Errorf("merge %s into %s: %w", head, base, &APIError{StatusCode: status, Body: string(body)})
	}
	var commit struct {
		SHA string `json:"sha"`
	}
	if err := decodeJSON(body, &commit); err != nil {
		return MergeResult{}, err
	}
	return MergeResult{SHA: commit.SHA}, nil
}
