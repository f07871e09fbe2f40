package githost

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type contentResponse struct {
	SHA      string `json:"sha"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (c *Client) contentsPath(path, ref string) string {
	apiPath := c.repoPath("/contents/%s", escapePath(path))
	if ref != "" {
		apiPath += "?ref=" + url.QueryEscape(ref)
	}
	return apiPath
}

// GetFileSHA returns the current blob SHA for path on ref, or "" if the
// path does not exist there.
func (c *Client) GetFileSHA(ctx context.Context, path, ref string) (string, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.contentsPath(path, ref), nil)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	if !isSuccess(status) {
		return "", &APIError{StatusCode: status, Body: string(body)}
	}
	var content contentResponse
	if err := decodeJSON(body, &content); err != nil {
		return "", err
	}
	return content.SHA, nil
}

// GetFileContent reads and decodes the file at path on ref (a branch name
// or commit SHA). An absent path is ("", false, nil).
func (c *Client) GetFileContent(ctx context.Context, path, ref string) (string, bool, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.contentsPath(path, ref), nil)
	if err != nil {
		return "", false, err
	}
	if status == http.StatusNotFound {
		return "", false, nil
	}
	if !isSuccess(status) {
		return "", false, &APIError{StatusCode: status, Body: string(body)}
	}
	var content contentResponse
	if err := decodeJSON(body, &content); err != nil {
		return "", false, err
	}
	text, err := DecodeContent(content.Content)
	if err != nil {
		return "", false, fmt.Errorf("file %s at %s: %w", path, ref, err)
	}
	return text, true, nil
}

type putContentRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// PutFile commits one file to branch. contentB64 is the already-encoded
// transport form. sha must be the blob SHA the caller believes is current,
// or empty when the path does not exist yet; a stale sha is rejected by the
// remote and surfaces as ErrConflict.
func (c *Client) PutFile(ctx context.Context, path, contentB64, message, branch, sha string) error {
	req := putContentRequest{
		Message: message,
		Content: contentB64,
		Branch:  branch,
		SHA:     sha,
	}
	apiPath := c.repoPath("/contents/%s", escapePath(path))
	return c.doJSON(ctx, http.MethodPut, apiPath, req, nil)
}
