package githost

import (
	"context"
	"net/http"
	"net/url"
)

// regular, non-executable file entry
const blobFileMode = "100644"

type shaResponse struct {
	SHA string `json:"sha"`
}

type createBlobRequest struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// CreateBlob stores base64-encoded content as a blob and returns its SHA.
// The blob is unreferenced until a tree points at it; an abandoned blob is
// harmless garbage on the remote.
func (c *Client) CreateBlob(ctx context.Context, contentB64 string) (string, error) {
	req := createBlobRequest{
		Content:  contentB64,
		Encoding: "base64",
	}
	var blob shaResponse
	if err := c.doJSON(ctx, http.MethodPost, c.repoPath("/git/blobs"), req, &blob); err != nil {
		return "", err
	}
	return blob.SHA, nil
}

// TreeEntry places a blob at a path within a tree under construction.
type TreeEntry struct {
	Path    string
	BlobSHA string
}

type treeEntryRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

type createTreeRequest struct {
	BaseTree string             `json:"base_tree,omitempty"`
	Tree     []treeEntryRequest `json:"tree"`
}

// CreateTree builds a new tree on top of baseTreeSHA with each entry's blob
// at its path, and returns the new tree's SHA.
func (c *Client) CreateTree(ctx context.Context, baseTreeSHA string, entries []TreeEntry) (string, error) {
	req := createTreeRequest{
		BaseTree: baseTreeSHA,
		Tree:     make([]treeEntryRequest, 0, len(entries)),
	}
	for _, e := range entries {
		req.Tree = append(req.Tree, treeEntryRequest{
			Path: e.Path,
			Mode: blobFileMode,
			Type: "blob",
			SHA:  e.BlobSHA,
		})
	}
	var tree shaResponse
	if err := c.doJSON(ctx, http.MethodPost, c.repoPath("/git/trees"), req, &tree); err != nil {
		return "", err
	}
	return tree.SHA, nil
}

type createCommitRequest struct {
	Message string   `json:"message"`
	Tree    string   `json:"tree"`
	Parents []string `json:"parents"`
}

// CreateCommit creates a commit of treeSHA with exactly one parent. Authored
// merge commits are out of scope; publishing goes through Merge instead.
func (c *Client) CreateCommit(ctx context.Context, message, treeSHA, parentSHA string) (string, error) {
	req := createCommitRequest{
		Message: message,
		Tree:    treeSHA,
		Parents: []string{parentSHA},
	}
	var commit shaResponse
	if err := c.doJSON(ctx, http.MethodPost, c.repoPath("/git/commits"), req, &commit); err != nil {
		return "", err
	}
	return commit.SHA, nil
}

// CommitObject is a git commit object: its tree and parents.
type CommitObject struct {
	SHA        string
	TreeSHA    string
	ParentSHAs []string
}

type gitCommitResponse struct {
	SHA  string `json:"sha"`
	Tree struct {
		SHA string `json:"sha"`
	} `json:"tree"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
}

// GetGitCommit reads the commit object for sha, giving the base tree a
// multi-file commit builds on.
func (c *Client) GetGitCommit(ctx context.Context, sha string) (CommitObject, error) {
	apiPath := c.repoPath("/git/commits/%s", url.PathEscape(sha))
	var resp gitCommitResponse
	if err := c.doJSON(ctx, http.MethodGet, apiPath, nil, &resp); err != nil {
		return CommitObject{}, err
	}
	obj := CommitObject{
		SHA:     resp.SHA,
		TreeSHA: resp.Tree.SHA,
	}
	for _, p := range resp.Parents {
		obj.ParentSHAs = append(obj.ParentSHAs, p.SHA)
	}
	return obj, nil
}
