package githost

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// CommitSummary is one entry of a branch's history, newest first as
// returned by the remote.
type CommitSummary struct {
	SHA         string
	ShortSHA    string
	Message     string
	AuthorName  string
	AuthorLogin string
	AvatarURL   string
	Date        time.Time
}

// FileChange is one changed file within a commit.
type FileChange struct {
	Path      string
	Status    string
	Additions int
	Deletions int
	Patch     string
}

// CommitDetail is a commit's full metadata with its per-file changes.
// ParentSHA is the first parent, empty for a root commit.
type CommitDetail struct {
	CommitSummary
	ParentSHA string
	Files     []FileChange
}

type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Author *struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	} `json:"author"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
	Files []struct {
		Filename  string `json:"filename"`
		Status    string `json:"status"`
		Additions int    `json:"additions"`
		Deletions int    `json:"deletions"`
		Patch     string `json:"patch"`
	} `json:"files"`
}

const shortSHALen = 7

func (r *commitResponse) summary() CommitSummary {
	s := CommitSummary{
		SHA:        r.SHA,
		ShortSHA:   r.SHA,
		Message:    r.Commit.Message,
		AuthorName: r.Commit.Author.Name,
		Date:       r.Commit.Author.Date,
	}
	if len(r.SHA) > shortSHALen {
		s.ShortSHA = r.SHA[:shortSHALen]
	}
	if r.Author != nil {
		s.AuthorLogin = r.Author.Login
		s.AvatarURL = r.Author.AvatarURL
	}
	return s
}

// ListCommits returns one page of branch history, newest first. A branch
// that never existed (404) yields an empty page, not an error.
func (c *Client) ListCommits(ctx context.Context, branch string, page, perPage int) ([]CommitSummary, error) {
	q := url.Values{}
	q.Set("sha", branch)
	if page > 0 {
		q.Set("page", fmt.Sprintf("%d", page))
	}
	if perPage > 0 {
		q.Set("per_page", fmt.Sprintf("%d", perPage))
	}
	apiPath := c.repoPath("/commits") + "?" + q.Encode()
	status, body, err := c.do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return []CommitSummary{}, nil
	}
	if !isSuccess(status) {
		return nil, &APIError{StatusCode: status, Body: string(body)}
	}
	var commits []commitResponse
	if err := decodeJSON(body, &commits); err != nil {
		return nil, err
	}
	summaries := make([]CommitSummary, 0, len(commits))
	for i := range commits {
		summaries = append(summaries, commits[i].summary())
	}
	return summaries, nil
}

// GetCommitDetail reads a single commit's metadata and per-file change list.
func (c *Client) GetCommitDetail(ctx context.Context, sha string) (CommitDetail, error) {
	apiPath := c.repoPath("/commits/%s", url.PathEscape(sha))
	var resp commitResponse
	if err := c.doJSON(ctx, http.MethodGet, apiPath, nil, &resp); err != nil {
		return CommitDetail{}, err
	}
	detail := CommitDetail{CommitSummary: resp.summary()}
	if len(resp.Parents) > 0 {
		detail.ParentSHA = resp.Parents[0].SHA
	}
	for _, f := range resp.Files {
		detail.Files = append(detail.Files, FileChange{
			Path:      f.Filename,
			Status:    f.Status,
			Additions: f.Additions,
			Deletions: f.Deletions,
			Patch:     f.Patch,
		})
	}
	return detail, nil
}
