package githost_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/pkg/githost"
)

func newTestClient(t *testing.T, handler http.Handler) *githost.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return githost.NewClient(githost.Params{
		Token:   "ghp_testtoken",
		Owner:   "acme",
		Repo:    "site-content",
		BaseURL: srv.URL,
	})
}

func TestClient_RequestHeaders(t *testing.T) {
	var gotAuth, gotAccept, gotVersion string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotVersion = r.Header.Get("X-GitHub-Api-Version")
		_, _ = w.Write([]byte(`{"login":"editor"}`))
	}))

	login, err := client.GetAuthenticatedUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "editor", login)
	require.Equal(t, "Bearer ghp_testtoken", gotAuth)
	require.Equal(t, "application/vnd.github+json", gotAccept)
	require.NotEmpty(t, gotVersion)
}

func TestClient_GetDefaultBranch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/site-content", r.URL.Path)
		_, _ = w.Write([]byte(`{"default_branch":"main"}`))
	}))

	branch, err := client.GetDefaultBranch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "main", branch)
}

func TestClient_GetBranchRef(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/site-content/git/ref/heads/main":
			_, _ = w.Write([]byte(`{"ref":"refs/heads/main","object":{"sha":"abc123","type":"commit"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	sha, found, err := client.GetBranchRef(context.Background(), "main")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "abc123", sha)

	// absent branch is a result, not an error
	_, found, err = client.GetBranchRef(context.Background(), "gone")
	require.NoError(t, err)
	require.False(t, found)
}

func TestClient_CreateBranch_AlreadyExists(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Reference already exists"}`))
	}))

	err := client.CreateBranch(context.Background(), "cms-draft", "abc123")
	require.NoError(t, err, "already-exists must be idempotent success")
}

func TestClient_CreateBranch_Body(t *testing.T) {
	var body map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/repos/acme/site-content/git/refs", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ref":"refs/heads/cms-draft"}`))
	}))

	require.NoError(t, client.CreateBranch(context.Background(), "cms-draft", "abc123"))
	require.Equal(t, "refs/heads/cms-draft", body["ref"])
	require.Equal(t, "abc123", body["sha"])
}

func TestClient_GetFileSHA_NotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	sha, err := client.GetFileSHA(context.Background(), "data/home.json", "cms-draft")
	require.NoError(t, err)
	require.Empty(t, sha)
}

func TestClient_GetFileContent(t *testing.T) {
	encoded := githost.EncodeContent(`{"title":"héllo 🚀"}`)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/site-content/contents/data/home.json", r.URL.Path)
		require.Equal(t, "cms-draft", r.URL.Query().Get("ref"))
		resp := map[string]string{
			"sha":      "blob1",
			"path":     "data/home.json",
			"content":  encoded[:12] + "\n" + encoded[12:],
			"encoding": "base64",
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))

	text, found, err := client.GetFileContent(context.Background(), "data/home.json", "cms-draft")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `{"title":"héllo 🚀"}`, text)
}

func TestClient_PutFile_Conflict(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"is at abc but expected def"}`))
	}))

	err := client.PutFile(context.Background(), "data/home.json", "e30=", "msg", "cms-draft", "stale")
	require.ErrorIs(t, err, githost.ErrConflict)
}

func TestClient_Merge(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "main", body["base"])
			require.Equal(t, "cms-draft", body["head"])
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"sha":"merged1"}`))
		}))
		res, err := client.Merge(context.Background(), "main", "cms-draft", "publish")
		require.NoError(t, err)
		require.Equal(t, "merged1", res.SHA)
	})

	t.Run("nothing to merge", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		res, err := client.Merge(context.Background(), "main", "cms-draft", "publish")
		require.NoError(t, err)
		require.Empty(t, res.SHA)
	})

	t.Run("conflict propagates", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"Merge conflict"}`))
		}))
		_, err := client.Merge(context.Background(), "main", "cms-draft", "publish")
		require.ErrorIs(t, err, githost.ErrConflict)
	})
}

func TestClient_ListCommits(t *testing.T) {
	t.Run("page", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "cms-draft", r.URL.Query().Get("sha"))
			require.Equal(t, "2", r.URL.Query().Get("page"))
			require.Equal(t, "10", r.URL.Query().Get("per_page"))
			_, _ = w.Write([]byte(`[
				{"sha":"1234567890ab","commit":{"message":"update home","author":{"name":"Ed Itor","date":"2026-08-25T10:00:00Z"}},"author":{"login":"editor","avatar_url":"https://a/e.png"}},
				{"sha":"fedcba098765","commit":{"message":"initial","author":{"name":"Ed Itor","date":"2026-08-24T09:00:00Z"}},"author":null}
			]`))
		}))
		commits, err := client.ListCommits(context.Background(), "cms-draft", 2, 10)
		require.NoError(t, err)
		require.Len(t, commits, 2)
		require.Equal(t, "1234567", commits[0].ShortSHA)
		require.Equal(t, "editor", commits[0].AuthorLogin)
		require.Equal(t, "update home", commits[0].Message)
		require.Empty(t, commits[1].AuthorLogin)
	})

	t.Run("branch never existed", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		commits, err := client.ListCommits(context.Background(), "nonexistent-branch", 1, 20)
		require.NoError(t, err)
		require.Empty(t, commits)
	})
}

func TestClient_GetCommitDetail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/site-content/commits/1234567890ab", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"sha":"1234567890ab",
			"commit":{"message":"update home","author":{"name":"Ed Itor","date":"2026-08-25T10:00:00Z"}},
			"author":{"login":"editor","avatar_url":"https://a/e.png"},
			"parents":[{"sha":"parent1"},{"sha":"parent2"}],
			"files":[{"filename":"data/home.json","status":"modified","additions":3,"deletions":1,"patch":"@@ -1 +1 @@"}]
		}`))
	}))

	detail, err := client.GetCommitDetail(context.Background(), "1234567890ab")
	require.NoError(t, err)
	require.Equal(t, "parent1", detail.ParentSHA)
	require.Len(t, detail.Files, 1)
	require.Equal(t, "data/home.json", detail.Files[0].Path)
	require.Equal(t, 3, detail.Files[0].Additions)
}

func TestClient_GetCommitDetail_RootCommit(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sha":"root1","commit":{"message":"init","author":{"name":"Ed","date":"2026-08-01T00:00:00Z"}},"parents":[]}`))
	}))

	detail, err := client.GetCommitDetail(context.Background(), "root1")
	require.NoError(t, err)
	require.Empty(t, detail.ParentSHA)
}

func TestClient_RemoteError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}))

	_, err := client.GetDefaultBranch(context.Background())
	require.ErrorIs(t, err, githost.ErrRemote)

	var apiErr *githost.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "rate limited")
}
