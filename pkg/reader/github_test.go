package reader_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/fetchoor/pkg/reader"
)

const (
	testRepo  = "ethpandaops/fixtures"
	testToken = "ghp_test"
)

var githubFiles = map[string]string{
	"reports/q1.csv":       csvContent,
	"reports/q2.csv":       "x,y\n",
	"docs/with space.md":   "spaced",
	"README.md":            "# fixtures",
	"reports/nested/a.sql": "select 1",
	"data/list.json":       `[1,2,3]`,
}

// newGitHubServer fakes the contents and git trees endpoints for testRepo.
// Requests carrying a token must match testToken.
func newGitHubServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/repos/ethpandaops/fixtures/contents/", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" && auth != "Bearer "+testToken {
			http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)

			return
		}

		if r.Header.Get("Accept") != "application/vnd.github.raw" {
			http.Error(w, "unexpected accept header", http.StatusBadRequest)

			return
		}

		if ref := r.URL.Query().Get("ref"); ref != "" && ref != "main" {
			http.Error(w, `{"message":"No commit found for the ref"}`, http.StatusNotFound)

			return
		}

		p := strings.TrimPrefix(r.URL.Path, "/repos/ethpandaops/fixtures/contents/")

		if entries := githubDirEntries(p); len(entries) > 0 {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_ = json.NewEncoder(w).Encode(entries)

			return
		}

		content, ok := githubFiles[p]
		if !ok {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)

			return
		}

		_, _ = w.Write([]byte(content))
	})

	mux.HandleFunc("/repos/ethpandaops/fixtures/git/trees/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("recursive") != "1" {
			http.Error(w, "recursive expected", http.StatusBadRequest)

			return
		}

		// Branch names keep their slashes as path separators.
		if strings.Contains(r.URL.EscapedPath(), "%2F") {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)

			return
		}

		ref := strings.TrimPrefix(r.URL.Path, "/repos/ethpandaops/fixtures/git/trees/")

		tree := map[string]any{"sha": "abc", "truncated": ref == "huge"}
		entries := []map[string]string{
			{"path": "reports", "type": "tree"},
			{"path": "reports/nested", "type": "tree"},
			{"path": "vendored", "type": "commit"},
		}

		for p := range githubFiles {
			entries = append(entries, map[string]string{"path": p, "type": "blob"})
		}

		tree["tree"] = entries

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tree)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

// githubDirEntries returns the contents API entries for a directory in
// githubFiles, or nil when dir is not one.
func githubDirEntries(dir string) []map[string]string {
	dir = strings.TrimSuffix(dir, "/")

	var entries []map[string]string

	for p := range githubFiles {
		if strings.HasPrefix(p, dir+"/") {
			entries = append(entries, map[string]string{"path": p, "type": "file"})
		}
	}

	return entries
}

func newGitHubReader(
	t *testing.T, opts reader.GitHubOptions, defaults ...reader.ReadOption,
) reader.Reader {
	t.Helper()

	srv := newGitHubServer(t)
	opts.BaseURL = srv.URL + "/"

	log, _ := newTestLogger()

	return reader.NewGitHubReader(log, srv.Client(), opts, defaults...)
}

func TestGitHubReader_Read(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("default repository and token", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t,
			reader.GitHubOptions{Token: testToken, Ref: "main"},
			reader.WithContainer(testRepo),
		)

		data, err := r.Read(ctx, "docs/with space.md")
		require.NoError(t, err)
		assert.Equal(t, "spaced", string(data))
	})

	t.Run("bad token is not a not-found", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t, reader.GitHubOptions{Token: "wrong"})

		_, err := r.Read(ctx, "README.md", reader.WithContainer(testRepo))
		require.Error(t, err)
		assert.False(t, reader.IsNotFound(err))
		assert.Contains(t, err.Error(), "status 401")
		assert.Contains(t, err.Error(), "Bad credentials")
	})

	t.Run("unknown ref", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t, reader.GitHubOptions{Ref: "nope"})

		_, err := r.Read(ctx, "README.md", reader.WithContainer(testRepo))
		assert.True(t, reader.IsNotFound(err))
	})

	t.Run("missing repository", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t, reader.GitHubOptions{})

		_, err := r.Read(ctx, "README.md")
		assert.ErrorIs(t, err, reader.ErrContainerRequired)
	})

	t.Run("malformed repository", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t, reader.GitHubOptions{})

		_, err := r.Read(ctx, "README.md", reader.WithContainer("a/b/c"))
		assert.ErrorContains(t, err, "owner/repo")
	})

	t.Run("directory is not file content", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t, reader.GitHubOptions{}, reader.WithContainer(testRepo))

		data, err := r.Read(ctx, "reports")
		assert.Nil(t, data)

		var readErr *reader.ReadError
		require.ErrorAs(t, err, &readErr)
		assert.ErrorContains(t, err, "is a directory")
		assert.False(t, reader.IsNotFound(err))
	})

	t.Run("json file content is returned as is", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t, reader.GitHubOptions{}, reader.WithContainer(testRepo))

		data, err := r.Read(ctx, "data/list.json")
		require.NoError(t, err)
		assert.Equal(t, githubFiles["data/list.json"], string(data))
	})

	t.Run("transport failure", func(t *testing.T) {
		t.Parallel()

		log, _ := newTestLogger()
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		r := reader.NewGitHubReader(log, srv.Client(), reader.GitHubOptions{
			BaseURL: srv.URL,
		})

		_, err := r.Read(ctx, "README.md", reader.WithContainer(testRepo))

		var readErr *reader.ReadError
		require.ErrorAs(t, err, &readErr)
		assert.False(t, reader.IsNotFound(err))
	})
}

func TestGitHubReader_ListTree(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("blobs under prefix", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t, reader.GitHubOptions{}, reader.WithContainer(testRepo))

		listing, err := r.ListTree(ctx, "reports/")
		require.NoError(t, err)
		require.True(t, listing.IsSupported())
		assert.Equal(t, []string{
			"reports/nested/a.sql",
			"reports/q1.csv",
			"reports/q2.csv",
		}, listing.Paths())
	})

	t.Run("whole repository", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t, reader.GitHubOptions{}, reader.WithContainer(testRepo))

		listing, err := r.ListTree(ctx, "")
		require.NoError(t, err)
		assert.Len(t, listing.Paths(), len(githubFiles))
	})

	t.Run("empty prefix match is a supported empty listing", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t, reader.GitHubOptions{}, reader.WithContainer(testRepo))

		listing, err := r.ListTree(ctx, "nothing-here")
		require.NoError(t, err)
		assert.True(t, listing.IsSupported())
		assert.Empty(t, listing.Paths())
	})

	t.Run("ref with slashes", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t, reader.GitHubOptions{Ref: "release/v1"},
			reader.WithContainer(testRepo))

		listing, err := r.ListTree(ctx, "reports/nested")
		require.NoError(t, err)
		assert.Equal(t, []string{"reports/nested/a.sql"}, listing.Paths())
	})

	t.Run("truncated tree fails", func(t *testing.T) {
		t.Parallel()

		r := newGitHubReader(t, reader.GitHubOptions{Ref: "huge"},
			reader.WithContainer(testRepo))

		_, err := r.ListTree(ctx, "")
		assert.ErrorContains(t, err, "truncated")
	})
}
