package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	githubRawMediaType  = "application/vnd.github.raw"
	githubJSONMediaType = "application/vnd.github+json"
	githubAPIVersion    = "2022-11-28"
	githubErrorExcerpt  = 512
	githubDefaultTree   = "HEAD"
)

// HTTPDoer sends HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GitHubOptions configures the GitHub reader.
type GitHubOptions struct {
	// BaseURL is the REST API root, e.g. https://api.github.com.
	BaseURL string
	// Ref is a branch, tag or commit. Empty means the default branch.
	Ref string
	// Token is sent as a bearer token when set.
	Token string
}

// Compile-time interface check.
var _ Reader = (*githubReader)(nil)

type githubReader struct {
	diag     diagnostics
	client   HTTPDoer
	opts     GitHubOptions
	defaults ReadOptions
}

// NewGitHubReader creates a Reader for files in GitHub repositories. The
// container option is the repository in "owner/repo" form.
func NewGitHubReader(
	log logrus.FieldLogger,
	client HTTPDoer,
	opts GitHubOptions,
	defaults ...ReadOption,
) Reader {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &githubReader{
		diag:     newDiagnostics(log, BackendGitHub),
		client:   client,
		opts:     opts,
		defaults: buildDefaults(defaults),
	}
}

func (r *githubReader) Backend() string {
	return BackendGitHub
}

type githubTreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

type githubTree struct {
	Tree      []githubTreeEntry `json:"tree"`
	Truncated bool              `json:"truncated"`
}

// Read fetches the raw content of {path} in repository {container}.
func (r *githubReader) Read(
	ctx context.Context, path string, opts ...ReadOption,
) ([]byte, error) {
	o := resolve(r.defaults, opts)

	p, err := cleanObjectPath(path)
	if err != nil {
		return nil, r.diag.fail(path, o, err)
	}

	repo, err := repoPath(o.Container)
	if err != nil {
		return nil, r.diag.fail(path, o, err)
	}

	endpoint := r.opts.BaseURL + "/repos/" + repo + "/contents/" + escapePath(p)
	if r.opts.Ref != "" {
		endpoint += "?ref=" + url.QueryEscape(r.opts.Ref)
	}

	data, contentType, err := r.get(ctx, endpoint, githubRawMediaType)
	if err != nil {
		return nil, r.diag.fail(path, o, err)
	}

	// Directories come back as a JSON array of entries even when raw
	// content is requested.
	if isDirectoryListing(contentType, data) {
		return nil, r.diag.fail(path, o, fmt.Errorf("%q is a directory", p))
	}

	return data, nil
}

// ListTree lists blobs below {path} using the recursive git trees API.
func (r *githubReader) ListTree(
	ctx context.Context, path string, opts ...ReadOption,
) (Listing, error) {
	o := resolve(r.defaults, opts)

	prefix, err := cleanPrefix(path)
	if err != nil {
		return Listing{}, r.diag.fail(path, o, err)
	}

	repo, err := repoPath(o.Container)
	if err != nil {
		return Listing{}, r.diag.fail(path, o, err)
	}

	ref := r.opts.Ref
	if ref == "" {
		ref = githubDefaultTree
	}

	endpoint := r.opts.BaseURL + "/repos/" + repo + "/git/trees/" +
		escapePath(ref) + "?recursive=1"

	body, _, err := r.get(ctx, endpoint, githubJSONMediaType)
	if err != nil {
		return Listing{}, r.diag.fail(path, o, err)
	}

	var tree githubTree
	if err := json.Unmarshal(body, &tree); err != nil {
		return Listing{}, r.diag.fail(path, o, fmt.Errorf("decoding tree: %w", err))
	}

	// A truncated tree would silently drop paths.
	if tree.Truncated {
		return Listing{}, r.diag.fail(
			path, o, fmt.Errorf("tree for %s@%s is truncated", repo, ref),
		)
	}

	paths := make([]string, 0, len(tree.Tree))

	for _, e := range tree.Tree {
		if e.Type == "blob" && underPrefix(e.Path, prefix) {
			paths = append(paths, e.Path)
		}
	}

	sort.Strings(paths)

	return Supported(paths), nil
}

// get issues a GET request and returns the body and Content-Type of a 200
// response.
func (r *githubReader) get(
	ctx context.Context, endpoint, accept string,
) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)

	if r.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.opts.Token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("requesting %s: %w", req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, githubErrorExcerpt))
		err := fmt.Errorf(
			"github api returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(excerpt)),
		)

		if resp.StatusCode == http.StatusNotFound {
			return nil, "", notFound(err)
		}

		return nil, "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading response: %w", err)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// isDirectoryListing reports whether a contents response is the JSON entry
// array GitHub returns for a directory.
func isDirectoryListing(contentType string, body []byte) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return false
	}

	var entries []json.RawMessage

	return json.Unmarshal(body, &entries) == nil
}

// repoPath validates "owner/repo" and returns it path-escaped.
func repoPath(container string) (string, error) {
	if container == "" {
		return "", ErrContainerRequired
	}

	owner, repo, ok := strings.Cut(container, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", fmt.Errorf(
			"repository must be in owner/repo form, got %q", container,
		)
	}

	return url.PathEscape(owner) + "/" + url.PathEscape(repo), nil
}

// escapePath escapes each segment of a slash separated path.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}

	return strings.Join(segs, "/")
}
