package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	pathpkg "path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Compile-time interface check.
var _ Reader = (*localReader)(nil)

type localReader struct {
	diag     diagnostics
	root     string
	defaults ReadOptions
}

// NewLocalReader creates a Reader for files below root. The container
// option, when set, selects a sub-directory of root.
func NewLocalReader(
	log logrus.FieldLogger, root string, defaults ...ReadOption,
) Reader {
	return &localReader{
		diag:     newDiagnostics(log, BackendLocal),
		root:     filepath.Clean(root),
		defaults: buildDefaults(defaults),
	}
}

func (r *localReader) Backend() string {
	return BackendLocal
}

// Read reads {root}/{container}/{path}. The file is opened through an
// os.Root, so symlinks that lead outside root are rejected.
func (r *localReader) Read(
	_ context.Context, path string, opts ...ReadOption,
) ([]byte, error) {
	o := resolve(r.defaults, opts)

	name, err := r.resolvePath(path, o.Container)
	if err != nil {
		return nil, r.diag.fail(path, o, err)
	}

	data, err := r.readFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = notFound(err)
		}

		return nil, r.diag.fail(path, o, err)
	}

	return data, nil
}

func (r *localReader) readFile(name string) ([]byte, error) {
	root, err := os.OpenRoot(r.root)
	if err != nil {
		return nil, fmt.Errorf("opening root: %w", err)
	}
	defer func() { _ = root.Close() }()

	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return io.ReadAll(f)
}

// ListTree walks {root}/{container}/{path} and returns file paths relative
// to {root}/{container}, slash separated and sorted. Symlinks are listed
// only when they resolve to a file inside root.
func (r *localReader) ListTree(
	_ context.Context, path string, opts ...ReadOption,
) (Listing, error) {
	o := resolve(r.defaults, opts)

	prefix, err := cleanPrefix(path)
	if err != nil {
		return Listing{}, r.diag.fail(path, o, err)
	}

	base, err := r.base(o.Container)
	if err != nil {
		return Listing{}, r.diag.fail(path, o, err)
	}

	root, err := os.OpenRoot(r.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = notFound(err)
		}

		return Listing{}, r.diag.fail(path, o, err)
	}
	defer func() { _ = root.Close() }()

	start := pathpkg.Join(base, prefix)

	var paths []string

	err = fs.WalkDir(root.FS(), start, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			info, err := root.Stat(p)
			if err != nil || info.IsDir() {
				return nil
			}
		}

		rel := p
		if base != "." {
			rel = strings.TrimPrefix(p, base+"/")
		}

		paths = append(paths, rel)

		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = notFound(err)
		}

		return Listing{}, r.diag.fail(path, o, err)
	}

	sort.Strings(paths)

	return Supported(paths), nil
}

// base returns the slash separated directory below root that reads are
// confined to, or "." for root itself.
func (r *localReader) base(container string) (string, error) {
	if container == "" {
		return ".", nil
	}

	c, err := cleanObjectPath(container)
	if err != nil {
		return "", fmt.Errorf("container: %w", err)
	}

	return c, nil
}

// resolvePath maps a request path to a slash separated name below root.
func (r *localReader) resolvePath(path, container string) (string, error) {
	p, err := cleanObjectPath(path)
	if err != nil {
		return "", err
	}

	base, err := r.base(container)
	if err != nil {
		return "", err
	}

	return pathpkg.Join(base, p), nil
}
