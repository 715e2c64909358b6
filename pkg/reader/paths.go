package reader

import (
	"fmt"
	"path"
	"strings"
)

// cleanObjectPath validates a slash separated object path. It rejects
// empty and absolute paths and any ".." segment, and strips a leading
// "./".
func cleanObjectPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidPath, p)
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes its root", ErrInvalidPath, p)
		}
	}

	return strings.TrimPrefix(p, "./"), nil
}

// cleanPrefix normalizes a listing prefix. The empty string and "." mean
// "everything"; otherwise the result has no leading or trailing slash.
func cleanPrefix(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return "", nil
	}

	if _, err := cleanObjectPath(p); err != nil {
		return "", err
	}

	return path.Clean(p), nil
}

// underPrefix reports whether key equals prefix or lies below it.
func underPrefix(key, prefix string) bool {
	return prefix == "" || key == prefix || strings.HasPrefix(key, prefix+"/")
}
