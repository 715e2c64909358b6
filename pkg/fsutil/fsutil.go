// Package fsutil writes fetched content to disk with optional ownership.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// OwnerConfig holds parsed UID/GID for file ownership.
type OwnerConfig struct {
	UID int
	GID int
}

// ParseOwner parses "UID:GID" string. Returns nil if empty.
func ParseOwner(owner string) (*OwnerConfig, error) {
	if owner == "" {
		return nil, nil
	}

	uidStr, gidStr, ok := strings.Cut(owner, ":")
	if !ok || strings.Contains(gidStr, ":") {
		return nil, fmt.Errorf("invalid format %q, expected UID:GID", owner)
	}

	uid, err := strconv.Atoi(uidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UID %q: %w", uidStr, err)
	}

	gid, err := strconv.Atoi(gidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid GID %q: %w", gidStr, err)
	}

	return &OwnerConfig{UID: uid, GID: gid}, nil
}

// Chown sets ownership if owner is not nil. Best-effort, ignores errors.
func Chown(path string, owner *OwnerConfig) {
	if owner == nil {
		return
	}

	_ = os.Chown(path, owner.UID, owner.GID)
}

// WriteBelow writes data to dir/rel, creating parent directories. rel is a
// slash separated path and must not leave dir. Created directories and the
// file get owner when set.
func WriteBelow(dir, rel string, data []byte, owner *OwnerConfig) (string, error) {
	if rel == "" || filepath.IsAbs(filepath.FromSlash(rel)) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("invalid output path %q", rel)
	}

	base := filepath.Clean(dir)
	full := filepath.Join(base, filepath.FromSlash(rel))

	r, err := filepath.Rel(base, full)
	if err != nil || r == "." || r == ".." ||
		strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path %q escapes %s", rel, dir)
	}

	if err := mkdirAll(base, filepath.Dir(full), owner); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", rel, err)
	}

	if err := os.WriteFile(full, data, 0o644); err != nil { //nolint:gosec // output files are world readable
		return "", fmt.Errorf("writing %s: %w", full, err)
	}

	Chown(full, owner)

	return full, nil
}

// mkdirAll creates dir and its missing parents up to and including base,
// chowning each directory it creates.
func mkdirAll(base, dir string, owner *OwnerConfig) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}

	if dir != base {
		if err := mkdirAll(base, filepath.Dir(dir), owner); err != nil {
			return err
		}
	}

	if err := os.Mkdir(dir, 0o755); err != nil && !os.IsExist(err) {
		return err
	}

	Chown(dir, owner)

	return nil
}
