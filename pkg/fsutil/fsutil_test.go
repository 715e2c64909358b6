package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOwner(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		want    *OwnerConfig
		wantErr string
	}{
		{name: "empty", owner: "", want: nil},
		{name: "valid", owner: "1000:1001", want: &OwnerConfig{UID: 1000, GID: 1001}},
		{name: "missing gid", owner: "1000", wantErr: "expected UID:GID"},
		{name: "too many parts", owner: "1:2:3", wantErr: "expected UID:GID"},
		{name: "bad uid", owner: "x:1", wantErr: "invalid UID"},
		{name: "bad gid", owner: "1:y", wantErr: "invalid GID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOwner(tt.owner)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteBelow(t *testing.T) {
	t.Parallel()

	t.Run("creates parents", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "out")

		full, err := WriteBelow(dir, "reports/2024/q1.csv", []byte("a,b"), nil)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "reports", "2024", "q1.csv"), full)

		data, err := os.ReadFile(full)
		require.NoError(t, err)
		assert.Equal(t, "a,b", string(data))
	})

	t.Run("overwrites", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()

		_, err := WriteBelow(dir, "f.txt", []byte("one"), nil)
		require.NoError(t, err)

		full, err := WriteBelow(dir, "f.txt", []byte("two"), nil)
		require.NoError(t, err)

		data, err := os.ReadFile(full)
		require.NoError(t, err)
		assert.Equal(t, "two", string(data))
	})

	t.Run("rejects escaping paths", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()

		for _, rel := range []string{"", "/etc/passwd", "../x", "a/../../x", "."} {
			_, err := WriteBelow(dir, rel, []byte("x"), nil)
			assert.Error(t, err, rel)
		}
	})
}
