package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanObjectPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "simple", path: "reports/q1.csv", want: "reports/q1.csv"},
		{name: "leading dot slash", path: "./a.json", want: "a.json"},
		{name: "dotted name", path: "a/..hidden", want: "a/..hidden"},
		{name: "empty", path: "", wantErr: true},
		{name: "absolute", path: "/etc/passwd", wantErr: true},
		{name: "parent", path: "..", wantErr: true},
		{name: "nested parent", path: "a/../../b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanObjectPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: ""},
		{prefix: ".", want: ""},
		{prefix: "/", want: ""},
		{prefix: "reports/", want: "reports"},
		{prefix: "/reports/2024/", want: "reports/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, err := cleanPrefix(tt.prefix)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := cleanPrefix("a/../..")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestResolveOptions(t *testing.T) {
	defaults := buildDefaults([]ReadOption{WithContainer("bucket")})
	assert.Equal(t, ReadOptions{Container: "bucket", Verbose: true}, defaults)

	got := resolve(defaults, []ReadOption{WithVerbose(false)})
	assert.Equal(t, ReadOptions{Container: "bucket", Verbose: false}, got)

	got = resolve(defaults, []ReadOption{WithContainer("")})
	assert.Equal(t, "bucket", got.Container, "empty container keeps the default")

	got = resolve(defaults, []ReadOption{WithContainer("other")})
	assert.Equal(t, "other", got.Container)
}

func TestUnderPrefix(t *testing.T) {
	assert.True(t, underPrefix("a/b", ""))
	assert.True(t, underPrefix("a/b", "a"))
	assert.True(t, underPrefix("a", "a"))
	assert.False(t, underPrefix("ab/c", "a"))
}
