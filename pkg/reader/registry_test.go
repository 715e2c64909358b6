package reader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/fetchoor/pkg/config"
	"github.com/ethpandaops/fetchoor/pkg/reader"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("hi"), 0o644))

	quiet := false

	reg, err := reader.NewRegistry(context.Background(), logrus.New(),
		map[string]*config.ReaderConfig{
			"disk": {
				Type:    config.ReaderTypeLocal,
				Verbose: &quiet,
				Local:   &config.LocalReaderConfig{Root: root},
			},
			"objects": {
				Type: config.ReaderTypeS3,
				S3: &config.S3ReaderConfig{
					Bucket:      "b",
					EndpointURL: "http://localhost:9000",
				},
			},
			"bucket": {
				Type: config.ReaderTypeGCS,
				GCS: &config.GCSReaderConfig{
					Bucket:                "b",
					WithoutAuthentication: true,
					EndpointURL:           "http://localhost:4443/storage/v1/",
				},
			},
			"repo": {
				Type: config.ReaderTypeGitHub,
				GitHub: &config.GitHubReaderConfig{
					Repository: "ethpandaops/fetchoor",
					Timeout:    "5s",
				},
			},
		})
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, reg.Close()) })

	assert.Equal(t, []string{"bucket", "disk", "objects", "repo"}, reg.Names())

	backends := map[string]string{
		"bucket":  reader.BackendGCS,
		"disk":    reader.BackendLocal,
		"objects": reader.BackendS3,
		"repo":    reader.BackendGitHub,
	}

	for name, backend := range backends {
		r, err := reg.Get(name)
		require.NoError(t, err)
		assert.Equal(t, backend, r.Backend())
	}

	disk, err := reg.Get("disk")
	require.NoError(t, err)

	data, err := disk.Read(context.Background(), "f.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	_, err = reg.Get("nope")
	assert.ErrorContains(t, err, `unknown reader "nope"`)
	assert.ErrorContains(t, err, "bucket, disk, objects, repo")
}

func TestNewRegistry_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *config.ReaderConfig
		wantErr string
	}{
		{name: "nil config", cfg: nil, wantErr: "configuration is empty"},
		{name: "unknown type", cfg: &config.ReaderConfig{Type: "ftp"}, wantErr: "unknown reader type"},
		{name: "missing section", cfg: &config.ReaderConfig{Type: config.ReaderTypeS3}, wantErr: "s3 section is required"},
		{
			name: "bad timeout",
			cfg: &config.ReaderConfig{
				Type:   config.ReaderTypeGitHub,
				GitHub: &config.GitHubReaderConfig{Timeout: "soon"},
			},
			wantErr: "parsing github.timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := reader.NewRegistry(context.Background(), logrus.New(),
				map[string]*config.ReaderConfig{"x": tt.cfg})
			assert.ErrorContains(t, err, tt.wantErr)
			assert.ErrorContains(t, err, `reader "x"`)
		})
	}
}

func TestNewStaticRegistry(t *testing.T) {
	t.Parallel()

	r := reader.NewLocalReader(nil, t.TempDir())
	reg := reader.NewStaticRegistry(map[string]reader.Reader{"local": r})

	got, err := reg.Get("local")
	require.NoError(t, err)
	assert.Same(t, r, got)
	assert.NoError(t, reg.Close())
}
