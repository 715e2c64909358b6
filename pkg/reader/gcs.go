package reader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/ethpandaops/fetchoor/pkg/config"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// ObjectDownloader downloads a whole object from a bucket.
type ObjectDownloader interface {
	Download(ctx context.Context, bucket, object string) ([]byte, error)
}

// Compile-time interface checks.
var (
	_ Reader           = (*gcsReader)(nil)
	_ ObjectDownloader = (*gcsDownloader)(nil)
)

type gcsReader struct {
	diag       diagnostics
	downloader ObjectDownloader
	defaults   ReadOptions
}

// NewGCSReader creates a Reader backed by Google Cloud Storage. The
// container option is the bucket name. Directory traversal is not
// supported.
func NewGCSReader(
	log logrus.FieldLogger, downloader ObjectDownloader, defaults ...ReadOption,
) Reader {
	return &gcsReader{
		diag:       newDiagnostics(log, BackendGCS),
		downloader: downloader,
		defaults:   buildDefaults(defaults),
	}
}

func (r *gcsReader) Backend() string {
	return BackendGCS
}

// Read downloads gs://{container}/{path}.
func (r *gcsReader) Read(
	ctx context.Context, path string, opts ...ReadOption,
) ([]byte, error) {
	o := resolve(r.defaults, opts)

	object, err := cleanObjectPath(path)
	if err != nil {
		return nil, r.diag.fail(path, o, err)
	}

	if o.Container == "" {
		return nil, r.diag.fail(path, o, ErrContainerRequired)
	}

	data, err := r.downloader.Download(ctx, o.Container, object)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) ||
			errors.Is(err, storage.ErrBucketNotExist) {
			err = notFound(err)
		}

		return nil, r.diag.fail(path, o, err)
	}

	return data, nil
}

// ListTree is not implemented for GCS.
func (r *gcsReader) ListTree(
	_ context.Context, _ string, _ ...ReadOption,
) (Listing, error) {
	return Unsupported(), nil
}

type gcsDownloader struct {
	client *storage.Client
}

// NewGCSDownloader adapts a storage client to ObjectDownloader. The caller
// keeps ownership of the client.
func NewGCSDownloader(client *storage.Client) ObjectDownloader {
	return &gcsDownloader{client: client}
}

func (d *gcsDownloader) Download(
	ctx context.Context, bucket, object string,
) ([]byte, error) {
	rc, err := d.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening object: %w", err)
	}

	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading object: %w", err)
	}

	return data, nil
}

// NewGCSClient constructs a storage client from reader configuration. The
// caller must Close it.
func NewGCSClient(
	ctx context.Context, cfg *config.GCSReaderConfig,
) (*storage.Client, error) {
	var opts []option.ClientOption

	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	if cfg.WithoutAuthentication {
		opts = append(opts, option.WithoutAuthentication())
	}

	if cfg.EndpointURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.EndpointURL))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}

	return client, nil
}
