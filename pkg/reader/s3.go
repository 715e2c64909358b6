package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ethpandaops/fetchoor/pkg/config"
	"github.com/sirupsen/logrus"
)

// S3API is the subset of the S3 client used by the S3 reader.
// *s3.Client satisfies it.
type S3API interface {
	GetObject(
		ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options),
	) (*s3.GetObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// Compile-time interface checks.
var (
	_ Reader = (*s3Reader)(nil)
	_ S3API  = (*s3.Client)(nil)
)

type s3Reader struct {
	diag     diagnostics
	client   S3API
	defaults ReadOptions
}

// NewS3Reader creates a Reader backed by S3-compatible storage. The
// container option is the bucket name.
func NewS3Reader(
	log logrus.FieldLogger, client S3API, defaults ...ReadOption,
) Reader {
	return &s3Reader{
		diag:     newDiagnostics(log, BackendS3),
		client:   client,
		defaults: buildDefaults(defaults),
	}
}

func (r *s3Reader) Backend() string {
	return BackendS3
}

// Read downloads s3://{container}/{path}.
func (r *s3Reader) Read(
	ctx context.Context, path string, opts ...ReadOption,
) ([]byte, error) {
	o := resolve(r.defaults, opts)

	key, err := cleanObjectPath(path)
	if err != nil {
		return nil, r.diag.fail(path, o, err)
	}

	if o.Container == "" {
		return nil, r.diag.fail(path, o, ErrContainerRequired)
	}

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.Container),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			err = notFound(err)
		}

		return nil, r.diag.fail(path, o, fmt.Errorf("getting object: %w", err))
	}

	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, r.diag.fail(path, o, fmt.Errorf("reading object body: %w", err))
	}

	return data, nil
}

// ListTree lists every key below {path}/ in the bucket. Keys ending in
// "/" are directory markers and are skipped.
func (r *s3Reader) ListTree(
	ctx context.Context, path string, opts ...ReadOption,
) (Listing, error) {
	o := resolve(r.defaults, opts)

	prefix, err := cleanPrefix(path)
	if err != nil {
		return Listing{}, r.diag.fail(path, o, err)
	}

	if o.Container == "" {
		return Listing{}, r.diag.fail(path, o, ErrContainerRequired)
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(o.Container)}
	if prefix != "" {
		input.Prefix = aws.String(prefix + "/")
	}

	paginator := s3.NewListObjectsV2Paginator(r.client, input)

	var keys []string

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isS3NotFound(err) {
				err = notFound(err)
			}

			return Listing{}, r.diag.fail(
				path, o, fmt.Errorf("listing objects: %w", err),
			)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
				continue
			}

			keys = append(keys, *obj.Key)
		}
	}

	sort.Strings(keys)

	return Supported(keys), nil
}

// isS3NotFound returns true if the error indicates the object or bucket
// does not exist.
func isS3NotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var nsb *s3types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}

	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	// Some S3-compatible implementations return a generic error with
	// "NoSuchKey" in the message rather than the typed error.
	msg := err.Error()

	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "NoSuchBucket")
}

// NewS3Client constructs an S3 client from reader configuration.
func NewS3Client(cfg *config.S3ReaderConfig) *s3.Client {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.Region != "" {
				o.Region = cfg.Region
			} else {
				o.Region = "us-east-1"
			}

			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}

			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	return s3.New(s3.Options{}, opts...)
}
