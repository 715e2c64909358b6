package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ethpandaops/fetchoor/pkg/config"
	"github.com/sirupsen/logrus"
)

const defaultGitHubTimeout = 10 * time.Second

// Registry builds the configured readers and owns the clients they
// borrow.
type Registry struct {
	log     logrus.FieldLogger
	readers map[string]Reader
	closers []func() error
}

// NewRegistry constructs one reader per configuration entry. On error any
// client already created is closed.
func NewRegistry(
	ctx context.Context,
	log logrus.FieldLogger,
	cfgs map[string]*config.ReaderConfig,
) (*Registry, error) {
	reg := &Registry{
		log:     log.WithField("component", "reader-registry"),
		readers: make(map[string]Reader, len(cfgs)),
	}

	for name, cfg := range cfgs {
		if cfg == nil {
			_ = reg.Close()

			return nil, fmt.Errorf("reader %q: configuration is empty", name)
		}

		r, err := reg.build(ctx, log.WithField("reader", name), cfg)
		if err != nil {
			_ = reg.Close()

			return nil, fmt.Errorf("reader %q: %w", name, err)
		}

		reg.readers[name] = r

		reg.log.WithFields(logrus.Fields{
			"reader":  name,
			"backend": r.Backend(),
		}).Debug("Reader configured")
	}

	return reg, nil
}

// NewStaticRegistry wraps already constructed readers. It owns nothing.
func NewStaticRegistry(readers map[string]Reader) *Registry {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return &Registry{log: l, readers: readers}
}

func (reg *Registry) build(
	ctx context.Context, log logrus.FieldLogger, cfg *config.ReaderConfig,
) (Reader, error) {
	verbose := WithVerbose(cfg.IsVerbose())

	switch cfg.Type {
	case config.ReaderTypeLocal:
		if cfg.Local == nil {
			return nil, fmt.Errorf("local section is required")
		}

		return NewLocalReader(log, cfg.Local.Root, verbose), nil
	case config.ReaderTypeS3:
		if cfg.S3 == nil {
			return nil, fmt.Errorf("s3 section is required")
		}

		return NewS3Reader(
			log, NewS3Client(cfg.S3), verbose, WithContainer(cfg.S3.Bucket),
		), nil
	case config.ReaderTypeGCS:
		if cfg.GCS == nil {
			return nil, fmt.Errorf("gcs section is required")
		}

		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}

		reg.closers = append(reg.closers, client.Close)

		return NewGCSReader(
			log, NewGCSDownloader(client), verbose, WithContainer(cfg.GCS.Bucket),
		), nil
	case config.ReaderTypeGitHub:
		if cfg.GitHub == nil {
			return nil, fmt.Errorf("github section is required")
		}

		timeout := defaultGitHubTimeout

		if cfg.GitHub.Timeout != "" {
			d, err := time.ParseDuration(cfg.GitHub.Timeout)
			if err != nil {
				return nil, fmt.Errorf("parsing github.timeout: %w", err)
			}

			timeout = d
		}

		baseURL := cfg.GitHub.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultGitHubBaseURL
		}

		return NewGitHubReader(
			log,
			&http.Client{Timeout: timeout},
			GitHubOptions{
				BaseURL: baseURL,
				Ref:     cfg.GitHub.Ref,
				Token:   cfg.GitHub.Token,
			},
			verbose,
			WithContainer(cfg.GitHub.Repository),
		), nil
	default:
		return nil, fmt.Errorf("unknown reader type %q", cfg.Type)
	}
}

// Get returns the reader with the given name.
func (reg *Registry) Get(name string) (Reader, error) {
	r, ok := reg.readers[name]
	if !ok {
		return nil, fmt.Errorf(
			"unknown reader %q (configured: %s)",
			name, strings.Join(reg.Names(), ", "),
		)
	}

	return r, nil
}

// Names returns the configured reader names sorted.
func (reg *Registry) Names() []string {
	names := make([]string, 0, len(reg.readers))
	for name := range reg.readers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Close releases every client the registry created.
func (reg *Registry) Close() error {
	var errs []error

	for _, c := range reg.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}

	reg.closers = nil

	return errors.Join(errs...)
}
