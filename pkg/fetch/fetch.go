// Package fetch reads many paths through one reader.Reader in parallel.
// The reader itself is synchronous; the fan-out and throttling live here,
// on the caller's side.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ethpandaops/fetchoor/pkg/config"
	"github.com/ethpandaops/fetchoor/pkg/fsutil"
	"github.com/ethpandaops/fetchoor/pkg/reader"
)

// Result is the outcome of reading one path.
type Result struct {
	Path     string
	Data     []byte
	Err      error
	Duration time.Duration
}

// Fetcher issues parallel reads against a single reader.
type Fetcher struct {
	log         logrus.FieldLogger
	reader      reader.Reader
	concurrency int
	limiter     *rate.Limiter
}

// NewFetcher creates a Fetcher. A zero RequestsPerSecond disables rate
// limiting.
func NewFetcher(
	log logrus.FieldLogger, r reader.Reader, cfg *config.FetchConfig,
) *Fetcher {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = config.DefaultFetchConcurrency
	}

	f := &Fetcher{
		log:         log.WithField("component", "fetcher"),
		reader:      r,
		concurrency: concurrency,
	}

	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return f
}

// FetchAll reads every path and returns one Result per path in input
// order. A failed read, or one the rate limiter cannot admit before ctx's
// deadline, is recorded in its Result and does not stop the others; the
// returned error is only set when ctx itself is done.
func (f *Fetcher) FetchAll(
	ctx context.Context, paths []string, opts ...reader.ReadOption,
) ([]Result, error) {
	results := make([]Result, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, p := range paths {
		g.Go(func() error {
			if f.limiter != nil {
				if err := f.limiter.Wait(gCtx); err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}

					// The deadline would pass before a token is available.
					results[i] = Result{
						Path: p,
						Err:  fmt.Errorf("waiting for rate limiter: %w", err),
					}

					f.log.WithError(results[i].Err).WithField("path", p).Warn("Read skipped")

					return nil
				}
			}

			start := time.Now()
			data, err := f.reader.Read(gCtx, p, opts...)

			results[i] = Result{
				Path:     p,
				Data:     data,
				Err:      err,
				Duration: time.Since(start),
			}

			if err != nil {
				f.log.WithError(err).WithField("path", p).Warn("Read failed")

				return nil
			}

			f.log.WithFields(logrus.Fields{
				"path":     p,
				"size":     units.HumanSize(float64(len(data))),
				"duration": results[i].Duration,
			}).Debug("Read completed")

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	if err := ctx.Err(); err != nil {
		return results, err
	}

	return results, nil
}

// Summary counts successes and failures and sums the bytes read.
type Summary struct {
	Succeeded int
	Failed    int
	Bytes     int64
}

// Summarize aggregates results.
func Summarize(results []Result) Summary {
	var s Summary

	for _, r := range results {
		if r.Err != nil {
			s.Failed++

			continue
		}

		s.Succeeded++
		s.Bytes += int64(len(r.Data))
	}

	return s
}

// String renders the summary with a human readable size.
func (s Summary) String() string {
	return fmt.Sprintf(
		"%d succeeded, %d failed, %s read",
		s.Succeeded, s.Failed, units.HumanSize(float64(s.Bytes)),
	)
}

// WriteResults writes every successful result below dir, keeping each
// path's relative layout. It returns the written file paths.
func WriteResults(
	dir string, results []Result, owner *fsutil.OwnerConfig,
) ([]string, error) {
	written := make([]string, 0, len(results))

	for _, r := range results {
		if r.Err != nil {
			continue
		}

		full, err := fsutil.WriteBelow(dir, r.Path, r.Data, owner)
		if err != nil {
			return written, fmt.Errorf("writing result %s: %w", r.Path, err)
		}

		written = append(written, full)
	}

	return written, nil
}
