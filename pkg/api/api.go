// Package api serves configured readers over HTTP.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/fetchoor/pkg/config"
	"github.com/ethpandaops/fetchoor/pkg/reader"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
	// Addr returns the bound listen address once started.
	Addr() string
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.APIConfig
	readers    *reader.Registry
	users      map[string]string
	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup
	done       chan struct{}
	stopOnce   sync.Once
}

// NewServer creates a new API server. The registry is borrowed; the caller
// closes it after Stop.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.APIConfig,
	readers *reader.Registry,
) Server {
	users := make(map[string]string, len(cfg.Auth.Basic.Users))
	for _, u := range cfg.Auth.Basic.Users {
		users[u.Username] = u.PasswordHash
	}

	return &server{
		log:     log.WithField("component", "api"),
		cfg:     cfg,
		readers: readers,
		users:   users,
		done:    make(chan struct{}),
	}
}

// Start binds the listener and serves requests in the background.
func (s *server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Listen, err)
	}

	s.listener = ln

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithFields(logrus.Fields{
			"listen":  ln.Addr().String(),
			"readers": s.readers.Names(),
		}).Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Addr returns the address the server listens on.
func (s *server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server. Calls after the first are
// no-ops.
func (s *server) Stop() error {
	s.stopOnce.Do(s.stop)

	return nil
}

func (s *server) stop() {
	close(s.done)

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	s.log.Info("API server stopped")
}
