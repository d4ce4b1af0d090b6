// Package server runs the HTTP front end on a TCP address and, optionally,
// a unix socket for same-host tooling.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	Addr       string
	SocketPath string
	Handler    http.Handler
}

type Server struct {
	cfg    Config
	http   *http.Server
	unix   *http.Server
	unixLn net.Listener
}

func New(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("addr required")
	}
	h := cfg.Handler
	if h == nil {
		h = http.NewServeMux()
	}
	s := &Server{cfg: cfg, http: &http.Server{Addr: cfg.Addr, Handler: h}}

	if cfg.SocketPath != "" {
		// Remove stale socket file from previous run
		if err := os.Remove(cfg.SocketPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
		ln, err := net.Listen("unix", cfg.SocketPath)
		if err != nil {
			return nil, fmt.Errorf("unix listen: %w", err)
		}
		if err := os.Chmod(cfg.SocketPath, 0660); err != nil {
			ln.Close()
			return nil, fmt.Errorf("chmod socket: %w", err)
		}
		s.unixLn = ln
		s.unix = &http.Server{Handler: h}
	}

	return s, nil
}

// Start serves until Shutdown is called. Blocks.
func (s *Server) Start() error {
	if s.unixLn != nil {
		go s.unix.Serve(s.unixLn)
	}
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error

	if s.unix != nil {
		if err := s.unix.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.cfg.SocketPath != "" {
		os.Remove(s.cfg.SocketPath)
	}

	if err := s.http.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// SocketPath returns the configured socket path, or empty if not configured.
func (s *Server) SocketPath() string {
	return s.cfg.SocketPath
}
