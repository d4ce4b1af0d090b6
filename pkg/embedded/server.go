// Package embedded provides an in-process hivemind server for hosts that
// want the event log and runner without a separate daemon.
package embedded

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/eventlog"
	"github.com/mistakeknot/hivemind/internal/httpapi"
	"github.com/mistakeknot/hivemind/internal/observer"
	"github.com/mistakeknot/hivemind/internal/runner"
	"github.com/mistakeknot/hivemind/internal/storage/sqlite"
	"github.com/mistakeknot/hivemind/internal/subscription"
	"github.com/mistakeknot/hivemind/internal/swarm"
	"github.com/mistakeknot/hivemind/internal/ws"
)

// Config configures the embedded server.
type Config struct {
	// StorageRoot holds the database and agent state files.
	// If empty, defaults to ~/.hivemind
	StorageRoot string

	// Port is the HTTP port to listen on. If 0, defaults to 7431.
	Port int

	// Host is the host to bind to. If empty, defaults to 127.0.0.1.
	Host string

	// Executor runs agent turns. Required.
	Executor runner.Executor

	// MaxConcurrency, MaxTriggerDepth, TriggerCooldown tune the runner.
	// Zero values use the runner defaults (depth 3, cooldown 1s).
	MaxConcurrency  int
	MaxTriggerDepth int
	TriggerCooldown time.Duration
}

// Server is an embedded hivemind server.
type Server struct {
	cfg     Config
	store   *sqlite.Store
	log     *eventlog.Log
	reg     *subscription.Registry
	rec     *swarm.Reconciler
	run     *runner.Runner
	bus     *observer.Bus
	http    *http.Server
	started bool
	mu      sync.Mutex
}

// New creates an embedded server. Nothing listens until Start.
func New(cfg Config) (*Server, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor required")
	}
	if cfg.StorageRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		cfg.StorageRoot = filepath.Join(home, ".hivemind")
	}
	if cfg.Port == 0 {
		cfg.Port = 7431
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.MaxTriggerDepth == 0 {
		cfg.MaxTriggerDepth = 3
	}
	if cfg.TriggerCooldown == 0 {
		cfg.TriggerCooldown = time.Second
	}

	store, err := sqlite.New(filepath.Join(cfg.StorageRoot, "hivemind.db"))
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	resilient := sqlite.NewResilient(store)

	registry := subscription.NewRegistry(resilient)
	if err := registry.Load(context.Background()); err != nil {
		store.Close()
		return nil, err
	}

	bus := observer.NewBus(64)
	elog := eventlog.New(resilient, registry, bus, 256)
	states := swarm.NewStateStore(cfg.StorageRoot)

	run := runner.New(runner.Config{
		MaxConcurrency:  cfg.MaxConcurrency,
		MaxTriggerDepth: cfg.MaxTriggerDepth,
		TriggerCooldown: cfg.TriggerCooldown,
	}, elog, states, cfg.Executor, bus)

	hub := ws.NewHub()
	go hub.Run(bus)

	svc := httpapi.NewService(elog, registry, resilient)
	router := httpapi.NewRouter(svc, hub.Handler())

	return &Server{
		cfg:   cfg,
		store: store,
		log:   elog,
		reg:   registry,
		rec:   swarm.NewReconciler(resilient, states, registry, elog),
		run:   run,
		bus:   bus,
		http:  &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: router},
	}, nil
}

// Start launches the runner and HTTP listener in background goroutines.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.run.Run()
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "hivemind server error: %v\n", err)
		}
	}()

	// Wait a moment for the listener to come up
	time.Sleep(50 * time.Millisecond)
	return nil
}

// Stop shuts everything down: HTTP, runner, bus, store.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.http.Shutdown(ctx)

	s.run.Stop()
	s.log.Close()
	s.bus.Close()
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Reconcile aligns the swarm directory with discovered units.
func (s *Server) Reconcile(ctx context.Context, units []core.DiscoveredUnit) (swarm.Diff, error) {
	return s.rec.Reconcile(ctx, units)
}

// URL returns the base URL for the server.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.http.Addr)
}

// Log returns the event log for direct in-process appends.
func (s *Server) Log() *eventlog.Log {
	return s.log
}

// Registry returns the subscription registry for direct in-process use.
func (s *Server) Registry() *subscription.Registry {
	return s.reg
}
