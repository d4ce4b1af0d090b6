package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/hivemind/internal/config"
	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/eventlog"
	"github.com/mistakeknot/hivemind/internal/httpapi"
	"github.com/mistakeknot/hivemind/internal/observer"
	"github.com/mistakeknot/hivemind/internal/runner"
	"github.com/mistakeknot/hivemind/internal/server"
	"github.com/mistakeknot/hivemind/internal/storage/sqlite"
	"github.com/mistakeknot/hivemind/internal/subscription"
	"github.com/mistakeknot/hivemind/internal/swarm"
	"github.com/mistakeknot/hivemind/internal/ws"
)

// newServeCmd creates the "hivemind serve" subcommand.
func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the hivemind server",
		Long:  "Starts the event log, subscription registry, agent runner, and\nHTTP/websocket front end. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "hivemind.yaml", "path to config file")
	return cmd
}

func serve(cfg config.Config) error {
	store, err := sqlite.New(filepath.Join(cfg.StorageRoot, "hivemind.db"))
	if err != nil {
		return fmt.Errorf("store init: %w", err)
	}
	defer store.Close()
	resilient := sqlite.NewResilient(store)

	registry := subscription.NewRegistry(resilient)
	if err := registry.Load(context.Background()); err != nil {
		return err
	}

	bus := observer.NewBus(cfg.ObserverBuffer)
	defer bus.Close()
	elog := eventlog.New(resilient, registry, bus, cfg.TriggerBuffer)
	defer elog.Close()
	states := swarm.NewStateStore(cfg.StorageRoot)

	units, err := config.LoadUnits(cfg.UnitsFile)
	if err != nil {
		return err
	}
	rec := swarm.NewReconciler(resilient, states, registry, elog)
	diff, err := rec.Reconcile(context.Background(), units)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if !diff.Empty() {
		log.Printf("serve: startup reconcile, added %v, removed %v, changed %v",
			diff.Added, diff.Removed, diff.Changed)
	}

	run := runner.New(runner.Config{
		MaxConcurrency:  cfg.MaxConcurrency,
		MaxTriggerDepth: cfg.MaxTriggerDepth,
		TriggerCooldown: cfg.TriggerCooldown(),
	}, elog, states, chatExecutor{}, bus)
	run.Run()
	defer run.Stop()

	hub := ws.NewHub()
	go hub.Run(bus)

	svc := httpapi.NewService(elog, registry, resilient)
	srv, err := server.New(server.Config{
		Addr:       cfg.Addr,
		SocketPath: cfg.SocketPath,
		Handler:    httpapi.NewRouter(svc, hub.Handler()),
	})
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("serve: listening on %s", cfg.Addr)
	return srv.Run(ctx)
}

// chatExecutor is the built-in turn executor: it records the triggering
// event in the agent's chat history and completes. Deployments with real
// agents plug their own Executor in through pkg/embedded.
type chatExecutor struct{}

func (chatExecutor) ExecuteTurn(ctx context.Context, turn *runner.Turn) (runner.Result, error) {
	ev := turn.Trigger.Event
	turn.State.ChatHistory = append(turn.State.ChatHistory, core.ChatMessage{
		From: ev.FromAgent,
		Body: describeEvent(ev),
		At:   time.Now().UTC(),
	})
	return runner.Result{
		State:   turn.State,
		Summary: fmt.Sprintf("observed %s", ev.Type),
	}, nil
}

func describeEvent(ev core.Event) string {
	switch ev.Type {
	case core.EventAgentMessage:
		if body, ok := ev.Payload["body"].(string); ok {
			return body
		}
		return "message"
	case core.EventContentChanged, core.EventFileSaved:
		return fmt.Sprintf("%s: %s", ev.Type, ev.Path)
	default:
		return string(ev.Type)
	}
}
