package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/eventlog"
	"github.com/mistakeknot/hivemind/internal/httpapi"
	"github.com/mistakeknot/hivemind/internal/storage"
	"github.com/mistakeknot/hivemind/internal/subscription"
)

// startTestServer runs a hivemind HTTP API over in-memory storage for
// exercising the client-backed subcommands.
func startTestServer(t *testing.T) (*httptest.Server, *storage.InMemory) {
	t.Helper()
	store := storage.NewInMemory()
	registry := subscription.NewRegistry(store)
	if err := registry.Load(context.Background()); err != nil {
		t.Fatalf("load registry: %v", err)
	}
	l := eventlog.New(store, registry, nil, 64)
	t.Cleanup(l.Close)

	srv := httptest.NewServer(httpapi.NewRouter(httpapi.NewService(l, registry, store), nil))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestRootCmdUnknownCommand(t *testing.T) {
	cmd := newRootCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"nosuchcommand"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown command, got nil")
	}
}

func TestRootCmdHelpListsSubcommands(t *testing.T) {
	cmd := newRootCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help execute: %v", err)
	}
	help := out.String()
	for _, sub := range []string{"serve", "emit", "replay", "agents"} {
		if !strings.Contains(help, sub) {
			t.Errorf("expected help to list %q, got: %s", sub, help)
		}
	}
}

func TestEmitCmd(t *testing.T) {
	srv, store := startTestServer(t)

	cmd := newRootCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"emit", "--server", srv.URL,
		"--type", "content.changed",
		"--path", "src/parser.py",
		"--tag", "src",
		"--payload", `{"reason":"edit"}`,
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("emit execute: %v", err)
	}
	if !strings.Contains(out.String(), "event 1 appended") {
		t.Errorf("expected append confirmation, got: %s", out.String())
	}

	events, err := store.Events(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(events))
	}
	ev := events[0]
	if ev.Type != core.EventContentChanged || ev.Path != "src/parser.py" {
		t.Errorf("bad persisted event: %+v", ev)
	}
	if ev.Payload["reason"] != "edit" {
		t.Errorf("expected payload to survive, got %+v", ev.Payload)
	}
}

func TestEmitCmdBadPayload(t *testing.T) {
	srv, _ := startTestServer(t)

	cmd := newRootCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"emit", "--server", srv.URL, "--payload", "{not json"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for bad payload, got nil")
	}
	if !strings.Contains(err.Error(), "parse payload") {
		t.Errorf("expected payload parse error, got: %v", err)
	}
}

func TestReplayCmd(t *testing.T) {
	srv, store := startTestServer(t)

	ctx := context.Background()
	for _, ev := range []core.Event{
		{Type: core.EventContentChanged, Path: "src/a.py"},
		{Type: core.EventAgentMessage, FromAgent: "auditor", ToAgent: "scribe"},
	} {
		if _, err := store.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}

	cmd := newRootCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"replay", "--server", srv.URL})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("replay execute: %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "content.changed") || !strings.Contains(output, "path=src/a.py") {
		t.Errorf("expected first event in output, got: %s", output)
	}
	if !strings.Contains(output, "from=auditor") || !strings.Contains(output, "to=scribe") {
		t.Errorf("expected routing in output, got: %s", output)
	}
	if !strings.Contains(output, "2 events") {
		t.Errorf("expected event count, got: %s", output)
	}
}

func TestReplayCmdCursor(t *testing.T) {
	srv, store := startTestServer(t)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := store.AppendEvent(ctx, core.Event{Type: core.EventManualTrigger}); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}

	cmd := newRootCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"replay", "--server", srv.URL, "--from", "3"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("replay execute: %v", err)
	}
	if !strings.Contains(out.String(), "1 events") {
		t.Errorf("expected 1 event from cursor 3, got: %s", out.String())
	}
}

func TestAgentsCmd(t *testing.T) {
	srv, store := startTestServer(t)

	ctx := context.Background()
	entries := []core.SwarmEntry{
		{AgentID: "parse_args", DisplayName: "Skeptical Auditor", NodeType: "function",
			FilePath: "src/cli.py", StartLine: 10, EndLine: 42, Status: core.AgentActive},
		{AgentID: "old_helper", NodeType: "function",
			FilePath: "src/gone.py", Status: core.AgentOrphaned},
	}
	for _, e := range entries {
		if _, err := store.UpsertSwarmEntry(ctx, e); err != nil {
			t.Fatalf("seed entry: %v", err)
		}
	}

	cmd := newRootCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"agents", "--server", srv.URL, "--status", "active"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("agents execute: %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "parse_args") || !strings.Contains(output, "Skeptical Auditor") {
		t.Errorf("expected active agent in output, got: %s", output)
	}
	if strings.Contains(output, "old_helper") {
		t.Errorf("orphaned agent should be filtered out, got: %s", output)
	}
	if !strings.Contains(output, "1 agents") {
		t.Errorf("expected agent count, got: %s", output)
	}
}
