package swarm

import (
	"context"
	"fmt"
	"log"

	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/names"
	"github.com/mistakeknot/hivemind/internal/storage"
)

// Registrar is the subscription surface the reconciler needs.
type Registrar interface {
	RegisterDefaults(ctx context.Context, agentID, filePath string) error
	UnregisterAll(ctx context.Context, agentID string) error
}

// Appender is the event log surface the reconciler needs.
type Appender interface {
	Append(ctx context.Context, ev core.Event) (core.Event, error)
}

// Diff summarizes one reconcile pass.
type Diff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Changed []string `json:"changed,omitempty"`
}

// Empty reports whether the pass found nothing to do.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Reconciler aligns the swarm directory with the units discovery found.
// Run at startup and after every re-discovery pass; running it twice with
// the same input is a no-op the second time.
type Reconciler struct {
	store     storage.SwarmStore
	states    *StateStore
	registrar Registrar
	eventlog  Appender
}

func NewReconciler(store storage.SwarmStore, states *StateStore, registrar Registrar, eventlog Appender) *Reconciler {
	return &Reconciler{store: store, states: states, registrar: registrar, eventlog: eventlog}
}

// Reconcile diffs units against the directory. New units get an agent
// (directory entry, default subscriptions, initial state). Units that
// disappeared get their agents orphaned and unsubscribed. Units whose
// identity moved get their entries updated and a content.changed event so
// dependent agents notice.
func (r *Reconciler) Reconcile(ctx context.Context, units []core.DiscoveredUnit) (Diff, error) {
	existing, err := r.store.ListSwarmEntries(ctx, "")
	if err != nil {
		return Diff{}, fmt.Errorf("list swarm entries: %w", err)
	}
	byID := make(map[string]core.SwarmEntry, len(existing))
	for _, entry := range existing {
		byID[entry.AgentID] = entry
	}

	var diff Diff
	seen := make(map[string]bool, len(units))
	for _, unit := range units {
		if unit.ID == "" {
			return Diff{}, fmt.Errorf("discovered unit missing id (file %s)", unit.FilePath)
		}
		seen[unit.ID] = true

		entry, known := byID[unit.ID]
		switch {
		case !known:
			if err := r.addAgent(ctx, unit); err != nil {
				return Diff{}, err
			}
			diff.Added = append(diff.Added, unit.ID)
		case entry.Status == core.AgentOrphaned:
			// The unit came back; revive the agent under its old name.
			if err := r.updateAgent(ctx, entry, unit); err != nil {
				return Diff{}, err
			}
			diff.Added = append(diff.Added, unit.ID)
		case unitChanged(entry, unit):
			if err := r.updateAgent(ctx, entry, unit); err != nil {
				return Diff{}, err
			}
			diff.Changed = append(diff.Changed, unit.ID)
		}
	}

	for _, entry := range existing {
		if seen[entry.AgentID] || entry.Status != core.AgentActive {
			continue
		}
		if err := r.removeAgent(ctx, entry.AgentID); err != nil {
			return Diff{}, err
		}
		diff.Removed = append(diff.Removed, entry.AgentID)
	}

	if !diff.Empty() {
		log.Printf("swarm: reconciled, %d added, %d removed, %d changed",
			len(diff.Added), len(diff.Removed), len(diff.Changed))
	}
	return diff, nil
}

func (r *Reconciler) addAgent(ctx context.Context, unit core.DiscoveredUnit) error {
	if _, err := r.store.UpsertSwarmEntry(ctx, core.SwarmEntry{
		AgentID:     unit.ID,
		DisplayName: names.Generate(),
		NodeType:    unit.NodeType,
		FilePath:    unit.FilePath,
		ParentID:    unit.ParentID,
		StartLine:   unit.StartLine,
		EndLine:     unit.EndLine,
		Status:      core.AgentActive,
	}); err != nil {
		return fmt.Errorf("upsert agent %s: %w", unit.ID, err)
	}
	if err := r.registrar.RegisterDefaults(ctx, unit.ID, unit.FilePath); err != nil {
		return fmt.Errorf("default subscriptions for %s: %w", unit.ID, err)
	}
	if err := r.states.Save(stateFromUnit(unit)); err != nil {
		return fmt.Errorf("init state for %s: %w", unit.ID, err)
	}
	return nil
}

func (r *Reconciler) updateAgent(ctx context.Context, entry core.SwarmEntry, unit core.DiscoveredUnit) error {
	entry.NodeType = unit.NodeType
	entry.FilePath = unit.FilePath
	entry.ParentID = unit.ParentID
	entry.StartLine = unit.StartLine
	entry.EndLine = unit.EndLine
	entry.Status = core.AgentActive
	if _, err := r.store.UpsertSwarmEntry(ctx, entry); err != nil {
		return fmt.Errorf("upsert agent %s: %w", unit.ID, err)
	}
	// Defaults follow the file: re-register so the path glob tracks moves.
	if err := r.registrar.UnregisterAll(ctx, unit.ID); err != nil {
		return fmt.Errorf("unregister %s: %w", unit.ID, err)
	}
	if err := r.registrar.RegisterDefaults(ctx, unit.ID, unit.FilePath); err != nil {
		return fmt.Errorf("default subscriptions for %s: %w", unit.ID, err)
	}

	state, err := r.states.Load(unit.ID)
	if err != nil {
		return err
	}
	identity := stateFromUnit(unit)
	state.NodeType = identity.NodeType
	state.FilePath = identity.FilePath
	state.ParentID = identity.ParentID
	state.StartLine = identity.StartLine
	state.EndLine = identity.EndLine
	if err := r.states.Save(state); err != nil {
		return fmt.Errorf("update state for %s: %w", unit.ID, err)
	}

	if r.eventlog != nil {
		if _, err := r.eventlog.Append(ctx, core.Event{
			Type:      core.EventContentChanged,
			Path:      unit.FilePath,
			FromAgent: "reconciler",
			Payload:   map[string]any{"unit_id": unit.ID},
		}); err != nil {
			return fmt.Errorf("announce change for %s: %w", unit.ID, err)
		}
	}
	return nil
}

func (r *Reconciler) removeAgent(ctx context.Context, agentID string) error {
	if err := r.store.MarkOrphaned(ctx, agentID); err != nil {
		return fmt.Errorf("orphan agent %s: %w", agentID, err)
	}
	if err := r.registrar.UnregisterAll(ctx, agentID); err != nil {
		return fmt.Errorf("unregister %s: %w", agentID, err)
	}
	return nil
}

func unitChanged(entry core.SwarmEntry, unit core.DiscoveredUnit) bool {
	return entry.NodeType != unit.NodeType ||
		entry.FilePath != unit.FilePath ||
		entry.ParentID != unit.ParentID ||
		entry.StartLine != unit.StartLine ||
		entry.EndLine != unit.EndLine
}

func stateFromUnit(unit core.DiscoveredUnit) core.AgentState {
	return core.AgentState{
		AgentID:   unit.ID,
		NodeType:  unit.NodeType,
		FilePath:  unit.FilePath,
		ParentID:  unit.ParentID,
		StartLine: unit.StartLine,
		EndLine:   unit.EndLine,
	}
}
