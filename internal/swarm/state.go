// Package swarm manages the agent directory: per-agent soft state on disk
// and the reconciler that aligns the directory with the code units the
// discovery pass found.
package swarm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mistakeknot/hivemind/internal/core"
)

// maxChatHistory bounds the conversation history kept in agent state.
const maxChatHistory = 50

// StateStore persists per-agent soft state as JSON files under
// <root>/agents/<id>/state.json. State is advisory: losing it degrades an
// agent's memory, never the event log.
type StateStore struct {
	root string
}

func NewStateStore(root string) *StateStore {
	return &StateStore{root: root}
}

// statePath sanitizes the agent id so it can't escape the storage root.
func (s *StateStore) statePath(agentID string) (string, error) {
	if agentID == "" {
		return "", fmt.Errorf("agent id required")
	}
	clean := filepath.Base(filepath.Clean(agentID))
	if clean != agentID || strings.ContainsAny(agentID, `/\`) || clean == "." || clean == ".." {
		return "", fmt.Errorf("invalid agent id %q", agentID)
	}
	return filepath.Join(s.root, "agents", clean, "state.json"), nil
}

// Load reads an agent's state. A missing file yields a zero-valued state
// with the id filled in, not an error: new agents start empty.
func (s *StateStore) Load(agentID string) (core.AgentState, error) {
	path, err := s.statePath(agentID)
	if err != nil {
		return core.AgentState{}, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return core.AgentState{AgentID: agentID}, nil
	}
	if err != nil {
		return core.AgentState{}, fmt.Errorf("read state: %w", err)
	}
	var state core.AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		return core.AgentState{}, fmt.Errorf("decode state for %s: %w", agentID, err)
	}
	state.AgentID = agentID
	return state, nil
}

// Save writes an agent's state atomically: write to a temp file in the same
// directory, then rename over the old file. Chat history is truncated to
// the most recent entries before writing.
func (s *StateStore) Save(state core.AgentState) error {
	path, err := s.statePath(state.AgentID)
	if err != nil {
		return err
	}
	if n := len(state.ChatHistory); n > maxChatHistory {
		state.ChatHistory = state.ChatHistory[n-maxChatHistory:]
	}
	state.LastUpdated = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
