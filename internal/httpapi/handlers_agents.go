package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/storage"
)

func (s *Service) handleListAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := core.AgentStatus(r.URL.Query().Get("status"))
	if status != "" && status != core.AgentActive && status != core.AgentOrphaned {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	entries, err := s.swarm.ListSwarmEntries(r.Context(), status)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []core.SwarmEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

// handleAgent routes /api/agents/{id} and /api/agents/{id}/subscriptions.
func (s *Service) handleAgent(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/agents/"), "/")
	if path == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if id, ok := strings.CutSuffix(path, "/subscriptions"); ok {
		s.handleSubscriptions(w, r, strings.Trim(id, "/"))
		return
	}
	if strings.Contains(path, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	s.handleGetAgent(w, r, path)
}

func (s *Service) handleGetAgent(w http.ResponseWriter, r *http.Request, agentID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	entry, err := s.swarm.GetSwarmEntry(r.Context(), agentID)
	if errors.Is(err, storage.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entry)
}

func (s *Service) handleSubscriptions(w http.ResponseWriter, r *http.Request, agentID string) {
	if agentID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodGet:
		subs := s.registry.AgentSubscriptions(agentID)
		if subs == nil {
			subs = []core.Subscription{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(subs)

	case http.MethodPost:
		var pattern core.Pattern
		if err := json.NewDecoder(r.Body).Decode(&pattern); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sub, err := s.registry.Register(r.Context(), agentID, pattern)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sub)

	case http.MethodDelete:
		if err := s.registry.UnregisterAll(r.Context(), agentID); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
