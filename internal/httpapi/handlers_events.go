package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/mistakeknot/hivemind/internal/core"
)

type appendEventRequest struct {
	Type      string         `json:"type"`
	GraphID   string         `json:"graph_id"`
	FromAgent string         `json:"from_agent"`
	ToAgent   string         `json:"to_agent"`
	Tags      []string       `json:"tags"`
	Path      string         `json:"path"`
	Payload   map[string]any `json:"payload"`
}

// runnerOwned lists event types only the runner may produce. External
// producers forging lifecycle events would corrupt cascade accounting.
var runnerOwned = map[core.EventType]bool{
	core.EventAgentStarted:   true,
	core.EventAgentCompleted: true,
	core.EventAgentFailed:    true,
	core.EventCascadeLimit:   true,
}

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleAppendEvent(w, r)
	case http.MethodGet:
		s.handleReplay(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Service) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	var req appendEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	typ := core.EventType(strings.TrimSpace(req.Type))
	if typ == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if runnerOwned[typ] {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	ev, err := s.log.Append(r.Context(), core.Event{
		Type:      typ,
		GraphID:   req.GraphID,
		FromAgent: req.FromAgent,
		ToAgent:   req.ToAgent,
		Tags:      req.Tags,
		Path:      req.Path,
		Payload:   req.Payload,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ev)
}

func (s *Service) handleReplay(w http.ResponseWriter, r *http.Request) {
	var fromID int64
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fromID = parsed
	}
	graphID := r.URL.Query().Get("graph")

	events, err := s.log.Replay(r.Context(), fromID, graphID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []core.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}
