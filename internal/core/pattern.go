package core

import (
	"slices"

	"github.com/mistakeknot/hivemind/internal/glob"
)

// Pattern is a declarative subscription predicate. Every present field must
// match for the pattern to match; absent fields never block. A pattern with
// no fields set matches everything and is rejected at registration.
type Pattern struct {
	EventTypes []EventType `json:"event_types,omitempty"`
	FromAgents []string    `json:"from_agents,omitempty"`
	ToAgent    string      `json:"to_agent,omitempty"`
	PathGlob   string      `json:"path_glob,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
}

// IsEmpty reports whether no predicate field is set.
func (p Pattern) IsEmpty() bool {
	return len(p.EventTypes) == 0 && len(p.FromAgents) == 0 &&
		p.ToAgent == "" && p.PathGlob == "" && len(p.Tags) == 0
}

// Matches evaluates the pattern against an event. Field rules: set
// membership for EventTypes and FromAgents, exact match for ToAgent,
// glob match against the event path for PathGlob, non-empty intersection
// for Tags. All present fields are ANDed.
func (p Pattern) Matches(ev Event) bool {
	if len(p.EventTypes) > 0 && !slices.Contains(p.EventTypes, ev.Type) {
		return false
	}
	if len(p.FromAgents) > 0 && !slices.Contains(p.FromAgents, ev.FromAgent) {
		return false
	}
	if p.ToAgent != "" && p.ToAgent != ev.ToAgent {
		return false
	}
	if p.PathGlob != "" {
		if ev.Path == "" {
			return false
		}
		ok, err := glob.Match(p.PathGlob, ev.Path)
		if err != nil || !ok {
			return false
		}
	}
	if len(p.Tags) > 0 && !tagsIntersect(p.Tags, ev.Tags) {
		return false
	}
	return true
}

func tagsIntersect(want, have []string) bool {
	for _, t := range want {
		if slices.Contains(have, t) {
			return true
		}
	}
	return false
}
