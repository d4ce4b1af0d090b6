package core

import "time"

// Subscription is a persisted pattern owned by one agent. Seq is the
// storage-assigned insertion sequence; match results are ordered by it so
// delivery order is reproducible.
type Subscription struct {
	Seq       int64     `json:"seq"`
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Pattern   Pattern   `json:"pattern"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentOrphaned AgentStatus = "orphaned"
)

// SwarmEntry is the authoritative directory row for one agent. Entries are
// marked orphaned when their backing work unit disappears, never deleted.
type SwarmEntry struct {
	AgentID     string      `json:"agent_id"`
	DisplayName string      `json:"display_name,omitempty"`
	NodeType    string      `json:"node_type"`
	FilePath    string      `json:"file_path"`
	ParentID    string      `json:"parent_id,omitempty"`
	StartLine   int         `json:"start_line"`
	EndLine     int         `json:"end_line"`
	Status      AgentStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// DiscoveredUnit is what the discovery collaborator hands the reconciler:
// one work unit (function, class, module) an agent should own.
type DiscoveredUnit struct {
	ID        string `json:"id" yaml:"id"`
	NodeType  string `json:"node_type" yaml:"node_type"`
	FilePath  string `json:"file_path" yaml:"file_path"`
	ParentID  string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
}

// ChatMessage is one entry in an agent's bounded conversation history.
type ChatMessage struct {
	From string    `json:"from"`
	Body string    `json:"body"`
	At   time.Time `json:"at"`
}

// AgentState is the per-agent soft state persisted after every turn. It is
// owned exclusively by the turn currently executing for that agent.
type AgentState struct {
	AgentID     string            `json:"agent_id"`
	NodeType    string            `json:"node_type,omitempty"`
	FilePath    string            `json:"file_path,omitempty"`
	ParentID    string            `json:"parent_id,omitempty"`
	StartLine   int               `json:"start_line,omitempty"`
	EndLine     int               `json:"end_line,omitempty"`
	Connections map[string]string `json:"connections,omitempty"`
	ChatHistory []ChatMessage     `json:"chat_history,omitempty"`
	LastUpdated time.Time         `json:"last_updated"`
}
