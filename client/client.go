// Package client provides a Go client for the hivemind event server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.HTTP = httpClient
		}
	}
}

// Event mirrors the server's event record.
type Event struct {
	ID            int64          `json:"id,omitempty"`
	Type          string         `json:"type"`
	GraphID       string         `json:"graph_id,omitempty"`
	FromAgent     string         `json:"from_agent,omitempty"`
	ToAgent       string         `json:"to_agent,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Path          string         `json:"path,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
	CreatedAt     time.Time      `json:"created_at,omitempty"`
}

// Pattern mirrors the server's subscription pattern.
type Pattern struct {
	EventTypes []string `json:"event_types,omitempty"`
	FromAgents []string `json:"from_agents,omitempty"`
	ToAgent    string   `json:"to_agent,omitempty"`
	PathGlob   string   `json:"path_glob,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

type Subscription struct {
	Seq       int64   `json:"seq"`
	ID        string  `json:"id"`
	AgentID   string  `json:"agent_id"`
	Pattern   Pattern `json:"pattern"`
	IsDefault bool    `json:"is_default"`
}

type Agent struct {
	AgentID     string `json:"agent_id"`
	DisplayName string `json:"display_name,omitempty"`
	NodeType    string `json:"node_type"`
	FilePath    string `json:"file_path"`
	ParentID    string `json:"parent_id,omitempty"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Status      string `json:"status"`
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AppendEvent appends one event to the log and returns it with the
// assigned id.
func (c *Client) AppendEvent(ctx context.Context, ev Event) (Event, error) {
	resp, err := c.postJSON(ctx, "/api/events", ev)
	if err != nil {
		return Event{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Event{}, fmt.Errorf("append failed: %d", resp.StatusCode)
	}
	var out Event
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Event{}, err
	}
	return out, nil
}

// Replay fetches persisted events with id >= fromID, optionally filtered by
// graph id.
func (c *Client) Replay(ctx context.Context, fromID int64, graphID string) ([]Event, error) {
	values := url.Values{}
	if fromID > 0 {
		values.Set("from", fmt.Sprintf("%d", fromID))
	}
	if graphID != "" {
		values.Set("graph", graphID)
	}
	endpoint := "/api/events"
	if len(values) > 0 {
		endpoint += "?" + values.Encode()
	}
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("replay failed: %d", resp.StatusCode)
	}
	var out []Event
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Agents lists swarm directory entries, optionally filtered by status
// ("active" or "orphaned").
func (c *Client) Agents(ctx context.Context, status string) ([]Agent, error) {
	endpoint := "/api/agents"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agents failed: %d", resp.StatusCode)
	}
	var out []Agent
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Agent fetches one directory entry.
func (c *Client) Agent(ctx context.Context, agentID string) (Agent, error) {
	resp, err := c.get(ctx, "/api/agents/"+url.PathEscape(agentID))
	if err != nil {
		return Agent{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Agent{}, fmt.Errorf("agent failed: %d", resp.StatusCode)
	}
	var out Agent
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Agent{}, err
	}
	return out, nil
}

// Subscribe registers a subscription pattern for an agent.
func (c *Client) Subscribe(ctx context.Context, agentID string, pattern Pattern) (Subscription, error) {
	resp, err := c.postJSON(ctx, "/api/agents/"+url.PathEscape(agentID)+"/subscriptions", pattern)
	if err != nil {
		return Subscription{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Subscription{}, fmt.Errorf("subscribe failed: %d", resp.StatusCode)
	}
	var out Subscription
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Subscription{}, err
	}
	return out, nil
}

// Subscriptions lists an agent's subscriptions.
func (c *Client) Subscriptions(ctx context.Context, agentID string) ([]Subscription, error) {
	resp, err := c.get(ctx, "/api/agents/"+url.PathEscape(agentID)+"/subscriptions")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subscriptions failed: %d", resp.StatusCode)
	}
	var out []Subscription
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Unsubscribe removes all of an agent's subscriptions.
func (c *Client) Unsubscribe(ctx context.Context, agentID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.BaseURL+"/api/agents/"+url.PathEscape(agentID)+"/subscriptions", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unsubscribe failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.HTTP.Do(req)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.HTTP.Do(req)
}
