package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mistakeknot/hivemind/internal/core"
)

func (s *Store) InsertSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	if sub.AgentID == "" {
		return core.Subscription{}, fmt.Errorf("agent id required")
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = now
	}

	patternJSON, err := json.Marshal(sub.Pattern)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("marshal pattern: %w", err)
	}

	res, err := s.db.Exec(
		`INSERT INTO subscriptions (id, agent_id, pattern_json, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.AgentID, string(patternJSON), boolToInt(sub.IsDefault),
		sub.CreatedAt.Format(time.RFC3339Nano), sub.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return core.Subscription{}, fmt.Errorf("subscription seq: %w", err)
	}
	sub.Seq = seq
	return sub, nil
}

func (s *Store) DeleteAgentSubscriptions(ctx context.Context, agentID string) error {
	_, err := s.db.Exec(`DELETE FROM subscriptions WHERE agent_id = ?`, agentID)
	if err != nil {
		return fmt.Errorf("delete subscriptions: %w", err)
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	return s.querySubscriptions(`SELECT seq, id, agent_id, pattern_json, is_default, created_at, updated_at
	                             FROM subscriptions ORDER BY seq ASC`)
}

func (s *Store) AgentSubscriptions(ctx context.Context, agentID string) ([]core.Subscription, error) {
	return s.querySubscriptions(`SELECT seq, id, agent_id, pattern_json, is_default, created_at, updated_at
	                             FROM subscriptions WHERE agent_id = ? ORDER BY seq ASC`, agentID)
}

func (s *Store) querySubscriptions(query string, args ...any) ([]core.Subscription, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubscription(rows *sql.Rows) (core.Subscription, error) {
	var (
		sub         core.Subscription
		patternJSON string
		isDefault   int
		createdAt   string
		updatedAt   string
	)
	err := rows.Scan(&sub.Seq, &sub.ID, &sub.AgentID, &patternJSON, &isDefault, &createdAt, &updatedAt)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("scan subscription: %w", err)
	}
	if err := json.Unmarshal([]byte(patternJSON), &sub.Pattern); err != nil {
		return core.Subscription{}, fmt.Errorf("parse pattern: %w", err)
	}
	sub.IsDefault = isDefault != 0
	sub.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	sub.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return sub, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
