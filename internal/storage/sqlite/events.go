package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mistakeknot/hivemind/internal/core"
)

func (s *Store) AppendEvent(ctx context.Context, ev core.Event) (int64, error) {
	if ev.Type == "" {
		return 0, fmt.Errorf("event type required")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	tagsJSON, _ := json.Marshal(ev.Tags)
	payloadJSON, _ := json.Marshal(ev.Payload)

	res, err := s.db.Exec(
		`INSERT INTO events (type, graph_id, from_agent, to_agent, correlation_id, tags_json, path, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(ev.Type), ev.GraphID, ev.FromAgent, ev.ToAgent, ev.CorrelationID,
		string(tagsJSON), ev.Path, string(payloadJSON), ev.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event id: %w", err)
	}
	return id, nil
}

func (s *Store) Events(ctx context.Context, fromID int64, graphID string) ([]core.Event, error) {
	query := `SELECT id, type, graph_id, from_agent, to_agent, correlation_id, tags_json, path, payload_json, created_at
	          FROM events WHERE id >= ?`
	args := []any{fromID}
	if graphID != "" {
		query += " AND graph_id = ?"
		args = append(args, graphID)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []core.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanEvent(rows *sql.Rows) (core.Event, error) {
	var (
		ev                  core.Event
		evType              string
		tagsJSON, payloadJSON, createdAt string
	)
	err := rows.Scan(&ev.ID, &evType, &ev.GraphID, &ev.FromAgent, &ev.ToAgent,
		&ev.CorrelationID, &tagsJSON, &ev.Path, &payloadJSON, &createdAt)
	if err != nil {
		return core.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Type = core.EventType(evType)
	_ = json.Unmarshal([]byte(tagsJSON), &ev.Tags)
	_ = json.Unmarshal([]byte(payloadJSON), &ev.Payload)
	ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return ev, nil
}
