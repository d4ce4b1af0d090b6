package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/storage"
)

func (s *Store) UpsertSwarmEntry(ctx context.Context, entry core.SwarmEntry) (core.SwarmEntry, error) {
	if entry.AgentID == "" {
		return core.SwarmEntry{}, fmt.Errorf("agent id required")
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	if entry.Status == "" {
		entry.Status = core.AgentActive
	}

	_, err := s.db.Exec(
		`INSERT INTO swarm_agents (agent_id, display_name, node_type, file_path, parent_id, start_line, end_line, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(agent_id) DO UPDATE SET
		   display_name=excluded.display_name, node_type=excluded.node_type,
		   file_path=excluded.file_path, parent_id=excluded.parent_id,
		   start_line=excluded.start_line, end_line=excluded.end_line,
		   status=excluded.status, updated_at=excluded.updated_at`,
		entry.AgentID, entry.DisplayName, entry.NodeType, entry.FilePath, entry.ParentID,
		entry.StartLine, entry.EndLine, string(entry.Status),
		entry.CreatedAt.Format(time.RFC3339Nano), entry.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return core.SwarmEntry{}, fmt.Errorf("upsert swarm entry: %w", err)
	}
	return s.GetSwarmEntry(ctx, entry.AgentID)
}

func (s *Store) MarkOrphaned(ctx context.Context, agentID string) error {
	res, err := s.db.Exec(
		`UPDATE swarm_agents SET status = ?, updated_at = ? WHERE agent_id = ?`,
		string(core.AgentOrphaned), time.Now().UTC().Format(time.RFC3339Nano), agentID,
	)
	if err != nil {
		return fmt.Errorf("mark orphaned: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark orphaned: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) GetSwarmEntry(ctx context.Context, agentID string) (core.SwarmEntry, error) {
	row := s.db.QueryRow(
		`SELECT agent_id, display_name, node_type, file_path, parent_id, start_line, end_line, status, created_at, updated_at
		 FROM swarm_agents WHERE agent_id = ?`, agentID,
	)
	entry, err := scanSwarmEntry(row)
	if err == sql.ErrNoRows {
		return core.SwarmEntry{}, storage.ErrNotFound
	}
	return entry, err
}

func (s *Store) ListSwarmEntries(ctx context.Context, status core.AgentStatus) ([]core.SwarmEntry, error) {
	query := `SELECT agent_id, display_name, node_type, file_path, parent_id, start_line, end_line, status, created_at, updated_at
	          FROM swarm_agents`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY agent_id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list swarm entries: %w", err)
	}
	defer rows.Close()

	var out []core.SwarmEntry
	for rows.Next() {
		entry, err := scanSwarmEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSwarmEntry(row scanner) (core.SwarmEntry, error) {
	var (
		e                    core.SwarmEntry
		status               string
		createdAt, updatedAt string
	)
	err := row.Scan(&e.AgentID, &e.DisplayName, &e.NodeType, &e.FilePath, &e.ParentID,
		&e.StartLine, &e.EndLine, &status, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.SwarmEntry{}, err
		}
		return core.SwarmEntry{}, fmt.Errorf("scan swarm entry: %w", err)
	}
	e.Status = core.AgentStatus(status)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return e, nil
}
