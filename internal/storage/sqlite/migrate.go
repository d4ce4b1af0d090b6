package sqlite

import (
	"database/sql"
	"fmt"
)

// columnMigration describes one additive column. Databases created before
// the column existed get it added on open; rows keep their data and pick up
// the default. Destructive migrations are never performed.
type columnMigration struct {
	table  string
	column string
	ddl    string
}

// migrations lists every column added after the first schema release, in
// the order they shipped.
var migrations = []columnMigration{
	{"events", "graph_id", `ALTER TABLE events ADD COLUMN graph_id TEXT NOT NULL DEFAULT ''`},
	{"events", "to_agent", `ALTER TABLE events ADD COLUMN to_agent TEXT NOT NULL DEFAULT ''`},
	{"events", "correlation_id", `ALTER TABLE events ADD COLUMN correlation_id TEXT NOT NULL DEFAULT ''`},
	{"events", "tags_json", `ALTER TABLE events ADD COLUMN tags_json TEXT NOT NULL DEFAULT '[]'`},
	{"events", "path", `ALTER TABLE events ADD COLUMN path TEXT NOT NULL DEFAULT ''`},
	{"subscriptions", "is_default", `ALTER TABLE subscriptions ADD COLUMN is_default INTEGER NOT NULL DEFAULT 0`},
	{"swarm_agents", "display_name", `ALTER TABLE swarm_agents ADD COLUMN display_name TEXT NOT NULL DEFAULT ''`},
}

func migrateSchema(db *sql.DB) error {
	cols := make(map[string]map[string]bool)
	for _, m := range migrations {
		if _, ok := cols[m.table]; !ok {
			existing, err := tableColumns(db, m.table)
			if err != nil {
				return err
			}
			cols[m.table] = existing
		}
		if cols[m.table][m.column] {
			continue
		}
		if _, err := db.Exec(m.ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", m.table, m.column, err)
		}
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
