package sqlite

import (
	"database/sql"
	"log"
	"time"
)

const slowQueryThreshold = 100 * time.Millisecond

// dbHandle is the interface satisfied by both *sql.DB and *queryLogger.
// Store methods use this instead of *sql.DB directly.
type dbHandle interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Close() error
}

// queryLogger wraps a *sql.DB and logs statements that exceed the slow
// query threshold. The append path runs on every producer event, so a
// slow insert here is worth knowing about.
type queryLogger struct {
	inner *sql.DB
}

func (q *queryLogger) Exec(query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := q.inner.Exec(query, args...)
	if d := time.Since(start); d >= slowQueryThreshold {
		log.Printf("sqlite: slow query (%s): %s", d.Round(time.Millisecond), truncateQuery(query))
	}
	return result, err
}

func (q *queryLogger) Query(query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := q.inner.Query(query, args...)
	if d := time.Since(start); d >= slowQueryThreshold {
		log.Printf("sqlite: slow query (%s): %s", d.Round(time.Millisecond), truncateQuery(query))
	}
	return rows, err
}

func (q *queryLogger) QueryRow(query string, args ...any) *sql.Row {
	start := time.Now()
	row := q.inner.QueryRow(query, args...)
	if d := time.Since(start); d >= slowQueryThreshold {
		log.Printf("sqlite: slow query (%s): %s", d.Round(time.Millisecond), truncateQuery(query))
	}
	return row
}

func (q *queryLogger) Close() error {
	return q.inner.Close()
}

func truncateQuery(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
