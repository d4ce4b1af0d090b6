package sqlite

import "testing"

// NewSQLiteTest creates an in-memory store for tests, failing the test on
// error.
func NewSQLiteTest(t *testing.T) *Store {
	t.Helper()
	st, err := NewInMemory()
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}
