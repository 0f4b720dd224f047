package bluetooth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupHistoryTestDB creates an in-memory SQLite database with the connection_history table.
func setupHistoryTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE connection_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			address TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			event TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_connection_history_address ON connection_history(address, created_at DESC);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// insertHistoryRow inserts a history row with a specific timestamp.
func insertHistoryRow(t *testing.T, db *sql.DB, address, name, event string, createdAt time.Time) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO connection_history (address, name, event, created_at) VALUES (?, ?, ?, ?)",
		address,
		name,
		event,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("failed to insert history row: %v", err)
	}
}

// TestRecord verifies history writes and retrieval.
func TestRecord(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()

	if err := repo.Record(ctx, "AA:BB", "Bose QC35", HistoryEventConnected); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.History(ctx, "AA:BB", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}

	entry := entries[0]
	if entry.Address != "AA:BB" {
		t.Errorf("Address = %q, want %q", entry.Address, "AA:BB")
	}
	if entry.Name != "Bose QC35" {
		t.Errorf("Name = %q, want %q", entry.Name, "Bose QC35")
	}
	if entry.Event != HistoryEventConnected {
		t.Errorf("Event = %q, want %q", entry.Event, HistoryEventConnected)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero, want non-zero")
	}
}

func TestRecord_Validation(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()

	if err := repo.Record(ctx, "", "name", HistoryEventPaired); err == nil {
		t.Error("Record() with empty address error = nil, want error")
	}
	if err := repo.Record(ctx, "AA:BB", "name", ""); err == nil {
		t.Error("Record() with empty event error = nil, want error")
	}
}

// TestHistory verifies ordering and limit enforcement.
func TestHistory(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	insertHistoryRow(t, db, "AA:BB", "Bose QC35", HistoryEventPaired, now.Add(-2*time.Hour))
	insertHistoryRow(t, db, "AA:BB", "Bose QC35", HistoryEventConnected, now.Add(-1*time.Hour))
	insertHistoryRow(t, db, "AA:BB", "Bose QC35", HistoryEventDisconnected, now)
	insertHistoryRow(t, db, "CC:DD", "Keyboard", HistoryEventConnected, now)

	entries, err := repo.History(ctx, "AA:BB", 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries length = %d, want 2", len(entries))
	}

	if entries[0].Event != HistoryEventDisconnected {
		t.Errorf("entry[0].Event = %q, want %q", entries[0].Event, HistoryEventDisconnected)
	}
	if entries[1].Event != HistoryEventConnected {
		t.Errorf("entry[1].Event = %q, want %q", entries[1].Event, HistoryEventConnected)
	}
	if !entries[0].CreatedAt.Equal(now) {
		t.Errorf("entry[0] CreatedAt = %s, want %s", entries[0].CreatedAt, now)
	}
}

// TestPrune verifies old entries are removed.
func TestPrune(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	insertHistoryRow(t, db, "AA:BB", "Bose QC35", HistoryEventConnected, now.Add(-40*24*time.Hour))
	insertHistoryRow(t, db, "AA:BB", "Bose QC35", HistoryEventDisconnected, now.Add(-12*time.Hour))

	deleted, err := repo.Prune(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	entries, err := repo.History(ctx, "AA:BB", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}
	if entries[0].Event != HistoryEventDisconnected {
		t.Errorf("remaining Event = %q, want %q", entries[0].Event, HistoryEventDisconnected)
	}
}
