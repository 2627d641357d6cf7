package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"alfred/internal/types"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS command_history (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp      TEXT    NOT NULL,
	user_input     TEXT    NOT NULL,
	parsed_command TEXT    NOT NULL,
	agent_used     TEXT    NOT NULL,
	result         TEXT    NOT NULL
);`

// SQLiteStore persists history in a SQLite file
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens or creates the database at path
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: logger.Named("history")}
	if err := s.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"temp_store", "MEMORY"},
	}

	for _, pragma := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", pragma.name, pragma.value)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to set %s: %w", pragma.name, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Append implements Store
func (s *SQLiteStore) Append(ctx context.Context, entry types.HistoryEntry) error {
	parsed, err := json.Marshal(entry.Parsed)
	if err != nil {
		return fmt.Errorf("failed to marshal parsed command: %w", err)
	}
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO command_history (timestamp, user_input, parsed_command, agent_used, result) VALUES (?, ?, ?, ?, ?)`,
		entry.Timestamp.Format(time.RFC3339Nano), entry.UserInput, string(parsed), entry.AgentName, string(result))
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// Recent implements Store
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, user_input, parsed_command, agent_used, result FROM command_history ORDER BY id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var (
			entry          types.HistoryEntry
			ts             string
			parsed, result string
		)
		if err := rows.Scan(&ts, &entry.UserInput, &parsed, &entry.AgentName, &result); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if entry.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			s.logger.Warn("Invalid history timestamp", zap.String("timestamp", ts), zap.Error(err))
		}
		if err := json.Unmarshal([]byte(parsed), &entry.Parsed); err != nil {
			return nil, fmt.Errorf("failed to decode parsed command: %w", err)
		}
		if err := json.Unmarshal([]byte(result), &entry.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(entries)
	return entries, nil
}

// Len implements Store
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM command_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
