package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cherryai/conductor/internal/workflow"
	_ "modernc.org/sqlite"
)

// Store defines the persistence interface for workflows, tasks, and
// checkpoint history. The conductor works without a store; wiring one in adds
// audit and resume durability beyond the in-memory checkpoint list.
type Store interface {
	SaveWorkflow(ctx context.Context, wf *workflow.Workflow) error
	UpdateWorkflowStatus(ctx context.Context, workflowID string, status workflow.Status) error
	GetWorkflowStatus(ctx context.Context, workflowID string) (workflow.Status, error)

	UpdateTaskStatus(ctx context.Context, workflowID string, task *workflow.Task) error
	ListTasks(ctx context.Context, workflowID string) ([]*workflow.Task, error)

	SaveCheckpoint(ctx context.Context, workflowID string, cp workflow.Checkpoint) error
	ListCheckpoints(ctx context.Context, workflowID string) ([]workflow.Checkpoint, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode, foreign keys, and
// a busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	// modernc.org/sqlite doesn't support _foreign_keys in the connection string
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return initStore(ctx, db)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
// Uses a shared cache so multiple connections see the same database.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file::memory:?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	return initStore(ctx, db)
}

func initStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	// Foreign keys must be enabled via PRAGMA with modernc.org/sqlite
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// One connection for primary queries, one for subqueries (ListTasks
	// iterates tasks while loading dependencies)
	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
