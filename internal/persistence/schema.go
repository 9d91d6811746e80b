package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS workflows (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tasks (
		workflow_id TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		agent_type TEXT NOT NULL,
		operation TEXT NOT NULL,
		payload TEXT,
		max_retries INTEGER NOT NULL,
		failure_mode INTEGER NOT NULL,
		status INTEGER NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		result TEXT,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (workflow_id, id),
		FOREIGN KEY (workflow_id) REFERENCES workflows(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		workflow_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		depends_on_id TEXT NOT NULL,
		PRIMARY KEY (workflow_id, task_id, depends_on_id),
		FOREIGN KEY (workflow_id, task_id) REFERENCES tasks(workflow_id, id) ON DELETE CASCADE,
		FOREIGN KEY (workflow_id, depends_on_id) REFERENCES tasks(workflow_id, id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_task_dependencies_task
		ON task_dependencies(workflow_id, task_id);

	CREATE TABLE IF NOT EXISTS checkpoints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		workflow_id TEXT NOT NULL,
		taken_at DATETIME NOT NULL,
		task_states TEXT NOT NULL,
		FOREIGN KEY (workflow_id) REFERENCES workflows(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_checkpoints_workflow
		ON checkpoints(workflow_id, taken_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
