package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cherryai/conductor/internal/workflow"
)

// SaveWorkflow persists a workflow together with its tasks and dependency
// edges. Idempotent: re-saving upserts the workflow and task rows.
func (s *SQLiteStore) SaveWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, wf.ID, wf.Name, wf.Status())
	if err != nil {
		return fmt.Errorf("failed to upsert workflow: %w", err)
	}

	tasks := wf.Tasks()
	for _, task := range tasks {
		if err := upsertTask(ctx, tx, wf.ID, task); err != nil {
			return err
		}
	}

	// Dependency edges are inserted after all tasks exist so the composite
	// foreign keys hold regardless of map iteration order.
	for _, task := range tasks {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM task_dependencies WHERE workflow_id = ? AND task_id = ?
		`, wf.ID, task.ID)
		if err != nil {
			return fmt.Errorf("failed to delete old dependencies: %w", err)
		}

		for _, depID := range task.DependsOn {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO task_dependencies (workflow_id, task_id, depends_on_id)
				VALUES (?, ?, ?)
			`, wf.ID, task.ID, depID)
			if err != nil {
				return fmt.Errorf("failed to insert dependency %s -> %s: %w", task.ID, depID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsertTask(ctx context.Context, tx *sql.Tx, workflowID string, task *workflow.Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload for task %s: %w", task.ID, err)
	}

	errorStr := ""
	if task.Error != nil {
		errorStr = task.Error.Error()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (workflow_id, id, name, agent_type, operation, payload,
			max_retries, failure_mode, status, retry_count, result, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(workflow_id, id) DO UPDATE SET
			name = excluded.name,
			agent_type = excluded.agent_type,
			operation = excluded.operation,
			payload = excluded.payload,
			max_retries = excluded.max_retries,
			failure_mode = excluded.failure_mode,
			status = excluded.status,
			retry_count = excluded.retry_count,
			result = excluded.result,
			error = excluded.error,
			updated_at = CURRENT_TIMESTAMP
	`, workflowID, task.ID, task.Name, task.AgentType, task.Operation, string(payload),
		task.MaxRetries, task.FailureMode, task.Status, task.RetryCount, task.Result, errorStr)
	if err != nil {
		return fmt.Errorf("failed to upsert task %s: %w", task.ID, err)
	}
	return nil
}

// UpdateWorkflowStatus updates a workflow's lifecycle status.
func (s *SQLiteStore) UpdateWorkflowStatus(ctx context.Context, workflowID string, status workflow.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workflows SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, workflowID)
	if err != nil {
		return fmt.Errorf("failed to update workflow status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("workflow not found: %s", workflowID)
	}
	return nil
}

// GetWorkflowStatus returns a workflow's persisted lifecycle status.
func (s *SQLiteStore) GetWorkflowStatus(ctx context.Context, workflowID string) (workflow.Status, error) {
	var status workflow.Status
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM workflows WHERE id = ?
	`, workflowID).Scan(&status)

	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("workflow not found: %s", workflowID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query workflow: %w", err)
	}
	return status, nil
}

// UpdateTaskStatus persists a task's status, retry count, result, and error.
func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, workflowID string, task *workflow.Task) error {
	errorStr := ""
	if task.Error != nil {
		errorStr = task.Error.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, retry_count = ?, result = ?, error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE workflow_id = ? AND id = ?
	`, task.Status, task.RetryCount, task.Result, errorStr, workflowID, task.ID)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task not found: %s/%s", workflowID, task.ID)
	}
	return nil
}

// ListTasks returns all tasks of a workflow with their dependencies.
func (s *SQLiteStore) ListTasks(ctx context.Context, workflowID string) ([]*workflow.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, agent_type, operation, payload, max_retries, failure_mode,
			status, retry_count, result, error
		FROM tasks
		WHERE workflow_id = ?
		ORDER BY created_at, id
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*workflow.Task
	for rows.Next() {
		task := &workflow.Task{}
		var payload, errorStr string

		err := rows.Scan(&task.ID, &task.Name, &task.AgentType, &task.Operation, &payload,
			&task.MaxRetries, &task.FailureMode, &task.Status, &task.RetryCount, &task.Result, &errorStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		if payload != "" && payload != "null" {
			if err := json.Unmarshal([]byte(payload), &task.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode payload for task %s: %w", task.ID, err)
			}
		}
		if errorStr != "" {
			task.Error = fmt.Errorf("%s", errorStr)
		}

		depRows, err := s.db.QueryContext(ctx, `
			SELECT depends_on_id FROM task_dependencies
			WHERE workflow_id = ? AND task_id = ?
		`, workflowID, task.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to query dependencies for task %s: %w", task.ID, err)
		}

		task.DependsOn = []string{}
		for depRows.Next() {
			var depID string
			if err := depRows.Scan(&depID); err != nil {
				depRows.Close()
				return nil, fmt.Errorf("failed to scan dependency: %w", err)
			}
			task.DependsOn = append(task.DependsOn, depID)
		}
		depRows.Close()

		if err := depRows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating dependencies: %w", err)
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}
