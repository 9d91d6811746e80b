package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cherryai/conductor/internal/workflow"
)

// SaveCheckpoint appends a checkpoint snapshot for a workflow.
// Task states are stored as a JSON document.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, workflowID string, cp workflow.Checkpoint) error {
	states, err := json.Marshal(cp.TaskStates)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint states: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (workflow_id, taken_at, task_states)
		VALUES (?, ?, ?)
	`, workflowID, cp.TakenAt, string(states))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// ListCheckpoints returns a workflow's checkpoint history in insertion order.
func (s *SQLiteStore) ListCheckpoints(ctx context.Context, workflowID string) ([]workflow.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT taken_at, task_states
		FROM checkpoints
		WHERE workflow_id = ?
		ORDER BY id
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []workflow.Checkpoint
	for rows.Next() {
		var cp workflow.Checkpoint
		var states string

		if err := rows.Scan(&cp.TakenAt, &states); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		if err := json.Unmarshal([]byte(states), &cp.TaskStates); err != nil {
			return nil, fmt.Errorf("failed to decode checkpoint states: %w", err)
		}

		checkpoints = append(checkpoints, cp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoints: %w", err)
	}
	return checkpoints, nil
}
