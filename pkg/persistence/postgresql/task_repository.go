package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

// TaskRepository handles task-related database operations.
type TaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sql.DB, logger *slog.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

const taskColumns = `
		id
	  , stage_id
	  , name
	  , description
	  , task_order
	  , assigned_to
	  , estimated_duration_minutes
	  , due_offset_days
	  , depends_on_task_ids
	  , client_visible
	  , created_at
	  , updated_at
`

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task     models.Task
		depsJSON []byte
	)

	err := row.Scan(
		&task.ID,
		&task.StageID,
		&task.Name,
		&task.Description,
		&task.TaskOrder,
		&task.AssignedTo,
		&task.EstimatedDurationMinutes,
		&task.DueOffsetDays,
		&depsJSON,
		&task.ClientVisible,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(depsJSON) > 0 {
		if err := json.Unmarshal(depsJSON, &task.DependsOnTaskIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task dependencies: %w", err)
		}
	}

	return &task, nil
}

// GetByID returns a task by its ID, or nil when absent.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM template_tasks
		WHERE id = $1
	`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewRepositoryError("GetByID", "template_tasks", id, err)
	}

	return task, nil
}

// ListByStageID returns the tasks of a stage ordered by task_order.
func (r *TaskRepository) ListByStageID(ctx context.Context, stageID string) ([]*models.Task, error) {
	return r.ListByStageIDs(ctx, []string{stageID})
}

// ListByStageIDs returns the tasks of several stages in one query, ordered by
// task_order within each stage.
func (r *TaskRepository) ListByStageIDs(ctx context.Context, stageIDs []string) ([]*models.Task, error) {
	if len(stageIDs) == 0 {
		return []*models.Task{}, nil
	}

	query := `
		SELECT ` + taskColumns + `
		FROM template_tasks
		WHERE stage_id = ANY($1)
		ORDER BY stage_id, task_order, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(stageIDs))
	if err != nil {
		return nil, persistence.NewRepositoryError("ListByStageIDs", "template_tasks", "", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	tasks := make([]*models.Task, 0)

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// MaxOrder returns the highest task_order under the stage, 0 when empty.
func (r *TaskRepository) MaxOrder(ctx context.Context, stageID string) (int, error) {
	var max int

	query := "SELECT COALESCE(MAX(task_order), 0) FROM template_tasks WHERE stage_id = $1"

	err := r.db.QueryRowContext(ctx, query, stageID).Scan(&max)
	if err != nil {
		return 0, persistence.NewRepositoryError("MaxOrder", "template_tasks", stageID, err)
	}

	return max, nil
}

// Save inserts or fully replaces a task row.
func (r *TaskRepository) Save(ctx context.Context, task *models.Task) error {
	depsJSON, err := marshalNullable(len(task.DependsOnTaskIDs) > 0, task.DependsOnTaskIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal task dependencies: %w", err)
	}

	query := `
		INSERT INTO template_tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			task_order = EXCLUDED.task_order,
			assigned_to = EXCLUDED.assigned_to,
			estimated_duration_minutes = EXCLUDED.estimated_duration_minutes,
			due_offset_days = EXCLUDED.due_offset_days,
			depends_on_task_ids = EXCLUDED.depends_on_task_ids,
			client_visible = EXCLUDED.client_visible,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		task.ID,
		task.StageID,
		task.Name,
		task.Description,
		task.TaskOrder,
		task.AssignedTo,
		task.EstimatedDurationMinutes,
		task.DueOffsetDays,
		depsJSON,
		task.ClientVisible,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Save", "template_tasks", task.ID, err)
	}

	return nil
}

// Delete removes a task row. The schema cascades to steps and elements.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM template_tasks WHERE id = $1", id)
	if err != nil {
		return persistence.NewRepositoryError("Delete", "template_tasks", id, err)
	}

	return nil
}
