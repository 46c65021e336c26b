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

// StepRepository handles step-related database operations.
type StepRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStepRepository creates a new step repository.
func NewStepRepository(db *sql.DB, logger *slog.Logger) *StepRepository {
	return &StepRepository{db: db, logger: logger}
}

const stepColumns = `
		id
	  , task_id
	  , name
	  , description
	  , step_order
	  , allow_skip
	  , auto_advance
	  , show_progress
	  , allow_back_navigation
	  , save_progress
	  , validation_rules
	  , condition
	  , client_visible
	  , created_at
	  , updated_at
`

func scanStep(row rowScanner) (*models.Step, error) {
	var (
		step          models.Step
		rulesJSON     []byte
		conditionJSON []byte
	)

	err := row.Scan(
		&step.ID,
		&step.TaskID,
		&step.Name,
		&step.Description,
		&step.StepOrder,
		&step.AllowSkip,
		&step.AutoAdvance,
		&step.ShowProgress,
		&step.AllowBackNavigation,
		&step.SaveProgress,
		&rulesJSON,
		&conditionJSON,
		&step.ClientVisible,
		&step.CreatedAt,
		&step.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(rulesJSON) > 0 {
		if err := json.Unmarshal(rulesJSON, &step.ValidationRules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step validation rules: %w", err)
		}
	}

	if len(conditionJSON) > 0 {
		if err := json.Unmarshal(conditionJSON, &step.Condition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step condition: %w", err)
		}
	}

	return &step, nil
}

// GetByID returns a step by its ID, or nil when absent.
func (r *StepRepository) GetByID(ctx context.Context, id string) (*models.Step, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM template_steps
		WHERE id = $1
	`

	step, err := scanStep(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewRepositoryError("GetByID", "template_steps", id, err)
	}

	return step, nil
}

// ListByTaskID returns the steps of a task ordered by step_order.
func (r *StepRepository) ListByTaskID(ctx context.Context, taskID string) ([]*models.Step, error) {
	return r.ListByTaskIDs(ctx, []string{taskID})
}

// ListByTaskIDs returns the steps of several tasks in one query, ordered by
// step_order within each task.
func (r *StepRepository) ListByTaskIDs(ctx context.Context, taskIDs []string) ([]*models.Step, error) {
	if len(taskIDs) == 0 {
		return []*models.Step{}, nil
	}

	query := `
		SELECT ` + stepColumns + `
		FROM template_steps
		WHERE task_id = ANY($1)
		ORDER BY task_id, step_order, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(taskIDs))
	if err != nil {
		return nil, persistence.NewRepositoryError("ListByTaskIDs", "template_steps", "", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	steps := make([]*models.Step, 0)

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

// MaxOrder returns the highest step_order under the task, 0 when empty.
func (r *StepRepository) MaxOrder(ctx context.Context, taskID string) (int, error) {
	var max int

	query := "SELECT COALESCE(MAX(step_order), 0) FROM template_steps WHERE task_id = $1"

	err := r.db.QueryRowContext(ctx, query, taskID).Scan(&max)
	if err != nil {
		return 0, persistence.NewRepositoryError("MaxOrder", "template_steps", taskID, err)
	}

	return max, nil
}

// Save inserts or fully replaces a step row.
func (r *StepRepository) Save(ctx context.Context, step *models.Step) error {
	rulesJSON, err := marshalNullable(len(step.ValidationRules) > 0, step.ValidationRules)
	if err != nil {
		return fmt.Errorf("failed to marshal step validation rules: %w", err)
	}

	conditionJSON, err := marshalNullable(step.Condition != nil, step.Condition)
	if err != nil {
		return fmt.Errorf("failed to marshal step condition: %w", err)
	}

	query := `
		INSERT INTO template_steps (` + stepColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			step_order = EXCLUDED.step_order,
			allow_skip = EXCLUDED.allow_skip,
			auto_advance = EXCLUDED.auto_advance,
			show_progress = EXCLUDED.show_progress,
			allow_back_navigation = EXCLUDED.allow_back_navigation,
			save_progress = EXCLUDED.save_progress,
			validation_rules = EXCLUDED.validation_rules,
			condition = EXCLUDED.condition,
			client_visible = EXCLUDED.client_visible,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		step.ID,
		step.TaskID,
		step.Name,
		step.Description,
		step.StepOrder,
		step.AllowSkip,
		step.AutoAdvance,
		step.ShowProgress,
		step.AllowBackNavigation,
		step.SaveProgress,
		rulesJSON,
		conditionJSON,
		step.ClientVisible,
		step.CreatedAt,
		step.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Save", "template_steps", step.ID, err)
	}

	return nil
}

// Delete removes a step row. The schema cascades to elements.
func (r *StepRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM template_steps WHERE id = $1", id)
	if err != nil {
		return persistence.NewRepositoryError("Delete", "template_steps", id, err)
	}

	return nil
}
