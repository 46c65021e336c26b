package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

// InstanceRepository handles instance-related database operations.
type InstanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewInstanceRepository creates a new instance repository.
func NewInstanceRepository(db *sql.DB, logger *slog.Logger) *InstanceRepository {
	return &InstanceRepository{db: db, logger: logger}
}

const instanceColumns = `
		id
	  , template_id
	  , status
	  , completion_percentage
	  , current_stage_id
	  , current_task_id
	  , current_step_id
	  , project_id
	  , client_id
	  , started_at
	  , completed_at
	  , instance_data
	  , created_by
	  , updated_by
	  , created_at
	  , updated_at
`

func scanInstance(row rowScanner) (*models.Instance, error) {
	var (
		instance models.Instance
		dataJSON []byte
	)

	err := row.Scan(
		&instance.ID,
		&instance.TemplateID,
		&instance.Status,
		&instance.CompletionPercentage,
		&instance.CurrentStageID,
		&instance.CurrentTaskID,
		&instance.CurrentStepID,
		&instance.ProjectID,
		&instance.ClientID,
		&instance.StartedAt,
		&instance.CompletedAt,
		&dataJSON,
		&instance.CreatedBy,
		&instance.UpdatedBy,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &instance.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal instance data: %w", err)
		}
	}

	return &instance, nil
}

// GetByID returns an instance by its ID, or nil when absent.
func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM instances
		WHERE id = $1
	`

	instance, err := scanInstance(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewRepositoryError("GetByID", "instances", id, err)
	}

	return instance, nil
}

// ListByTemplateID returns the instances of a template, newest first.
func (r *InstanceRepository) ListByTemplateID(ctx context.Context, templateID string) ([]*models.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM instances
		WHERE template_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, persistence.NewRepositoryError("ListByTemplateID", "instances", templateID, err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	instances := make([]*models.Instance, 0)

	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}

		instances = append(instances, instance)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	return instances, nil
}

// CountActive returns the number of instances of the template that are
// neither draft nor completed.
func (r *InstanceRepository) CountActive(ctx context.Context, templateID string) (int, error) {
	var count int

	query := `
		SELECT COUNT(*)
		FROM instances
		WHERE template_id = $1 AND status NOT IN ($2, $3)
	`

	err := r.db.QueryRowContext(ctx, query, templateID,
		models.InstanceStatusDraft, models.InstanceStatusCompleted).Scan(&count)
	if err != nil {
		return 0, persistence.NewRepositoryError("CountActive", "instances", templateID, err)
	}

	return count, nil
}

// CountCreatedBetween counts instances created in [from, to).
func (r *InstanceRepository) CountCreatedBetween(ctx context.Context, templateID string, from, to time.Time) (int, error) {
	var count int

	query := `
		SELECT COUNT(*)
		FROM instances
		WHERE template_id = $1 AND created_at >= $2 AND created_at < $3
	`

	err := r.db.QueryRowContext(ctx, query, templateID, from, to).Scan(&count)
	if err != nil {
		return 0, persistence.NewRepositoryError("CountCreatedBetween", "instances", templateID, err)
	}

	return count, nil
}

// CountCompletedBetween counts instances completed in [from, to).
func (r *InstanceRepository) CountCompletedBetween(ctx context.Context, templateID string, from, to time.Time) (int, error) {
	var count int

	query := `
		SELECT COUNT(*)
		FROM instances
		WHERE template_id = $1 AND completed_at IS NOT NULL AND completed_at >= $2 AND completed_at < $3
	`

	err := r.db.QueryRowContext(ctx, query, templateID, from, to).Scan(&count)
	if err != nil {
		return 0, persistence.NewRepositoryError("CountCompletedBetween", "instances", templateID, err)
	}

	return count, nil
}

// Save inserts or fully replaces an instance row.
func (r *InstanceRepository) Save(ctx context.Context, instance *models.Instance) error {
	dataJSON, err := marshalNullable(instance.Data != nil, instance.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal instance data: %w", err)
	}

	query := `
		INSERT INTO instances (` + instanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			completion_percentage = EXCLUDED.completion_percentage,
			current_stage_id = EXCLUDED.current_stage_id,
			current_task_id = EXCLUDED.current_task_id,
			current_step_id = EXCLUDED.current_step_id,
			project_id = EXCLUDED.project_id,
			client_id = EXCLUDED.client_id,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			instance_data = EXCLUDED.instance_data,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		instance.ID,
		instance.TemplateID,
		instance.Status,
		instance.CompletionPercentage,
		instance.CurrentStageID,
		instance.CurrentTaskID,
		instance.CurrentStepID,
		instance.ProjectID,
		instance.ClientID,
		instance.StartedAt,
		instance.CompletedAt,
		dataJSON,
		instance.CreatedBy,
		instance.UpdatedBy,
		instance.CreatedAt,
		instance.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Save", "instances", instance.ID, err)
	}

	return nil
}

// DeleteDraftsBefore removes draft instances created before the cutoff and
// returns the number removed. The schema cascades to step data.
func (r *InstanceRepository) DeleteDraftsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM instances WHERE status = $1 AND created_at < $2",
		models.InstanceStatusDraft, cutoff)
	if err != nil {
		return 0, persistence.NewRepositoryError("DeleteDraftsBefore", "instances", "", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(affected), nil
}
