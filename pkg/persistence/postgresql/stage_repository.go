package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

// StageRepository handles stage-related database operations.
type StageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStageRepository creates a new stage repository.
func NewStageRepository(db *sql.DB, logger *slog.Logger) *StageRepository {
	return &StageRepository{db: db, logger: logger}
}

const stageColumns = `
		id
	  , template_id
	  , name
	  , description
	  , stage_order
	  , is_required
	  , allow_skip
	  , auto_advance
	  , condition
	  , client_visible
	  , created_at
	  , updated_at
`

func scanStage(row rowScanner) (*models.Stage, error) {
	var (
		stage         models.Stage
		conditionJSON []byte
	)

	err := row.Scan(
		&stage.ID,
		&stage.TemplateID,
		&stage.Name,
		&stage.Description,
		&stage.StageOrder,
		&stage.IsRequired,
		&stage.AllowSkip,
		&stage.AutoAdvance,
		&conditionJSON,
		&stage.ClientVisible,
		&stage.CreatedAt,
		&stage.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(conditionJSON) > 0 {
		if err := json.Unmarshal(conditionJSON, &stage.Condition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stage condition: %w", err)
		}
	}

	return &stage, nil
}

// GetByID returns a stage by its ID, or nil when absent.
func (r *StageRepository) GetByID(ctx context.Context, id string) (*models.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM template_stages
		WHERE id = $1
	`

	stage, err := scanStage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewRepositoryError("GetByID", "template_stages", id, err)
	}

	return stage, nil
}

// ListByTemplateID returns the stages of a template ordered by stage_order.
func (r *StageRepository) ListByTemplateID(ctx context.Context, templateID string) ([]*models.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM template_stages
		WHERE template_id = $1
		ORDER BY stage_order, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, persistence.NewRepositoryError("ListByTemplateID", "template_stages", templateID, err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	stages := make([]*models.Stage, 0)

	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}

		stages = append(stages, stage)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stages: %w", err)
	}

	return stages, nil
}

// MaxOrder returns the highest stage_order under the template, 0 when empty.
func (r *StageRepository) MaxOrder(ctx context.Context, templateID string) (int, error) {
	var max int

	query := "SELECT COALESCE(MAX(stage_order), 0) FROM template_stages WHERE template_id = $1"

	err := r.db.QueryRowContext(ctx, query, templateID).Scan(&max)
	if err != nil {
		return 0, persistence.NewRepositoryError("MaxOrder", "template_stages", templateID, err)
	}

	return max, nil
}

// Save inserts or fully replaces a stage row.
func (r *StageRepository) Save(ctx context.Context, stage *models.Stage) error {
	conditionJSON, err := marshalNullable(stage.Condition != nil, stage.Condition)
	if err != nil {
		return fmt.Errorf("failed to marshal stage condition: %w", err)
	}

	query := `
		INSERT INTO template_stages (` + stageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			stage_order = EXCLUDED.stage_order,
			is_required = EXCLUDED.is_required,
			allow_skip = EXCLUDED.allow_skip,
			auto_advance = EXCLUDED.auto_advance,
			condition = EXCLUDED.condition,
			client_visible = EXCLUDED.client_visible,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		stage.ID,
		stage.TemplateID,
		stage.Name,
		stage.Description,
		stage.StageOrder,
		stage.IsRequired,
		stage.AllowSkip,
		stage.AutoAdvance,
		conditionJSON,
		stage.ClientVisible,
		stage.CreatedAt,
		stage.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Save", "template_stages", stage.ID, err)
	}

	return nil
}

// Delete removes a stage row. The schema cascades to tasks, steps, and
// elements.
func (r *StageRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM template_stages WHERE id = $1", id)
	if err != nil {
		return persistence.NewRepositoryError("Delete", "template_stages", id, err)
	}

	return nil
}

// marshalNullable marshals the value when present, otherwise yields a SQL
// NULL.
func marshalNullable(present bool, value any) (any, error) {
	if !present {
		return nil, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	return data, nil
}
