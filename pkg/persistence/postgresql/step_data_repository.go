package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

// StepDataRepository handles submitted step data.
type StepDataRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStepDataRepository creates a new step data repository.
func NewStepDataRepository(db *sql.DB, logger *slog.Logger) *StepDataRepository {
	return &StepDataRepository{db: db, logger: logger}
}

const stepDataColumns = `
		id
	  , instance_id
	  , step_id
	  , element_key
	  , element_value
	  , data_type
	  , is_valid
	  , submitted_by
	  , submitted_at
`

func scanStepData(row rowScanner) (*models.StepData, error) {
	var (
		data      models.StepData
		valueJSON []byte
	)

	err := row.Scan(
		&data.ID,
		&data.InstanceID,
		&data.StepID,
		&data.ElementKey,
		&valueJSON,
		&data.DataType,
		&data.IsValid,
		&data.SubmittedBy,
		&data.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(valueJSON) > 0 {
		if err := json.Unmarshal(valueJSON, &data.Value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step data value: %w", err)
		}
	}

	return &data, nil
}

// Upsert inserts or replaces the row keyed by (instance, step, element key).
func (r *StepDataRepository) Upsert(ctx context.Context, data *models.StepData) error {
	if data.ID == "" {
		data.ID = uuid.New().String()
	}

	valueJSON, err := marshalNullable(data.Value != nil, data.Value)
	if err != nil {
		return fmt.Errorf("failed to marshal step data value: %w", err)
	}

	query := `
		INSERT INTO instance_step_data (` + stepDataColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (instance_id, step_id, element_key) DO UPDATE SET
			element_value = EXCLUDED.element_value,
			data_type = EXCLUDED.data_type,
			is_valid = EXCLUDED.is_valid,
			submitted_by = EXCLUDED.submitted_by,
			submitted_at = EXCLUDED.submitted_at
	`

	_, err = r.db.ExecContext(ctx, query,
		data.ID,
		data.InstanceID,
		data.StepID,
		data.ElementKey,
		valueJSON,
		data.DataType,
		data.IsValid,
		data.SubmittedBy,
		data.SubmittedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Upsert", "instance_step_data", data.ID, err)
	}

	return nil
}

// ListByInstanceID returns every submitted value for the instance.
func (r *StepDataRepository) ListByInstanceID(ctx context.Context, instanceID string) ([]*models.StepData, error) {
	query := `
		SELECT ` + stepDataColumns + `
		FROM instance_step_data
		WHERE instance_id = $1
		ORDER BY submitted_at
	`

	return r.list(ctx, query, instanceID)
}

// ListByInstanceAndStep returns the submitted values for one step of the
// instance.
func (r *StepDataRepository) ListByInstanceAndStep(ctx context.Context, instanceID, stepID string) ([]*models.StepData, error) {
	query := `
		SELECT ` + stepDataColumns + `
		FROM instance_step_data
		WHERE instance_id = $1 AND step_id = $2
		ORDER BY submitted_at
	`

	return r.list(ctx, query, instanceID, stepID)
}

func (r *StepDataRepository) list(ctx context.Context, query string, args ...any) ([]*models.StepData, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewRepositoryError("List", "instance_step_data", "", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.StepData, 0)

	for rows.Next() {
		record, err := scanStepData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step data: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step data: %w", err)
	}

	return records, nil
}
