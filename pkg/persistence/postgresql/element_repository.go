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

// ElementRepository handles element-related database operations.
type ElementRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewElementRepository creates a new element repository.
func NewElementRepository(db *sql.DB, logger *slog.Logger) *ElementRepository {
	return &ElementRepository{db: db, logger: logger}
}

const elementColumns = `
		id
	  , step_id
	  , element_type
	  , element_key
	  , label
	  , element_order
	  , required
	  , client_visible
	  , config
	  , created_at
	  , updated_at
`

func scanElement(row rowScanner) (*models.Element, error) {
	var (
		element    models.Element
		configJSON []byte
	)

	err := row.Scan(
		&element.ID,
		&element.StepID,
		&element.Type,
		&element.Key,
		&element.Label,
		&element.ElementOrder,
		&element.Required,
		&element.ClientVisible,
		&configJSON,
		&element.CreatedAt,
		&element.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &element.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal element config: %w", err)
		}
	}

	return &element, nil
}

// GetByID returns an element by its ID, or nil when absent.
func (r *ElementRepository) GetByID(ctx context.Context, id string) (*models.Element, error) {
	query := `
		SELECT ` + elementColumns + `
		FROM step_elements
		WHERE id = $1
	`

	element, err := scanElement(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewRepositoryError("GetByID", "step_elements", id, err)
	}

	return element, nil
}

// ListByStepID returns the elements of a step ordered by element_order.
func (r *ElementRepository) ListByStepID(ctx context.Context, stepID string) ([]*models.Element, error) {
	return r.ListByStepIDs(ctx, []string{stepID})
}

// ListByStepIDs returns the elements of several steps in one query, ordered
// by element_order within each step.
func (r *ElementRepository) ListByStepIDs(ctx context.Context, stepIDs []string) ([]*models.Element, error) {
	if len(stepIDs) == 0 {
		return []*models.Element{}, nil
	}

	query := `
		SELECT ` + elementColumns + `
		FROM step_elements
		WHERE step_id = ANY($1)
		ORDER BY step_id, element_order, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(stepIDs))
	if err != nil {
		return nil, persistence.NewRepositoryError("ListByStepIDs", "step_elements", "", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	elements := make([]*models.Element, 0)

	for rows.Next() {
		element, err := scanElement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan element: %w", err)
		}

		elements = append(elements, element)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elements: %w", err)
	}

	return elements, nil
}

// MaxOrder returns the highest element_order under the step, 0 when empty.
func (r *ElementRepository) MaxOrder(ctx context.Context, stepID string) (int, error) {
	var max int

	query := "SELECT COALESCE(MAX(element_order), 0) FROM step_elements WHERE step_id = $1"

	err := r.db.QueryRowContext(ctx, query, stepID).Scan(&max)
	if err != nil {
		return 0, persistence.NewRepositoryError("MaxOrder", "step_elements", stepID, err)
	}

	return max, nil
}

// Save inserts or fully replaces an element row.
func (r *ElementRepository) Save(ctx context.Context, element *models.Element) error {
	configJSON, err := marshalNullable(element.Config != nil, element.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal element config: %w", err)
	}

	query := `
		INSERT INTO step_elements (` + elementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			element_order = EXCLUDED.element_order,
			required = EXCLUDED.required,
			client_visible = EXCLUDED.client_visible,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		element.ID,
		element.StepID,
		element.Type,
		element.Key,
		element.Label,
		element.ElementOrder,
		element.Required,
		element.ClientVisible,
		configJSON,
		element.CreatedAt,
		element.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Save", "step_elements", element.ID, err)
	}

	return nil
}

// Delete removes an element row.
func (r *ElementRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM step_elements WHERE id = $1", id)
	if err != nil {
		return persistence.NewRepositoryError("Delete", "step_elements", id, err)
	}

	return nil
}
