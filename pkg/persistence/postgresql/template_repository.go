package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

// TemplateRepository handles template-related database operations.
type TemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB, logger *slog.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

const templateColumns = `
		id
	  , name
	  , description
	  , template_type
	  , is_active
	  , is_published
	  , version
	  , icon
	  , color
	  , category
	  , tags
	  , requires_products_services
	  , auto_create_project
	  , estimated_duration_minutes
	  , client_visible
	  , client_description
	  , created_by
	  , updated_by
	  , created_at
	  , updated_at
	  , deleted_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*models.Template, error) {
	var (
		template models.Template
		tagsJSON []byte
	)

	err := row.Scan(
		&template.ID,
		&template.Name,
		&template.Description,
		&template.Type,
		&template.IsActive,
		&template.IsPublished,
		&template.Version,
		&template.Icon,
		&template.Color,
		&template.Category,
		&tagsJSON,
		&template.RequiresProductsServices,
		&template.AutoCreateProject,
		&template.EstimatedDurationMinutes,
		&template.ClientVisible,
		&template.ClientDescription,
		&template.CreatedBy,
		&template.UpdatedBy,
		&template.CreatedAt,
		&template.UpdatedAt,
		&template.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &template.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template tags: %w", err)
		}
	}

	return &template, nil
}

// GetByID returns a template by its ID, or nil when absent or soft-deleted.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM templates
		WHERE id = $1 AND deleted_at IS NULL
	`

	template, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewRepositoryError("GetByID", "templates", id, err)
	}

	return template, nil
}

// List returns non-deleted templates matching the filters, newest first.
func (r *TemplateRepository) List(ctx context.Context, filters persistence.TemplateFilters) ([]*models.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM templates
		WHERE deleted_at IS NULL
	`

	args := make([]any, 0, 4)

	if filters.Type != nil {
		args = append(args, string(*filters.Type))
		query += " AND template_type = $" + strconv.Itoa(len(args))
	}

	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		query += " AND is_active = $" + strconv.Itoa(len(args))
	}

	if filters.IsPublished != nil {
		args = append(args, *filters.IsPublished)
		query += " AND is_published = $" + strconv.Itoa(len(args))
	}

	if filters.CreatedBy != "" {
		args = append(args, filters.CreatedBy)
		query += " AND created_by = $" + strconv.Itoa(len(args))
	}

	if filters.Category != "" {
		args = append(args, filters.Category)
		query += " AND category = $" + strconv.Itoa(len(args))
	}

	for _, tag := range filters.Tags {
		args = append(args, tag)
		query += " AND tags @> to_jsonb(ARRAY[$" + strconv.Itoa(len(args)) + "::text])"
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewRepositoryError("List", "templates", "", err)
	}

	defer r.closeRows(ctx, rows)

	templates := make([]*models.Template, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

// Save inserts or fully replaces a template row.
func (r *TemplateRepository) Save(ctx context.Context, template *models.Template) error {
	tagsJSON, err := json.Marshal(template.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal template tags: %w", err)
	}

	query := `
		INSERT INTO templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			template_type = EXCLUDED.template_type,
			is_active = EXCLUDED.is_active,
			is_published = EXCLUDED.is_published,
			version = EXCLUDED.version,
			icon = EXCLUDED.icon,
			color = EXCLUDED.color,
			category = EXCLUDED.category,
			tags = EXCLUDED.tags,
			requires_products_services = EXCLUDED.requires_products_services,
			auto_create_project = EXCLUDED.auto_create_project,
			estimated_duration_minutes = EXCLUDED.estimated_duration_minutes,
			client_visible = EXCLUDED.client_visible,
			client_description = EXCLUDED.client_description,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = r.db.ExecContext(ctx, query,
		template.ID,
		template.Name,
		template.Description,
		template.Type,
		template.IsActive,
		template.IsPublished,
		template.Version,
		template.Icon,
		template.Color,
		template.Category,
		tagsJSON,
		template.RequiresProductsServices,
		template.AutoCreateProject,
		template.EstimatedDurationMinutes,
		template.ClientVisible,
		template.ClientDescription,
		template.CreatedBy,
		template.UpdatedBy,
		template.CreatedAt,
		template.UpdatedAt,
		template.DeletedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Save", "templates", template.ID, err)
	}

	return nil
}

// ListDeletedBefore returns soft-deleted templates whose deletion timestamp
// is older than the cutoff.
func (r *TemplateRepository) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]*models.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM templates
		WHERE deleted_at IS NOT NULL AND deleted_at < $1
		ORDER BY deleted_at
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, persistence.NewRepositoryError("ListDeletedBefore", "templates", "", err)
	}

	defer r.closeRows(ctx, rows)

	templates := make([]*models.Template, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

// HardDelete removes a template row. The schema cascades to stages, tasks,
// steps, elements, instances, and step data.
func (r *TemplateRepository) HardDelete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM templates WHERE id = $1", id)
	if err != nil {
		return persistence.NewRepositoryError("HardDelete", "templates", id, err)
	}

	return nil
}

func (r *TemplateRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
