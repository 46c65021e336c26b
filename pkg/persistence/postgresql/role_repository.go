package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

// RoleRepository looks up access roles.
type RoleRepository struct {
	db *sql.DB
}

// NewRoleRepository creates a new role repository.
func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// GetRoles returns the roles granted to the user.
func (r *RoleRepository) GetRoles(ctx context.Context, userID string) ([]models.Role, error) {
	query := `
		SELECT
			user_id
		  , role
		  , granted_at
		FROM user_roles
		WHERE user_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, persistence.NewRepositoryError("GetRoles", "user_roles", userID, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	roles := make([]models.Role, 0)

	for rows.Next() {
		var role models.Role

		if err := rows.Scan(&role.UserID, &role.Name, &role.GrantedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}

		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}

	return roles, nil
}
