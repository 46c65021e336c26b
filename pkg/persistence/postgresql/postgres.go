// Package postgresql provides PostgreSQL persistence for the template
// hierarchy and its execution instances.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the postgres driver.
	_ "github.com/lib/pq"

	"github.com/getplaybook/playbook/pkg/persistence"
	"github.com/getplaybook/playbook/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	templateRepo *TemplateRepository
	stageRepo    *StageRepository
	taskRepo     *TaskRepository
	stepRepo     *StepRepository
	elementRepo  *ElementRepository
	instanceRepo *InstanceRepository
	stepDataRepo *StepDataRepository
	roleRepo     *RoleRepository
}

// NewPersistence connects, runs pending migrations, and returns the
// persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		templateRepo: NewTemplateRepository(database, logger),
		stageRepo:    NewStageRepository(database, logger),
		taskRepo:     NewTaskRepository(database, logger),
		stepRepo:     NewStepRepository(database, logger),
		elementRepo:  NewElementRepository(database, logger),
		instanceRepo: NewInstanceRepository(database, logger),
		stepDataRepo: NewStepDataRepository(database, logger),
		roleRepo:     NewRoleRepository(database),
	}, nil
}

func (p *Persistence) Templates() persistence.TemplateRepository { return p.templateRepo }
func (p *Persistence) Stages() persistence.StageRepository       { return p.stageRepo }
func (p *Persistence) Tasks() persistence.TaskRepository         { return p.taskRepo }
func (p *Persistence) Steps() persistence.StepRepository         { return p.stepRepo }
func (p *Persistence) Elements() persistence.ElementRepository   { return p.elementRepo }
func (p *Persistence) Instances() persistence.InstanceRepository { return p.instanceRepo }
func (p *Persistence) StepData() persistence.StepDataRepository  { return p.stepDataRepo }
func (p *Persistence) Roles() persistence.RoleRepository         { return p.roleRepo }

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
