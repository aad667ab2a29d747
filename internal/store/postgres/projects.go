package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/launchdeck/launchdeck/internal/models"
)

// ProjectStore implements store.ProjectStore using PostgreSQL.
type ProjectStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *ProjectStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const projectColumns = `id, name, owner_id, provider, repo_url, build_command,
	output_directory, node_version, last_deploy_commit, created_at, updated_at`

// Create creates a new project.
func (s *ProjectStore) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	if project.UpdatedAt.IsZero() {
		project.UpdatedAt = now
	}

	_, err := s.conn().ExecContext(ctx, query,
		project.ID,
		project.Name,
		project.OwnerID,
		project.Provider,
		project.RepoURL,
		project.BuildCommand,
		project.OutputDirectory,
		project.NodeVersion,
		project.LastDeployCommit,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("inserting project: %w", err)
	}

	return nil
}

// Get retrieves a project by ID.
func (s *ProjectStore) Get(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	project := &models.Project{}
	err := s.conn().QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.OwnerID,
		&project.Provider,
		&project.RepoURL,
		&project.BuildCommand,
		&project.OutputDirectory,
		&project.NodeVersion,
		&project.LastDeployCommit,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying project: %w", err)
	}

	return project, nil
}

// List retrieves all projects for a given owner.
func (s *ProjectStore) List(ctx context.Context, ownerID string) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := s.conn().QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project := &models.Project{}
		err := rows.Scan(
			&project.ID,
			&project.Name,
			&project.OwnerID,
			&project.Provider,
			&project.RepoURL,
			&project.BuildCommand,
			&project.OutputDirectory,
			&project.NodeVersion,
			&project.LastDeployCommit,
			&project.CreatedAt,
			&project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// Update updates an existing project.
func (s *ProjectStore) Update(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects
		SET name = $1, provider = $2, repo_url = $3, build_command = $4,
			output_directory = $5, node_version = $6, last_deploy_commit = $7, updated_at = $8
		WHERE id = $9`

	project.UpdatedAt = time.Now().UTC()

	result, err := s.conn().ExecContext(ctx, query,
		project.Name,
		project.Provider,
		project.RepoURL,
		project.BuildCommand,
		project.OutputDirectory,
		project.NodeVersion,
		project.LastDeployCommit,
		project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetLastDeployCommit records the commit of the most recent deployment.
func (s *ProjectStore) SetLastDeployCommit(ctx context.Context, id, commit string) error {
	query := `UPDATE projects SET last_deploy_commit = $1, updated_at = $2 WHERE id = $3`

	result, err := s.conn().ExecContext(ctx, query, commit, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating last deploy commit: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
