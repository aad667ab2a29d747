package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/store"
)

// DeploymentStore implements store.DeploymentStore using PostgreSQL.
type DeploymentStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *DeploymentStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const deploymentColumns = `id, project_id, branch, commit_hash, commit_message, provider,
	environment, status, url, logs_url, build_command, estimated_cost, actual_cost,
	build_time_seconds, error, changed_files, created_by, created_at, updated_at,
	rolled_back_from`

// Create creates a new deployment row.
func (s *DeploymentStore) Create(ctx context.Context, deployment *models.Deployment) error {
	query := `
		INSERT INTO deployments (` + deploymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	now := time.Now().UTC()
	if deployment.CreatedAt.IsZero() {
		deployment.CreatedAt = now
	}
	if deployment.UpdatedAt.IsZero() {
		deployment.UpdatedAt = now
	}

	var rolledBackFrom *string
	if deployment.RolledBackFrom != "" {
		rolledBackFrom = &deployment.RolledBackFrom
	}

	_, err := s.conn().ExecContext(ctx, query,
		deployment.ID,
		deployment.ProjectID,
		deployment.Branch,
		deployment.CommitHash,
		deployment.CommitMessage,
		deployment.Provider,
		deployment.Environment,
		deployment.Status,
		deployment.URL,
		deployment.LogsURL,
		deployment.BuildCommand,
		deployment.EstimatedCost,
		deployment.ActualCost,
		deployment.BuildTimeSeconds,
		deployment.Error,
		pq.Array(deployment.ChangedFiles),
		deployment.CreatedBy,
		deployment.CreatedAt,
		deployment.UpdatedAt,
		rolledBackFrom,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("inserting deployment: %w", err)
	}

	return nil
}

// Get retrieves a deployment by ID.
func (s *DeploymentStore) Get(ctx context.Context, id string) (*models.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE id = $1`

	deployment, err := scanDeployment(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying deployment: %w", err)
	}

	return deployment, nil
}

// ListByProject retrieves deployments for a project, newest first.
func (s *DeploymentStore) ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Deployment, error) {
	query := `SELECT ` + deploymentColumns + `
		FROM deployments
		WHERE project_id = $1
		ORDER BY created_at DESC`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying deployments: %w", err)
	}
	defer rows.Close()

	var deployments []*models.Deployment
	for rows.Next() {
		deployment, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning deployment: %w", err)
		}
		deployments = append(deployments, deployment)
	}

	return deployments, rows.Err()
}

// ApplyStatus applies a guarded status update. The WHERE clause pins the
// current status so a late writer cannot regress a row that already reached a
// terminal state.
func (s *DeploymentStore) ApplyStatus(ctx context.Context, update store.DeploymentStatusUpdate) (bool, error) {
	if !update.From.CanTransitionTo(update.To) {
		return false, fmt.Errorf("illegal status transition %s -> %s", update.From, update.To)
	}

	query := `
		UPDATE deployments
		SET status = $1, url = $2, error = $3, build_time_seconds = $4,
			actual_cost = $5, updated_at = $6
		WHERE id = $7 AND status = $8`

	result, err := s.conn().ExecContext(ctx, query,
		update.To,
		update.URL,
		update.Error,
		update.BuildTimeSeconds,
		update.ActualCost,
		time.Now().UTC(),
		update.ID,
		update.From,
	)
	if err != nil {
		return false, fmt.Errorf("updating deployment status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}

	return affected > 0, nil
}

// CountByUserSince counts deployments created by a user since the given time.
func (s *DeploymentStore) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM deployments WHERE created_by = $1 AND created_at >= $2`

	var count int
	if err := s.conn().QueryRowContext(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting deployments: %w", err)
	}

	return count, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeployment(row rowScanner) (*models.Deployment, error) {
	deployment := &models.Deployment{}
	var rolledBackFrom sql.NullString

	err := row.Scan(
		&deployment.ID,
		&deployment.ProjectID,
		&deployment.Branch,
		&deployment.CommitHash,
		&deployment.CommitMessage,
		&deployment.Provider,
		&deployment.Environment,
		&deployment.Status,
		&deployment.URL,
		&deployment.LogsURL,
		&deployment.BuildCommand,
		&deployment.EstimatedCost,
		&deployment.ActualCost,
		&deployment.BuildTimeSeconds,
		&deployment.Error,
		pq.Array(&deployment.ChangedFiles),
		&deployment.CreatedBy,
		&deployment.CreatedAt,
		&deployment.UpdatedAt,
		&rolledBackFrom,
	)
	if err != nil {
		return nil, err
	}

	if rolledBackFrom.Valid {
		deployment.RolledBackFrom = rolledBackFrom.String
	}

	return deployment, nil
}
