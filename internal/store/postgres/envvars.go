package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/launchdeck/launchdeck/internal/models"
)

// EnvVarStore implements store.EnvVarStore using PostgreSQL.
// Values are opaque bytes; callers encrypt before writing.
type EnvVarStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *EnvVarStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Set replaces the variable set for a project environment.
func (s *EnvVarStore) Set(ctx context.Context, projectID string, env models.Environment, vars map[string][]byte) error {
	if _, err := s.conn().ExecContext(ctx,
		`DELETE FROM env_vars WHERE project_id = $1 AND environment = $2`,
		projectID, env,
	); err != nil {
		return fmt.Errorf("clearing env vars: %w", err)
	}

	query := `
		INSERT INTO env_vars (project_id, environment, key, value, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	now := time.Now().UTC()
	for key, value := range vars {
		if _, err := s.conn().ExecContext(ctx, query, projectID, env, key, value, now); err != nil {
			return fmt.Errorf("inserting env var %s: %w", key, err)
		}
	}

	return nil
}

// GetAll retrieves all variables for a project environment.
func (s *EnvVarStore) GetAll(ctx context.Context, projectID string, env models.Environment) (map[string][]byte, error) {
	query := `SELECT key, value FROM env_vars WHERE project_id = $1 AND environment = $2`

	rows, err := s.conn().QueryContext(ctx, query, projectID, env)
	if err != nil {
		return nil, fmt.Errorf("querying env vars: %w", err)
	}
	defer rows.Close()

	vars := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning env var: %w", err)
		}
		vars[key] = value
	}

	return vars, rows.Err()
}
