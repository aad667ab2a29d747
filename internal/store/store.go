// Package store provides database access interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/launchdeck/launchdeck/internal/models"
)

// DeploymentStatusUpdate is an atomic write of the status field group.
// Status, URL, Error, BuildTimeSeconds and ActualCost are written together so a
// terminal row always carries either a URL+cost or an error, never a mix.
type DeploymentStatusUpdate struct {
	ID               string
	From             models.DeploymentStatus
	To               models.DeploymentStatus
	URL              string
	Error            string
	BuildTimeSeconds int
	ActualCost       float64
}

// DeploymentStore defines operations for deployment record management.
type DeploymentStore interface {
	// Create creates a new deployment row.
	Create(ctx context.Context, deployment *models.Deployment) error
	// Get retrieves a deployment by ID.
	Get(ctx context.Context, id string) (*models.Deployment, error)
	// ListByProject retrieves deployments for a project, ordered by created_at DESC.
	// A limit <= 0 means no limit.
	ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Deployment, error)
	// ApplyStatus applies a status update only when the row's current status
	// equals update.From. Returns false when the guard did not match, which
	// callers treat as "someone else already finished this deployment".
	ApplyStatus(ctx context.Context, update DeploymentStatusUpdate) (bool, error)
	// CountByUserSince counts deployments created by a user since the given time.
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// ProjectStore defines operations for project management.
type ProjectStore interface {
	// Create creates a new project.
	Create(ctx context.Context, project *models.Project) error
	// Get retrieves a project by ID.
	Get(ctx context.Context, id string) (*models.Project, error)
	// List retrieves all projects for a given owner.
	List(ctx context.Context, ownerID string) ([]*models.Project, error)
	// Update updates an existing project.
	Update(ctx context.Context, project *models.Project) error
	// SetLastDeployCommit records the commit of the most recent deployment.
	SetLastDeployCommit(ctx context.Context, id, commit string) error
}

// EnvVarStore defines operations for per-environment variable storage.
// Values are stored as opaque bytes; encryption happens above this layer.
type EnvVarStore interface {
	// Set replaces the variable set for a project environment.
	Set(ctx context.Context, projectID string, env models.Environment, vars map[string][]byte) error
	// GetAll retrieves all variables for a project environment.
	GetAll(ctx context.Context, projectID string, env models.Environment) (map[string][]byte, error)
}

// User represents a platform user.
type User struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Plan      models.Plan `json:"plan"`
	CreatedAt time.Time   `json:"created_at"`
}

// UserStore defines operations for user management.
type UserStore interface {
	// Create creates a new user with a hashed password.
	Create(ctx context.Context, email, password string, plan models.Plan) (*User, error)
	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Authenticate verifies credentials and returns the user.
	Authenticate(ctx context.Context, email, password string) (*User, error)
}

// Store is the main interface for database operations.
type Store interface {
	// Deployments returns the DeploymentStore for deployment operations.
	Deployments() DeploymentStore
	// Projects returns the ProjectStore for project operations.
	Projects() ProjectStore
	// EnvVars returns the EnvVarStore for environment variable operations.
	EnvVars() EnvVarStore
	// Users returns the UserStore for user operations.
	Users() UserStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Close closes the database connection.
	Close() error
}
