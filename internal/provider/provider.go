// Package provider defines the hosting provider adapter contract and the
// simulated adapter implementations that satisfy it.
package provider

import (
	"context"

	"github.com/launchdeck/launchdeck/internal/models"
)

// DeployResult is the provider's synchronous answer to a create or rollback call.
type DeployResult struct {
	// ID is the globally unique, provider-namespaced deployment ID.
	ID string `json:"id"`
	// Status is the initial status, always deploying for a fresh create.
	Status models.DeploymentStatus `json:"status"`
	// ProviderID is the provider's own internal identifier.
	ProviderID string `json:"provider_id"`
	// LogsURL points at the provider's log console for this deployment.
	LogsURL string `json:"logs_url"`
}

// DeployStatus is a point-in-time snapshot of a deployment on the provider side.
type DeployStatus struct {
	ID               string                  `json:"id"`
	Status           models.DeploymentStatus `json:"status"`
	URL              string                  `json:"url,omitempty"`
	BuildTimeSeconds int                     `json:"build_time_seconds,omitempty"`
	Error            string                  `json:"error,omitempty"`
}

// RollbackOptions describes a rollback request against a provider.
type RollbackOptions struct {
	// TargetDeploymentID is the successful deployment being reinstated.
	TargetDeploymentID string `json:"target_deployment_id"`
	// Reason is an optional human-readable justification.
	Reason string `json:"reason,omitempty"`
}

// Adapter is the uniform contract every hosting provider implements.
// Adapters are stateless request/response collaborators: they own no
// deployment records and may be shared freely across goroutines.
type Adapter interface {
	// Name returns the provider identifier.
	Name() models.ProviderName

	// CreateDeploy starts a new deployment and returns its provider-namespaced ID.
	CreateDeploy(ctx context.Context, projectID string, opts models.DeployOptions) (*DeployResult, error)

	// GetDeployStatus returns the current status. Idempotent and safe to poll.
	GetDeployStatus(ctx context.Context, id string) (*DeployStatus, error)

	// GetDeployLogs returns the finite, restartable log sequence for a deployment.
	// Callers may re-fetch from the start at any time.
	GetDeployLogs(ctx context.Context, id string) ([]models.LogEntry, error)

	// CancelDeploy cancels an in-flight deployment. Cancelling a deployment
	// that is already terminal is a documented no-op, not an error.
	CancelDeploy(ctx context.Context, id string) error

	// RollbackDeploy creates a new forward deployment reinstating the target.
	// Marking the target rolled_back is the caller's responsibility.
	RollbackDeploy(ctx context.Context, id string, opts RollbackOptions) (*DeployResult, error)

	// GetProjectSettings retrieves the provider-side project settings.
	GetProjectSettings(ctx context.Context, projectID string) (*models.ProjectSettings, error)

	// UpdateProjectSettings replaces the provider-side project settings.
	UpdateProjectSettings(ctx context.Context, projectID string, settings models.ProjectSettings) error

	// GetEnvironmentVariables retrieves the variable set for an environment.
	GetEnvironmentVariables(ctx context.Context, projectID string, env models.Environment) (map[string]string, error)

	// SetEnvironmentVariables replaces the variable set for an environment.
	SetEnvironmentVariables(ctx context.Context, projectID string, env models.Environment, vars map[string]string) error

	// EstimateCost returns the deployment cost estimate in dollars.
	// Pure function of the options' environment.
	EstimateCost(opts models.DeployOptions) float64

	// EstimateBuildTime returns the build time estimate in seconds.
	// Pure function of the options' environment.
	EstimateBuildTime(opts models.DeployOptions) int
}
