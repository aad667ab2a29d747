package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/provider"
	"github.com/launchdeck/launchdeck/internal/quota"
	"github.com/launchdeck/launchdeck/internal/store"
	"github.com/launchdeck/launchdeck/pkg/logger"
)

// DeployRequest describes a new deployment submission.
type DeployRequest struct {
	ProjectID     string             `json:"project_id"`
	Branch        string             `json:"branch"`
	Environment   models.Environment `json:"environment"`
	CommitHash    string             `json:"commit_hash,omitempty"`
	CommitMessage string             `json:"commit_message,omitempty"`
	ChangedFiles  []string           `json:"changed_files,omitempty"`
	// EnvOverrides are request-scoped variables layered over the stored set
	// for this deployment only. They are never persisted.
	EnvOverrides map[string]string `json:"env_overrides,omitempty"`
	UserID       string            `json:"-"`
	Plan         models.Plan       `json:"-"`
}

// CreateDeployment gates the request on quota, starts the deployment with the
// project's provider, persists the record, and resolves its final state in
// the background. The returned deployment is in status deploying.
func (s *Service) CreateDeployment(ctx context.Context, req *DeployRequest) (*models.Deployment, error) {
	if !req.Environment.IsValid() {
		req.Environment = models.EnvironmentPreview
	}

	project, err := s.store.Projects().Get(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, req.ProjectID)
	}

	if err := s.checkQuota(ctx, req.UserID, req.Plan, req.Environment); err != nil {
		return nil, err
	}

	adapter, err := s.providers.Get(project.Provider)
	if err != nil {
		return nil, err
	}

	opts := models.DeployOptions{
		Branch:        req.Branch,
		Environment:   req.Environment,
		CommitHash:    req.CommitHash,
		CommitMessage: req.CommitMessage,
		BuildCommand:  project.BuildCommand,
		Provider:      project.Provider,
		EnvVariables:  mergeEnvVars(s.loadEnvVariables(ctx, project.ID, req.Environment), req.EnvOverrides),
	}

	result, err := adapter.CreateDeploy(ctx, project.ID, opts)
	if err != nil {
		return nil, fmt.Errorf("creating deploy on %s: %w", project.Provider, err)
	}

	now := s.clock.Now()
	deployment := &models.Deployment{
		ID:            result.ID,
		ProjectID:     project.ID,
		Branch:        req.Branch,
		CommitHash:    req.CommitHash,
		CommitMessage: req.CommitMessage,
		Provider:      project.Provider,
		Environment:   req.Environment,
		Status:        models.DeploymentStatusPending,
		LogsURL:       result.LogsURL,
		BuildCommand:  project.BuildCommand,
		EstimatedCost: adapter.EstimateCost(opts),
		ChangedFiles:  req.ChangedFiles,
		CreatedBy:     req.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Deployments().Create(ctx, deployment); err != nil {
		return nil, fmt.Errorf("persisting deployment: %w", err)
	}

	// The provider accepted the deploy, so the row moves to deploying
	// immediately. Pending exists as a distinct state so a crash between
	// Create and this write is observable.
	applied, err := s.store.Deployments().ApplyStatus(ctx, store.DeploymentStatusUpdate{
		ID:   deployment.ID,
		From: models.DeploymentStatusPending,
		To:   models.DeploymentStatusDeploying,
	})
	if err != nil {
		return nil, fmt.Errorf("marking deployment deploying: %w", err)
	}
	if applied {
		deployment.Status = models.DeploymentStatusDeploying
	}

	if req.CommitHash != "" {
		if err := s.store.Projects().SetLastDeployCommit(ctx, project.ID, req.CommitHash); err != nil {
			s.logger.Warn("failed to record last deploy commit",
				"project_id", project.ID,
				"error", err,
			)
		}
	}

	s.logger.Info("deployment created",
		"deployment_id", deployment.ID,
		"project_id", project.ID,
		"provider", project.Provider,
		"environment", req.Environment,
		"user_id", logger.UserIDFromContext(ctx),
	)

	go s.resolveDeployment(deployment.ID, adapter)

	return deployment, nil
}

// checkQuota enforces the monthly allowance and the plan's environment set.
func (s *Service) checkQuota(ctx context.Context, userID string, plan models.Plan, env models.Environment) error {
	if !quota.AllowsEnvironment(plan, env) {
		return fmt.Errorf("%w: plan %s cannot deploy to %s", ErrEnvironmentNotAllowed, plan, env)
	}

	used, err := s.store.Deployments().CountByUserSince(ctx, userID, monthStart(s.clock.Now()))
	if err != nil {
		return fmt.Errorf("counting deployments: %w", err)
	}

	q := quota.Resolve(plan, used)
	if !q.CanDeploy {
		return fmt.Errorf("%w: %d of %d deployments used this month", ErrQuotaExceeded, q.Used, q.Limit)
	}
	return nil
}

// loadEnvVariables decrypts the stored variable set for the environment.
// Missing data or a decrypt-incapable secrets service degrades to no
// variables rather than failing the deployment.
func (s *Service) loadEnvVariables(ctx context.Context, projectID string, env models.Environment) map[string]string {
	if s.secrets == nil || !s.secrets.CanDecrypt() {
		return nil
	}

	encrypted, err := s.store.EnvVars().GetAll(ctx, projectID, env)
	if err != nil {
		s.logger.Warn("failed to load environment variables",
			"project_id", projectID,
			"environment", env,
			"error", err,
		)
		return nil
	}
	if len(encrypted) == 0 {
		return nil
	}

	vars, err := s.secrets.DecryptVars(ctx, encrypted)
	if err != nil {
		s.logger.Warn("failed to decrypt environment variables",
			"project_id", projectID,
			"environment", env,
			"error", err,
		)
		return nil
	}
	return vars
}

// resolveDeployment polls the provider until the deployment reaches a
// terminal state, then applies the guarded status write. The guard means a
// concurrent cancel or a status read that already saw the terminal state
// wins harmlessly.
func (s *Service) resolveDeployment(id string, adapter provider.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ResolveTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			s.failDeployment(id, "deployment timed out waiting for provider")
			return
		case <-s.clock.After(s.cfg.ResolveInterval):
		}

		status, err := adapter.GetDeployStatus(ctx, id)
		if err != nil {
			if errors.Is(err, provider.ErrDeployNotFound) {
				s.failDeployment(id, "deployment disappeared on provider")
				return
			}
			s.logger.Warn("deploy status poll failed", "deployment_id", id, "error", err)
			continue
		}

		if !status.Status.IsTerminal() {
			continue
		}

		s.applyProviderStatus(ctx, id, adapter, status)
		return
	}
}

// applyProviderStatus writes the provider's terminal snapshot through the
// status guard and publishes the final log batch.
func (s *Service) applyProviderStatus(ctx context.Context, id string, adapter provider.Adapter, status *provider.DeployStatus) {
	actualCost := 0.0
	if status.Status == models.DeploymentStatusSuccess {
		if deployment, err := s.store.Deployments().Get(ctx, id); err == nil {
			actualCost = deployment.EstimatedCost
		}
	}

	applied, err := s.store.Deployments().ApplyStatus(ctx, store.DeploymentStatusUpdate{
		ID:               id,
		From:             models.DeploymentStatusDeploying,
		To:               status.Status,
		URL:              status.URL,
		Error:            status.Error,
		BuildTimeSeconds: status.BuildTimeSeconds,
		ActualCost:       actualCost,
	})
	if err != nil {
		s.logger.Error("failed to apply deployment status",
			"deployment_id", id,
			"status", status.Status,
			"error", err,
		)
		return
	}
	if !applied {
		s.logger.Debug("deployment already resolved elsewhere", "deployment_id", id)
		return
	}

	s.logger.Info("deployment resolved",
		"deployment_id", id,
		"status", status.Status,
		"build_time_seconds", status.BuildTimeSeconds,
	)

	if entries, err := adapter.GetDeployLogs(ctx, id); err == nil {
		batch := make([]*models.LogEntry, len(entries))
		for i := range entries {
			batch[i] = &entries[i]
		}
		s.broker.PublishBatch(batch)
	}
}

// failDeployment force-fails an in-flight deployment with the given reason.
func (s *Service) failDeployment(id, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ResolveInterval)
	defer cancel()

	applied, err := s.store.Deployments().ApplyStatus(ctx, store.DeploymentStatusUpdate{
		ID:    id,
		From:  models.DeploymentStatusDeploying,
		To:    models.DeploymentStatusFailed,
		Error: reason,
	})
	if err != nil {
		s.logger.Error("failed to fail deployment", "deployment_id", id, "error", err)
		return
	}
	if applied {
		s.logger.Warn("deployment failed", "deployment_id", id, "reason", reason)
	}
}

// GetDeploymentStatus returns the deployment, refreshing non-terminal rows
// from the provider first. Terminal rows are returned as stored and never
// touch the provider again.
func (s *Service) GetDeploymentStatus(ctx context.Context, id string) (*models.Deployment, error) {
	deployment, err := s.store.Deployments().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: deployment %s", ErrNotFound, id)
	}

	if deployment.Status.IsTerminal() {
		return deployment, nil
	}

	adapter, err := s.providers.Get(deployment.Provider)
	if err != nil {
		return deployment, nil
	}

	status, err := adapter.GetDeployStatus(ctx, id)
	if err != nil {
		s.logger.Warn("provider status refresh failed", "deployment_id", id, "error", err)
		return deployment, nil
	}

	if status.Status == deployment.Status || !deployment.Status.CanTransitionTo(status.Status) {
		return deployment, nil
	}

	s.applyProviderStatus(ctx, id, adapter, status)

	refreshed, err := s.store.Deployments().Get(ctx, id)
	if err != nil {
		return deployment, nil
	}
	return refreshed, nil
}

// CancelDeployment cancels an in-flight deployment. Terminal deployments
// cannot be cancelled.
func (s *Service) CancelDeployment(ctx context.Context, id string) (*models.Deployment, error) {
	deployment, err := s.store.Deployments().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: deployment %s", ErrNotFound, id)
	}

	if deployment.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCancellable, deployment.Status)
	}

	adapter, err := s.providers.Get(deployment.Provider)
	if err != nil {
		return nil, err
	}
	if err := adapter.CancelDeploy(ctx, id); err != nil {
		return nil, fmt.Errorf("cancelling on %s: %w", deployment.Provider, err)
	}

	applied, err := s.store.Deployments().ApplyStatus(ctx, store.DeploymentStatusUpdate{
		ID:   id,
		From: models.DeploymentStatusDeploying,
		To:   models.DeploymentStatusCancelled,
	})
	if err != nil {
		return nil, fmt.Errorf("marking deployment cancelled: %w", err)
	}
	if !applied {
		// The resolver finished first. Report the race as not cancellable.
		refreshed, getErr := s.store.Deployments().Get(ctx, id)
		if getErr == nil && refreshed.Status.IsTerminal() && refreshed.Status != models.DeploymentStatusCancelled {
			return nil, fmt.Errorf("%w: status is %s", ErrNotCancellable, refreshed.Status)
		}
		if getErr == nil {
			return refreshed, nil
		}
		return nil, fmt.Errorf("%w: deployment %s", ErrNotFound, id)
	}

	s.logger.Info("deployment cancelled", "deployment_id", id)

	deployment.Status = models.DeploymentStatusCancelled
	return deployment, nil
}

// GetDeploymentLogs returns the stored log sequence for a deployment.
func (s *Service) GetDeploymentLogs(ctx context.Context, id string) ([]models.LogEntry, error) {
	deployment, err := s.store.Deployments().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: deployment %s", ErrNotFound, id)
	}

	adapter, err := s.providers.Get(deployment.Provider)
	if err != nil {
		return nil, err
	}

	entries, err := adapter.GetDeployLogs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching logs from %s: %w", deployment.Provider, err)
	}
	return entries, nil
}
