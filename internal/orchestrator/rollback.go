package orchestrator

import (
	"context"
	"fmt"

	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/provider"
	"github.com/launchdeck/launchdeck/internal/store"
)

// RollbackRequest describes a rollback of a previously successful deployment.
type RollbackRequest struct {
	DeploymentID string `json:"deployment_id"`
	Reason       string `json:"reason,omitempty"`
	UserID       string `json:"-"`
}

// RollbackDeployment reinstates a successful deployment by creating a new
// forward deployment from the target's options, then flipping the target to
// rolled_back. The new deployment resolves like any other; the audit trail
// keeps both rows.
func (s *Service) RollbackDeployment(ctx context.Context, req *RollbackRequest) (*models.Deployment, error) {
	target, err := s.store.Deployments().Get(ctx, req.DeploymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: deployment %s", ErrNotFound, req.DeploymentID)
	}

	if target.Status != models.DeploymentStatusSuccess {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidRollbackTarget, target.Status)
	}

	adapter, err := s.providers.Get(target.Provider)
	if err != nil {
		return nil, err
	}

	result, err := adapter.RollbackDeploy(ctx, target.ID, provider.RollbackOptions{
		TargetDeploymentID: target.ID,
		Reason:             req.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("rolling back on %s: %w", target.Provider, err)
	}

	now := s.clock.Now()
	rollback := &models.Deployment{
		ID:             result.ID,
		ProjectID:      target.ProjectID,
		Branch:         target.Branch,
		CommitHash:     target.CommitHash,
		CommitMessage:  target.CommitMessage,
		Provider:       target.Provider,
		Environment:    target.Environment,
		Status:         models.DeploymentStatusPending,
		LogsURL:        result.LogsURL,
		BuildCommand:   target.BuildCommand,
		EstimatedCost:  target.EstimatedCost,
		CreatedBy:      req.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
		RolledBackFrom: target.ID,
	}

	if err := s.store.Deployments().Create(ctx, rollback); err != nil {
		return nil, fmt.Errorf("persisting rollback deployment: %w", err)
	}

	applied, err := s.store.Deployments().ApplyStatus(ctx, store.DeploymentStatusUpdate{
		ID:   rollback.ID,
		From: models.DeploymentStatusPending,
		To:   models.DeploymentStatusDeploying,
	})
	if err != nil {
		return nil, fmt.Errorf("marking rollback deploying: %w", err)
	}
	if applied {
		rollback.Status = models.DeploymentStatusDeploying
	}

	// The target flips only after the replacement row exists, so a crash in
	// between leaves both rows visible rather than losing the history.
	flipped, err := s.store.Deployments().ApplyStatus(ctx, store.DeploymentStatusUpdate{
		ID:               target.ID,
		From:             models.DeploymentStatusSuccess,
		To:               models.DeploymentStatusRolledBack,
		URL:              target.URL,
		BuildTimeSeconds: target.BuildTimeSeconds,
		ActualCost:       target.ActualCost,
	})
	if err != nil {
		return nil, fmt.Errorf("marking target rolled back: %w", err)
	}
	if !flipped {
		s.logger.Warn("rollback target already rolled back elsewhere",
			"deployment_id", target.ID,
		)
	}

	s.logger.Info("rollback started",
		"deployment_id", rollback.ID,
		"rolled_back_from", target.ID,
		"reason", req.Reason,
	)

	go s.resolveDeployment(rollback.ID, adapter)

	return rollback, nil
}
