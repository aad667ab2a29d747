package orchestrator

import (
	"context"
	"fmt"

	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/quota"
)

// GetDeploymentHistory returns a project's deployments, newest first. A
// limit <= 0 uses the configured default page size.
func (s *Service) GetDeploymentHistory(ctx context.Context, projectID string, limit int) ([]*models.Deployment, error) {
	if _, err := s.store.Projects().Get(ctx, projectID); err != nil {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	return s.store.Deployments().ListByProject(ctx, projectID, limit)
}

// Metrics aggregates a project's deployment outcomes.
type Metrics struct {
	Total               int     `json:"total"`
	Succeeded           int     `json:"succeeded"`
	Failed              int     `json:"failed"`
	Cancelled           int     `json:"cancelled"`
	RolledBack          int     `json:"rolled_back"`
	InFlight            int     `json:"in_flight"`
	SuccessRate         float64 `json:"success_rate"`
	AvgBuildTimeSeconds float64 `json:"avg_build_time_seconds"`
	TotalCost           float64 `json:"total_cost"`
}

// GetDeploymentMetrics computes outcome aggregates across every deployment
// of a project. Rolled back deployments count as successes for the rate;
// they did deploy.
func (s *Service) GetDeploymentMetrics(ctx context.Context, projectID string) (*Metrics, error) {
	if _, err := s.store.Projects().Get(ctx, projectID); err != nil {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}

	deployments, err := s.store.Deployments().ListByProject(ctx, projectID, 0)
	if err != nil {
		return nil, fmt.Errorf("listing deployments: %w", err)
	}

	m := &Metrics{Total: len(deployments)}
	buildTimeTotal := 0
	buildTimeCount := 0

	for _, d := range deployments {
		switch d.Status {
		case models.DeploymentStatusSuccess:
			m.Succeeded++
		case models.DeploymentStatusFailed:
			m.Failed++
		case models.DeploymentStatusCancelled:
			m.Cancelled++
		case models.DeploymentStatusRolledBack:
			m.RolledBack++
		default:
			m.InFlight++
		}
		if d.BuildTimeSeconds > 0 {
			buildTimeTotal += d.BuildTimeSeconds
			buildTimeCount++
		}
		m.TotalCost += d.ActualCost
	}

	resolved := m.Succeeded + m.Failed + m.Cancelled + m.RolledBack
	if resolved > 0 {
		m.SuccessRate = float64(m.Succeeded+m.RolledBack) / float64(resolved)
	}
	if buildTimeCount > 0 {
		m.AvgBuildTimeSeconds = float64(buildTimeTotal) / float64(buildTimeCount)
	}

	return m, nil
}

// GetQuota returns the user's current entitlement snapshot.
func (s *Service) GetQuota(ctx context.Context, userID string, plan models.Plan) (*quota.DeployQuota, error) {
	used, err := s.store.Deployments().CountByUserSince(ctx, userID, monthStart(s.clock.Now()))
	if err != nil {
		return nil, fmt.Errorf("counting deployments: %w", err)
	}
	q := quota.Resolve(plan, used)
	return &q, nil
}
