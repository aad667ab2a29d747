package orchestrator

import (
	"context"
	"fmt"

	"github.com/launchdeck/launchdeck/internal/gitinspect"
	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/quota"
	"github.com/launchdeck/launchdeck/internal/risk"
)

// ProviderEstimate is the hosting provider's own quote, shown next to the
// engine's estimate in a preview.
type ProviderEstimate struct {
	Provider         models.ProviderName `json:"provider"`
	Cost             float64             `json:"cost"`
	BuildTimeSeconds int                 `json:"build_time_seconds"`
}

// DeployPreview is a dry-run assessment of what a deployment would do. It is
// computed fresh per request and never persisted.
type DeployPreview struct {
	Plan             *risk.DeployPlan   `json:"plan"`
	Git              *gitinspect.Status `json:"git,omitempty"`
	ChangedFiles     []string           `json:"changed_files,omitempty"`
	ProviderEstimate *ProviderEstimate  `json:"provider_estimate,omitempty"`
	Quota            quota.DeployQuota  `json:"quota"`

	// EnvironmentAllowed reports whether the user's plan permits a deploy to
	// the requested environment. A disallowed environment still gets a full
	// preview; only an actual deploy is refused.
	EnvironmentAllowed bool `json:"environment_allowed"`
}

// PreviewRequest describes a preview request.
type PreviewRequest struct {
	ProjectID   string             `json:"project_id"`
	Environment models.Environment `json:"environment"`
	UserID      string             `json:"-"`
	Plan        models.Plan        `json:"-"`
}

// CreateDeployPreview assembles the risk assessment, git context, provider
// quote and quota snapshot for a would-be deployment. Git failures degrade
// to an assessment without repository context; the preview itself never
// fails on them.
func (s *Service) CreateDeployPreview(ctx context.Context, req *PreviewRequest) (*DeployPreview, error) {
	if !req.Environment.IsValid() {
		req.Environment = models.EnvironmentPreview
	}

	project, err := s.store.Projects().Get(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, req.ProjectID)
	}

	var gitStatus *gitinspect.Status
	var changedFiles []string
	if s.inspector != nil {
		gitStatus, err = s.inspector.Status(ctx)
		if err != nil {
			s.logger.Warn("git status unavailable for preview",
				"project_id", project.ID,
				"error", err,
			)
			gitStatus = nil
		}
		changedFiles, err = s.inspector.ChangedFilesSince(ctx, project.LastDeployCommit)
		if err != nil {
			s.logger.Warn("changed files unavailable for preview",
				"project_id", project.ID,
				"error", err,
			)
			changedFiles = nil
		}
	}

	plan := risk.Evaluate(gitStatus, changedFiles, req.Environment, project.Provider)

	preview := &DeployPreview{
		Plan:               plan,
		Git:                gitStatus,
		ChangedFiles:       changedFiles,
		EnvironmentAllowed: quota.AllowsEnvironment(req.Plan, req.Environment),
	}

	if adapter, err := s.providers.Get(project.Provider); err == nil {
		opts := models.DeployOptions{Environment: req.Environment, Provider: project.Provider}
		preview.ProviderEstimate = &ProviderEstimate{
			Provider:         project.Provider,
			Cost:             adapter.EstimateCost(opts),
			BuildTimeSeconds: adapter.EstimateBuildTime(opts),
		}
	}

	used, err := s.store.Deployments().CountByUserSince(ctx, req.UserID, monthStart(s.clock.Now()))
	if err != nil {
		return nil, fmt.Errorf("counting deployments: %w", err)
	}
	preview.Quota = quota.Resolve(req.Plan, used)

	return preview, nil
}
