package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/launchdeck/launchdeck/internal/models"
)

// EnvVar is one environment variable as exposed over the API. Values are
// write-only; reads return the mask.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

const maskedValue = "********"

// mergeEnvVars layers overrides on top of base. Overrides win on key
// collisions. Either map may be nil; a nil result means no variables at all.
func mergeEnvVars(base, overrides map[string]string) map[string]string {
	if len(overrides) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// SetEnvironmentVariables encrypts and stores the variable set for a project
// environment, replacing any previous set, and mirrors the plaintext to the
// hosting provider.
func (s *Service) SetEnvironmentVariables(ctx context.Context, projectID string, env models.Environment, vars map[string]string) error {
	project, err := s.store.Projects().Get(ctx, projectID)
	if err != nil {
		return fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}
	if !env.IsValid() {
		return fmt.Errorf("invalid environment: %s", env)
	}
	if s.secrets == nil || !s.secrets.CanEncrypt() {
		return fmt.Errorf("environment variable encryption is not configured")
	}

	encrypted, err := s.secrets.EncryptVars(ctx, vars)
	if err != nil {
		return fmt.Errorf("encrypting variables: %w", err)
	}
	if err := s.store.EnvVars().Set(ctx, projectID, env, encrypted); err != nil {
		return fmt.Errorf("storing variables: %w", err)
	}

	if adapter, err := s.providers.Get(project.Provider); err == nil {
		if err := adapter.SetEnvironmentVariables(ctx, projectID, env, vars); err != nil {
			s.logger.Warn("failed to mirror environment variables to provider",
				"project_id", projectID,
				"provider", project.Provider,
				"error", err,
			)
		}
	}

	s.logger.Info("environment variables updated",
		"project_id", projectID,
		"environment", env,
		"count", len(vars),
	)
	return nil
}

// GetEnvironmentVariables returns the variable names for a project
// environment with masked values, sorted by name.
func (s *Service) GetEnvironmentVariables(ctx context.Context, projectID string, env models.Environment) ([]EnvVar, error) {
	if _, err := s.store.Projects().Get(ctx, projectID); err != nil {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}
	if !env.IsValid() {
		return nil, fmt.Errorf("invalid environment: %s", env)
	}

	stored, err := s.store.EnvVars().GetAll(ctx, projectID, env)
	if err != nil {
		return nil, fmt.Errorf("loading variables: %w", err)
	}

	vars := make([]EnvVar, 0, len(stored))
	for name := range stored {
		vars = append(vars, EnvVar{Name: name, Value: maskedValue})
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars, nil
}
