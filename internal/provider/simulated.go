package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/launchdeck/launchdeck/internal/models"
)

// Outcome decides how a simulated deployment finishes. A nil Err means the
// deployment succeeds.
type Outcome struct {
	Err *ProviderError
}

// OutcomeFunc is the deterministic seam replacing a random success/failure
// coin-flip. Tests install their own function to force either outcome; a real
// adapter replaces the simulation with provider polling entirely.
type OutcomeFunc func(projectID string, opts models.DeployOptions) Outcome

// statusPollsUntilDone is how many status polls a simulated deployment stays
// in deploying before reaching its terminal state.
const statusPollsUntilDone = 2

// simDeployment is the provider-side record of one simulated deployment.
type simDeployment struct {
	projectID string
	opts      models.DeployOptions
	status    models.DeploymentStatus
	pollsLeft int
	outcome   Outcome
	url       string
	buildTime int
	createdAt time.Time
}

// simulatedAdapter implements the Adapter contract against in-memory state.
// It honors the full contract (unique provider-namespaced IDs, idempotent
// status polls, restartable logs, no-op cancel of terminal deployments) so the
// orchestrator cannot tell it apart from a real provider.
type simulatedAdapter struct {
	name      models.ProviderName
	baseURL   string
	token     string
	appDomain string
	estimator Estimator

	mu          sync.Mutex
	deployments map[string]*simDeployment
	settings    map[string]*models.ProjectSettings
	envVars     map[string]map[models.Environment]map[string]string

	outcome OutcomeFunc
	logger  *slog.Logger
}

func newSimulatedAdapter(name models.ProviderName, baseURL, token, appDomain string, estimator Estimator, logger *slog.Logger) *simulatedAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &simulatedAdapter{
		name:        name,
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		appDomain:   appDomain,
		estimator:   estimator,
		deployments: make(map[string]*simDeployment),
		settings:    make(map[string]*models.ProjectSettings),
		envVars:     make(map[string]map[models.Environment]map[string]string),
		outcome:     func(string, models.DeployOptions) Outcome { return Outcome{} },
		logger:      logger.With("provider", string(name)),
	}
}

// Name returns the provider identifier.
func (a *simulatedAdapter) Name() models.ProviderName {
	return a.name
}

// WithOutcome installs a deterministic outcome function. Used by tests to
// force success or failure instead of relying on chance.
func (a *simulatedAdapter) WithOutcome(fn OutcomeFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fn != nil {
		a.outcome = fn
	}
}

// CreateDeploy starts a new simulated deployment.
func (a *simulatedAdapter) CreateDeploy(ctx context.Context, projectID string, opts models.DeployOptions) (*DeployResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if projectID == "" {
		return nil, NewProviderError(a.name, http.StatusBadRequest, "project id is required")
	}
	if !opts.Environment.IsValid() {
		return nil, NewProviderError(a.name, http.StatusBadRequest, fmt.Sprintf("unknown environment %q", opts.Environment))
	}

	id := fmt.Sprintf("%s_dep_%s", a.name, uuid.New().String())

	a.mu.Lock()
	a.deployments[id] = &simDeployment{
		projectID: projectID,
		opts:      opts,
		status:    models.DeploymentStatusDeploying,
		pollsLeft: statusPollsUntilDone,
		outcome:   a.outcome(projectID, opts),
		url:       a.deployURL(projectID, id),
		buildTime: a.estimator.BuildTime(opts.Environment),
		createdAt: time.Now().UTC(),
	}
	a.mu.Unlock()

	a.logger.Debug("deployment created", "deploy_id", id, "project_id", projectID, "environment", opts.Environment)

	return &DeployResult{
		ID:         id,
		Status:     models.DeploymentStatusDeploying,
		ProviderID: strings.TrimPrefix(id, string(a.name)+"_"),
		LogsURL:    a.logsURL(id),
	}, nil
}

// GetDeployStatus returns the current status of a deployment. Each poll of a
// non-terminal deployment advances the simulation one step.
func (a *simulatedAdapter) GetDeployStatus(ctx context.Context, id string) (*DeployStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	dep, ok := a.deployments[id]
	if !ok {
		return nil, NewProviderError(a.name, http.StatusNotFound, fmt.Sprintf("deployment %s: %s", id, ErrDeployNotFound))
	}

	if !dep.status.IsTerminal() && dep.status != models.DeploymentStatusCancelled {
		dep.pollsLeft--
		if dep.pollsLeft <= 0 {
			if dep.outcome.Err != nil {
				dep.status = models.DeploymentStatusFailed
			} else {
				dep.status = models.DeploymentStatusSuccess
			}
		}
	}

	status := &DeployStatus{
		ID:     id,
		Status: dep.status,
	}
	switch dep.status {
	case models.DeploymentStatusSuccess:
		status.URL = dep.url
		status.BuildTimeSeconds = dep.buildTime
	case models.DeploymentStatusFailed:
		status.Error = dep.outcome.Err.Message
	}

	return status, nil
}

// GetDeployLogs returns the finite log sequence for a deployment. The
// sequence is regenerated on every call so readers can restart from the top.
func (a *simulatedAdapter) GetDeployLogs(ctx context.Context, id string) ([]models.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	dep, ok := a.deployments[id]
	if !ok {
		return nil, NewProviderError(a.name, http.StatusNotFound, fmt.Sprintf("deployment %s: %s", id, ErrDeployNotFound))
	}

	buildCommand := dep.opts.BuildCommand
	if buildCommand == "" {
		buildCommand = "npm run build"
	}

	at := func(offset time.Duration) time.Time { return dep.createdAt.Add(offset) }
	logs := []models.LogEntry{
		{DeploymentID: id, Timestamp: at(0), Level: models.LogLevelInfo, Source: models.LogSourceBuild, Message: fmt.Sprintf("cloning %s @ %s", dep.opts.Branch, shortCommit(dep.opts.CommitHash))},
		{DeploymentID: id, Timestamp: at(2 * time.Second), Level: models.LogLevelInfo, Source: models.LogSourceBuild, Message: "installing dependencies"},
		{DeploymentID: id, Timestamp: at(10 * time.Second), Level: models.LogLevelInfo, Source: models.LogSourceBuild, Message: fmt.Sprintf("running %q", buildCommand)},
		{DeploymentID: id, Timestamp: at(40 * time.Second), Level: models.LogLevelDebug, Source: models.LogSourceDeploy, Message: "uploading build output"},
	}

	switch dep.status {
	case models.DeploymentStatusSuccess:
		logs = append(logs,
			models.LogEntry{DeploymentID: id, Timestamp: at(time.Duration(dep.buildTime) * time.Second), Level: models.LogLevelInfo, Source: models.LogSourceDeploy, Message: fmt.Sprintf("deployment live at %s", dep.url)},
		)
	case models.DeploymentStatusFailed:
		logs = append(logs,
			models.LogEntry{DeploymentID: id, Timestamp: at(time.Duration(dep.buildTime) * time.Second), Level: models.LogLevelError, Source: models.LogSourceDeploy, Message: dep.outcome.Err.Message},
		)
	case models.DeploymentStatusCancelled:
		logs = append(logs,
			models.LogEntry{DeploymentID: id, Timestamp: at(time.Duration(dep.buildTime) * time.Second), Level: models.LogLevelWarn, Source: models.LogSourceDeploy, Message: "deployment cancelled"},
		)
	}

	return logs, nil
}

// CancelDeploy cancels an in-flight deployment. Terminal deployments are left
// untouched; the call is a no-op, not an error.
func (a *simulatedAdapter) CancelDeploy(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	dep, ok := a.deployments[id]
	if !ok {
		return NewProviderError(a.name, http.StatusNotFound, fmt.Sprintf("deployment %s: %s", id, ErrDeployNotFound))
	}

	if dep.status.IsTerminal() {
		return nil
	}

	dep.status = models.DeploymentStatusCancelled
	a.logger.Debug("deployment cancelled", "deploy_id", id)
	return nil
}

// RollbackDeploy creates a new forward deployment reinstating the target's
// commit. The adapter never touches the target's own state.
func (a *simulatedAdapter) RollbackDeploy(ctx context.Context, id string, opts RollbackOptions) (*DeployResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	target, ok := a.deployments[opts.TargetDeploymentID]
	if !ok && opts.TargetDeploymentID != id {
		target, ok = a.deployments[id]
	}
	var projectID string
	var deployOpts models.DeployOptions
	if ok {
		projectID = target.projectID
		deployOpts = target.opts
	}
	a.mu.Unlock()

	if !ok {
		return nil, NewProviderError(a.name, http.StatusNotFound, fmt.Sprintf("rollback target %s: %s", opts.TargetDeploymentID, ErrDeployNotFound))
	}

	return a.CreateDeploy(ctx, projectID, deployOpts)
}

// GetProjectSettings retrieves the provider-side project settings.
func (a *simulatedAdapter) GetProjectSettings(ctx context.Context, projectID string) (*models.ProjectSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if settings, ok := a.settings[projectID]; ok {
		copied := *settings
		return &copied, nil
	}

	return &models.ProjectSettings{
		ProjectID:       projectID,
		BuildCommand:    "npm run build",
		OutputDirectory: "dist",
		NodeVersion:     "20.x",
		AutoDeploy:      true,
	}, nil
}

// UpdateProjectSettings replaces the provider-side project settings.
func (a *simulatedAdapter) UpdateProjectSettings(ctx context.Context, projectID string, settings models.ProjectSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	settings.ProjectID = projectID

	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings[projectID] = &settings
	return nil
}

// GetEnvironmentVariables retrieves the variable set for an environment.
func (a *simulatedAdapter) GetEnvironmentVariables(ctx context.Context, projectID string, env models.Environment) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	vars := make(map[string]string)
	if byEnv, ok := a.envVars[projectID]; ok {
		for k, v := range byEnv[env] {
			vars[k] = v
		}
	}
	return vars, nil
}

// SetEnvironmentVariables replaces the variable set for an environment.
func (a *simulatedAdapter) SetEnvironmentVariables(ctx context.Context, projectID string, env models.Environment, vars map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.envVars[projectID] == nil {
		a.envVars[projectID] = make(map[models.Environment]map[string]string)
	}
	a.envVars[projectID][env] = copied
	return nil
}

// EstimateCost returns the cost estimate in dollars.
func (a *simulatedAdapter) EstimateCost(opts models.DeployOptions) float64 {
	return a.estimator.Cost(opts.Environment)
}

// EstimateBuildTime returns the build time estimate in seconds.
func (a *simulatedAdapter) EstimateBuildTime(opts models.DeployOptions) int {
	return a.estimator.BuildTime(opts.Environment)
}

func (a *simulatedAdapter) deployURL(projectID, id string) string {
	// Last URL segment mimics the provider's per-deploy hash.
	hash := id[len(id)-8:]
	return fmt.Sprintf("https://%s-%s.%s", projectID, hash, a.appDomain)
}

func (a *simulatedAdapter) logsURL(id string) string {
	return fmt.Sprintf("%s/deployments/%s/logs", a.baseURL, id)
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	if commit == "" {
		return "HEAD"
	}
	return commit
}
