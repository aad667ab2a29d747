package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/provider"
	"github.com/launchdeck/launchdeck/internal/secrets"
	"github.com/launchdeck/launchdeck/internal/store"
)

// mockStore is an in-memory store.Store for orchestrator tests. The resolver
// runs on its own goroutine, so every accessor takes the lock.
type mockStore struct {
	mu          sync.Mutex
	deployments map[string]*models.Deployment
	projects    map[string]*models.Project
	envVars     map[string]map[string][]byte
}

func newMockStore() *mockStore {
	return &mockStore{
		deployments: make(map[string]*models.Deployment),
		projects:    make(map[string]*models.Project),
		envVars:     make(map[string]map[string][]byte),
	}
}

func (m *mockStore) Deployments() store.DeploymentStore { return (*mockDeployments)(m) }
func (m *mockStore) Projects() store.ProjectStore       { return (*mockProjects)(m) }
func (m *mockStore) EnvVars() store.EnvVarStore         { return (*mockEnvVars)(m) }
func (m *mockStore) Users() store.UserStore             { return (*mockUsers)(m) }

func (m *mockStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

type mockDeployments mockStore

func (m *mockDeployments) Create(ctx context.Context, d *models.Deployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.deployments[d.ID]; exists {
		return fmt.Errorf("duplicate deployment %s", d.ID)
	}
	cp := *d
	m.deployments[d.ID] = &cp
	return nil
}

func (m *mockDeployments) Get(ctx context.Context, id string) (*models.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deployments[id]
	if !ok {
		return nil, fmt.Errorf("deployment %s not found", id)
	}
	cp := *d
	return &cp, nil
}

func (m *mockDeployments) ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Deployment
	for _, d := range m.deployments {
		if d.ProjectID == projectID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockDeployments) ApplyStatus(ctx context.Context, update store.DeploymentStatusUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deployments[update.ID]
	if !ok || d.Status != update.From {
		return false, nil
	}
	d.Status = update.To
	d.URL = update.URL
	d.Error = update.Error
	d.BuildTimeSeconds = update.BuildTimeSeconds
	d.ActualCost = update.ActualCost
	d.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockDeployments) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, d := range m.deployments {
		if d.CreatedBy == userID && !d.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type mockProjects mockStore

func (m *mockProjects) Create(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockProjects) Get(ctx context.Context, id string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockProjects) List(ctx context.Context, ownerID string) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Project
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockProjects) Update(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return fmt.Errorf("project %s not found", p.ID)
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockProjects) SetLastDeployCommit(ctx context.Context, id, commit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("project %s not found", id)
	}
	p.LastDeployCommit = commit
	return nil
}

type mockEnvVars mockStore

func envVarKey(projectID string, env models.Environment) string {
	return projectID + "/" + string(env)
}

func (m *mockEnvVars) Set(ctx context.Context, projectID string, env models.Environment, vars map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string][]byte, len(vars))
	for k, v := range vars {
		cp[k] = append([]byte(nil), v...)
	}
	m.envVars[envVarKey(projectID, env)] = cp
	return nil
}

func (m *mockEnvVars) GetAll(ctx context.Context, projectID string, env models.Environment) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.envVars[envVarKey(projectID, env)]
	cp := make(map[string][]byte, len(stored))
	for k, v := range stored {
		cp[k] = append([]byte(nil), v...)
	}
	return cp, nil
}

type mockUsers mockStore

func (m *mockUsers) Create(ctx context.Context, email, password string, plan models.Plan) (*store.User, error) {
	return nil, errors.New("not supported in orchestrator tests")
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*store.User, error) {
	return nil, errors.New("not supported in orchestrator tests")
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	return nil, errors.New("not supported in orchestrator tests")
}

func (m *mockUsers) Authenticate(ctx context.Context, email, password string) (*store.User, error) {
	return nil, errors.New("not supported in orchestrator tests")
}

// testEnv bundles the collaborators of one orchestrator test.
type testEnv struct {
	service *Service
	store   *mockStore
	clock   *ManualClock
	adapter *provider.VercelAdapter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := newMockStore()
	adapter := provider.NewVercelAdapter("", "test-token", nil)
	adapter.WithOutcome(func(string, models.DeployOptions) provider.Outcome {
		return provider.Outcome{}
	})
	clock := NewManualClock(time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))

	cfg := &Config{
		ResolveInterval: time.Second,
		ResolveTimeout:  time.Minute,
		HistoryLimit:    20,
	}
	svc := NewService(st, provider.NewRegistry(adapter), nil, nil, nil, clock, cfg, nil)

	project := &models.Project{
		ID:           "proj-1",
		Name:         "storefront",
		OwnerID:      "user-1",
		Provider:     models.ProviderVercel,
		BuildCommand: "pnpm build",
		CreatedAt:    clock.Now(),
		UpdatedAt:    clock.Now(),
	}
	if err := st.Projects().Create(context.Background(), project); err != nil {
		t.Fatal(err)
	}

	return &testEnv{service: svc, store: st, clock: clock, adapter: adapter}
}

// waitForStatus advances the manual clock until the deployment reaches the
// wanted status. The resolver registers its timer from its own goroutine, so
// advances are interleaved with short real-time sleeps.
func (e *testEnv) waitForStatus(t *testing.T, id string, want models.DeploymentStatus) *models.Deployment {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		e.clock.Advance(time.Second)
		d, err := e.store.Deployments().Get(context.Background(), id)
		if err == nil && d.Status == want {
			return d
		}
		time.Sleep(5 * time.Millisecond)
	}
	d, _ := e.store.Deployments().Get(context.Background(), id)
	t.Fatalf("deployment %s never reached %s, last seen %+v", id, want, d)
	return nil
}

func (e *testEnv) deploy(t *testing.T, req *DeployRequest) *models.Deployment {
	t.Helper()
	d, err := e.service.CreateDeployment(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateDeployment: %v", err)
	}
	return d
}

func baseRequest() *DeployRequest {
	return &DeployRequest{
		ProjectID:   "proj-1",
		Branch:      "main",
		Environment: models.EnvironmentPreview,
		CommitHash:  "abc1234def",
		UserID:      "user-1",
		Plan:        models.PlanPro,
	}
}

func TestCreateDeploymentResolvesToSuccess(t *testing.T) {
	env := newTestEnv(t)

	d := env.deploy(t, baseRequest())

	if d.Status != models.DeploymentStatusDeploying {
		t.Fatalf("status = %s, want deploying", d.Status)
	}
	if !strings.HasPrefix(d.ID, "vercel_dep_") {
		t.Errorf("ID %q missing provider namespace", d.ID)
	}
	if d.EstimatedCost != 0.001 {
		t.Errorf("estimated cost = %v, want 0.001", d.EstimatedCost)
	}

	resolved := env.waitForStatus(t, d.ID, models.DeploymentStatusSuccess)
	if resolved.URL == "" {
		t.Error("successful deployment should carry a URL")
	}
	if resolved.BuildTimeSeconds <= 0 {
		t.Error("successful deployment should carry a build time")
	}
	if resolved.ActualCost != resolved.EstimatedCost {
		t.Errorf("actual cost = %v, want estimate %v", resolved.ActualCost, resolved.EstimatedCost)
	}

	project, err := env.store.Projects().Get(context.Background(), "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if project.LastDeployCommit != "abc1234def" {
		t.Errorf("last deploy commit = %q, want abc1234def", project.LastDeployCommit)
	}
}

func TestCreateDeploymentFailedOutcome(t *testing.T) {
	env := newTestEnv(t)
	env.adapter.WithOutcome(func(string, models.DeployOptions) provider.Outcome {
		return provider.Outcome{
			Err: provider.NewProviderError(models.ProviderVercel, http.StatusBadGateway, "build step exited with code 1"),
		}
	})

	d := env.deploy(t, baseRequest())
	failed := env.waitForStatus(t, d.ID, models.DeploymentStatusFailed)

	if !strings.Contains(failed.Error, "build step exited with code 1") {
		t.Errorf("error %q should carry the provider message", failed.Error)
	}
	if failed.ActualCost != 0 {
		t.Errorf("failed deployment should cost nothing, got %v", failed.ActualCost)
	}
	if failed.URL != "" {
		t.Errorf("failed deployment should have no URL, got %q", failed.URL)
	}
}

func TestCreateDeploymentUnknownProject(t *testing.T) {
	env := newTestEnv(t)

	req := baseRequest()
	req.ProjectID = "no-such-project"
	_, err := env.service.CreateDeployment(context.Background(), req)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateDeploymentQuotaExceeded(t *testing.T) {
	env := newTestEnv(t)

	// Free allows three deployments per month; seed them all.
	for i := 0; i < 3; i++ {
		seed := &models.Deployment{
			ID:          fmt.Sprintf("vercel_dep_seed_%d", i),
			ProjectID:   "proj-1",
			Provider:    models.ProviderVercel,
			Environment: models.EnvironmentPreview,
			Status:      models.DeploymentStatusSuccess,
			CreatedBy:   "user-1",
			CreatedAt:   env.clock.Now(),
		}
		if err := env.store.Deployments().Create(context.Background(), seed); err != nil {
			t.Fatal(err)
		}
	}

	req := baseRequest()
	req.Plan = models.PlanFree
	_, err := env.service.CreateDeployment(context.Background(), req)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestCreateDeploymentPriorMonthDoesNotCount(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		seed := &models.Deployment{
			ID:          fmt.Sprintf("vercel_dep_old_%d", i),
			ProjectID:   "proj-1",
			Provider:    models.ProviderVercel,
			Environment: models.EnvironmentPreview,
			Status:      models.DeploymentStatusSuccess,
			CreatedBy:   "user-1",
			CreatedAt:   env.clock.Now().AddDate(0, -1, 0),
		}
		if err := env.store.Deployments().Create(context.Background(), seed); err != nil {
			t.Fatal(err)
		}
	}

	req := baseRequest()
	req.Plan = models.PlanFree
	if _, err := env.service.CreateDeployment(context.Background(), req); err != nil {
		t.Errorf("last month's usage should not block this month: %v", err)
	}
}

func TestCreateDeploymentEnvironmentNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	req := baseRequest()
	req.Plan = models.PlanFree
	req.Environment = models.EnvironmentStaging
	_, err := env.service.CreateDeployment(context.Background(), req)
	if !errors.Is(err, ErrEnvironmentNotAllowed) {
		t.Errorf("err = %v, want ErrEnvironmentNotAllowed", err)
	}
}

func TestCancelDeploymentInFlight(t *testing.T) {
	env := newTestEnv(t)
	d := env.deploy(t, baseRequest())

	cancelled, err := env.service.CancelDeployment(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("CancelDeployment: %v", err)
	}
	if cancelled.Status != models.DeploymentStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}

	// Let the resolver poll again; the cancelled row must not regress.
	env.clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	env.clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)

	after, err := env.store.Deployments().Get(context.Background(), d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != models.DeploymentStatusCancelled {
		t.Errorf("status regressed from cancelled to %s", after.Status)
	}
}

func TestCancelDeploymentTerminal(t *testing.T) {
	env := newTestEnv(t)
	d := env.deploy(t, baseRequest())
	env.waitForStatus(t, d.ID, models.DeploymentStatusSuccess)

	_, err := env.service.CancelDeployment(context.Background(), d.ID)
	if !errors.Is(err, ErrNotCancellable) {
		t.Errorf("err = %v, want ErrNotCancellable", err)
	}
}

func TestRollbackDeployment(t *testing.T) {
	env := newTestEnv(t)
	d := env.deploy(t, baseRequest())
	target := env.waitForStatus(t, d.ID, models.DeploymentStatusSuccess)

	rollback, err := env.service.RollbackDeployment(context.Background(), &RollbackRequest{
		DeploymentID: target.ID,
		Reason:       "regression on checkout page",
		UserID:       "user-1",
	})
	if err != nil {
		t.Fatalf("RollbackDeployment: %v", err)
	}

	if rollback.ID == target.ID {
		t.Error("rollback must create a new deployment row")
	}
	if rollback.RolledBackFrom != target.ID {
		t.Errorf("rolled_back_from = %q, want %q", rollback.RolledBackFrom, target.ID)
	}
	if rollback.Status != models.DeploymentStatusDeploying {
		t.Errorf("rollback status = %s, want deploying", rollback.Status)
	}
	if rollback.Branch != target.Branch || rollback.CommitHash != target.CommitHash {
		t.Error("rollback should reuse the target's branch and commit")
	}

	flipped, err := env.store.Deployments().Get(context.Background(), target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if flipped.Status != models.DeploymentStatusRolledBack {
		t.Errorf("target status = %s, want rolled_back", flipped.Status)
	}
	if flipped.URL != target.URL || flipped.BuildTimeSeconds != target.BuildTimeSeconds {
		t.Error("flipping the target must preserve its URL and build time")
	}
	if flipped.ActualCost != target.ActualCost {
		t.Errorf("target cost changed from %v to %v", target.ActualCost, flipped.ActualCost)
	}

	env.waitForStatus(t, rollback.ID, models.DeploymentStatusSuccess)
}

func TestRollbackInvalidTarget(t *testing.T) {
	env := newTestEnv(t)
	env.adapter.WithOutcome(func(string, models.DeployOptions) provider.Outcome {
		return provider.Outcome{
			Err: provider.NewProviderError(models.ProviderVercel, http.StatusBadGateway, "boom"),
		}
	})

	d := env.deploy(t, baseRequest())
	env.waitForStatus(t, d.ID, models.DeploymentStatusFailed)

	_, err := env.service.RollbackDeployment(context.Background(), &RollbackRequest{DeploymentID: d.ID})
	if !errors.Is(err, ErrInvalidRollbackTarget) {
		t.Errorf("err = %v, want ErrInvalidRollbackTarget", err)
	}
}

func TestGetDeploymentStatusTerminalIsStable(t *testing.T) {
	env := newTestEnv(t)
	d := env.deploy(t, baseRequest())
	resolved := env.waitForStatus(t, d.ID, models.DeploymentStatusSuccess)

	got, err := env.service.GetDeploymentStatus(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("GetDeploymentStatus: %v", err)
	}
	if got.Status != resolved.Status || got.URL != resolved.URL {
		t.Errorf("terminal row changed on read: %+v vs %+v", got, resolved)
	}
}

func TestGetDeploymentHistoryDefaultLimit(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 25; i++ {
		seed := &models.Deployment{
			ID:        fmt.Sprintf("vercel_dep_h_%d", i),
			ProjectID: "proj-1",
			Status:    models.DeploymentStatusSuccess,
			CreatedBy: "user-1",
			CreatedAt: env.clock.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := env.store.Deployments().Create(context.Background(), seed); err != nil {
			t.Fatal(err)
		}
	}

	history, err := env.service.GetDeploymentHistory(context.Background(), "proj-1", 0)
	if err != nil {
		t.Fatalf("GetDeploymentHistory: %v", err)
	}
	if len(history) != 20 {
		t.Errorf("history length = %d, want default limit 20", len(history))
	}
	if history[0].ID != "vercel_dep_h_24" {
		t.Errorf("history should be newest first, got %s", history[0].ID)
	}
}

func TestGetDeploymentMetrics(t *testing.T) {
	env := newTestEnv(t)

	seed := []struct {
		status    models.DeploymentStatus
		buildTime int
		cost      float64
	}{
		{models.DeploymentStatusSuccess, 60, 0.01},
		{models.DeploymentStatusSuccess, 120, 0.02},
		{models.DeploymentStatusRolledBack, 90, 0.01},
		{models.DeploymentStatusFailed, 0, 0},
		{models.DeploymentStatusCancelled, 0, 0},
		{models.DeploymentStatusDeploying, 0, 0},
	}
	for i, s := range seed {
		d := &models.Deployment{
			ID:               fmt.Sprintf("vercel_dep_m_%d", i),
			ProjectID:        "proj-1",
			Status:           s.status,
			BuildTimeSeconds: s.buildTime,
			ActualCost:       s.cost,
			CreatedBy:        "user-1",
			CreatedAt:        env.clock.Now(),
		}
		if err := env.store.Deployments().Create(context.Background(), d); err != nil {
			t.Fatal(err)
		}
	}

	m, err := env.service.GetDeploymentMetrics(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("GetDeploymentMetrics: %v", err)
	}

	if m.Total != 6 || m.Succeeded != 2 || m.Failed != 1 || m.Cancelled != 1 || m.RolledBack != 1 || m.InFlight != 1 {
		t.Errorf("unexpected counts: %+v", m)
	}
	// Rolled back deployments did deploy: (2+1)/5 resolved.
	if m.SuccessRate != 0.6 {
		t.Errorf("success rate = %v, want 0.6", m.SuccessRate)
	}
	if m.AvgBuildTimeSeconds != 90 {
		t.Errorf("avg build time = %v, want 90", m.AvgBuildTimeSeconds)
	}
	if m.TotalCost != 0.04 {
		t.Errorf("total cost = %v, want 0.04", m.TotalCost)
	}
}

func TestGetQuota(t *testing.T) {
	env := newTestEnv(t)

	seed := &models.Deployment{
		ID:        "vercel_dep_q_0",
		ProjectID: "proj-1",
		Status:    models.DeploymentStatusSuccess,
		CreatedBy: "user-1",
		CreatedAt: env.clock.Now(),
	}
	if err := env.store.Deployments().Create(context.Background(), seed); err != nil {
		t.Fatal(err)
	}

	q, err := env.service.GetQuota(context.Background(), "user-1", models.PlanFree)
	if err != nil {
		t.Fatalf("GetQuota: %v", err)
	}
	if q.Used != 1 || q.Limit != 3 || q.Remaining != 2 || !q.CanDeploy {
		t.Errorf("unexpected quota: %+v", q)
	}
}

func TestCreateDeployPreview(t *testing.T) {
	env := newTestEnv(t)

	preview, err := env.service.CreateDeployPreview(context.Background(), &PreviewRequest{
		ProjectID:   "proj-1",
		Environment: models.EnvironmentProduction,
		UserID:      "user-1",
		Plan:        models.PlanTeam,
	})
	if err != nil {
		t.Fatalf("CreateDeployPreview: %v", err)
	}

	if preview.Plan == nil {
		t.Fatal("preview must carry a deploy plan")
	}
	// No inspector wired: git context is absent and the assessment still stands.
	if preview.Git != nil {
		t.Errorf("expected no git status, got %+v", preview.Git)
	}
	if preview.ProviderEstimate == nil {
		t.Fatal("preview must carry the provider estimate")
	}
	if preview.ProviderEstimate.Cost != 0.015 {
		t.Errorf("vercel production cost = %v, want 0.015", preview.ProviderEstimate.Cost)
	}
	if preview.ProviderEstimate.BuildTimeSeconds != 96 {
		t.Errorf("vercel production build time = %v, want 96", preview.ProviderEstimate.BuildTimeSeconds)
	}
	if preview.Quota.Plan != models.PlanTeam || !preview.Quota.CanDeploy {
		t.Errorf("unexpected quota snapshot: %+v", preview.Quota)
	}
	if !preview.EnvironmentAllowed {
		t.Error("team plan production preview should mark the environment allowed")
	}
}

func TestCreateDeployPreviewFlagsDisallowedEnvironment(t *testing.T) {
	env := newTestEnv(t)

	var deploys int
	env.adapter.WithOutcome(func(string, models.DeployOptions) provider.Outcome {
		deploys++
		return provider.Outcome{}
	})

	preview, err := env.service.CreateDeployPreview(context.Background(), &PreviewRequest{
		ProjectID:   "proj-1",
		Environment: models.EnvironmentProduction,
		UserID:      "user-1",
		Plan:        models.PlanPro,
	})
	if err != nil {
		t.Fatalf("CreateDeployPreview: %v", err)
	}

	if preview.EnvironmentAllowed {
		t.Error("pro plan production preview should mark the environment disallowed")
	}
	if !preview.Quota.Features.Staging || preview.Quota.Features.Production {
		t.Errorf("unexpected pro feature set: %+v", preview.Quota.Features)
	}
	// The assessment and estimate are still produced for a disallowed target.
	if preview.Plan == nil || preview.ProviderEstimate == nil {
		t.Fatal("preview must carry the plan and estimate even when disallowed")
	}
	if deploys != 0 {
		t.Errorf("preview started %d deploys, want none", deploys)
	}
	list, err := env.store.Deployments().ListByProject(context.Background(), "proj-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("preview persisted %d deployments, want none", len(list))
	}
}

func newSecretsService(t *testing.T) *secrets.Service {
	t.Helper()
	pub, priv, err := secrets.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	svc, err := secrets.NewService(&secrets.Config{PublicKey: pub, PrivateKey: priv}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestEnvironmentVariablesRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.service.secrets = newSecretsService(t)

	vars := map[string]string{
		"DATABASE_URL": "postgres://localhost/app",
		"API_KEY":      "sk_live_123",
	}
	if err := env.service.SetEnvironmentVariables(context.Background(), "proj-1", models.EnvironmentProduction, vars); err != nil {
		t.Fatalf("SetEnvironmentVariables: %v", err)
	}

	got, err := env.service.GetEnvironmentVariables(context.Background(), "proj-1", models.EnvironmentProduction)
	if err != nil {
		t.Fatalf("GetEnvironmentVariables: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d vars, want 2", len(got))
	}
	// Names come back sorted, values masked.
	if got[0].Name != "API_KEY" || got[1].Name != "DATABASE_URL" {
		t.Errorf("unexpected name order: %s, %s", got[0].Name, got[1].Name)
	}
	for _, v := range got {
		if v.Value == vars[v.Name] {
			t.Errorf("value for %s leaked in plaintext", v.Name)
		}
		if v.Value != "********" {
			t.Errorf("value for %s = %q, want mask", v.Name, v.Value)
		}
	}

	// The stored bytes must not be the plaintext either.
	stored, err := env.store.EnvVars().GetAll(context.Background(), "proj-1", models.EnvironmentProduction)
	if err != nil {
		t.Fatal(err)
	}
	for name, ciphertext := range stored {
		if string(ciphertext) == vars[name] {
			t.Errorf("stored value for %s is plaintext", name)
		}
	}
}

func TestSetEnvironmentVariablesWithoutEncryption(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.SetEnvironmentVariables(context.Background(), "proj-1", models.EnvironmentPreview, map[string]string{"A": "1"})
	if err == nil {
		t.Error("setting variables without an encryption key must fail")
	}
}

func TestDeployForwardsDecryptedVariables(t *testing.T) {
	env := newTestEnv(t)
	env.service.secrets = newSecretsService(t)

	vars := map[string]string{"PUBLIC_URL": "https://example.com"}
	if err := env.service.SetEnvironmentVariables(context.Background(), "proj-1", models.EnvironmentPreview, vars); err != nil {
		t.Fatal(err)
	}

	var seen map[string]string
	env.adapter.WithOutcome(func(projectID string, opts models.DeployOptions) provider.Outcome {
		seen = opts.EnvVariables
		return provider.Outcome{}
	})

	env.deploy(t, baseRequest())
	if seen["PUBLIC_URL"] != "https://example.com" {
		t.Errorf("provider saw variables %v, want decrypted set", seen)
	}
}

func TestDeployEnvOverridesWinOverStoredVariables(t *testing.T) {
	env := newTestEnv(t)
	env.service.secrets = newSecretsService(t)

	stored := map[string]string{
		"PUBLIC_URL": "https://example.com",
		"LOG_LEVEL":  "info",
	}
	if err := env.service.SetEnvironmentVariables(context.Background(), "proj-1", models.EnvironmentPreview, stored); err != nil {
		t.Fatal(err)
	}

	var seen map[string]string
	env.adapter.WithOutcome(func(projectID string, opts models.DeployOptions) provider.Outcome {
		seen = opts.EnvVariables
		return provider.Outcome{}
	})

	req := baseRequest()
	req.EnvOverrides = map[string]string{
		"LOG_LEVEL": "debug",
		"DRY_RUN":   "1",
	}
	env.deploy(t, req)

	if seen["LOG_LEVEL"] != "debug" {
		t.Errorf("LOG_LEVEL = %q, override must win", seen["LOG_LEVEL"])
	}
	if seen["PUBLIC_URL"] != "https://example.com" {
		t.Errorf("PUBLIC_URL = %q, stored value must survive", seen["PUBLIC_URL"])
	}
	if seen["DRY_RUN"] != "1" {
		t.Errorf("DRY_RUN = %q, new override must be added", seen["DRY_RUN"])
	}

	// Overrides are request-scoped: the stored set is unchanged.
	vars, err := env.service.GetEnvironmentVariables(context.Background(), "proj-1", models.EnvironmentPreview)
	if err != nil {
		t.Fatal(err)
	}
	if len(vars) != 2 {
		t.Errorf("stored set grew to %d vars, overrides must not persist", len(vars))
	}
}

func TestMergeEnvVars(t *testing.T) {
	if got := mergeEnvVars(nil, nil); got != nil {
		t.Errorf("merge of nothing = %v, want nil", got)
	}
	base := map[string]string{"A": "1"}
	if got := mergeEnvVars(base, nil); len(got) != 1 || got["A"] != "1" {
		t.Errorf("merge with no overrides = %v", got)
	}
	got := mergeEnvVars(map[string]string{"A": "1", "B": "2"}, map[string]string{"B": "3"})
	if got["A"] != "1" || got["B"] != "3" {
		t.Errorf("merged = %v", got)
	}
	if base["A"] != "1" || len(base) != 1 {
		t.Errorf("base mutated: %v", base)
	}
}
