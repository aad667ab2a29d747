package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/launchdeck/launchdeck/internal/api/middleware"
	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/orchestrator"
	"github.com/launchdeck/launchdeck/internal/validation"
)

// DeploymentHandler handles deployment lifecycle endpoints.
type DeploymentHandler struct {
	orchestrator *orchestrator.Service
	logger       *slog.Logger
}

// NewDeploymentHandler creates a deployment handler.
func NewDeploymentHandler(orch *orchestrator.Service, logger *slog.Logger) *DeploymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeploymentHandler{orchestrator: orch, logger: logger}
}

type previewRequest struct {
	Environment models.Environment `json:"environment"`
}

// Preview runs a dry-run assessment of a would-be deployment.
func (h *DeploymentHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, r, "invalid request body")
		return
	}
	if req.Environment == "" {
		req.Environment = models.EnvironmentPreview
	}
	if !req.Environment.IsValid() {
		writeValidationError(w, r, "unknown environment")
		return
	}

	preview, err := h.orchestrator.CreateDeployPreview(r.Context(), &orchestrator.PreviewRequest{
		ProjectID:   chi.URLParam(r, "projectID"),
		Environment: req.Environment,
		UserID:      middleware.GetUserID(r.Context()),
		Plan:        middleware.GetUserPlan(r.Context()),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

type createDeploymentRequest struct {
	Branch        string             `json:"branch"`
	Environment   models.Environment `json:"environment"`
	CommitHash    string             `json:"commit_hash,omitempty"`
	CommitMessage string             `json:"commit_message,omitempty"`
	ChangedFiles  []string           `json:"changed_files,omitempty"`
	EnvOverrides  map[string]string  `json:"env_overrides,omitempty"`
}

// Create submits a new deployment.
func (h *DeploymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDeploymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, r, "invalid request body")
		return
	}
	if err := validation.ValidateBranch(req.Branch); err != nil {
		writeValidationError(w, r, err.Error())
		return
	}
	if req.Environment == "" {
		req.Environment = models.EnvironmentPreview
	}
	if !req.Environment.IsValid() {
		writeValidationError(w, r, "unknown environment")
		return
	}
	for key := range req.EnvOverrides {
		if err := validation.ValidateEnvKey(key); err != nil {
			writeValidationError(w, r, err.Error())
			return
		}
	}

	deployment, err := h.orchestrator.CreateDeployment(r.Context(), &orchestrator.DeployRequest{
		ProjectID:     chi.URLParam(r, "projectID"),
		Branch:        req.Branch,
		Environment:   req.Environment,
		CommitHash:    req.CommitHash,
		CommitMessage: req.CommitMessage,
		ChangedFiles:  req.ChangedFiles,
		EnvOverrides:  req.EnvOverrides,
		UserID:        middleware.GetUserID(r.Context()),
		Plan:          middleware.GetUserPlan(r.Context()),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, deployment)
}

// Get returns the current state of one deployment, refreshing in-flight rows
// from the provider.
func (h *DeploymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	deployment, err := h.orchestrator.GetDeploymentStatus(r.Context(), chi.URLParam(r, "deploymentID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deployment)
}

// Logs returns the full log sequence for a deployment.
func (h *DeploymentHandler) Logs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.orchestrator.GetDeploymentLogs(r.Context(), chi.URLParam(r, "deploymentID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": entries})
}

// Cancel aborts an in-flight deployment.
func (h *DeploymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	deployment, err := h.orchestrator.CancelDeployment(r.Context(), chi.URLParam(r, "deploymentID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deployment)
}

type rollbackRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Rollback reinstates a previously successful deployment.
func (h *DeploymentHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeValidationError(w, r, "invalid request body")
			return
		}
	}

	deployment, err := h.orchestrator.RollbackDeployment(r.Context(), &orchestrator.RollbackRequest{
		DeploymentID: chi.URLParam(r, "deploymentID"),
		Reason:       req.Reason,
		UserID:       middleware.GetUserID(r.Context()),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, deployment)
}

// History lists a project's deployments, newest first.
func (h *DeploymentHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeValidationError(w, r, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	deployments, err := h.orchestrator.GetDeploymentHistory(r.Context(), chi.URLParam(r, "projectID"), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deployments": deployments})
}

// Metrics returns outcome aggregates for a project.
func (h *DeploymentHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.orchestrator.GetDeploymentMetrics(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// Quota returns the authenticated user's entitlement snapshot.
func (h *DeploymentHandler) Quota(w http.ResponseWriter, r *http.Request) {
	q, err := h.orchestrator.GetQuota(r.Context(), middleware.GetUserID(r.Context()), middleware.GetUserPlan(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
