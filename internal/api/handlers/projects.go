package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/launchdeck/launchdeck/internal/api/errors"
	"github.com/launchdeck/launchdeck/internal/api/middleware"
	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/orchestrator"
	"github.com/launchdeck/launchdeck/internal/provider"
	"github.com/launchdeck/launchdeck/internal/store"
	"github.com/launchdeck/launchdeck/internal/validation"
)

// ProjectHandler handles project CRUD and per-project configuration.
type ProjectHandler struct {
	store        store.Store
	providers    *provider.Registry
	orchestrator *orchestrator.Service
	logger       *slog.Logger
}

// NewProjectHandler creates a project handler.
func NewProjectHandler(st store.Store, providers *provider.Registry, orch *orchestrator.Service, logger *slog.Logger) *ProjectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectHandler{store: st, providers: providers, orchestrator: orch, logger: logger}
}

type createProjectRequest struct {
	Name            string              `json:"name"`
	Provider        models.ProviderName `json:"provider"`
	RepoURL         string              `json:"repo_url,omitempty"`
	BuildCommand    string              `json:"build_command,omitempty"`
	OutputDirectory string              `json:"output_directory,omitempty"`
	NodeVersion     string              `json:"node_version,omitempty"`
}

// Create registers a new project.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, r, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeValidationError(w, r, "name is required")
		return
	}
	if _, err := h.providers.Get(req.Provider); err != nil {
		writeDomainError(w, r, err)
		return
	}

	now := time.Now()
	project := &models.Project{
		ID:              uuid.New().String(),
		Name:            req.Name,
		OwnerID:         middleware.GetUserID(r.Context()),
		Provider:        req.Provider,
		RepoURL:         req.RepoURL,
		BuildCommand:    req.BuildCommand,
		OutputDirectory: req.OutputDirectory,
		NodeVersion:     req.NodeVersion,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.store.Projects().Create(r.Context(), project); err != nil {
		h.logger.Error("failed to create project", "error", err)
		writeDomainError(w, r, err)
		return
	}

	h.logger.Info("project created",
		"project_id", project.ID,
		"provider", project.Provider,
		"owner_id", project.OwnerID,
	)
	writeJSON(w, http.StatusCreated, project)
}

// List returns the authenticated user's projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.Projects().List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.logger.Error("failed to list projects", "error", err)
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// Get returns one project.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.store.Projects().Get(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		apierrors.WriteError(w, apierrors.NewNotFoundError("project not found"))
		return
	}
	writeJSON(w, http.StatusOK, project)
}

type envVarsRequest struct {
	Variables map[string]string `json:"variables"`
}

// SetEnvVars replaces the environment variable set for one environment.
func (h *ProjectHandler) SetEnvVars(w http.ResponseWriter, r *http.Request) {
	var req envVarsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, r, "invalid request body")
		return
	}

	env := models.Environment(chi.URLParam(r, "environment"))
	if !env.IsValid() {
		writeValidationError(w, r, "unknown environment")
		return
	}
	for name, value := range req.Variables {
		if err := validation.ValidateEnvKey(name); err != nil {
			writeValidationError(w, r, err.Error())
			return
		}
		if err := validation.ValidateEnvValue(value); err != nil {
			writeValidationError(w, r, err.Error())
			return
		}
	}

	projectID := chi.URLParam(r, "projectID")
	if err := h.orchestrator.SetEnvironmentVariables(r.Context(), projectID, env, req.Variables); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": len(req.Variables)})
}

// GetEnvVars lists the environment variable names with masked values.
func (h *ProjectHandler) GetEnvVars(w http.ResponseWriter, r *http.Request) {
	env := models.Environment(chi.URLParam(r, "environment"))
	if !env.IsValid() {
		writeValidationError(w, r, "unknown environment")
		return
	}

	vars, err := h.orchestrator.GetEnvironmentVariables(r.Context(), chi.URLParam(r, "projectID"), env)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"variables": vars})
}

// GetSettings returns the provider-side project settings.
func (h *ProjectHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	project, err := h.store.Projects().Get(r.Context(), projectID)
	if err != nil {
		apierrors.WriteError(w, apierrors.NewNotFoundError("project not found"))
		return
	}

	adapter, err := h.providers.Get(project.Provider)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	settings, err := adapter.GetProjectSettings(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings replaces the provider-side project settings.
func (h *ProjectHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.ProjectSettings
	if err := decodeJSON(r, &settings); err != nil {
		writeValidationError(w, r, "invalid request body")
		return
	}

	projectID := chi.URLParam(r, "projectID")
	project, err := h.store.Projects().Get(r.Context(), projectID)
	if err != nil {
		apierrors.WriteError(w, apierrors.NewNotFoundError("project not found"))
		return
	}

	adapter, err := h.providers.Get(project.Provider)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	settings.ProjectID = projectID
	if err := adapter.UpdateProjectSettings(r.Context(), projectID, settings); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
