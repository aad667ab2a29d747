package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/launchdeck/launchdeck/internal/api/errors"
	"github.com/launchdeck/launchdeck/internal/auth"
	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/store"
	"github.com/launchdeck/launchdeck/pkg/logger"
)

// Context keys for the authenticated user.
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// UserEmailKey is the context key for the authenticated user email.
	UserEmailKey contextKey = "user_email"
	// UserPlanKey is the context key for the authenticated user's plan.
	UserPlanKey contextKey = "user_plan"
)

// GetUserID extracts the user ID from the request context.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetUserEmail extracts the user email from the request context.
func GetUserEmail(ctx context.Context) string {
	if v := ctx.Value(UserEmailKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetUserPlan extracts the user's plan from the request context.
func GetUserPlan(ctx context.Context) models.Plan {
	if v := ctx.Value(UserPlanKey); v != nil {
		return v.(models.Plan)
	}
	return models.PlanFree
}

// AuthMiddleware validates bearer tokens on protected routes.
type AuthMiddleware struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthMiddleware creates an authentication middleware.
func NewAuthMiddleware(authService *auth.Service, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// Authenticate validates the Authorization header and stores the claims in
// the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			apierrors.WriteError(w, apierrors.NewUnauthorizedError("missing authentication"))
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			m.logger.Debug("token validation failed", "error", err)
			if errors.Is(err, auth.ErrExpiredToken) {
				apierrors.WriteError(w, apierrors.NewUnauthorizedError("token has expired"))
				return
			}
			apierrors.WriteError(w, apierrors.NewUnauthorizedError("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
		ctx = context.WithValue(ctx, UserPlanKey, claims.Plan)
		ctx = logger.ContextWithUserID(ctx, claims.UserID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireProjectOwnership verifies that the authenticated user owns the
// project named by the projectID URL parameter.
func RequireProjectOwnership(st store.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				apierrors.WriteError(w, apierrors.NewUnauthorizedError("authentication required"))
				return
			}

			projectID := chi.URLParam(r, "projectID")
			if projectID == "" {
				next.ServeHTTP(w, r)
				return
			}

			project, err := st.Projects().Get(r.Context(), projectID)
			if err != nil {
				logger.Debug("project lookup failed for ownership check",
					"project_id", projectID,
					"error", err,
				)
				apierrors.WriteError(w, apierrors.NewNotFoundError("project not found"))
				return
			}

			if project.OwnerID != userID {
				logger.Debug("ownership check failed",
					"user_id", userID,
					"owner_id", project.OwnerID,
					"project_id", projectID,
				)
				apierrors.WriteError(w, apierrors.NewForbiddenError("access denied"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireDeploymentOwnership verifies that the authenticated user owns the
// project behind the deploymentID URL parameter. Deployments are reachable
// only through their owning project, so the project owner is the authority.
func RequireDeploymentOwnership(st store.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				apierrors.WriteError(w, apierrors.NewUnauthorizedError("authentication required"))
				return
			}

			deploymentID := chi.URLParam(r, "deploymentID")
			if deploymentID == "" {
				next.ServeHTTP(w, r)
				return
			}

			deployment, err := st.Deployments().Get(r.Context(), deploymentID)
			if err != nil {
				logger.Debug("deployment lookup failed for ownership check",
					"deployment_id", deploymentID,
					"error", err,
				)
				apierrors.WriteError(w, apierrors.NewNotFoundError("deployment not found"))
				return
			}

			project, err := st.Projects().Get(r.Context(), deployment.ProjectID)
			if err != nil {
				logger.Debug("project lookup failed for ownership check",
					"project_id", deployment.ProjectID,
					"deployment_id", deploymentID,
					"error", err,
				)
				apierrors.WriteError(w, apierrors.NewNotFoundError("deployment not found"))
				return
			}

			if project.OwnerID != userID {
				logger.Debug("ownership check failed",
					"user_id", userID,
					"owner_id", project.OwnerID,
					"deployment_id", deploymentID,
				)
				apierrors.WriteError(w, apierrors.NewForbiddenError("access denied"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
