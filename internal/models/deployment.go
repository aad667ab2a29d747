// Package models provides data models for the Launchdeck platform.
package models

import "time"

// DeploymentStatus represents the current state of a deployment.
type DeploymentStatus string

const (
	DeploymentStatusPending    DeploymentStatus = "pending"
	DeploymentStatusDeploying  DeploymentStatus = "deploying"
	DeploymentStatusSuccess    DeploymentStatus = "success"
	DeploymentStatusFailed     DeploymentStatus = "failed"
	DeploymentStatusCancelled  DeploymentStatus = "cancelled"
	DeploymentStatusRolledBack DeploymentStatus = "rolled_back"
)

// IsValid returns true if the status is a known deployment status.
func (s DeploymentStatus) IsValid() bool {
	switch s {
	case DeploymentStatusPending, DeploymentStatusDeploying, DeploymentStatusSuccess,
		DeploymentStatusFailed, DeploymentStatusCancelled, DeploymentStatusRolledBack:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status is final and may never change again,
// with the single exception of success, which a rollback flips to rolled_back.
func (s DeploymentStatus) IsTerminal() bool {
	switch s {
	case DeploymentStatusSuccess, DeploymentStatusFailed, DeploymentStatusCancelled, DeploymentStatusRolledBack:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is a legal
// state machine edge. Legal edges:
//
//	pending   -> deploying
//	deploying -> success | failed | cancelled
//	success   -> rolled_back
func (s DeploymentStatus) CanTransitionTo(next DeploymentStatus) bool {
	switch s {
	case DeploymentStatusPending:
		return next == DeploymentStatusDeploying
	case DeploymentStatusDeploying:
		return next == DeploymentStatusSuccess ||
			next == DeploymentStatusFailed ||
			next == DeploymentStatusCancelled
	case DeploymentStatusSuccess:
		return next == DeploymentStatusRolledBack
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s DeploymentStatus) String() string {
	return string(s)
}

// ValidDeploymentStatuses returns all valid deployment statuses.
func ValidDeploymentStatuses() []DeploymentStatus {
	return []DeploymentStatus{
		DeploymentStatusPending,
		DeploymentStatusDeploying,
		DeploymentStatusSuccess,
		DeploymentStatusFailed,
		DeploymentStatusCancelled,
		DeploymentStatusRolledBack,
	}
}

// Environment represents a deployment target tier.
type Environment string

const (
	EnvironmentPreview    Environment = "preview"
	EnvironmentStaging    Environment = "staging"
	EnvironmentProduction Environment = "production"
)

// IsValid returns true if the environment is a known tier.
func (e Environment) IsValid() bool {
	switch e {
	case EnvironmentPreview, EnvironmentStaging, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// String returns the string representation of the environment.
func (e Environment) String() string {
	return string(e)
}

// ProviderName identifies a hosting provider implementation.
type ProviderName string

const (
	ProviderVercel  ProviderName = "vercel"
	ProviderNetlify ProviderName = "netlify"
)

// Deployment represents one attempt to publish a project's code to a given
// environment via a given provider. Rows are never deleted; a rollback creates
// a new row and flips the original to rolled_back.
type Deployment struct {
	ID               string           `json:"id"`
	ProjectID        string           `json:"project_id"`
	Branch           string           `json:"branch"`
	CommitHash       string           `json:"commit_hash"`
	CommitMessage    string           `json:"commit_message,omitempty"`
	Provider         ProviderName     `json:"provider"`
	Environment      Environment      `json:"environment"`
	Status           DeploymentStatus `json:"status"`
	URL              string           `json:"url,omitempty"`
	LogsURL          string           `json:"logs_url,omitempty"`
	BuildCommand     string           `json:"build_command,omitempty"`
	EstimatedCost    float64          `json:"estimated_cost"`
	ActualCost       float64          `json:"actual_cost,omitempty"`
	BuildTimeSeconds int              `json:"build_time_seconds,omitempty"`
	Error            string           `json:"error,omitempty"`
	ChangedFiles     []string         `json:"changed_files,omitempty"`
	CreatedBy        string           `json:"created_by"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	RolledBackFrom   string           `json:"rolled_back_from,omitempty"`
}

// DeployOptions is an immutable deployment request value, constructed once per
// submission and never mutated.
type DeployOptions struct {
	Branch        string            `json:"branch"`
	Environment   Environment       `json:"environment"`
	CommitHash    string            `json:"commit_hash,omitempty"`
	CommitMessage string            `json:"commit_message,omitempty"`
	BuildCommand  string            `json:"build_command,omitempty"`
	EnvVariables  map[string]string `json:"env_variables,omitempty"`
	Provider      ProviderName      `json:"provider"`
}

// Plan represents a billing plan that grants a deployment quota and feature set.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanTeam       Plan = "team"
	PlanEnterprise Plan = "enterprise"
)

// IsValid returns true if the plan is a known billing plan.
func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanPro, PlanTeam, PlanEnterprise:
		return true
	default:
		return false
	}
}
