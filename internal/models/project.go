package models

import "time"

// Project represents a deployable project registered on the platform.
type Project struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	OwnerID          string       `json:"owner_id"`
	Provider         ProviderName `json:"provider"`
	RepoURL          string       `json:"repo_url,omitempty"`
	BuildCommand     string       `json:"build_command,omitempty"`
	OutputDirectory  string       `json:"output_directory,omitempty"`
	NodeVersion      string       `json:"node_version,omitempty"`
	LastDeployCommit string       `json:"last_deploy_commit,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// ProjectSettings is the provider-side view of a project's build settings.
type ProjectSettings struct {
	ProjectID       string `json:"project_id"`
	BuildCommand    string `json:"build_command,omitempty"`
	OutputDirectory string `json:"output_directory,omitempty"`
	NodeVersion     string `json:"node_version,omitempty"`
	AutoDeploy      bool   `json:"auto_deploy"`
}
