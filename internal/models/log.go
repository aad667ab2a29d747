package models

import "time"

// LogLevel represents the severity of a deployment log line.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelDebug LogLevel = "debug"
)

// LogSource identifies which stage of a deployment produced a log line.
type LogSource string

const (
	LogSourceBuild   LogSource = "build"
	LogSourceDeploy  LogSource = "deploy"
	LogSourceRuntime LogSource = "runtime"
)

// LogEntry represents a single deployment log line reported by a provider.
type LogEntry struct {
	DeploymentID string    `json:"deployment_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Level        LogLevel  `json:"level"`
	Source       LogSource `json:"source"`
	Message      string    `json:"message"`
}
