// Package risk turns source-control state and a changed-file set into a
// deployment assessment: risk level, prioritized suggestions, a cost and time
// estimate, a recommended environment, and a confidence score.
package risk

import (
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/launchdeck/launchdeck/internal/gitinspect"
	"github.com/launchdeck/launchdeck/internal/models"
)

// Level grades the risk of a pending deployment.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// SuggestionType classifies a suggestion. Warnings reduce confidence.
type SuggestionType string

const (
	SuggestionWarning        SuggestionType = "warning"
	SuggestionRecommendation SuggestionType = "recommendation"
	SuggestionOptimization   SuggestionType = "optimization"
	SuggestionSecurity       SuggestionType = "security"
)

// Priority orders suggestions for display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Suggestion is a single actionable note about a pending deployment.
type Suggestion struct {
	Type     SuggestionType `json:"type"`
	Priority Priority       `json:"priority"`
	Message  string         `json:"message"`
}

// Risk is a level with its contributing factors.
type Risk struct {
	Level   Level    `json:"level"`
	Factors []string `json:"factors,omitempty"`
}

// Estimate is the engine's own cost/time projection, independent of any
// provider's quote.
type Estimate struct {
	BuildCost        float64 `json:"build_cost"`
	HostingCost      float64 `json:"hosting_cost"`
	TotalCost        float64 `json:"total_cost"`
	BuildTimeSeconds int     `json:"build_time_seconds"`
}

// DeployPlan is the full assessment computed per preview request. It is
// ephemeral and never persisted.
type DeployPlan struct {
	RecommendedEnvironment models.Environment  `json:"recommended_environment"`
	RecommendedProvider    models.ProviderName `json:"recommended_provider"`
	EstimatedCost          float64             `json:"estimated_cost"`
	EstimatedBuildTime     int                 `json:"estimated_build_time"`
	Confidence             float64             `json:"confidence"`
	Rationale              string              `json:"rationale"`
	Suggestions            []Suggestion        `json:"suggestions"`
	Risk                   Risk                `json:"risk"`
}

// Cost model constants. The engine's estimate is deliberately coarse; the
// provider adapters quote their own numbers.
const (
	costPerDeploy        = 0.05
	costPerChangedFile   = 0.001
	hostingCostFraction  = 0.3
	baseBuildSeconds     = 120
	dependencyBuildExtra = 60
	largeChangeExtra     = 30
	largeChangeThreshold = 20
)

// envCostMultipliers scales the engine's cost estimate by environment.
var envCostMultipliers = map[models.Environment]float64{
	models.EnvironmentPreview:    1.0,
	models.EnvironmentStaging:    1.5,
	models.EnvironmentProduction: 2.0,
}

// Evaluate computes the deployment assessment. status may be nil or partial;
// missing data defaults to the least risky assumption, and the function never
// fails.
func Evaluate(status *gitinspect.Status, changedFiles []string, requested models.Environment, provider models.ProviderName) *DeployPlan {
	if status == nil {
		status = &gitinspect.Status{}
	}
	if !requested.IsValid() {
		requested = models.EnvironmentPreview
	}

	suggestions := buildSuggestions(status, changedFiles, requested)
	risk := assessRisk(changedFiles, requested)
	estimate := EstimateChange(changedFiles, requested)
	recommended := recommendEnvironment(status, requested)
	confidence := scoreConfidence(risk.Level, suggestions)

	return &DeployPlan{
		RecommendedEnvironment: recommended,
		RecommendedProvider:    provider,
		EstimatedCost:          estimate.TotalCost,
		EstimatedBuildTime:     estimate.BuildTimeSeconds,
		Confidence:             confidence,
		Rationale:              buildRationale(status, risk.Level, suggestions),
		Suggestions:            suggestions,
		Risk:                   risk,
	}
}

// buildSuggestions evaluates the independent suggestion rules. Rules are
// cumulative; none suppresses another.
func buildSuggestions(status *gitinspect.Status, changedFiles []string, requested models.Environment) []Suggestion {
	var suggestions []Suggestion

	if file, ok := firstMatch(changedFiles, isMigrationPath); ok {
		suggestions = append(suggestions, Suggestion{
			Type:     SuggestionWarning,
			Priority: PriorityHigh,
			Message:  fmt.Sprintf("%s touches a database migration; verify it is backwards compatible before deploying", file),
		})
	}

	if status.AheadBy >= 5 {
		suggestions = append(suggestions, Suggestion{
			Type:     SuggestionRecommendation,
			Priority: PriorityMedium,
			Message:  fmt.Sprintf("branch is %d commits ahead of the last deploy; consider a staging rollout first", status.AheadBy),
		})
	}

	if file, ok := firstMatch(changedFiles, isImageAsset); ok {
		suggestions = append(suggestions, Suggestion{
			Type:     SuggestionOptimization,
			Priority: PriorityLow,
			Message:  fmt.Sprintf("image assets changed (%s); consider compressing them before upload", file),
		})
	}

	if requested == models.EnvironmentProduction {
		suggestions = append(suggestions, Suggestion{
			Type:     SuggestionSecurity,
			Priority: PriorityHigh,
			Message:  "deploying to production; double-check secrets and environment variables are up to date",
		})
	}

	if len(changedFiles) > 10 {
		suggestions = append(suggestions, Suggestion{
			Type:     SuggestionOptimization,
			Priority: PriorityMedium,
			Message:  fmt.Sprintf("%d files changed; consider batching this rollout into smaller deploys", len(changedFiles)),
		})
	}

	return suggestions
}

// assessRisk grades the change set. Migration changes pin the level at high;
// a production target alone can raise low to medium but never to high.
func assessRisk(changedFiles []string, requested models.Environment) Risk {
	level := LevelLow
	var factors []string

	for _, file := range changedFiles {
		switch {
		case isMigrationPath(file):
			level = LevelHigh
			factors = append(factors, fmt.Sprintf("database migration change: %s", file))
		case isAPIPath(file):
			if level == LevelLow {
				level = LevelMedium
			}
			factors = append(factors, fmt.Sprintf("API change: %s", file))
		case isConfigPath(file):
			if level == LevelLow {
				level = LevelMedium
			}
			factors = append(factors, fmt.Sprintf("configuration change: %s", file))
		case isDependencyManifest(file):
			if level == LevelLow {
				level = LevelMedium
			}
			factors = append(factors, fmt.Sprintf("dependency change: %s", file))
		}
	}

	if requested == models.EnvironmentProduction && level == LevelLow {
		level = LevelMedium
		factors = append(factors, "production deployment")
	}

	return Risk{Level: level, Factors: factors}
}

// EstimateChange computes the engine's cost/time estimate. Exported for
// preview endpoints that want the breakdown without a full plan.
func EstimateChange(changedFiles []string, requested models.Environment) Estimate {
	mult, ok := envCostMultipliers[requested]
	if !ok {
		mult = 1.0
	}

	buildCost := (costPerDeploy + costPerChangedFile*float64(len(changedFiles))) * mult
	hostingCost := buildCost * hostingCostFraction

	buildTime := baseBuildSeconds
	if _, ok := firstMatch(changedFiles, isDependencyManifest); ok {
		buildTime += dependencyBuildExtra
	}
	if len(changedFiles) > largeChangeThreshold {
		buildTime += largeChangeExtra
	}

	return Estimate{
		BuildCost:        round(buildCost),
		HostingCost:      round(hostingCost),
		TotalCost:        round(buildCost + hostingCost),
		BuildTimeSeconds: buildTime,
	}
}

// recommendEnvironment downgrades the requested environment when git state
// suggests the change is not ready. The dirty-tree check takes precedence
// over the ahead-by rule.
func recommendEnvironment(status *gitinspect.Status, requested models.Environment) models.Environment {
	if status.IsDirty {
		return models.EnvironmentPreview
	}
	if requested == models.EnvironmentProduction && status.AheadBy > 3 {
		return models.EnvironmentStaging
	}
	return requested
}

// scoreConfidence starts at 0.9 and subtracts for risk and warnings,
// clamped to [0.1, 1.0].
func scoreConfidence(level Level, suggestions []Suggestion) float64 {
	confidence := 0.9

	switch level {
	case LevelHigh:
		confidence -= 0.3
	case LevelMedium:
		confidence -= 0.15
	}

	for _, s := range suggestions {
		if s.Type == SuggestionWarning {
			confidence -= 0.1
		}
	}

	return round(math.Min(1.0, math.Max(0.1, confidence)))
}

// buildRationale joins the assessment into a short human-readable sentence set.
func buildRationale(status *gitinspect.Status, level Level, suggestions []Suggestion) string {
	var clauses []string

	if status.AheadBy > 0 {
		clauses = append(clauses, fmt.Sprintf("branch is %d commits ahead of the last deploy", status.AheadBy))
	}

	clauses = append(clauses, fmt.Sprintf("overall risk is %s", level))

	high := 0
	for _, s := range suggestions {
		if s.Priority == PriorityHigh {
			high++
		}
	}
	if high > 0 {
		clauses = append(clauses, fmt.Sprintf("%d high-priority suggestions to review", high))
	}

	return strings.Join(clauses, "; ") + "."
}

func firstMatch(files []string, match func(string) bool) (string, bool) {
	for _, file := range files {
		if match(file) {
			return file, true
		}
	}
	return "", false
}

func isMigrationPath(file string) bool {
	lower := strings.ToLower(file)
	return strings.Contains(lower, "migration") || strings.Contains(lower, "schema")
}

func isAPIPath(file string) bool {
	lower := strings.ToLower(file)
	return strings.Contains(lower, "api/") || strings.HasPrefix(lower, "api")
}

func isConfigPath(file string) bool {
	lower := strings.ToLower(file)
	base := path.Base(lower)
	return strings.Contains(base, ".config.") ||
		strings.HasPrefix(base, ".env") ||
		strings.HasPrefix(lower, "config/")
}

// dependencyManifests are the lockfiles and manifests whose changes force a
// full dependency install.
var dependencyManifests = map[string]bool{
	"package.json":      true,
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"go.mod":            true,
	"go.sum":            true,
	"requirements.txt":  true,
	"gemfile":           true,
	"gemfile.lock":      true,
}

func isDependencyManifest(file string) bool {
	return dependencyManifests[strings.ToLower(path.Base(file))]
}

// imageExtensions are asset types worth compressing before upload.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".webp": true,
}

func isImageAsset(file string) bool {
	return imageExtensions[strings.ToLower(path.Ext(file))]
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
