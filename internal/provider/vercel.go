package provider

import (
	"log/slog"

	"github.com/launchdeck/launchdeck/internal/models"
)

const (
	vercelDefaultBaseURL = "https://api.vercel.com"
	vercelAppDomain      = "vercel.app"
	// vercelBuildFactor reflects Vercel's faster build fleet.
	vercelBuildFactor = 0.8
)

// vercelCostOverlay layers Vercel's own per-environment pricing on top of the
// base multiplier table.
var vercelCostOverlay = map[models.Environment]float64{
	models.EnvironmentPreview:    1.0,
	models.EnvironmentStaging:    1.5,
	models.EnvironmentProduction: 3.0,
}

// VercelAdapter implements the Adapter contract for Vercel.
type VercelAdapter struct {
	*simulatedAdapter
}

// NewVercelAdapter creates a Vercel adapter. baseURL and token come from the
// providers configuration; an empty baseURL falls back to the public API.
func NewVercelAdapter(baseURL, token string, logger *slog.Logger) *VercelAdapter {
	if baseURL == "" {
		baseURL = vercelDefaultBaseURL
	}
	return &VercelAdapter{
		simulatedAdapter: newSimulatedAdapter(
			models.ProviderVercel,
			baseURL,
			token,
			vercelAppDomain,
			Estimator{CostOverlay: vercelCostOverlay, BuildFactor: vercelBuildFactor},
			logger,
		),
	}
}
