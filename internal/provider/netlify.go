package provider

import (
	"log/slog"

	"github.com/launchdeck/launchdeck/internal/models"
)

const (
	netlifyDefaultBaseURL = "https://api.netlify.com/api/v1"
	netlifyAppDomain      = "netlify.app"
	// netlifyBuildFactor reflects Netlify's slower shared build queue.
	netlifyBuildFactor = 1.2
)

// netlifyCostOverlay layers Netlify's per-environment pricing on top of the
// base multiplier table.
var netlifyCostOverlay = map[models.Environment]float64{
	models.EnvironmentPreview:    1.0,
	models.EnvironmentStaging:    1.8,
	models.EnvironmentProduction: 4.0,
}

// NetlifyAdapter implements the Adapter contract for Netlify.
type NetlifyAdapter struct {
	*simulatedAdapter
}

// NewNetlifyAdapter creates a Netlify adapter. baseURL and token come from the
// providers configuration; an empty baseURL falls back to the public API.
func NewNetlifyAdapter(baseURL, token string, logger *slog.Logger) *NetlifyAdapter {
	if baseURL == "" {
		baseURL = netlifyDefaultBaseURL
	}
	return &NetlifyAdapter{
		simulatedAdapter: newSimulatedAdapter(
			models.ProviderNetlify,
			baseURL,
			token,
			netlifyAppDomain,
			Estimator{CostOverlay: netlifyCostOverlay, BuildFactor: netlifyBuildFactor},
			logger,
		),
	}
}
