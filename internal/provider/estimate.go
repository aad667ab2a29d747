package provider

import (
	"math"

	"github.com/launchdeck/launchdeck/internal/models"
)

// Base estimation constants shared by all providers. Each provider layers its
// own multiplier table on top; the layering is the contract, the final numbers
// are not hardcoded anywhere.
const (
	// baseCost is the baseline deployment cost in dollars.
	baseCost = 0.001
	// baseBuildSeconds is the baseline build duration.
	baseBuildSeconds = 60
)

// baseCostMultipliers scales cost by target environment.
var baseCostMultipliers = map[models.Environment]float64{
	models.EnvironmentPreview:    1.0,
	models.EnvironmentStaging:    2.0,
	models.EnvironmentProduction: 5.0,
}

// baseTimeMultipliers scales build time by target environment.
var baseTimeMultipliers = map[models.Environment]float64{
	models.EnvironmentPreview:    1.0,
	models.EnvironmentStaging:    1.5,
	models.EnvironmentProduction: 2.0,
}

// Estimator composes the shared base multiplier tables with a per-provider
// overlay. A missing overlay entry means 1.0; a zero BuildFactor means 1.0.
type Estimator struct {
	// CostOverlay is the provider's own cost multiplier per environment,
	// applied on top of the base table.
	CostOverlay map[models.Environment]float64
	// BuildFactor is a flat provider build speed factor (<1 is faster).
	BuildFactor float64
}

// Cost returns the estimated cost in dollars for the environment.
func (e Estimator) Cost(env models.Environment) float64 {
	cost := baseCost * multiplier(baseCostMultipliers, env) * multiplier(e.CostOverlay, env)
	// Round to the cent fraction providers quote at.
	return math.Round(cost*1e6) / 1e6
}

// BuildTime returns the estimated build time in seconds for the environment.
func (e Estimator) BuildTime(env models.Environment) int {
	factor := e.BuildFactor
	if factor == 0 {
		factor = 1.0
	}
	seconds := float64(baseBuildSeconds) * multiplier(baseTimeMultipliers, env) * factor
	return int(math.Round(seconds))
}

func multiplier(table map[models.Environment]float64, env models.Environment) float64 {
	if table == nil {
		return 1.0
	}
	if m, ok := table[env]; ok {
		return m
	}
	return 1.0
}
