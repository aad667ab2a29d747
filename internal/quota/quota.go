// Package quota maps subscription plans to deployment entitlements. The
// tables here are the single source of truth; callers supply the usage count
// and the package stays free of storage concerns.
package quota

import "github.com/launchdeck/launchdeck/internal/models"

// planLimits is the monthly deployment allowance per plan.
var planLimits = map[models.Plan]int{
	models.PlanFree:       3,
	models.PlanPro:        50,
	models.PlanTeam:       200,
	models.PlanEnterprise: 1000,
}

// planEnvironments lists the environments each plan may target.
var planEnvironments = map[models.Plan][]models.Environment{
	models.PlanFree: {models.EnvironmentPreview},
	models.PlanPro:  {models.EnvironmentPreview, models.EnvironmentStaging},
	models.PlanTeam: {
		models.EnvironmentPreview,
		models.EnvironmentStaging,
		models.EnvironmentProduction,
	},
	models.PlanEnterprise: {
		models.EnvironmentPreview,
		models.EnvironmentStaging,
		models.EnvironmentProduction,
	},
}

// Features is the per-plan capability set. Preview deploys and log access are
// available on every plan; staging and rollback require pro or above;
// production and custom domains require team or above.
type Features struct {
	Preview       bool `json:"preview"`
	Staging       bool `json:"staging"`
	Production    bool `json:"production"`
	Rollback      bool `json:"rollback"`
	Logs          bool `json:"logs"`
	CustomDomains bool `json:"custom_domains"`
}

// planFeatures maps each plan to its capability set.
var planFeatures = map[models.Plan]Features{
	models.PlanFree: {
		Preview: true,
		Logs:    true,
	},
	models.PlanPro: {
		Preview:  true,
		Staging:  true,
		Rollback: true,
		Logs:     true,
	},
	models.PlanTeam: {
		Preview:       true,
		Staging:       true,
		Production:    true,
		Rollback:      true,
		Logs:          true,
		CustomDomains: true,
	},
	models.PlanEnterprise: {
		Preview:       true,
		Staging:       true,
		Production:    true,
		Rollback:      true,
		Logs:          true,
		CustomDomains: true,
	},
}

// DeployQuota is the resolved entitlement snapshot for a user at a point in
// time. Used counts deployments created since the start of the current
// calendar month, regardless of their outcome.
type DeployQuota struct {
	Plan         models.Plan          `json:"plan"`
	Limit        int                  `json:"limit"`
	Used         int                  `json:"used"`
	Remaining    int                  `json:"remaining"`
	Environments []models.Environment `json:"environments"`
	Features     Features             `json:"features"`
	CanDeploy    bool                 `json:"can_deploy"`
}

// Resolve computes the entitlement snapshot for a plan given the usage count.
// Unknown plans resolve to the free tier.
func Resolve(plan models.Plan, used int) DeployQuota {
	if !plan.IsValid() {
		plan = models.PlanFree
	}

	limit := planLimits[plan]
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	envs := make([]models.Environment, len(planEnvironments[plan]))
	copy(envs, planEnvironments[plan])

	return DeployQuota{
		Plan:         plan,
		Limit:        limit,
		Used:         used,
		Remaining:    remaining,
		Environments: envs,
		Features:     planFeatures[plan],
		CanDeploy:    used < limit,
	}
}

// PlanFeatures returns the capability set for a plan. Unknown plans get the
// free tier capabilities.
func PlanFeatures(plan models.Plan) Features {
	if !plan.IsValid() {
		plan = models.PlanFree
	}
	return planFeatures[plan]
}

// AllowsEnvironment reports whether the plan may deploy to env.
func AllowsEnvironment(plan models.Plan, env models.Environment) bool {
	if !plan.IsValid() {
		plan = models.PlanFree
	}
	for _, allowed := range planEnvironments[plan] {
		if allowed == env {
			return true
		}
	}
	return false
}

// Limit returns the monthly deployment allowance for a plan. Unknown plans
// get the free tier allowance.
func Limit(plan models.Plan) int {
	if !plan.IsValid() {
		plan = models.PlanFree
	}
	return planLimits[plan]
}
