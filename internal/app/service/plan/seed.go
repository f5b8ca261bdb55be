package plan

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hardhatapps/gatekeeper/internal/models"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

// defaultCatalog returns the built-in free/pro/enterprise plans.
// -1 means unlimited.
func defaultCatalog() []*models.Plan {
	return []*models.Plan{
		{
			ID:           "plan_free",
			Tier:         types.PlanTierFree,
			PriceMonthly: 0,
			Limits: datatypes.NewJSONType(types.PlanLimits{
				MaxFlows:             3,
				MaxRuns:              100,
				MaxSandboxRuns:       50,
				MaxAIQueries:         25,
				MaxAPICallsPerMinute: 60,
				MaxTeamMembers:       3,
				MaxStorageGB:         1,
			}),
			Features: datatypes.NewJSONType(types.PlanFeatures{}),
		},
		{
			ID:           "plan_pro",
			Tier:         types.PlanTierPro,
			PriceMonthly: 4900,
			Limits: datatypes.NewJSONType(types.PlanLimits{
				MaxFlows:             50,
				MaxRuns:              10000,
				MaxSandboxRuns:       2000,
				MaxAIQueries:         1000,
				MaxAPICallsPerMinute: 600,
				MaxTeamMembers:       25,
				MaxStorageGB:         100,
			}),
			Features: datatypes.NewJSONType(types.PlanFeatures{
				CustomDomain:      true,
				PrioritySupport:   true,
				AdvancedAnalytics: true,
			}),
		},
		{
			ID:           "plan_enterprise",
			Tier:         types.PlanTierEnterprise,
			PriceMonthly: 29900,
			Limits: datatypes.NewJSONType(types.PlanLimits{
				MaxFlows:             types.UnlimitedQuota,
				MaxRuns:              types.UnlimitedQuota,
				MaxSandboxRuns:       types.UnlimitedQuota,
				MaxAIQueries:         types.UnlimitedQuota,
				MaxAPICallsPerMinute: types.UnlimitedQuota,
				MaxTeamMembers:       types.UnlimitedQuota,
				MaxStorageGB:         types.UnlimitedQuota,
			}),
			Features: datatypes.NewJSONType(types.PlanFeatures{
				CustomDomain:       true,
				WhiteLabel:         true,
				PrioritySupport:    true,
				AdvancedAnalytics:  true,
				CustomIntegrations: true,
				SSOEnabled:         true,
			}),
		},
	}
}

// Seed inserts the default catalog if the plan table is empty. The row-count
// guard makes startup idempotent.
func (s *Service) Seed(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Plan{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count plans: %w", err)
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(defaultCatalog()).Error; err != nil {
			return fmt.Errorf("failed to seed plans: %w", err)
		}
		s.log.Infow("seeded plan catalog", "plans", len(defaultCatalog()))
		return nil
	})
}
