package models

import (
	"github.com/hardhatapps/gatekeeper/pkg/types"
	"time"

	"gorm.io/datatypes"
)

// Plan is immutable reference data seeded once at startup. A "plan change"
// for a user switches Subscription.PlanID; plan rows are never edited.
type Plan struct {
	ID   string         `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Tier types.PlanTier `gorm:"column:tier;type:varchar(32);not null;uniqueIndex" json:"tier"`
	// PriceMonthly is the monthly price in cents.
	PriceMonthly int64                                 `gorm:"column:price_monthly;not null" json:"price_monthly"`
	Limits       datatypes.JSONType[types.PlanLimits]  `gorm:"column:limits;type:jsonb;not null" json:"limits"`
	Features     datatypes.JSONType[types.PlanFeatures] `gorm:"column:features;type:jsonb;not null" json:"features"`
	CreatedAt    time.Time                             `json:"created_at"`
	UpdatedAt    time.Time                             `json:"updated_at"`
}

func (Plan) TableName() string {
	return "subscription_plans"
}

// LimitFor maps a metered action to this plan's governing limit.
func (p *Plan) LimitFor(m types.Metric) (int64, bool) {
	if p == nil {
		return 0, false
	}
	return p.Limits.Data().ForMetric(m)
}
