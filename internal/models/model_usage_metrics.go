package models

import (
	"github.com/hardhatapps/gatekeeper/pkg/types"
	"time"
)

// UsageMetrics holds the per-period counters for one (user, company) pair.
// Counters only ever increase within a period; a new period starts a fresh
// zeroed row via upsert-increment.
type UsageMetrics struct {
	ID        string       `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string       `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:idx_usage_owner_period,priority:1" json:"user_id"`
	CompanyID string       `gorm:"column:company_id;type:varchar(64);not null;uniqueIndex:idx_usage_owner_period,priority:2" json:"company_id"`
	Period    types.Period `gorm:"column:period;type:varchar(8);not null;uniqueIndex:idx_usage_owner_period,priority:3" json:"period"`

	FlowRuns    int64   `gorm:"column:flow_runs;not null;default:0" json:"flow_runs"`
	SandboxRuns int64   `gorm:"column:sandbox_runs;not null;default:0" json:"sandbox_runs"`
	AIQueries   int64   `gorm:"column:ai_queries;not null;default:0" json:"ai_queries"`
	APICalls    int64   `gorm:"column:api_calls;not null;default:0" json:"api_calls"`
	StorageGB   float64 `gorm:"column:storage_gb;not null;default:0" json:"storage_gb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UsageMetrics) TableName() string {
	return "usage_metrics"
}

// MetricColumn maps a metric to its counter column name.
func MetricColumn(m types.Metric) (string, bool) {
	switch m {
	case types.MetricFlowRuns:
		return "flow_runs", true
	case types.MetricSandboxRuns:
		return "sandbox_runs", true
	case types.MetricAIQueries:
		return "ai_queries", true
	case types.MetricAPICalls:
		return "api_calls", true
	default:
		return "", false
	}
}

// Counter returns the stored value for a metric.
func (u *UsageMetrics) Counter(m types.Metric) int64 {
	if u == nil {
		return 0
	}
	switch m {
	case types.MetricFlowRuns:
		return u.FlowRuns
	case types.MetricSandboxRuns:
		return u.SandboxRuns
	case types.MetricAIQueries:
		return u.AIQueries
	case types.MetricAPICalls:
		return u.APICalls
	default:
		return 0
	}
}
