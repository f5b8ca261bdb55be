package types

type PlanTier string

const (
	PlanTierFree       PlanTier = "free"
	PlanTierPro        PlanTier = "pro"
	PlanTierEnterprise PlanTier = "enterprise"
)

// UnlimitedQuota is the sentinel limit value meaning "no cap".
const UnlimitedQuota int64 = -1

// PlanLimits holds the numeric caps of a plan. A value of UnlimitedQuota (-1)
// means the corresponding action is never denied.
type PlanLimits struct {
	MaxFlows             int64 `json:"max_flows" mapstructure:"max_flows"`
	MaxRuns              int64 `json:"max_runs" mapstructure:"max_runs"`
	MaxSandboxRuns       int64 `json:"max_sandbox_runs" mapstructure:"max_sandbox_runs"`
	MaxAIQueries         int64 `json:"max_ai_queries" mapstructure:"max_ai_queries"`
	MaxAPICallsPerMinute int64 `json:"max_api_calls_per_minute" mapstructure:"max_api_calls_per_minute"`
	MaxTeamMembers       int64 `json:"max_team_members" mapstructure:"max_team_members"`
	MaxStorageGB         int64 `json:"max_storage_gb" mapstructure:"max_storage_gb"`
}

// ForMetric maps a metered action to the limit that governs it.
func (l PlanLimits) ForMetric(m Metric) (int64, bool) {
	switch m {
	case MetricFlowRuns:
		return l.MaxRuns, true
	case MetricSandboxRuns:
		return l.MaxSandboxRuns, true
	case MetricAIQueries:
		return l.MaxAIQueries, true
	case MetricAPICalls:
		return l.MaxAPICallsPerMinute, true
	default:
		return 0, false
	}
}

type PlanFeatures struct {
	CustomDomain       bool `json:"custom_domain" mapstructure:"custom_domain"`
	WhiteLabel         bool `json:"white_label" mapstructure:"white_label"`
	PrioritySupport    bool `json:"priority_support" mapstructure:"priority_support"`
	AdvancedAnalytics  bool `json:"advanced_analytics" mapstructure:"advanced_analytics"`
	CustomIntegrations bool `json:"custom_integrations" mapstructure:"custom_integrations"`
	SSOEnabled         bool `json:"sso_enabled" mapstructure:"sso_enabled"`
}
