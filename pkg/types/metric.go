package types

import "fmt"

// Metric is one of the countable actions tracked per user per period.
type Metric string

const (
	MetricFlowRuns    Metric = "flow_runs"
	MetricSandboxRuns Metric = "sandbox_runs"
	MetricAIQueries   Metric = "ai_queries"
	MetricAPICalls    Metric = "api_calls"
)

var allMetrics = []Metric{MetricFlowRuns, MetricSandboxRuns, MetricAIQueries, MetricAPICalls}

func AllMetrics() []Metric {
	return allMetrics
}

func ParseMetric(s string) (Metric, error) {
	for _, m := range allMetrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric: %s", s)
}
