package handlers

import (
	"github.com/hardhatapps/gatekeeper/internal/app/service/navigation"
	"github.com/hardhatapps/gatekeeper/internal/app/service/quota"
	"github.com/hardhatapps/gatekeeper/internal/app/service/statistics"
	subsvc "github.com/hardhatapps/gatekeeper/internal/app/service/subscription"
	"github.com/hardhatapps/gatekeeper/pkg/response"
	types "github.com/hardhatapps/gatekeeper/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespSnapshot wraps a navigation snapshot in the standard envelope.
type RespSnapshot struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    navigation.Snapshot      `json:"data"`
}

// RespPlanList wraps the plan catalog in the standard envelope.
type RespPlanList struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []PlanItem               `json:"data"`
}

// RespSubscriptionInfo wraps the caller's subscription view in the standard envelope.
type RespSubscriptionInfo struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    types.SubscriptionInfo   `json:"data"`
}

// RespQuotaDecision wraps a quota decision in the standard envelope.
type RespQuotaDecision struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    quota.Decision           `json:"data"`
}

// RespUsageReport wraps the per-metric usage report in the standard envelope.
type RespUsageReport struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    quota.UsageReport        `json:"data"`
}

// RespSubscriptionHistory wraps ScanHistoryResponse in the standard envelope.
type RespSubscriptionHistory struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    subsvc.ScanHistoryResponse `json:"data"`
}

// RespUsageStatistic wraps UsageStatisticResponse in the standard envelope.
type RespUsageStatistic struct {
	Code    response.APIResponseCode          `json:"code"`
	Message string                            `json:"message"`
	Data    statistics.UsageStatisticResponse `json:"data"`
}
