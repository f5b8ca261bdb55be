package types

import (
	"time"

	"github.com/samber/lo"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Billable reports whether a subscription in this status still grants plan
// limits to its owner.
func (s SubscriptionStatus) Billable() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// BillableStatuses lists the statuses that grant plan limits, for IN clauses.
func BillableStatuses() []SubscriptionStatus {
	all := []SubscriptionStatus{
		SubscriptionStatusActive, SubscriptionStatusTrialing,
		SubscriptionStatusPastDue, SubscriptionStatusCanceled,
	}
	return lo.Filter(all, func(s SubscriptionStatus, _ int) bool { return s.Billable() })
}

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonSignup        SubscriptionChangeReason = "signup"
	SubscriptionChangeReasonPlanChange    SubscriptionChangeReason = "plan_change"
	SubscriptionChangeReasonStripeWebhook SubscriptionChangeReason = "stripe_webhook"
	SubscriptionChangeReasonAdmin         SubscriptionChangeReason = "admin"
)

type SubscriptionInfo struct {
	PlanID             string             `json:"plan_id"`
	Tier               PlanTier           `json:"tier"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
}
