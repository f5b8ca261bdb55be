package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBillableStatuses(t *testing.T) {
	statuses := BillableStatuses()
	assert.ElementsMatch(t,
		[]SubscriptionStatus{SubscriptionStatusActive, SubscriptionStatusTrialing},
		statuses)

	assert.False(t, SubscriptionStatusPastDue.Billable())
	assert.False(t, SubscriptionStatusCanceled.Billable())
}
