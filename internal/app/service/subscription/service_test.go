package subscription

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hardhatapps/gatekeeper/internal/app/service/plan"
	"github.com/hardhatapps/gatekeeper/internal/models"
	"github.com/hardhatapps/gatekeeper/pkg/config"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Plan{}, &models.Subscription{}, &models.SubscriptionHistory{}))

	planSvc := plan.NewService(db, zap.NewNop().Sugar())
	require.NoError(t, planSvc.Seed(context.Background()))

	return NewService(&config.Config{}, db, zap.NewNop().Sugar(), planSvc)
}

func TestEnsureSubscription_CreatesFreeOnFirstContact(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sub, err := svc.EnsureSubscription(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "plan_free", sub.PlanID)
	assert.Equal(t, types.SubscriptionStatusActive, sub.Status)

	again, err := svc.EnsureSubscription(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)

	// signup is audited
	hist, err := svc.ScanHistory(ctx, &ScanHistoryRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), hist.Total)
	assert.Equal(t, types.SubscriptionChangeReasonSignup, hist.Items[0].Reason)
	assert.Equal(t, types.PlanTierFree, hist.Items[0].NewTier)
}

func TestChangePlan_AppendsRatherThanMutates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.EnsureSubscription(ctx, "u1", "c1")
	require.NoError(t, err)

	upgraded, err := svc.ChangePlan(ctx, &ChangePlanRequest{
		UserID:    "u1",
		CompanyID: "c1",
		PlanID:    "plan_pro",
		Reason:    types.SubscriptionChangeReasonPlanChange,
		ChangedBy: "u1",
		Metadata:  map[string]any{"source": "billing_page"},
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, upgraded.ID)
	assert.Equal(t, "plan_pro", upgraded.PlanID)

	// the prior row is canceled, not rewritten
	var prior models.Subscription
	require.NoError(t, svc.db.Where("id = ?", first.ID).First(&prior).Error)
	assert.Equal(t, types.SubscriptionStatusCanceled, prior.Status)
	assert.Equal(t, "plan_free", prior.PlanID)

	active, err := svc.ActiveSubscription(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, upgraded.ID, active.ID)

	hist, err := svc.ScanHistory(ctx, &ScanHistoryRequest{SortBy: "created_at", SortOrder: "asc"})
	require.NoError(t, err)
	require.Equal(t, int64(2), hist.Total)
	change := hist.Items[1]
	assert.Equal(t, types.PlanTierFree, change.OldTier)
	assert.Equal(t, types.PlanTierPro, change.NewTier)
	assert.Equal(t, "u1", change.ChangedBy)
}

func TestChangePlan_SamePlanRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.EnsureSubscription(ctx, "u1", "c1")
	require.NoError(t, err)

	_, err = svc.ChangePlan(ctx, &ChangePlanRequest{
		UserID: "u1", CompanyID: "c1", PlanID: "plan_free",
		Reason: types.SubscriptionChangeReasonPlanChange, ChangedBy: "u1",
	})
	assert.ErrorIs(t, err, ErrSamePlan)
}

func TestChangePlan_InvalidParams(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ChangePlan(ctx, &ChangePlanRequest{UserID: "u1"})
	require.Error(t, err)

	_, err = svc.ChangePlan(ctx, &ChangePlanRequest{
		UserID: "u1", CompanyID: "c1", PlanID: "plan_missing",
		Reason: types.SubscriptionChangeReasonPlanChange, ChangedBy: "u1",
	})
	assert.ErrorIs(t, err, plan.ErrPlanNotFound)
}

func TestInfo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Info(ctx, "u1", "c1")
	assert.ErrorIs(t, err, ErrNoActiveSubscription)

	_, err = svc.EnsureSubscription(ctx, "u1", "c1")
	require.NoError(t, err)

	info, err := svc.Info(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanTierFree, info.Tier)
	assert.Equal(t, types.SubscriptionStatusActive, info.Status)
	assert.True(t, info.CurrentPeriodEnd.After(info.CurrentPeriodStart))
}

func TestSetStatusByStripeID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	stripeID := "sub_stripe_123"
	_, err := svc.ChangePlan(ctx, &ChangePlanRequest{
		UserID: "u1", CompanyID: "c1", PlanID: "plan_pro",
		Reason: types.SubscriptionChangeReasonSignup, ChangedBy: "u1",
		StripeSubscriptionID: &stripeID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetStatusByStripeID(ctx, stripeID, types.SubscriptionStatusPastDue, map[string]any{"event_id": "evt_1"}))

	// past_due no longer grants limits
	_, err = svc.ActiveSubscription(ctx, "u1", "c1")
	assert.ErrorIs(t, err, ErrNoActiveSubscription)

	var row models.Subscription
	require.NoError(t, svc.db.Where("stripe_subscription_id = ?", stripeID).First(&row).Error)
	assert.Equal(t, types.SubscriptionStatusPastDue, row.Status)

	// idempotent for repeated events
	require.NoError(t, svc.SetStatusByStripeID(ctx, stripeID, types.SubscriptionStatusPastDue, nil))

	hist, err := svc.ScanHistory(ctx, &ScanHistoryRequest{Filters: []*types.CommonFilter{
		{Field: "reason", Operator: types.CommonFilterOperatorEq, Values: []any{string(types.SubscriptionChangeReasonStripeWebhook)}},
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), hist.Total)
	assert.Equal(t, "system", hist.Items[0].ChangedBy)
	assert.Equal(t, types.PlanTierPro, hist.Items[0].OldTier)
	assert.Equal(t, types.PlanTierPro, hist.Items[0].NewTier)
}

func TestSetStatusByStripeID_UnknownID(t *testing.T) {
	svc := newTestService(t)
	err := svc.SetStatusByStripeID(context.Background(), "sub_unknown", types.SubscriptionStatusCanceled, nil)
	require.Error(t, err)
}
