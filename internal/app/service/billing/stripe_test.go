package billing

import (
	"context"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hardhatapps/gatekeeper/internal/app/service/plan"
	"github.com/hardhatapps/gatekeeper/internal/app/service/subscription"
	"github.com/hardhatapps/gatekeeper/internal/models"
	"github.com/hardhatapps/gatekeeper/pkg/config"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

const testWebhookSecret = "whsec_test_secret"

func newTestService(t *testing.T) (*Service, *subscription.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Plan{}, &models.Subscription{}, &models.SubscriptionHistory{},
		&models.BillingWebhookLog{},
	))

	cfg := &config.Config{Stripe: config.StripeConfig{WebhookSecret: testWebhookSecret}}
	log := zap.NewNop().Sugar()
	planSvc := plan.NewService(db, log)
	require.NoError(t, planSvc.Seed(context.Background()))
	subSvc := subscription.NewService(cfg, db, log, planSvc)

	return NewService(cfg, db, log, subSvc), subSvc, db
}

func signedPayload(t *testing.T, body string) ([]byte, string) {
	t.Helper()
	payload := []byte(body)
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, testWebhookSecret)
	return payload, fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

func eventBody(eventType, object string) string {
	return fmt.Sprintf(`{"id":"evt_1","api_version":%q,"type":%q,"data":{"object":%s}}`,
		stripe.APIVersion, eventType, object)
}

func webhookLogs(t *testing.T, db *gorm.DB) []*models.BillingWebhookLog {
	t.Helper()
	var logs []*models.BillingWebhookLog
	require.NoError(t, db.Order("id").Find(&logs).Error)
	return logs
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	svc, _, db := newTestService(t)

	err := svc.HandleWebhook(context.Background(), []byte(`{}`), "t=1,v1=deadbeef")
	assert.Error(t, err)
	assert.Empty(t, webhookLogs(t, db))
}

func TestHandleWebhook_SubscriptionUpdated(t *testing.T) {
	svc, subSvc, db := newTestService(t)
	ctx := context.Background()

	stripeID := "sub_stripe_1"
	_, err := subSvc.ChangePlan(ctx, &subscription.ChangePlanRequest{
		UserID: "u1", CompanyID: "c1", PlanID: "plan_pro",
		Reason: types.SubscriptionChangeReasonSignup, ChangedBy: "u1",
		StripeSubscriptionID: &stripeID,
	})
	require.NoError(t, err)

	payload, header := signedPayload(t, eventBody("customer.subscription.updated",
		`{"id":"sub_stripe_1","status":"past_due"}`))
	require.NoError(t, svc.HandleWebhook(ctx, payload, header))

	// past_due subscriptions are no longer active, so load the row directly.
	var sub models.Subscription
	require.NoError(t, db.Where("stripe_subscription_id = ?", stripeID).First(&sub).Error)
	assert.Equal(t, types.SubscriptionStatusPastDue, sub.Status)

	logs := webhookLogs(t, db)
	require.Len(t, logs, 2)
	assert.Equal(t, models.BillingWebhookLogStatusReceived, logs[0].Status)
	assert.Equal(t, models.BillingWebhookLogStatusHandled, logs[1].Status)
	assert.Equal(t, "evt_1", logs[1].EventID)
}

func TestHandleWebhook_SubscriptionDeletedUnknownID(t *testing.T) {
	svc, _, db := newTestService(t)

	payload, header := signedPayload(t, eventBody("customer.subscription.deleted",
		`{"id":"sub_missing","status":"canceled"}`))
	err := svc.HandleWebhook(context.Background(), payload, header)
	assert.Error(t, err)

	logs := webhookLogs(t, db)
	require.Len(t, logs, 2)
	assert.Equal(t, models.BillingWebhookLogStatusHandleFailed, logs[1].Status)
}

func TestHandleWebhook_CheckoutCompleted(t *testing.T) {
	svc, subSvc, db := newTestService(t)
	ctx := context.Background()

	object := `{"id":"cs_1","subscription":{"id":"sub_new"},` +
		`"metadata":{"user_id":"u1","company_id":"c1","plan_id":"plan_pro"}}`
	payload, header := signedPayload(t, eventBody("checkout.session.completed", object))
	require.NoError(t, svc.HandleWebhook(ctx, payload, header))

	sub, err := subSvc.ActiveSubscription(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "plan_pro", sub.PlanID)
	require.NotNil(t, sub.StripeSubscriptionID)
	assert.Equal(t, "sub_new", *sub.StripeSubscriptionID)

	logs := webhookLogs(t, db)
	require.Len(t, logs, 2)
	assert.Equal(t, models.BillingWebhookLogStatusHandled, logs[1].Status)
}

func TestHandleWebhook_UnhandledEventType(t *testing.T) {
	svc, _, db := newTestService(t)

	payload, header := signedPayload(t, eventBody("customer.created", `{"id":"cus_1"}`))
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, header))

	logs := webhookLogs(t, db)
	require.Len(t, logs, 2)
	assert.Equal(t, models.BillingWebhookLogStatusHandled, logs[1].Status)
}

func TestMapStripeStatus(t *testing.T) {
	tests := []struct {
		in   stripe.SubscriptionStatus
		want types.SubscriptionStatus
		ok   bool
	}{
		{stripe.SubscriptionStatusActive, types.SubscriptionStatusActive, true},
		{stripe.SubscriptionStatusTrialing, types.SubscriptionStatusTrialing, true},
		{stripe.SubscriptionStatusPastDue, types.SubscriptionStatusPastDue, true},
		{stripe.SubscriptionStatusUnpaid, types.SubscriptionStatusPastDue, true},
		{stripe.SubscriptionStatusCanceled, types.SubscriptionStatusCanceled, true},
		{stripe.SubscriptionStatusIncomplete, "", false},
	}
	for _, tt := range tests {
		got, ok := mapStripeStatus(tt.in)
		assert.Equal(t, tt.ok, ok, string(tt.in))
		assert.Equal(t, tt.want, got, string(tt.in))
	}
}
