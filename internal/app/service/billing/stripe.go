package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hardhatapps/gatekeeper/internal/app/service/subscription"
	"github.com/hardhatapps/gatekeeper/internal/models"
	"github.com/hardhatapps/gatekeeper/pkg/config"
	"github.com/hardhatapps/gatekeeper/pkg/logctx"
	"github.com/hardhatapps/gatekeeper/pkg/tool"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

const providerStripe = "stripe"

// Service reconciles subscription state from Stripe webhook events. Every
// event is logged to billing_webhook_log before and after handling, so a
// failed event can be replayed from the raw payload.
type Service struct {
	cfg    *config.Config
	db     *gorm.DB
	log    *zap.SugaredLogger
	subSvc *subscription.Service
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, subSvc *subscription.Service) *Service {
	return &Service{cfg: cfg, db: db, log: log, subSvc: subSvc}
}

// HandleWebhook verifies the payload signature and processes the event.
// Signature failures are returned to the caller before anything is logged;
// handler failures are recorded and returned.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (resErr error) {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.Stripe.WebhookSecret)
	if err != nil {
		return fmt.Errorf("webhook signature verification failed: %w", err)
	}

	log := logctx.FromCtx(ctx, s.log)
	log.Infow("stripe webhook received", "event_id", event.ID, "event_type", event.Type)

	var traceID string
	if v, ok := ctx.Value(logctx.KeyTraceID).(string); ok {
		traceID = v
	}

	s.saveLog(ctx, &models.BillingWebhookLog{
		Provider:  providerStripe,
		EventID:   event.ID,
		EventType: string(event.Type),
		TraceID:   traceID,
		Data:      datatypes.JSON(payload),
		Status:    models.BillingWebhookLogStatusReceived,
	})

	defer func() {
		status := models.BillingWebhookLogStatusHandled
		resMap := map[string]any{}
		if resErr != nil {
			status = models.BillingWebhookLogStatusHandleFailed
			resMap["error"] = resErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		result := datatypes.JSON(resBytes)
		s.saveLog(ctx, &models.BillingWebhookLog{
			Provider:  providerStripe,
			EventID:   event.ID,
			EventType: string(event.Type),
			TraceID:   traceID,
			Data:      datatypes.JSON(payload),
			Result:    &result,
			Status:    status,
		})
	}()

	switch event.Type {
	case "checkout.session.completed":
		resErr = s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		resErr = s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		resErr = s.handleSubscriptionDeleted(ctx, event)
	case "invoice.paid":
		resErr = s.handleInvoicePaid(ctx, event)
	case "invoice.payment_failed":
		resErr = s.handleInvoicePaymentFailed(ctx, event)
	default:
		log.Infow("unhandled stripe event type", "event_type", event.Type)
	}
	return resErr
}

// handleCheckoutCompleted binds a completed Stripe checkout to a plan
// change. The checkout session carries user_id, company_id and plan_id in
// its metadata, set when the session was created.
func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	userID, ok := sess.Metadata["user_id"]
	if !ok {
		return fmt.Errorf("user_id not found in checkout metadata")
	}
	companyID := sess.Metadata["company_id"]
	planID, ok := sess.Metadata["plan_id"]
	if !ok {
		return fmt.Errorf("plan_id not found in checkout metadata")
	}

	var stripeSubID *string
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		stripeSubID = &sess.Subscription.ID
	}

	_, err := s.subSvc.ChangePlan(ctx, &subscription.ChangePlanRequest{
		UserID:               userID,
		CompanyID:            companyID,
		PlanID:               planID,
		Reason:               types.SubscriptionChangeReasonStripeWebhook,
		ChangedBy:            "system",
		Metadata:             map[string]any{"event_id": event.ID, "checkout_session": sess.ID},
		StripeSubscriptionID: stripeSubID,
	})
	if err != nil && !errors.Is(err, subscription.ErrSamePlan) {
		return fmt.Errorf("failed to apply checkout: %w", err)
	}
	return nil
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	status, ok := mapStripeStatus(sub.Status)
	if !ok {
		logctx.FromCtx(ctx, s.log).Infow("ignoring stripe subscription status",
			"stripe_subscription_id", sub.ID, "status", sub.Status)
		return nil
	}
	return s.subSvc.SetStatusByStripeID(ctx, sub.ID, status, map[string]any{"event_id": event.ID})
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}
	return s.subSvc.SetStatusByStripeID(ctx, sub.ID, types.SubscriptionStatusCanceled, map[string]any{"event_id": event.ID})
}

func (s *Service) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}
	if invoice.Subscription == nil {
		return nil
	}
	return s.subSvc.SetStatusByStripeID(ctx, invoice.Subscription.ID, types.SubscriptionStatusActive,
		map[string]any{"event_id": event.ID, "invoice_id": invoice.ID})
}

func (s *Service) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}
	if invoice.Subscription == nil {
		return nil
	}
	return s.subSvc.SetStatusByStripeID(ctx, invoice.Subscription.ID, types.SubscriptionStatusPastDue,
		map[string]any{"event_id": event.ID, "invoice_id": invoice.ID})
}

func (s *Service) saveLog(ctx context.Context, row *models.BillingWebhookLog) {
	row.ID = tool.GenerateUUIDV7()
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to save webhook log: %v", err)
	}
}

func mapStripeStatus(status stripe.SubscriptionStatus) (types.SubscriptionStatus, bool) {
	switch status {
	case stripe.SubscriptionStatusActive:
		return types.SubscriptionStatusActive, true
	case stripe.SubscriptionStatusTrialing:
		return types.SubscriptionStatusTrialing, true
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return types.SubscriptionStatusPastDue, true
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return types.SubscriptionStatusCanceled, true
	default:
		return "", false
	}
}
