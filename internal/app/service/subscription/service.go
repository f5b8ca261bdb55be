package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hardhatapps/gatekeeper/internal/app/service/plan"
	"github.com/hardhatapps/gatekeeper/internal/models"
	"github.com/hardhatapps/gatekeeper/pkg/config"
	"github.com/hardhatapps/gatekeeper/pkg/logctx"
	"github.com/hardhatapps/gatekeeper/pkg/tool"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

var (
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrSamePlan             = errors.New("already on requested plan")
)

type Service struct {
	cfg     *config.Config
	db      *gorm.DB
	log     *zap.SugaredLogger
	planSvc *plan.Service
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, planSvc *plan.Service) *Service {
	return &Service{cfg: cfg, db: db, log: log, planSvc: planSvc}
}

// ActiveSubscription returns the single billable subscription row for a
// (user, company) pair, or ErrNoActiveSubscription.
func (s *Service) ActiveSubscription(ctx context.Context, userID, companyID string) (*models.Subscription, error) {
	return s.activeSubscriptionTx(ctx, s.db, userID, companyID)
}

func (s *Service) activeSubscriptionTx(ctx context.Context, tx *gorm.DB, userID, companyID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := tx.WithContext(ctx).
		Where("user_id = ? AND company_id = ? AND status IN ?", userID, companyID, types.BillableStatuses()).
		Order("created_at desc").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}
	return &sub, nil
}

// Info resolves the active subscription together with its plan tier.
func (s *Service) Info(ctx context.Context, userID, companyID string) (*types.SubscriptionInfo, error) {
	sub, err := s.ActiveSubscription(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	p, err := s.planSvc.PlanByID(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan %s: %w", sub.PlanID, err)
	}
	return &types.SubscriptionInfo{
		PlanID:             sub.PlanID,
		Tier:               p.Tier,
		Status:             sub.Status,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}, nil
}

// EnsureSubscription guarantees a (user, company) pair has an active
// subscription, creating a free-tier one on first contact.
func (s *Service) EnsureSubscription(ctx context.Context, userID, companyID string) (*models.Subscription, error) {
	sub, err := s.ActiveSubscription(ctx, userID, companyID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, ErrNoActiveSubscription) {
		return nil, err
	}

	freePlan, err := s.planSvc.PlanByTier(ctx, types.PlanTierFree)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve free plan: %w", err)
	}
	return s.ChangePlan(ctx, &ChangePlanRequest{
		UserID:    userID,
		CompanyID: companyID,
		PlanID:    freePlan.ID,
		Reason:    types.SubscriptionChangeReasonSignup,
		ChangedBy: userID,
	})
}

type ChangePlanRequest struct {
	UserID    string
	CompanyID string
	PlanID    string
	Reason    types.SubscriptionChangeReason
	ChangedBy string
	Metadata  map[string]any
	// StripeSubscriptionID links the new row to external billing, if any.
	StripeSubscriptionID *string
}

// ChangePlan switches a (user, company) pair to a new plan. The prior active
// row is marked canceled and a fresh row is inserted; subscription rows are
// never reused across plan changes, so the table doubles as history. A
// SubscriptionHistory audit row is written in the same transaction.
func (s *Service) ChangePlan(ctx context.Context, req *ChangePlanRequest) (*models.Subscription, error) {
	if req == nil || req.UserID == "" || req.CompanyID == "" || req.PlanID == "" {
		return nil, fmt.Errorf("invalid params: user_id, company_id and plan_id required")
	}

	newPlan, err := s.planSvc.PlanByID(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan: %w", err)
	}

	var created *models.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var oldTier types.PlanTier

		prior, err := s.activeSubscriptionTx(ctx, tx, req.UserID, req.CompanyID)
		if err != nil && !errors.Is(err, ErrNoActiveSubscription) {
			return err
		}
		if prior != nil {
			if prior.PlanID == req.PlanID {
				return ErrSamePlan
			}
			var priorPlan models.Plan
			if err := tx.Where("id = ?", prior.PlanID).First(&priorPlan).Error; err != nil {
				return fmt.Errorf("failed to resolve prior plan: %w", err)
			}
			oldTier = priorPlan.Tier
			if err := tx.Model(&models.Subscription{}).
				Where("id = ?", prior.ID).
				Updates(map[string]any{"status": types.SubscriptionStatusCanceled}).Error; err != nil {
				return fmt.Errorf("failed to cancel prior subscription: %w", err)
			}
		}

		now := time.Now()
		created = &models.Subscription{
			ID:                   tool.GenerateUUIDV7(),
			UserID:               req.UserID,
			CompanyID:            req.CompanyID,
			PlanID:               req.PlanID,
			Status:               types.SubscriptionStatusActive,
			CurrentPeriodStart:   now,
			CurrentPeriodEnd:     now.AddDate(0, 1, 0),
			StripeSubscriptionID: req.StripeSubscriptionID,
		}
		if err := tx.Create(created).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}

		history := &models.SubscriptionHistory{
			ID:        tool.GenerateUUIDV7(),
			UserID:    req.UserID,
			CompanyID: req.CompanyID,
			OldTier:   oldTier,
			NewTier:   newPlan.Tier,
			Reason:    req.Reason,
			ChangedBy: req.ChangedBy,
			Metadata:  datatypes.JSONMap(req.Metadata),
		}
		if history.Metadata == nil {
			history.Metadata = datatypes.JSONMap{}
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to write subscription history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("plan changed",
		"user_id", req.UserID, "company_id", req.CompanyID,
		"plan_id", req.PlanID, "reason", req.Reason)
	return created, nil
}

// SetStatusByStripeID reconciles an externally billed subscription's status
// from a Stripe event. Unknown stripe ids are reported, not created.
func (s *Service) SetStatusByStripeID(ctx context.Context, stripeSubID string, status types.SubscriptionStatus, metadata map[string]any) error {
	if stripeSubID == "" {
		return fmt.Errorf("missing stripe subscription id")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Where("stripe_subscription_id = ?", stripeSubID).
			Order("created_at desc").
			First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no subscription for stripe id %s", stripeSubID)
			}
			return fmt.Errorf("failed to load subscription by stripe id: %w", err)
		}
		if sub.Status == status {
			return nil
		}

		if err := tx.Model(&models.Subscription{}).
			Where("id = ?", sub.ID).
			Updates(map[string]any{"status": status}).Error; err != nil {
			return fmt.Errorf("failed to update subscription status: %w", err)
		}

		var p models.Plan
		if err := tx.Where("id = ?", sub.PlanID).First(&p).Error; err != nil {
			return fmt.Errorf("failed to resolve plan: %w", err)
		}
		tier := p.Tier
		md := datatypes.JSONMap(metadata)
		if md == nil {
			md = datatypes.JSONMap{}
		}
		md["old_status"] = string(sub.Status)
		md["new_status"] = string(status)
		history := &models.SubscriptionHistory{
			ID:        tool.GenerateUUIDV7(),
			UserID:    sub.UserID,
			CompanyID: sub.CompanyID,
			OldTier:   tier,
			NewTier:   tier,
			Reason:    types.SubscriptionChangeReasonStripeWebhook,
			ChangedBy: "system",
			Metadata:  md,
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to write subscription history: %w", err)
		}
		return nil
	})
}
