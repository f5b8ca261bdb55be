package models

import (
	"github.com/hardhatapps/gatekeeper/pkg/types"
	"time"

	"gorm.io/datatypes"
)

// Subscription is one row of the append-only subscription history for a
// (user, company) pair. At most one row is in a billable status at a time;
// a plan change cancels the prior row and inserts a fresh one rather than
// mutating it.
type Subscription struct {
	ID        string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string                   `gorm:"column:user_id;type:varchar(64);not null;index:idx_sub_owner,priority:1" json:"user_id"`
	CompanyID string                   `gorm:"column:company_id;type:varchar(64);not null;index:idx_sub_owner,priority:2" json:"company_id"`
	PlanID    string                   `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	Status    types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	// CurrentPeriodStart and CurrentPeriodEnd bound the billing period.
	CurrentPeriodStart time.Time `gorm:"column:current_period_start;not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time `gorm:"column:current_period_end;not null" json:"current_period_end"`
	CancelAtPeriodEnd  bool      `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	// StripeSubscriptionID links externally billed subscriptions to Stripe.
	StripeSubscriptionID *string `gorm:"column:stripe_subscription_id;type:varchar(128);index" json:"stripe_subscription_id"`
	// Extra stores additional JSON data (for example: promotion or trial details).
	Extra     datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "user_subscriptions"
}
