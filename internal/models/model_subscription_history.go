package models

import (
	"github.com/hardhatapps/gatekeeper/pkg/types"
	"time"

	"gorm.io/datatypes"
)

// SubscriptionHistory records one tier change per row, append-only.
// Use case: troubleshooting and the admin audit view.
type SubscriptionHistory struct {
	ID        string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string         `gorm:"column:user_id;type:varchar(64);not null;index:idx_subhist_user_id,priority:1" json:"user_id"`
	CompanyID string         `gorm:"column:company_id;type:varchar(64);not null" json:"company_id"`
	OldTier   types.PlanTier `gorm:"column:old_tier;type:varchar(32)" json:"old_tier"`
	NewTier   types.PlanTier `gorm:"column:new_tier;type:varchar(32);not null" json:"new_tier"`
	// Reason is the change reason.
	Reason types.SubscriptionChangeReason `gorm:"column:reason;type:varchar(64);not null" json:"reason"`
	// ChangedBy is the acting user id, or "system" for webhook-driven changes.
	ChangedBy string `gorm:"column:changed_by;type:varchar(64);not null" json:"changed_by"`
	// Metadata stores additional context such as the triggering event id.
	Metadata  datatypes.JSONMap `gorm:"column:metadata;type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

func (SubscriptionHistory) TableName() string {
	return "subscription_history"
}
