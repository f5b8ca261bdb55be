package models

import (
	"github.com/hardhatapps/gatekeeper/pkg/types"
	"time"

	"gorm.io/datatypes"
)

type UsageNotificationKind string

const (
	UsageNotificationKindWarning  UsageNotificationKind = "usage_warning"
	UsageNotificationKindExceeded UsageNotificationKind = "usage_exceeded"
)

// UsageNotification is one delivered quota notification. Warning deliveries
// are deduplicated by looking for an existing row created within the last
// 24 hours before inserting a new one.
type UsageNotification struct {
	ID        string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string                `gorm:"column:user_id;type:varchar(64);not null;index:idx_usage_notif_owner,priority:1" json:"user_id"`
	CompanyID string                `gorm:"column:company_id;type:varchar(64);not null;index:idx_usage_notif_owner,priority:2" json:"company_id"`
	Metric    types.Metric          `gorm:"column:metric;type:varchar(32);not null" json:"metric"`
	Kind      UsageNotificationKind `gorm:"column:kind;type:varchar(32);not null" json:"kind"`
	// Percent is the usage percentage at delivery time.
	Percent   int64          `gorm:"column:percent;not null" json:"percent"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb;default:'{}'" json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

func (UsageNotification) TableName() string {
	return "subscription_notifications"
}
