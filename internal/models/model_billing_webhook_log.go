package models

import (
	"time"

	"gorm.io/datatypes"
)

type BillingWebhookLogStatus string

const (
	BillingWebhookLogStatusReceived     BillingWebhookLogStatus = "received"
	BillingWebhookLogStatusHandled      BillingWebhookLogStatus = "handled"
	BillingWebhookLogStatusHandleFailed BillingWebhookLogStatus = "handle_failed"
)

// BillingWebhookLog keeps the raw payload of every billing provider event,
// append-only, independent of whether handling succeeded.
type BillingWebhookLog struct {
	ID        string          `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Provider  string          `gorm:"column:provider;type:varchar(64);not null" json:"provider"`
	EventID   string          `gorm:"column:event_id;type:varchar(128);index" json:"event_id"`
	EventType string          `gorm:"column:event_type;type:varchar(128)" json:"event_type"`
	TraceID   string          `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Data      datatypes.JSON  `gorm:"column:data;type:jsonb" json:"data"`
	Result    *datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
	Status    BillingWebhookLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (BillingWebhookLog) TableName() string { return "billing_webhook_log" }
