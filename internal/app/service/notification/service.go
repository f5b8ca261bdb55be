package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hardhatapps/gatekeeper/internal/models"
	"github.com/hardhatapps/gatekeeper/pkg/config"
	"github.com/hardhatapps/gatekeeper/pkg/logctx"
	"github.com/hardhatapps/gatekeeper/pkg/tool"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

// NotifyUsageWarning records a usage_warning notification unless one was
// already delivered for this (user, company, metric) within the dedup
// window. Returns true when a new notification was written.
func (s *Service) NotifyUsageWarning(ctx context.Context, userID, companyID string, metric types.Metric, percent int64) (bool, error) {
	window := time.Duration(s.cfg.Quota.WarningDedupHours) * time.Hour
	if window <= 0 {
		window = 24 * time.Hour
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.UsageNotification{}).
		Where("user_id = ? AND company_id = ? AND metric = ? AND kind = ? AND created_at > ?",
			userID, companyID, metric, models.UsageNotificationKindWarning, time.Now().Add(-window)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check recent warnings: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	n := &models.UsageNotification{
		ID:        tool.GenerateUUIDV7(),
		UserID:    userID,
		CompanyID: companyID,
		Metric:    metric,
		Kind:      models.UsageNotificationKindWarning,
		Percent:   percent,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return false, fmt.Errorf("failed to save usage warning: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("usage warning delivered",
		"user_id", userID, "company_id", companyID, "metric", metric, "percent", percent)
	return true, nil
}

// SaveAsync persists a notification in the background. Errors are logged,
// not returned. Nil input is ignored.
func (s *Service) SaveAsync(ctx context.Context, n *models.UsageNotification) {
	go func() {
		if n == nil {
			return
		}
		if n.ID == "" {
			n.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(n).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save usage notification: %v", err)
		}
	}()
}

// Module exposes the notification service via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
