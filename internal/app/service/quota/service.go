package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hardhatapps/gatekeeper/internal/app/service/notification"
	"github.com/hardhatapps/gatekeeper/internal/app/service/plan"
	"github.com/hardhatapps/gatekeeper/internal/app/service/subscription"
	"github.com/hardhatapps/gatekeeper/internal/models"
	"github.com/hardhatapps/gatekeeper/pkg/config"
	"github.com/hardhatapps/gatekeeper/pkg/logctx"
	"github.com/hardhatapps/gatekeeper/pkg/metrics"
	"github.com/hardhatapps/gatekeeper/pkg/tool"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

// Decision is the outcome of a quota check. Limit carries -1 for unlimited
// plans and 0 when no subscription or plan could be resolved.
type Decision struct {
	Allowed bool  `json:"allowed"`
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}

type Service struct {
	cfg      *config.Config
	db       *gorm.DB
	log      *zap.SugaredLogger
	subSvc   *subscription.Service
	planSvc  *plan.Service
	notifSvc *notification.Service
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, subSvc *subscription.Service, planSvc *plan.Service, notifSvc *notification.Service) *Service {
	return &Service{cfg: cfg, db: db, log: log, subSvc: subSvc, planSvc: planSvc, notifSvc: notifSvc}
}

// resolveLimit maps the caller's active plan to the limit governing metric.
// The boolean is false when no billable subscription or plan exists; that is
// a fail-closed denial, not an error.
func (s *Service) resolveLimit(ctx context.Context, userID, companyID string, metric types.Metric) (int64, bool, error) {
	sub, err := s.subSvc.ActiveSubscription(ctx, userID, companyID)
	if err != nil {
		if errors.Is(err, subscription.ErrNoActiveSubscription) {
			return 0, false, nil
		}
		return 0, false, err
	}
	p, err := s.planSvc.PlanByID(ctx, sub.PlanID)
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	limit, ok := p.LimitFor(metric)
	if !ok {
		return 0, false, fmt.Errorf("no limit mapping for metric %s", metric)
	}
	return limit, true, nil
}

func (s *Service) currentCounter(ctx context.Context, userID, companyID string, metric types.Metric, period types.Period) (int64, error) {
	var row models.UsageMetrics
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ? AND period = ?", userID, companyID, period).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return row.Counter(metric), nil
}

// CheckQuota reports whether one more metered action may proceed. The limit
// is the count of actions that may complete: with current == limit the next
// action is denied. This is the advisory half of the legacy two-step
// contract; ConsumeQuota is the atomic path.
func (s *Service) CheckQuota(ctx context.Context, userID, companyID string, metric types.Metric) (*Decision, error) {
	limit, ok, err := s.resolveLimit(ctx, userID, companyID, metric)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.recordDecision(metric, "denied_no_subscription")
		return &Decision{Allowed: false, Current: 0, Limit: 0}, nil
	}

	current, err := s.currentCounter(ctx, userID, companyID, metric, types.CurrentPeriod())
	if err != nil {
		return nil, err
	}

	if limit == types.UnlimitedQuota {
		s.recordDecision(metric, "allowed_unlimited")
		return &Decision{Allowed: true, Current: current, Limit: types.UnlimitedQuota}, nil
	}

	d := &Decision{Allowed: current < limit, Current: current, Limit: limit}
	if d.Allowed {
		s.recordDecision(metric, "allowed")
	} else {
		s.recordDecision(metric, "denied")
	}
	return d, nil
}

// TrackUsage increments the caller's counter for the current period by
// exactly one, creating the period row on first use. Accounting only: no
// limit is enforced here.
func (s *Service) TrackUsage(ctx context.Context, userID, companyID string, metric types.Metric) error {
	column, ok := models.MetricColumn(metric)
	if !ok {
		return fmt.Errorf("unknown metric: %s", metric)
	}
	period := types.CurrentPeriod()

	row := &models.UsageMetrics{
		ID:        tool.GenerateUUIDV7(),
		UserID:    userID,
		CompanyID: companyID,
		Period:    period,
	}
	setCounter(row, metric, 1)

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "company_id"}, {Name: "period"}},
		DoUpdates: clause.Assignments(map[string]any{
			column:       gorm.Expr(column + " + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to track usage: %w", err)
	}

	s.maybeWarn(ctx, userID, companyID, metric)
	return nil
}

// ConsumeQuota is the atomic check-and-increment: a single conditional
// upsert, so concurrent callers can never push usage past the limit. The
// legacy CheckQuota/TrackUsage pair stays for callers that only need
// advisory numbers.
func (s *Service) ConsumeQuota(ctx context.Context, userID, companyID string, metric types.Metric) (*Decision, error) {
	column, ok := models.MetricColumn(metric)
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", metric)
	}

	limit, resolved, err := s.resolveLimit(ctx, userID, companyID, metric)
	if err != nil {
		return nil, err
	}
	if !resolved {
		s.recordDecision(metric, "denied_no_subscription")
		return &Decision{Allowed: false, Current: 0, Limit: 0}, nil
	}
	period := types.CurrentPeriod()

	if limit == types.UnlimitedQuota {
		if err := s.TrackUsage(ctx, userID, companyID, metric); err != nil {
			return nil, err
		}
		current, err := s.currentCounter(ctx, userID, companyID, metric, period)
		if err != nil {
			return nil, err
		}
		s.recordDecision(metric, "allowed_unlimited")
		return &Decision{Allowed: true, Current: current, Limit: types.UnlimitedQuota}, nil
	}

	if limit <= 0 {
		current, err := s.currentCounter(ctx, userID, companyID, metric, period)
		if err != nil {
			return nil, err
		}
		s.recordDecision(metric, "denied")
		return &Decision{Allowed: false, Current: current, Limit: limit}, nil
	}

	// Conditional upsert: the WHERE clause rejects the increment once the
	// counter has reached the limit, and RETURNING tells us whether it
	// applied. One statement, so there is no check-then-increment window.
	now := time.Now()
	insert := map[types.Metric]int64{}
	for _, m := range types.AllMetrics() {
		insert[m] = 0
	}
	insert[metric] = 1

	query := fmt.Sprintf(`
		INSERT INTO usage_metrics (id, user_id, company_id, period, flow_runs, sandbox_runs, ai_queries, api_calls, storage_gb, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (user_id, company_id, period)
		DO UPDATE SET %[1]s = usage_metrics.%[1]s + 1, updated_at = ?
		WHERE usage_metrics.%[1]s < ?
		RETURNING %[1]s`, column)

	var updated []int64
	err = s.db.WithContext(ctx).Raw(query,
		tool.GenerateUUIDV7(), userID, companyID, period,
		insert[types.MetricFlowRuns], insert[types.MetricSandboxRuns],
		insert[types.MetricAIQueries], insert[types.MetricAPICalls],
		now, now, now, limit,
	).Scan(&updated).Error
	if err != nil {
		return nil, fmt.Errorf("failed to consume quota: %w", err)
	}

	if len(updated) == 0 {
		current, err := s.currentCounter(ctx, userID, companyID, metric, period)
		if err != nil {
			return nil, err
		}
		s.recordDecision(metric, "denied")
		s.notifSvc.SaveAsync(context.WithoutCancel(ctx), &models.UsageNotification{
			UserID:    userID,
			CompanyID: companyID,
			Metric:    metric,
			Kind:      models.UsageNotificationKindExceeded,
			Percent:   current * 100 / limit,
		})
		return &Decision{Allowed: false, Current: current, Limit: limit}, nil
	}

	current := updated[0]
	s.recordDecision(metric, "allowed")
	s.warnIfNearLimit(ctx, userID, companyID, metric, current, limit)
	return &Decision{Allowed: true, Current: current, Limit: limit}, nil
}

// Usage returns the caller's counters for the current period alongside the
// plan limits, for the usage-report endpoint.
type UsageReportItem struct {
	Metric  types.Metric `json:"metric"`
	Current int64        `json:"current"`
	Limit   int64        `json:"limit"`
	Percent int64        `json:"percent"`
}

// UsageReport is the usage-report payload: the period bounds tell the client
// when the counters reset.
type UsageReport struct {
	Period      types.Period       `json:"period"`
	PeriodStart time.Time          `json:"period_start"`
	PeriodEnd   time.Time          `json:"period_end"`
	Items       []*UsageReportItem `json:"items"`
}

func (s *Service) Usage(ctx context.Context, userID, companyID string) (*UsageReport, error) {
	period := types.CurrentPeriod()
	start, end, err := period.Bounds()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve period bounds: %w", err)
	}

	var row models.UsageMetrics
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ? AND period = ?", userID, companyID, period).
		First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}

	items := make([]*UsageReportItem, 0, len(types.AllMetrics()))
	for _, m := range types.AllMetrics() {
		limit, resolved, err := s.resolveLimit(ctx, userID, companyID, m)
		if err != nil {
			return nil, err
		}
		item := &UsageReportItem{Metric: m, Current: row.Counter(m), Limit: limit}
		if !resolved {
			item.Limit = 0
		}
		if item.Limit > 0 {
			item.Percent = item.Current * 100 / item.Limit
		}
		items = append(items, item)
	}
	return &UsageReport{Period: period, PeriodStart: start, PeriodEnd: end, Items: items}, nil
}

// maybeWarn resolves the current counter and limit and fires the 80%
// warning in the background. Resolution failures skip the warning silently;
// accounting already succeeded.
func (s *Service) maybeWarn(ctx context.Context, userID, companyID string, metric types.Metric) {
	limit, ok, err := s.resolveLimit(ctx, userID, companyID, metric)
	if err != nil || !ok || limit <= 0 {
		return
	}
	current, err := s.currentCounter(ctx, userID, companyID, metric, types.CurrentPeriod())
	if err != nil {
		return
	}
	s.warnIfNearLimit(ctx, userID, companyID, metric, current, limit)
}

func (s *Service) warnIfNearLimit(ctx context.Context, userID, companyID string, metric types.Metric, current, limit int64) {
	if limit <= 0 {
		return
	}
	threshold := s.cfg.Quota.WarningThresholdPercent
	if threshold <= 0 {
		threshold = 80
	}
	percent := current * 100 / limit
	if percent < threshold || percent >= 100 {
		return
	}
	go func() {
		if _, err := s.notifSvc.NotifyUsageWarning(context.WithoutCancel(ctx), userID, companyID, metric, percent); err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to deliver usage warning: %v", err)
		}
	}()
}

// recordDecision feeds the quota decision counter when metrics are wired.
func (s *Service) recordDecision(metric types.Metric, decision string) {
	if cv, ok := metrics.MetricsQuotaDecision.MetricCollector.(*prometheus.CounterVec); ok {
		cv.WithLabelValues(string(metric), decision).Inc()
	}
}

func setCounter(row *models.UsageMetrics, metric types.Metric, v int64) {
	switch metric {
	case types.MetricFlowRuns:
		row.FlowRuns = v
	case types.MetricSandboxRuns:
		row.SandboxRuns = v
	case types.MetricAIQueries:
		row.AIQueries = v
	case types.MetricAPICalls:
		row.APICalls = v
	}
}
