package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hardhatapps/gatekeeper/internal/app/service/notification"
	"github.com/hardhatapps/gatekeeper/internal/app/service/plan"
	"github.com/hardhatapps/gatekeeper/internal/app/service/subscription"
	"github.com/hardhatapps/gatekeeper/internal/models"
	"github.com/hardhatapps/gatekeeper/pkg/config"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

func newTestService(t *testing.T) (*Service, *subscription.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Plan{}, &models.Subscription{}, &models.SubscriptionHistory{},
		&models.UsageMetrics{}, &models.UsageNotification{},
	))

	cfg := &config.Config{Quota: config.QuotaConfig{WarningThresholdPercent: 80, WarningDedupHours: 24}}
	log := zap.NewNop().Sugar()
	planSvc := plan.NewService(db, log)
	require.NoError(t, planSvc.Seed(context.Background()))
	subSvc := subscription.NewService(cfg, db, log, planSvc)
	notifSvc := notification.New(cfg, db, log)

	return NewService(cfg, db, log, subSvc, planSvc, notifSvc), subSvc
}

func onPlan(t *testing.T, subSvc *subscription.Service, userID, companyID, planID string) {
	t.Helper()
	_, err := subSvc.ChangePlan(context.Background(), &subscription.ChangePlanRequest{
		UserID:    userID,
		CompanyID: companyID,
		PlanID:    planID,
		Reason:    types.SubscriptionChangeReasonSignup,
		ChangedBy: userID,
	})
	require.NoError(t, err)
}

func setUsage(t *testing.T, svc *Service, userID, companyID string, metric types.Metric, value int64) {
	t.Helper()
	column, ok := models.MetricColumn(metric)
	require.True(t, ok)
	row := &models.UsageMetrics{
		ID: "seeded-" + string(metric), UserID: userID, CompanyID: companyID,
		Period: types.CurrentPeriod(),
	}
	res := svc.db.Model(&models.UsageMetrics{}).
		Where("user_id = ? AND company_id = ? AND period = ?", userID, companyID, row.Period).
		Update(column, value)
	require.NoError(t, res.Error)
	if res.RowsAffected == 0 {
		setCounter(row, metric, value)
		require.NoError(t, svc.db.Create(row).Error)
	}
}

func TestCheckQuota_NoSubscriptionDenies(t *testing.T) {
	svc, _ := newTestService(t)

	d, err := svc.CheckQuota(context.Background(), "u1", "c1", types.MetricAIQueries)
	require.NoError(t, err)
	assert.Equal(t, &Decision{Allowed: false, Current: 0, Limit: 0}, d)
}

func TestCheckQuota_UnlimitedAlwaysAllows(t *testing.T) {
	svc, subSvc := newTestService(t)
	onPlan(t, subSvc, "u1", "c1", "plan_enterprise")
	setUsage(t, svc, "u1", "c1", types.MetricAIQueries, 1<<40)

	d, err := svc.CheckQuota(context.Background(), "u1", "c1", types.MetricAIQueries)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, types.UnlimitedQuota, d.Limit)
	assert.Equal(t, int64(1<<40), d.Current)
}

func TestCheckQuota_StrictLessThan(t *testing.T) {
	// pro allows 1000 AI queries; the request made at current == limit is
	// the one that gets denied
	tests := []struct {
		name    string
		current int64
		allowed bool
	}{
		{name: "fresh period", current: 0, allowed: true},
		{name: "one below limit", current: 999, allowed: true},
		{name: "at limit", current: 1000, allowed: false},
		{name: "beyond limit", current: 1200, allowed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, subSvc := newTestService(t)
			onPlan(t, subSvc, "u1", "c1", "plan_pro")
			if tt.current > 0 {
				setUsage(t, svc, "u1", "c1", types.MetricAIQueries, tt.current)
			}

			d, err := svc.CheckQuota(context.Background(), "u1", "c1", types.MetricAIQueries)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.current, d.Current)
			assert.Equal(t, int64(1000), d.Limit)
		})
	}
}

func TestTrackUsage_NTimesCountsN(t *testing.T) {
	svc, subSvc := newTestService(t)
	onPlan(t, subSvc, "u1", "c1", "plan_pro")
	ctx := context.Background()

	const n = 7
	for i := 0; i < n; i++ {
		require.NoError(t, svc.TrackUsage(ctx, "u1", "c1", types.MetricSandboxRuns))
	}

	current, err := svc.currentCounter(ctx, "u1", "c1", types.MetricSandboxRuns, types.CurrentPeriod())
	require.NoError(t, err)
	assert.Equal(t, int64(n), current)

	// other counters on the same row are untouched
	other, err := svc.currentCounter(ctx, "u1", "c1", types.MetricAIQueries, types.CurrentPeriod())
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestTrackUsage_NewPeriodStartsFresh(t *testing.T) {
	svc, subSvc := newTestService(t)
	onPlan(t, subSvc, "u1", "c1", "plan_pro")
	ctx := context.Background()

	// last month's row carries usage
	lastMonth := types.PeriodOf(time.Now().AddDate(0, -1, 0))
	old := &models.UsageMetrics{ID: "old-row", UserID: "u1", CompanyID: "c1", Period: lastMonth, APICalls: 500}
	require.NoError(t, svc.db.Create(old).Error)

	require.NoError(t, svc.TrackUsage(ctx, "u1", "c1", types.MetricAPICalls))

	current, err := svc.currentCounter(ctx, "u1", "c1", types.MetricAPICalls, types.CurrentPeriod())
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)

	previous, err := svc.currentCounter(ctx, "u1", "c1", types.MetricAPICalls, lastMonth)
	require.NoError(t, err)
	assert.Equal(t, int64(500), previous)
}

func TestCheckTrackCheck_ProScenario(t *testing.T) {
	svc, subSvc := newTestService(t)
	onPlan(t, subSvc, "u1", "c1", "plan_pro")
	ctx := context.Background()
	setUsage(t, svc, "u1", "c1", types.MetricAIQueries, 999)

	d, err := svc.CheckQuota(ctx, "u1", "c1", types.MetricAIQueries)
	require.NoError(t, err)
	assert.Equal(t, &Decision{Allowed: true, Current: 999, Limit: 1000}, d)

	require.NoError(t, svc.TrackUsage(ctx, "u1", "c1", types.MetricAIQueries))

	d, err = svc.CheckQuota(ctx, "u1", "c1", types.MetricAIQueries)
	require.NoError(t, err)
	assert.Equal(t, &Decision{Allowed: false, Current: 1000, Limit: 1000}, d)
}

func TestConsumeQuota_StopsExactlyAtLimit(t *testing.T) {
	svc, subSvc := newTestService(t)
	onPlan(t, subSvc, "u1", "c1", "plan_free")
	ctx := context.Background()

	// free tier allows 25 AI queries
	for i := int64(1); i <= 25; i++ {
		d, err := svc.ConsumeQuota(ctx, "u1", "c1", types.MetricAIQueries)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d should pass", i)
		assert.Equal(t, i, d.Current)
	}

	d, err := svc.ConsumeQuota(ctx, "u1", "c1", types.MetricAIQueries)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(25), d.Current)
	assert.Equal(t, int64(25), d.Limit)

	// denied attempts must not bump the counter
	current, err := svc.currentCounter(ctx, "u1", "c1", types.MetricAIQueries, types.CurrentPeriod())
	require.NoError(t, err)
	assert.Equal(t, int64(25), current)
}

func TestConsumeQuota_DeniedDeliversExceededNotification(t *testing.T) {
	svc, subSvc := newTestService(t)
	onPlan(t, subSvc, "u1", "c1", "plan_free")
	ctx := context.Background()

	// free tier allows 50 sandbox runs; the caller is already at the limit
	setUsage(t, svc, "u1", "c1", types.MetricSandboxRuns, 50)

	d, err := svc.ConsumeQuota(ctx, "u1", "c1", types.MetricSandboxRuns)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	var notifs []*models.UsageNotification
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, svc.db.
			Where("kind = ?", models.UsageNotificationKindExceeded).
			Find(&notifs).Error)
		if len(notifs) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Len(t, notifs, 1)
	assert.Equal(t, types.MetricSandboxRuns, notifs[0].Metric)
	assert.Equal(t, int64(100), notifs[0].Percent)
	assert.Equal(t, "u1", notifs[0].UserID)
	assert.Equal(t, "c1", notifs[0].CompanyID)
}

func TestConsumeQuota_NoSubscription(t *testing.T) {
	svc, _ := newTestService(t)

	d, err := svc.ConsumeQuota(context.Background(), "u1", "c1", types.MetricFlowRuns)
	require.NoError(t, err)
	assert.Equal(t, &Decision{Allowed: false, Current: 0, Limit: 0}, d)
}

func TestConsumeQuota_Unlimited(t *testing.T) {
	svc, subSvc := newTestService(t)
	onPlan(t, subSvc, "u1", "c1", "plan_enterprise")

	for i := 0; i < 3; i++ {
		d, err := svc.ConsumeQuota(context.Background(), "u1", "c1", types.MetricFlowRuns)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, types.UnlimitedQuota, d.Limit)
	}
}

func TestUsageReport(t *testing.T) {
	svc, subSvc := newTestService(t)
	onPlan(t, subSvc, "u1", "c1", "plan_pro")
	ctx := context.Background()
	setUsage(t, svc, "u1", "c1", types.MetricAIQueries, 250)

	report, err := svc.Usage(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Len(t, report.Items, 4)

	assert.Equal(t, types.CurrentPeriod(), report.Period)
	assert.False(t, report.PeriodStart.After(time.Now()))
	assert.True(t, report.PeriodEnd.After(time.Now()))
	assert.Equal(t, report.PeriodStart.AddDate(0, 1, 0), report.PeriodEnd)

	byMetric := map[types.Metric]*UsageReportItem{}
	for _, it := range report.Items {
		byMetric[it.Metric] = it
	}
	ai := byMetric[types.MetricAIQueries]
	require.NotNil(t, ai)
	assert.Equal(t, int64(250), ai.Current)
	assert.Equal(t, int64(1000), ai.Limit)
	assert.Equal(t, int64(25), ai.Percent)
}

func TestWarnIfNearLimit_Window(t *testing.T) {
	svc, subSvc := newTestService(t)
	onPlan(t, subSvc, "u1", "c1", "plan_pro")
	ctx := context.Background()

	count := func() int64 {
		var n int64
		require.NoError(t, svc.db.Model(&models.UsageNotification{}).Count(&n).Error)
		return n
	}
	waitFor := func(want int64) {
		deadline := time.Now().Add(2 * time.Second)
		for count() != want && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		assert.Equal(t, want, count())
	}

	// below the threshold: nothing fires
	svc.warnIfNearLimit(ctx, "u1", "c1", types.MetricAIQueries, 500, 1000)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, count())

	// inside [80%, 100%): one warning
	svc.warnIfNearLimit(ctx, "u1", "c1", types.MetricAIQueries, 850, 1000)
	waitFor(1)

	// again within the dedup window: still one
	svc.warnIfNearLimit(ctx, "u1", "c1", types.MetricAIQueries, 900, 1000)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), count())

	// at 100%: warnings stop
	svc.warnIfNearLimit(ctx, "u1", "c1", types.MetricAIQueries, 1000, 1000)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), count())

	// a different metric is deduplicated independently
	svc.warnIfNearLimit(ctx, "u1", "c1", types.MetricSandboxRuns, 1700, 2000)
	waitFor(2)
}
