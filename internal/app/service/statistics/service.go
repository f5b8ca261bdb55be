package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hardhatapps/gatekeeper/internal/models"
	"github.com/hardhatapps/gatekeeper/pkg/types"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Statistic types served by the admin statistics endpoint
type StatisticType string

const (
	// Subscription lifecycle
	StatisticTypeDailyNewSubscriptionCount         StatisticType = "daily_new_subscription_count"
	StatisticTypeDailyAccumulatedSubscriptionCount StatisticType = "daily_accumulated_subscription_count"
	StatisticTypeTotalActiveSubscriptionCount      StatisticType = "total_active_subscription_count"
	StatisticTypeActiveTierBreakdown               StatisticType = "active_tier_breakdown"
	StatisticTypeDailyPlanChangeCount              StatisticType = "daily_plan_change_count"

	// Metered usage
	StatisticTypeMonthlyUsageTotal StatisticType = "monthly_usage_total"
	StatisticTypeTopUsageCompanies StatisticType = "top_usage_companies"
)

// Filter types supported by certain statistic types
type UsageStatisticFilterType string

const (
	UsageStatisticFilterTypeTier     UsageStatisticFilterType = "tier"
	UsageStatisticFilterTypeBillable UsageStatisticFilterType = "billable"
	UsageStatisticFilterTypePeriod   UsageStatisticFilterType = "period"
)

var filterTypes = []UsageStatisticFilterType{
	UsageStatisticFilterTypeTier,
	UsageStatisticFilterTypeBillable,
	UsageStatisticFilterTypePeriod,
}

var subscriptionStatisticTypes = []StatisticType{
	StatisticTypeDailyNewSubscriptionCount,
	StatisticTypeDailyAccumulatedSubscriptionCount,
	StatisticTypeTotalActiveSubscriptionCount,
}

var validFilters = map[UsageStatisticFilterType][]StatisticType{
	UsageStatisticFilterTypeTier:     subscriptionStatisticTypes,
	UsageStatisticFilterTypeBillable: subscriptionStatisticTypes,
	UsageStatisticFilterTypePeriod:   {StatisticTypeMonthlyUsageTotal, StatisticTypeTopUsageCompanies},
}

type UsageStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type UsageStatisticRequest struct {
	Filters   []*types.CommonFilter     `json:"filters"`
	DataItems []*UsageStatisticDataItem `json:"data_items"`
}

func (f *UsageStatisticRequest) GetFilters(statisticType StatisticType) *UsageStatisticRequest {
	if f == nil || len(f.Filters) == 0 {
		return f
	}
	var result UsageStatisticRequest
	for _, filter := range f.Filters {
		if statisticTypes, ok := validFilters[UsageStatisticFilterType(filter.Field)]; ok {
			if lo.Contains(statisticTypes, statisticType) {
				result.Filters = append(result.Filters, filter)
			}
		} else {
			result.Filters = append(result.Filters, filter)
		}
	}
	return &result
}

// Build composes a WHERE clause based on provided filters, with custom handling
// for filter fields that do not map onto a plain column, like tier and billable.
func (f *UsageStatisticRequest) Build(builder clause.Builder) {
	if len(f.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range f.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		switch filter.Field {
		case string(UsageStatisticFilterTypeTier):
			clause.Expr{
				SQL:  "plan_id IN (SELECT id FROM subscription_plans WHERE tier = ?)",
				Vars: []any{firstValue(filter)},
			}.Build(builder)
		case string(UsageStatisticFilterTypeBillable):
			sql := "status IN (?)"
			if fmt.Sprint(firstValue(filter)) != "true" {
				sql = "status NOT IN (?)"
			}
			clause.Expr{SQL: sql, Vars: []any{types.BillableStatuses()}}.Build(builder)
		default:
			filter.Build(builder)
		}
	}
}

func firstValue(f *types.CommonFilter) any {
	if len(f.Values) == 0 {
		return nil
	}
	return f.Values[0]
}

type UsageStatisticResponseDataItem struct {
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type UsageStatisticResponse struct {
	DataItems map[StatisticType][]UsageStatisticResponseDataItem `json:"data_items"`
}

// Service answers company-wide subscription and usage statistics for the
// admin dashboard. All queries run against the live tables; there is no
// pre-aggregation step.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// Internal helpers for various stats
func (s *Service) getDailyNewSubscriptionCount(ctx context.Context, request *UsageStatisticRequest) ([]UsageStatisticResponseDataItem, error) {
	var results []UsageStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Subscription{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(distinct user_id) as value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyNewSubscriptionCount)}}).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyAccumulatedSubscriptionCount(ctx context.Context, _ *UsageStatisticRequest) ([]UsageStatisticResponseDataItem, error) {
	var results []UsageStatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
WITH min_max_dates AS (
    SELECT MIN(DATE(created_at)) as min_date, MAX(DATE(created_at)) as max_date FROM user_subscriptions
),
distinct_dates AS (
    SELECT generate_series(min_date, max_date, '1 day'::interval) as date FROM min_max_dates
),
user_id_date AS (
    SELECT user_id, DATE(created_at) as date FROM user_subscriptions
)
SELECT TO_CHAR(d.date, 'YYYY-MM-DD') as date, COUNT(DISTINCT s.user_id) as value
FROM distinct_dates d
LEFT JOIN user_id_date s ON s.date <= d.date
GROUP BY d.date
ORDER BY d.date DESC
`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalActiveSubscriptionCount(ctx context.Context, request *UsageStatisticRequest) ([]UsageStatisticResponseDataItem, error) {
	var results []UsageStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Subscription{}).TableName()).
		Select("count(*) as value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeTotalActiveSubscriptionCount)}}).
		Where("status IN ?", []types.SubscriptionStatus{types.SubscriptionStatusActive, types.SubscriptionStatusTrialing}).
		Where("current_period_end >= ?", time.Now())
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getActiveTierBreakdown(ctx context.Context, _ *UsageStatisticRequest) ([]UsageStatisticResponseDataItem, error) {
	var results []UsageStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table("user_subscriptions s").
		Select("p.tier as label, count(*) as value").
		Joins("JOIN subscription_plans p ON p.id = s.plan_id").
		Where("s.status IN ?", []types.SubscriptionStatus{types.SubscriptionStatusActive, types.SubscriptionStatusTrialing}).
		Where("s.current_period_end >= ?", time.Now()).
		Group("p.tier").
		Order("value DESC")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyPlanChangeCount(ctx context.Context, request *UsageStatisticRequest) ([]UsageStatisticResponseDataItem, error) {
	var results []UsageStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.SubscriptionHistory{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, new_tier as label, count(*) as value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyPlanChangeCount)}}).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Group("new_tier").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getMonthlyUsageTotal(ctx context.Context, request *UsageStatisticRequest) ([]UsageStatisticResponseDataItem, error) {
	var results []UsageStatisticResponseDataItem
	for _, m := range types.AllMetrics() {
		column, ok := models.MetricColumn(m)
		if !ok {
			continue
		}
		var rows []UsageStatisticResponseDataItem
		q := s.db.WithContext(ctx).Table((models.UsageMetrics{}).TableName()).
			Select(fmt.Sprintf("period as date, '%s' as label, COALESCE(SUM(%s), 0) as value", m, column)).
			Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeMonthlyUsageTotal)}}).
			Group("period").
			Order("period DESC")
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		results = append(results, rows...)
	}
	return results, nil
}

func (s *Service) getTopUsageCompanies(ctx context.Context, request *UsageStatisticRequest) ([]UsageStatisticResponseDataItem, error) {
	var results []UsageStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.UsageMetrics{}).TableName()).
		Select("company_id as label, SUM(flow_runs + sandbox_runs + ai_queries + api_calls) as value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeTopUsageCompanies)}}).
		Group("company_id").
		Order("value DESC").
		Limit(10)
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getUsageStatistic(ctx context.Context, request *UsageStatisticRequest, dataItem *UsageStatisticDataItem) ([]UsageStatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyNewSubscriptionCount:
		return s.getDailyNewSubscriptionCount(ctx, request)
	case StatisticTypeDailyAccumulatedSubscriptionCount:
		return s.getDailyAccumulatedSubscriptionCount(ctx, request)
	case StatisticTypeTotalActiveSubscriptionCount:
		return s.getTotalActiveSubscriptionCount(ctx, request)
	case StatisticTypeActiveTierBreakdown:
		return s.getActiveTierBreakdown(ctx, request)
	case StatisticTypeDailyPlanChangeCount:
		return s.getDailyPlanChangeCount(ctx, request)
	case StatisticTypeMonthlyUsageTotal:
		return s.getMonthlyUsageTotal(ctx, request)
	case StatisticTypeTopUsageCompanies:
		return s.getTopUsageCompanies(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

func (s *Service) GetUsageStatistic(ctx context.Context, request *UsageStatisticRequest) (*UsageStatisticResponse, error) {
	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []UsageStatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *UsageStatisticDataItem) {
			defer wg.Done()
			// check filter applicability
			for _, filter := range request.Filters {
				ft := UsageStatisticFilterType(filter.Field)
				if lo.Contains(filterTypes, ft) && !lo.Contains(validFilters[ft], di.ID) {
					resChan <- &lo.Entry[StatisticType, []UsageStatisticResponseDataItem]{Key: di.ID, Value: nil}
					return
				}
			}
			res, err := s.getUsageStatistic(ctx, request, di)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []UsageStatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]UsageStatisticResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				return nil, err
			}
		case entry := <-resChan:
			results[entry.Key] = entry.Value
		}
	}
	return &UsageStatisticResponse{DataItems: results}, nil
}
