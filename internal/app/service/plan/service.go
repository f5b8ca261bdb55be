package plan

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hardhatapps/gatekeeper/internal/models"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

var ErrPlanNotFound = errors.New("plan not found")

// Service is the read-only plan catalog. Plan rows are reference data: they
// are seeded once and never mutated in place.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) AllPlans(ctx context.Context) ([]*models.Plan, error) {
	var plans []*models.Plan
	if err := s.db.WithContext(ctx).Order("price_monthly asc").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

func (s *Service) PlanByID(ctx context.Context, id string) (*models.Plan, error) {
	var p models.Plan
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &p, nil
}

func (s *Service) PlanByTier(ctx context.Context, tier types.PlanTier) (*models.Plan, error) {
	var p models.Plan
	if err := s.db.WithContext(ctx).Where("tier = ?", tier).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan by tier: %w", err)
	}
	return &p, nil
}
