package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/hardhatapps/gatekeeper/internal/app/api/middleware"
	"github.com/hardhatapps/gatekeeper/internal/app/service/plan"
	subsvc "github.com/hardhatapps/gatekeeper/internal/app/service/subscription"
	"github.com/hardhatapps/gatekeeper/internal/models"
	"github.com/hardhatapps/gatekeeper/pkg/response"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

// PlanItem is the catalog view of a plan.
type PlanItem struct {
	ID           string             `json:"id"`
	Tier         types.PlanTier     `json:"tier"`
	PriceMonthly int64              `json:"price_monthly"`
	Limits       types.PlanLimits   `json:"limits"`
	Features     types.PlanFeatures `json:"features"`
}

func toPlanItem(p *models.Plan) *PlanItem {
	return &PlanItem{
		ID:           p.ID,
		Tier:         p.Tier,
		PriceMonthly: p.PriceMonthly,
		Limits:       p.Limits.Data(),
		Features:     p.Features.Data(),
	}
}

// @Summary      List Plans
// @Description  Returns the plan catalog ordered by monthly price.
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  handlers.RespPlanList
// @Router       /api/v1/plans [get]
func ApiListPlans(svc *plan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans, err := svc.AllPlans(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(lo.Map(plans, func(p *models.Plan, _ int) *PlanItem { return toPlanItem(p) })))
	}
}

// @Summary      Get Subscription
// @Description  Returns the caller's active subscription, creating a free one on first contact.
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  handlers.RespSubscriptionInfo
// @Router       /api/v1/subscription [get]
func ApiGetSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.IdentityFromGin(c)
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing identity"))
			return
		}
		if _, err := svc.EnsureSubscription(c.Request.Context(), identity.UserID, identity.CompanyID); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		info, err := svc.Info(c.Request.Context(), identity.UserID, identity.CompanyID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(info))
	}
}

type ChangePlanBody struct {
	PlanID string `json:"plan_id"`
}

// @Summary      Change Plan
// @Description  Switches the caller to another plan. The prior subscription row is canceled and an audit row written.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body ChangePlanBody true "Target plan"
// @Success      200  {object}  handlers.RespSubscriptionInfo
// @Router       /api/v1/subscription/change_plan [post]
func ApiChangePlan(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.IdentityFromGin(c)
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing identity"))
			return
		}
		var req ChangePlanBody
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.PlanID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing plan_id"))
			return
		}

		_, err := svc.ChangePlan(c.Request.Context(), &subsvc.ChangePlanRequest{
			UserID:    identity.UserID,
			CompanyID: identity.CompanyID,
			PlanID:    req.PlanID,
			Reason:    types.SubscriptionChangeReasonPlanChange,
			ChangedBy: identity.UserID,
		})
		switch {
		case errors.Is(err, subsvc.ErrSamePlan):
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		case errors.Is(err, plan.ErrPlanNotFound):
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
			return
		case err != nil:
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		info, err := svc.Info(c.Request.Context(), identity.UserID, identity.CompanyID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(info))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, planSvc *plan.Service, subSvc *subsvc.Service) {
	r.GET("/plans", ApiListPlans(planSvc))
	r.GET("/subscription", ApiGetSubscription(subSvc))
	r.POST("/subscription/change_plan", ApiChangePlan(subSvc))
}
