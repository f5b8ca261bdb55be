package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hardhatapps/gatekeeper/internal/app/service/statistics"
	subsvc "github.com/hardhatapps/gatekeeper/internal/app/service/subscription"
	"github.com/hardhatapps/gatekeeper/pkg/response"
)

// @Summary      List Subscription History (Admin)
// @Description  Retrieves a paginated and filterable list of subscription tier changes.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body subscription.ScanHistoryRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespSubscriptionHistory
// @Router       /api/v1/admin/list_subscription_history [post]
func ApiListSubscriptionHistory(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subsvc.ScanHistoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanHistory(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Usage Statistics (Admin)
// @Description  Retrieves subscription and metered-usage statistics across all companies.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.UsageStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespUsageStatistic
// @Router       /api/v1/admin/get_usage_statistic [post]
func ApiGetUsageStatistic(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.UsageStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetUsageStatistic(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, sub *subsvc.Service, stats *statistics.Service) {
	r.POST("/list_subscription_history", ApiListSubscriptionHistory(sub))
	r.POST("/get_usage_statistic", ApiGetUsageStatistic(stats))
}
