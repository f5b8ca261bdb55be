package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hardhatapps/gatekeeper/internal/app/api/middleware"
	"github.com/hardhatapps/gatekeeper/internal/app/service/quota"
	"github.com/hardhatapps/gatekeeper/pkg/response"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

type QuotaRequest struct {
	Metric string `json:"metric"`
}

// @Summary      Check Quota
// @Description  Reports whether one more unit of the metric would be allowed. Read-only; nothing is consumed.
// @Tags         Quota
// @Accept       json
// @Produce      json
// @Param        request body QuotaRequest true "Metric to check"
// @Success      200  {object}  handlers.RespQuotaDecision
// @Router       /api/v1/quota/check [post]
func ApiCheckQuota(svc *quota.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, metric, ok := quotaArgs(c)
		if !ok {
			return
		}
		d, err := svc.CheckQuota(c.Request.Context(), identity.UserID, identity.CompanyID, metric)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(d))
	}
}

// @Summary      Track Usage
// @Description  Increments the metric's counter for the current period.
// @Tags         Quota
// @Accept       json
// @Produce      json
// @Param        request body QuotaRequest true "Metric to increment"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/quota/track [post]
func ApiTrackUsage(svc *quota.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, metric, ok := quotaArgs(c)
		if !ok {
			return
		}
		if err := svc.TrackUsage(c.Request.Context(), identity.UserID, identity.CompanyID, metric); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Consume Quota
// @Description  Atomically checks and consumes one unit of the metric. Denied when the counter is at the limit.
// @Tags         Quota
// @Accept       json
// @Produce      json
// @Param        request body QuotaRequest true "Metric to consume"
// @Success      200  {object}  handlers.RespQuotaDecision
// @Router       /api/v1/quota/consume [post]
func ApiConsumeQuota(svc *quota.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, metric, ok := quotaArgs(c)
		if !ok {
			return
		}
		d, err := svc.ConsumeQuota(c.Request.Context(), identity.UserID, identity.CompanyID, metric)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if !d.Allowed {
			c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeQuotaExceeded, d))
			return
		}
		c.JSON(http.StatusOK, response.OKT(d))
	}
}

// @Summary      Usage Report
// @Description  Returns the caller's current-period counters alongside plan limits.
// @Tags         Quota
// @Produce      json
// @Success      200  {object}  handlers.RespUsageReport
// @Router       /api/v1/quota/usage [get]
func ApiUsageReport(svc *quota.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.IdentityFromGin(c)
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing identity"))
			return
		}
		report, err := svc.Usage(c.Request.Context(), identity.UserID, identity.CompanyID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(report))
	}
}

func quotaArgs(c *gin.Context) (types.Identity, types.Metric, bool) {
	identity, ok := middleware.IdentityFromGin(c)
	if !ok {
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing identity"))
		return types.Identity{}, "", false
	}
	var req QuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
		return types.Identity{}, "", false
	}
	metric, err := types.ParseMetric(req.Metric)
	if err != nil {
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
		return types.Identity{}, "", false
	}
	return identity, metric, true
}

func RegisterQuotaRoutes(r gin.IRouter, svc *quota.Service) {
	r.POST("/quota/check", ApiCheckQuota(svc))
	r.POST("/quota/track", ApiTrackUsage(svc))
	r.POST("/quota/consume", ApiConsumeQuota(svc))
	r.GET("/quota/usage", ApiUsageReport(svc))
}
