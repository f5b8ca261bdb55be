package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hardhatapps/gatekeeper/internal/app/service/billing"
	"github.com/hardhatapps/gatekeeper/pkg/logctx"
	"github.com/hardhatapps/gatekeeper/pkg/response"
)

// @Summary      Stripe Webhook
// @Description  Handles Stripe billing events. The request body must carry a valid Stripe-Signature header.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body string true "Raw Stripe event payload"
// @Success      200  {object}  handlers.RespOK
// @Router       /webhook/stripe [post]
func ApiStripeWebhook(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		logctx.FromCtx(c, log).Infow("webhook_stripe_received")

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		if err := svc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
			logctx.FromCtx(c, log).Errorw("webhook_stripe_handle_error", "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		logctx.FromCtx(c, log).Infow("webhook_stripe_handled")
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterBillingWebhookRoutes(r gin.IRouter, svc *billing.Service, log *zap.SugaredLogger) {
	// Mount under provided group, expected at "/webhook"
	r.POST("/stripe", ApiStripeWebhook(svc, log))
}
