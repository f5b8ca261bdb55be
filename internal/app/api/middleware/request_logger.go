package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hardhatapps/gatekeeper/pkg/logctx"
)

// RequestLoggerMiddleware attaches a request-scoped logger enriched with
// trace_id and, when the auth middleware ran first, user_id/company_id to
// gin.Context and the request context.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID, _ := c.Get(logctx.KeyTraceID)

		reqLogger := base.With("trace_id", traceID)
		if uid := c.GetString(logctx.KeyUserID); uid != "" {
			reqLogger = reqLogger.With("user_id", uid)
		}
		if cid := c.GetString(logctx.KeyCompanyID); cid != "" {
			reqLogger = reqLogger.With("company_id", cid)
		}
		c.Set(logctx.KeyLogger, reqLogger)

		// also attach to std context
		ctx := context.WithValue(c.Request.Context(), logctx.KeyLogger, reqLogger) //nolint:staticcheck
		c.Request = c.Request.WithContext(ctx)

		// mirror trace id to response header when available
		if s, ok := traceID.(string); ok && s != "" {
			c.Writer.Header().Set("X-Request-ID", s)
		}

		c.Next()
	}
}
