package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hardhatapps/gatekeeper/docs"
	"github.com/hardhatapps/gatekeeper/internal/app/api/handlers"
	"github.com/hardhatapps/gatekeeper/internal/app/service/billing"
	"github.com/hardhatapps/gatekeeper/internal/app/service/navigation"
	"github.com/hardhatapps/gatekeeper/internal/app/service/plan"
	"github.com/hardhatapps/gatekeeper/internal/app/service/quota"
	"github.com/hardhatapps/gatekeeper/internal/app/service/statistics"
	subsvc "github.com/hardhatapps/gatekeeper/internal/app/service/subscription"
	cfgpkg "github.com/hardhatapps/gatekeeper/pkg/config"

	mw "github.com/hardhatapps/gatekeeper/internal/app/api/middleware"

	metrics "github.com/hardhatapps/gatekeeper/pkg/metrics"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(
	r *gin.Engine,
	log *zap.SugaredLogger,
	cfg *cfgpkg.Config,
	nav *navigation.Service,
	planSvc *plan.Service,
	sub *subsvc.Service,
	quotaSvc *quota.Service,
	billingSvc *billing.Service,
	stats *statistics.Service,
) {
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			MetricsList: []*metrics.Metric{metrics.MetricsQuotaDecision},
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Billing webhooks authenticate via provider signatures, not bearer tokens
	webhook := r.Group("/webhook")
	webhook.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterBillingWebhookRoutes(webhook, billingSvc, log)

	// Protected group using auth middleware
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.AuthMiddleware(cfg.Auth.JWTSecret), mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterSessionRoutes(apiV1, nav)
	handlers.RegisterSubscriptionRoutes(apiV1, planSvc, sub)
	handlers.RegisterQuotaRoutes(apiV1, quotaSvc)

	// Admin APIs
	handlers.RegisterAdminRoutes(apiV1.Group("/admin"), sub, stats)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
