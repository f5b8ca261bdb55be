package app

import (
	"time"

	"github.com/hardhatapps/gatekeeper/internal/app/api/server"
	"github.com/hardhatapps/gatekeeper/internal/app/service/billing"
	"github.com/hardhatapps/gatekeeper/internal/app/service/navigation"
	"github.com/hardhatapps/gatekeeper/internal/app/service/notification"
	"github.com/hardhatapps/gatekeeper/internal/app/service/plan"
	"github.com/hardhatapps/gatekeeper/internal/app/service/quota"
	"github.com/hardhatapps/gatekeeper/internal/app/service/statistics"
	"github.com/hardhatapps/gatekeeper/internal/app/service/subscription"
	"github.com/hardhatapps/gatekeeper/internal/platform/db"
	"github.com/hardhatapps/gatekeeper/pkg/config"
	"github.com/hardhatapps/gatekeeper/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	navigation.Module,
	plan.Module,
	subscription.Module,
	quota.Module,
	notification.Module,
	billing.Module,
	statistics.Module,
)
