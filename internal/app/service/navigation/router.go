package navigation

import (
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

// DefaultScreenFor maps a role to its landing screen. Roles without a
// dedicated dashboard fall through to the global one.
func DefaultScreenFor(role types.Role) types.ScreenID {
	switch role {
	case types.RoleDeveloper:
		return types.ScreenDeveloperDashboard
	case types.RoleSuperAdmin:
		return types.ScreenSuperAdminDashboard
	default:
		return types.ScreenGlobalDashboard
	}
}
