package types

// ScreenID names a client screen. The navigation layer does not validate ids
// against a known set; the rendering layer falls back to a placeholder for
// unknown screens.
type ScreenID string

const (
	ScreenGlobalDashboard     ScreenID = "global-dashboard"
	ScreenDeveloperDashboard  ScreenID = "developer-dashboard"
	ScreenSuperAdminDashboard ScreenID = "super-admin-dashboard"
	ScreenProjectHome         ScreenID = "project-home"
	ScreenRFIs                ScreenID = "rfis"
	ScreenPunchList           ScreenID = "punch-list"
	ScreenDayworkSheets       ScreenID = "daywork-sheets"
	ScreenInvoices            ScreenID = "invoices"
	ScreenTenders             ScreenID = "tenders"
)

// ScreenParams is the opaque parameter bag a frame carries to its screen.
type ScreenParams map[string]any

// ProjectRef is a denormalized project summary owned by the session's loaded
// project list; the navigation core never fetches projects itself.
type ProjectRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}
