package types

// Role is the authenticated user's role as carried in the session token.
// Roles the router has no special mapping for land on the global dashboard.
type Role string

const (
	RoleDeveloper      Role = "developer"
	RoleSuperAdmin     Role = "super_admin"
	RoleCompanyAdmin   Role = "company_admin"
	RoleProjectManager Role = "project_manager"
	RoleSupervisor     Role = "supervisor"
	RoleSiteOperative  Role = "site_operative"
)

// Identity is the already-authenticated caller: the boundary object every
// session and quota operation is keyed by.
type Identity struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      Role   `json:"role"`
}
