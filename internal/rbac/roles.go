package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleCounsellor = "counsellor"
	RoleManager    = "manager"
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleSuperAdmin = "super_admin"
	RoleIntegrator = "integrator" // hidden role for vendor/system integrations; grants nothing here
)

// Permission is a capability checked by route middleware.
type Permission string

const (
	PermPlaceCalls      Permission = "calls:place"
	PermViewLeadHistory Permission = "leads:call_history"
	PermViewReports     Permission = "reports:calls"
)

var grants = map[string]map[Permission]bool{
	RoleCounsellor: {PermPlaceCalls: true, PermViewLeadHistory: true},
	RoleManager:    {PermPlaceCalls: true, PermViewLeadHistory: true, PermViewReports: true},
	RoleAdmin:      {PermPlaceCalls: true, PermViewLeadHistory: true, PermViewReports: true},
	RoleAccountant: {PermViewReports: true},
}

// Allows reports whether role holds p. super_admin holds everything;
// unknown roles hold nothing.
func Allows(role string, p Permission) bool {
	if IsSuperAdmin(role) {
		return true
	}
	return grants[role][p]
}

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
