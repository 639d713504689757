package auth

import "slices"

// Role is the authorisation tier carried in a token.
type Role string

const (
	// RoleViewer reads topology, plans and run history.
	RoleViewer Role = "viewer"

	// RoleOperator may also start scans and simulations.
	RoleOperator Role = "operator"
)

// ValidRoles lists every role a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	return slices.Contains(ValidRoles, r)
}

// Permission is a named capability.
type Permission string

const (
	PermPlanRead  Permission = "plan:read"
	PermRunsRead  Permission = "runs:read"
	PermRunsStart Permission = "runs:start"
)

var rolePermissions = map[Role][]Permission{
	RoleViewer:   {PermPlanRead, PermRunsRead},
	RoleOperator: {PermPlanRead, PermRunsRead, PermRunsStart},
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}
