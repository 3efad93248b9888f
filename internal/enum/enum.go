package enum

// Roles (CHECK constrained in DB). A user holds exactly one role;
// there is no multi-role assignment.

const (
	RoleSuperAdmin     = "SUPER_ADMIN"
	RoleFranchiseAdmin = "FRANCHISE_ADMIN"
	RoleStaff          = "STAFF"
)

// ValidRole reports whether s is one of the known roles.
func ValidRole(s string) bool {
	switch s {
	case RoleSuperAdmin, RoleFranchiseAdmin, RoleStaff:
		return true
	}
	return false
}
