package model

import "time"

// AdminRole determines an admin's permission set. Kept as a flat role enum;
// permissions are resolved in code and embedded in the JWT.
type AdminRole string

const (
	AdminRoleSuperAdmin AdminRole = "SUPER_ADMIN"
	AdminRoleRecruiter  AdminRole = "RECRUITER"
)

// Permission codes enforced by the RBAC middleware.
type Permission string

const (
	PermissionJobsRead           Permission = "jobs:read"
	PermissionJobsWrite          Permission = "jobs:write"
	PermissionApplicationsRead   Permission = "applications:read"
	PermissionApplicationsInvite Permission = "applications:invite"
	PermissionSubmissionsRead    Permission = "submissions:read"
	PermissionAssessmentsMonitor Permission = "assessments:monitor"
)

// RolePermissions maps each role to the permission codes it grants.
var RolePermissions = map[AdminRole][]Permission{
	AdminRoleSuperAdmin: {
		PermissionJobsRead, PermissionJobsWrite,
		PermissionApplicationsRead, PermissionApplicationsInvite,
		PermissionSubmissionsRead, PermissionAssessmentsMonitor,
	},
	AdminRoleRecruiter: {
		PermissionJobsRead, PermissionJobsWrite,
		PermissionApplicationsRead, PermissionApplicationsInvite,
		PermissionSubmissionsRead,
	},
}

// PermissionCodes returns the string permission codes for a role.
func PermissionCodes(role AdminRole) []string {
	perms := RolePermissions[role]
	codes := make([]string, len(perms))
	for i, p := range perms {
		codes[i] = string(p)
	}
	return codes
}

// Admin represents an HR console user.
type Admin struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         AdminRole `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// AdminLoginRequest is the payload for admin login.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
