package security

import (
	"fmt"
	"log/slog"

	"github.com/inspectrack/inspectrack/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermCreateInspection   Permission = "create_inspection"
	PermForceInspection    Permission = "force_inspection"
	PermListInspections    Permission = "list_inspections"
	PermUpdateInspection   Permission = "update_inspection"
	PermRunScheduler       Permission = "run_scheduler"
	PermViewDashboard      Permission = "view_dashboard"
	PermManageUsers        Permission = "manage_users"
	PermManageOrganization Permission = "manage_organization"
)

// RolePermissions maps roles to their permissions. SUPER_ADMIN spans
// organizations; ADMIN manages one; MINI_ADMIN runs a department;
// INSPECTOR only works their own assignments.
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleSuperAdmin: {
		PermCreateInspection,
		PermForceInspection,
		PermListInspections,
		PermUpdateInspection,
		PermRunScheduler,
		PermViewDashboard,
		PermManageUsers,
		PermManageOrganization,
	},
	domain.RoleAdmin: {
		PermCreateInspection,
		PermForceInspection,
		PermListInspections,
		PermUpdateInspection,
		PermRunScheduler,
		PermViewDashboard,
		PermManageUsers,
	},
	domain.RoleMiniAdmin: {
		PermCreateInspection,
		PermListInspections,
		PermViewDashboard,
	},
	domain.RoleInspector: {
		PermListInspections,
		PermUpdateInspection,
		PermViewDashboard,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission validates that a role has a specific permission
func (as *AuthorizationService) ValidatePermission(role domain.Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s role cannot %s", role, permission)
	}
	return nil
}

// ValidateOrgAccess checks that a user operates inside their own
// organization. SUPER_ADMIN may cross organization boundaries.
func (as *AuthorizationService) ValidateOrgAccess(role domain.Role, userOrgID, requestedOrgID string) error {
	if role == domain.RoleSuperAdmin {
		return nil
	}
	if userOrgID != requestedOrgID {
		as.logger.Warn("org access denied",
			slog.String("user_org", userOrgID),
			slog.String("requested_org", requestedOrgID),
		)
		return fmt.Errorf("access denied: organization mismatch")
	}
	return nil
}
