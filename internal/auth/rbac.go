package auth

// Capability tags granted to the admin role. These cover tenant and user
// management in the auth portal and are disjoint from product modules.
const (
	CapManageUsers         = "manage_users"
	CapManageOrganizations = "manage_organizations"
	CapManageLicenses      = "manage_licenses"
	CapViewAuditLogs       = "view_audit_logs"
)

// Product module tags granted to the product roles.
const (
	ModuleDashboard     = "dashboard"
	ModuleValidator     = "validator"
	ModuleReconciliator = "reconciliator"
	ModuleConfig        = "config"
	ModuleMigrator      = "migrator"
)

// roleModules is the fixed role-to-capability table, built once and never
// mutated. The admin set contains portal capabilities only; the product
// roles form strict subsets: ops ⊂ tester ⊂ developer.
var roleModules = map[Role][]string{
	RoleAdmin: {
		CapManageUsers,
		CapManageOrganizations,
		CapManageLicenses,
		CapViewAuditLogs,
	},
	RoleDeveloper: {
		ModuleDashboard,
		ModuleValidator,
		ModuleReconciliator,
		ModuleConfig,
		ModuleMigrator,
	},
	RoleTester: {
		ModuleDashboard,
		ModuleValidator,
		ModuleReconciliator,
	},
	RoleOps: {
		ModuleDashboard,
		ModuleValidator,
	},
}

// ModulesForRole resolves a role to its capability set. Unknown roles get an
// empty set, never an error: the table is closed-world and default-deny.
func ModulesForRole(role Role) []string {
	modules, ok := roleModules[role]
	if !ok {
		return []string{}
	}
	out := make([]string, len(modules))
	copy(out, modules)
	return out
}

// RoleHasModule reports whether a role grants the given capability tag.
func RoleHasModule(role Role, module string) bool {
	for _, m := range roleModules[role] {
		if m == module {
			return true
		}
	}
	return false
}
