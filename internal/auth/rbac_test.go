package auth

import (
	"slices"
	"testing"
)

func TestModulesForRole(t *testing.T) {
	cases := []struct {
		role Role
		want []string
	}{
		{RoleAdmin, []string{CapManageUsers, CapManageOrganizations, CapManageLicenses, CapViewAuditLogs}},
		{RoleDeveloper, []string{ModuleDashboard, ModuleValidator, ModuleReconciliator, ModuleConfig, ModuleMigrator}},
		{RoleTester, []string{ModuleDashboard, ModuleValidator, ModuleReconciliator}},
		{RoleOps, []string{ModuleDashboard, ModuleValidator}},
	}
	for _, tc := range cases {
		got := ModulesForRole(tc.role)
		if !slices.Equal(got, tc.want) {
			t.Errorf("ModulesForRole(%s) = %v, want %v", tc.role, got, tc.want)
		}
	}
}

func TestModulesForUnknownRole(t *testing.T) {
	got := ModulesForRole(Role("superuser"))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil set, got %v", got)
	}
}

func TestModulesForRoleReturnsCopy(t *testing.T) {
	first := ModulesForRole(RoleOps)
	first[0] = "mutated"
	second := ModulesForRole(RoleOps)
	if second[0] != ModuleDashboard {
		t.Fatalf("table was mutated through returned slice: %v", second)
	}
}

func TestProductRolesFormSubsets(t *testing.T) {
	dev := ModulesForRole(RoleDeveloper)
	tester := ModulesForRole(RoleTester)
	ops := ModulesForRole(RoleOps)

	for _, m := range ops {
		if !slices.Contains(tester, m) {
			t.Errorf("ops module %q missing from tester", m)
		}
	}
	for _, m := range tester {
		if !slices.Contains(dev, m) {
			t.Errorf("tester module %q missing from developer", m)
		}
	}
}

func TestAdminModulesDisjointFromProduct(t *testing.T) {
	dev := ModulesForRole(RoleDeveloper)
	for _, m := range ModulesForRole(RoleAdmin) {
		if slices.Contains(dev, m) {
			t.Errorf("admin capability %q overlaps product modules", m)
		}
	}
}

func TestRoleHasModule(t *testing.T) {
	if !RoleHasModule(RoleDeveloper, ModuleMigrator) {
		t.Error("developer should have migrator")
	}
	if RoleHasModule(RoleOps, ModuleConfig) {
		t.Error("ops should not have config")
	}
	if RoleHasModule(Role("nobody"), ModuleDashboard) {
		t.Error("unknown role should have nothing")
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleDeveloper, RoleTester, RoleOps} {
		if !r.Valid() {
			t.Errorf("role %s should be valid", r)
		}
	}
	if Role("user").Valid() {
		t.Error("legacy role should not be valid")
	}
}
