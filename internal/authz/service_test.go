package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func mustEnforce(t *testing.T, svc *Service, userID uint, obj, act string) bool {
	t.Helper()
	allow, err := svc.EnforceUser(userID, obj, act)
	if err != nil {
		t.Fatalf("enforce user=%d obj=%s act=%s failed: %v", userID, obj, act, err)
	}
	return allow
}

func TestEnforceUserWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/products/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetUserRoles(1, []string{"ops"}); err != nil {
		t.Fatalf("set user roles failed: %v", err)
	}

	// keyMatch2 将 :id 匹配到具体路径段，版本前缀在判定前被剥掉
	if !mustEnforce(t, svc, 1, "/api/v1/admin/products/42", "get") {
		t.Fatalf("expected granted action to be allowed")
	}
	if mustEnforce(t, svc, 1, "/api/v1/admin/products/42", "POST") {
		t.Fatalf("expected ungranted action to be denied")
	}
	if mustEnforce(t, svc, 9, "/api/v1/admin/products/42", "GET") {
		t.Fatalf("expected user without role to be denied")
	}
}

func TestSetUserRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	for role, object := range map[string]string{
		"ops":     "/admin/coupons",
		"catalog": "/admin/products",
	} {
		if err := svc.GrantRolePolicy(role, object, "GET"); err != nil {
			t.Fatalf("grant %s policy failed: %v", role, err)
		}
	}

	if err := svc.SetUserRoles(2, []string{"ops"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	if err := svc.SetUserRoles(2, []string{"catalog"}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}

	roles, err := svc.GetUserRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:catalog" {
		t.Fatalf("override should replace roles, got=%v", roles)
	}

	if mustEnforce(t, svc, 2, "/admin/coupons", "GET") {
		t.Fatalf("replaced role should lose its permission")
	}
	if !mustEnforce(t, svc, 2, "/admin/products", "GET") {
		t.Fatalf("new role should gain its permission")
	}
}

func TestDeleteRoleRemovesPolicies(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/coupons", "*"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetUserRoles(3, []string{"ops"}); err != nil {
		t.Fatalf("set user roles failed: %v", err)
	}

	if err := svc.DeleteRole("ops"); err != nil {
		t.Fatalf("delete role failed: %v", err)
	}

	if mustEnforce(t, svc, 3, "/admin/coupons", "DELETE") {
		t.Fatalf("deleted role should no longer grant access")
	}
	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	for _, role := range roles {
		if role == "role:ops" {
			t.Fatalf("deleted role still listed: %v", roles)
		}
	}
}

func TestGetUserPoliciesMergesDirectAndRole(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/coupons", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetUserRoles(4, []string{"ops"}); err != nil {
		t.Fatalf("set user roles failed: %v", err)
	}
	if _, err := svc.Enforcer().AddPolicy(SubjectForUser(4), "/admin/products", "GET"); err != nil {
		t.Fatalf("add direct policy failed: %v", err)
	}

	policies, err := svc.GetUserPolicies(4)
	if err != nil {
		t.Fatalf("get user policies failed: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("policies want 2, got=%v", policies)
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "ops", want: "role:ops"},
		{in: "role:ops", want: "role:ops"},
		{in: " coupon manager ", want: "role:coupon_manager"},
		{in: "", wantErr: true},
		{in: "role:", wantErr: true},
	}
	for _, item := range cases {
		got, err := NormalizeRole(item.in)
		if item.wantErr {
			if err == nil {
				t.Fatalf("normalize role %q want error", item.in)
			}
			continue
		}
		if err != nil || got != item.want {
			t.Fatalf("normalize role %q want %q got %q err=%v", item.in, item.want, got, err)
		}
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/coupons/:id", want: "/admin/coupons/:id"},
		{in: "/admin/coupons/:id", want: "/admin/coupons/:id"},
		{in: "admin/coupons", want: "/admin/coupons"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		if got := NormalizeObject(item.in); got != item.want {
			t.Fatalf("normalize object %q want %q got %q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	// 幂等：重复执行不报错也不重复建档
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("re-bootstrap failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	missing := map[string]bool{
		"role:readonly_auditor": true,
		"role:coupon_manager":   true,
		"role:catalog_manager":  true,
		"role:admin":            true,
	}
	for _, role := range roles {
		delete(missing, role)
	}
	if len(missing) != 0 {
		t.Fatalf("builtin roles missing: %v", missing)
	}

	if err := svc.SetUserRoles(5, []string{"coupon_manager"}); err != nil {
		t.Fatalf("set user roles failed: %v", err)
	}

	if !mustEnforce(t, svc, 5, "/admin/products", "GET") {
		t.Fatalf("expected inherited readonly permission")
	}
	if mustEnforce(t, svc, 5, "/admin/products", "PUT") {
		t.Fatalf("inherited readonly role must not grant writes")
	}
	if !mustEnforce(t, svc, 5, "/admin/coupons/7", "DELETE") {
		t.Fatalf("expected coupon manager write permission")
	}
}
