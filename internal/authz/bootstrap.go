package authz

import "fmt"

// AdminRole 管理员全量角色，账号 Role 为 admin 的用户默认挂载
const AdminRole = "role:admin"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role:     "coupon_manager",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/coupons", Action: "*"},
				{Object: "/admin/coupons/:id", Action: "*"},
				{Object: "/admin/coupons/:id/deactivate", Action: "*"},
			},
			Immutable: true,
		},
		{
			Role:     "catalog_manager",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/products", Action: "*"},
				{Object: "/admin/products/:id", Action: "*"},
			},
			Immutable: true,
		},
		{
			Role: "admin",
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，重复执行是幂等的
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		if err := s.applyRoleSeed(seed); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) applyRoleSeed(seed RoleSeed) error {
	role, err := s.EnsureRole(seed.Role)
	if err != nil {
		return err
	}

	for _, parent := range seed.Inherits {
		parentRole, err := NormalizeRole(parent)
		if err != nil {
			return err
		}
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
			return fmt.Errorf("link role inheritance failed: %w", err)
		}
	}

	for _, policy := range seed.Policies {
		obj, act, err := normalizePolicyTarget(policy.Object, policy.Action)
		if err != nil {
			return fmt.Errorf("builtin policy for %s: %w", role, err)
		}
		if _, err := s.enforcer.AddPolicy(role, obj, act); err != nil {
			return fmt.Errorf("add builtin policy failed: %w", err)
		}
	}
	return nil
}
