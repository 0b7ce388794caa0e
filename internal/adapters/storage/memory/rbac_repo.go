package memory

import (
	"context"
	"errors"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
)

type rbacRepo struct {
	s *Store
}

func NewRBACRepo(s *Store) rbac.Repository {
	return &rbacRepo{s: s}
}

// --- Roles ---

func (r *rbacRepo) CreateRole(ctx context.Context, role rbac.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if role.ID == "" {
		return errors.New("role id required")
	}
	if _, exists := r.s.roles[role.ID]; exists {
		return errors.New("role already exists")
	}
	r.s.roles[role.ID] = role
	return nil
}

func (r *rbacRepo) GetRoleByID(ctx context.Context, id string) (rbac.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	role, ok := r.s.roles[id]
	if !ok {
		return rbac.Role{}, ErrNotFound
	}
	return role, nil
}

func (r *rbacRepo) GetRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, role := range r.s.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return rbac.Role{}, ErrNotFound
}

func (r *rbacRepo) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]rbac.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		out = append(out, role)
	}
	return out, nil
}

func (r *rbacRepo) DeleteRole(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.roles[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.roles, id)

	kept := r.s.rolePerms[:0]
	for _, rp := range r.s.rolePerms {
		if rp.RoleID != id {
			kept = append(kept, rp)
		}
	}
	r.s.rolePerms = kept
	return nil
}

func (r *rbacRepo) CountRoleHolders(ctx context.Context, roleID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, ur := range r.s.userRoles {
		if ur.RoleID == roleID {
			n++
		}
	}
	return n, nil
}

// --- Permissions ---

func (r *rbacRepo) CreatePermission(ctx context.Context, p rbac.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.ID == "" {
		return errors.New("permission id required")
	}
	if _, exists := r.s.permissions[p.ID]; exists {
		return errors.New("permission already exists")
	}
	r.s.permissions[p.ID] = p
	return nil
}

func (r *rbacRepo) GetPermissionByID(ctx context.Context, id string) (rbac.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.permissions[id]
	if !ok {
		return rbac.Permission{}, ErrNotFound
	}
	return p, nil
}

func (r *rbacRepo) GetPermission(ctx context.Context, resource, action string) (rbac.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.permissions {
		if p.Resource == resource && p.Action == action {
			return p, nil
		}
	}
	return rbac.Permission{}, ErrNotFound
}

func (r *rbacRepo) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]rbac.Permission, 0, len(r.s.permissions))
	for _, p := range r.s.permissions {
		out = append(out, p)
	}
	return out, nil
}

func (r *rbacRepo) DeletePermission(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.permissions[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.permissions, id)

	kept := r.s.rolePerms[:0]
	for _, rp := range r.s.rolePerms {
		if rp.PermissionID != id {
			kept = append(kept, rp)
		}
	}
	r.s.rolePerms = kept
	return nil
}

// --- Role <-> Permission ---

func (r *rbacRepo) AttachPermission(ctx context.Context, roleID, permissionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rp := range r.s.rolePerms {
		if rp.RoleID == roleID && rp.PermissionID == permissionID {
			return errors.New("role permission already exists")
		}
	}
	r.s.rolePerms = append(r.s.rolePerms, rbac.RolePermission{RoleID: roleID, PermissionID: permissionID})
	return nil
}

func (r *rbacRepo) DetachPermission(ctx context.Context, roleID, permissionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, rp := range r.s.rolePerms {
		if rp.RoleID == roleID && rp.PermissionID == permissionID {
			r.s.rolePerms = append(r.s.rolePerms[:i], r.s.rolePerms[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *rbacRepo) ListRolePermissions(ctx context.Context, roleID string) ([]rbac.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]rbac.Permission, 0)
	for _, rp := range r.s.rolePerms {
		if rp.RoleID != roleID {
			continue
		}
		if p, ok := r.s.permissions[rp.PermissionID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *rbacRepo) DeleteRolePermissions(ctx context.Context, roleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.rolePerms[:0]
	for _, rp := range r.s.rolePerms {
		if rp.RoleID != roleID {
			kept = append(kept, rp)
		}
	}
	r.s.rolePerms = kept
	return nil
}

// --- User <-> Role ---

func (r *rbacRepo) AssignRole(ctx context.Context, ur rbac.UserRole) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.userRoles {
		if existing.UserID == ur.UserID && existing.RoleID == ur.RoleID {
			return errors.New("user role already exists")
		}
	}
	r.s.userRoles = append(r.s.userRoles, ur)
	return nil
}

func (r *rbacRepo) RemoveRole(ctx context.Context, userID, roleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, ur := range r.s.userRoles {
		if ur.UserID == userID && ur.RoleID == roleID {
			r.s.userRoles = append(r.s.userRoles[:i], r.s.userRoles[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// ListUserRoles devuelve los roles en orden de asignación: el engine depende
// de este orden para la atribución "primer rol visto".
func (r *rbacRepo) ListUserRoles(ctx context.Context, userID string) ([]rbac.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]rbac.Role, 0)
	for _, ur := range r.s.userRoles {
		if ur.UserID != userID {
			continue
		}
		if role, ok := r.s.roles[ur.RoleID]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *rbacRepo) UserHasRole(ctx context.Context, userID, roleID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, ur := range r.s.userRoles {
		if ur.UserID == userID && ur.RoleID == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (r *rbacRepo) DeleteUserRoles(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.userRoles[:0]
	for _, ur := range r.s.userRoles {
		if ur.UserID != userID {
			kept = append(kept, ur)
		}
	}
	r.s.userRoles = kept
	return nil
}
