package postgres

import (
	"context"
	"database/sql"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
)

type RBACRepo struct {
	db *sql.DB
}

func NewRBACRepo(db *sql.DB) *RBACRepo {
	return &RBACRepo{db: db}
}

// --- Roles ---

func (r *RBACRepo) CreateRole(ctx context.Context, role rbac.Role) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO roles (id, name, description, level, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		role.ID, role.Name, role.Description, role.Level, role.CreatedAt, role.UpdatedAt,
	)
	return err
}

func (r *RBACRepo) GetRoleByID(ctx context.Context, id string) (rbac.Role, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, description, level, created_at, updated_at
		FROM roles WHERE id = $1
	`, id)
	return scanRole(row)
}

func (r *RBACRepo) GetRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, description, level, created_at, updated_at
		FROM roles WHERE name = $1
	`, name)
	return scanRole(row)
}

func (r *RBACRepo) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT id, name, description, level, created_at, updated_at
		FROM roles ORDER BY level ASC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]rbac.Role, 0)
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Level, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *RBACRepo) DeleteRole(ctx context.Context, id string) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RBACRepo) CountRoleHolders(ctx context.Context, roleID string) (int, error) {
	var n int
	err := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_roles WHERE role_id = $1
	`, roleID).Scan(&n)
	return n, err
}

// --- Permissions ---

func (r *RBACRepo) CreatePermission(ctx context.Context, p rbac.Permission) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO permissions (id, resource, action, description, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`,
		p.ID, p.Resource, p.Action, p.Description, p.CreatedAt,
	)
	return err
}

func (r *RBACRepo) GetPermissionByID(ctx context.Context, id string) (rbac.Permission, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, resource, action, description, created_at
		FROM permissions WHERE id = $1
	`, id)
	return scanPermission(row)
}

func (r *RBACRepo) GetPermission(ctx context.Context, resource, action string) (rbac.Permission, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, resource, action, description, created_at
		FROM permissions WHERE resource = $1 AND action = $2
	`, resource, action)
	return scanPermission(row)
}

func (r *RBACRepo) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT id, resource, action, description, created_at
		FROM permissions ORDER BY resource ASC, action ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func (r *RBACRepo) DeletePermission(ctx context.Context, id string) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Role <-> Permission ---

func (r *RBACRepo) AttachPermission(ctx context.Context, roleID, permissionID string) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1,$2)
	`, roleID, permissionID)
	return err
}

func (r *RBACRepo) DetachPermission(ctx context.Context, roleID, permissionID string) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2
	`, roleID, permissionID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RBACRepo) ListRolePermissions(ctx context.Context, roleID string) ([]rbac.Permission, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT p.id, p.resource, p.action, p.description, p.created_at
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.resource ASC, p.action ASC
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func (r *RBACRepo) DeleteRolePermissions(ctx context.Context, roleID string) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1
	`, roleID)
	return err
}

// --- User <-> Role ---

func (r *RBACRepo) AssignRole(ctx context.Context, ur rbac.UserRole) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id, assigned_at, assigned_by)
		VALUES ($1,$2,$3,$4)
	`, ur.UserID, ur.RoleID, ur.AssignedAt, ur.AssignedBy)
	return err
}

func (r *RBACRepo) RemoveRole(ctx context.Context, userID, roleID string) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `
		DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2
	`, userID, roleID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUserRoles conserva el orden de asignación: el engine atribuye cada
// permiso al primer rol que lo aporta.
func (r *RBACRepo) ListUserRoles(ctx context.Context, userID string) ([]rbac.Role, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT ro.id, ro.name, ro.description, ro.level, ro.created_at, ro.updated_at
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY ur.assigned_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]rbac.Role, 0)
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Level, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *RBACRepo) UserHasRole(ctx context.Context, userID, roleID string) (bool, error) {
	var n int
	err := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_roles WHERE user_id = $1 AND role_id = $2
	`, userID, roleID).Scan(&n)
	return n > 0, err
}

func (r *RBACRepo) DeleteUserRoles(ctx context.Context, userID string) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		DELETE FROM user_roles WHERE user_id = $1
	`, userID)
	return err
}

// helpers

func scanRole(row *sql.Row) (rbac.Role, error) {
	var role rbac.Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Level, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return rbac.Role{}, ErrNotFound
		}
		return rbac.Role{}, err
	}
	return role, nil
}

func scanPermission(row *sql.Row) (rbac.Permission, error) {
	var p rbac.Permission
	if err := row.Scan(&p.ID, &p.Resource, &p.Action, &p.Description, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return rbac.Permission{}, ErrNotFound
		}
		return rbac.Permission{}, err
	}
	return p, nil
}

func scanPermissions(rows *sql.Rows) ([]rbac.Permission, error) {
	out := make([]rbac.Permission, 0)
	for rows.Next() {
		var p rbac.Permission
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
