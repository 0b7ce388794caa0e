package rbac

import "context"

type Repository interface {
	// Roles
	CreateRole(ctx context.Context, r Role) error
	GetRoleByID(ctx context.Context, id string) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	DeleteRole(ctx context.Context, id string) error
	CountRoleHolders(ctx context.Context, roleID string) (int, error)

	// Permissions
	CreatePermission(ctx context.Context, p Permission) error
	GetPermissionByID(ctx context.Context, id string) (Permission, error)
	GetPermission(ctx context.Context, resource, action string) (Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	DeletePermission(ctx context.Context, id string) error

	// Role <-> Permission
	AttachPermission(ctx context.Context, roleID, permissionID string) error
	DetachPermission(ctx context.Context, roleID, permissionID string) error
	ListRolePermissions(ctx context.Context, roleID string) ([]Permission, error)
	DeleteRolePermissions(ctx context.Context, roleID string) error

	// User <-> Role
	AssignRole(ctx context.Context, ur UserRole) error
	RemoveRole(ctx context.Context, userID, roleID string) error
	ListUserRoles(ctx context.Context, userID string) ([]Role, error)
	UserHasRole(ctx context.Context, userID, roleID string) (bool, error)
	DeleteUserRoles(ctx context.Context, userID string) error
}
