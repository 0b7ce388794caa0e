package rbac

import (
	"context"
	"errors"
)

// seedPermission es una fila del set semilla.
type seedPermission struct {
	resource    string
	action      string
	description string
}

var seedPermissions = []seedPermission{
	{"users", "read", "ver usuarios del broker y su jerarquía"},
	{"users", "create", "crear usuarios"},
	{"users", "update", "editar usuarios"},
	{"users", "update:own", "editar el perfil propio"},
	{"users", "delete", "desactivar usuarios"},
	{"users", "assign:roles", "asignar y quitar roles"},
	{"brokers", "read", "ver la jerarquía de brokers"},
	{"clients", "read", "ver clientes de la jerarquía"},
	{"clients", "read:own", "ver clientes del broker propio"},
	{"clients", "create", "crear clientes"},
	{"clients", "update", "editar clientes"},
	{"invitations", "create", "invitar sub-brokers"},
	{"invitations", "read", "ver invitaciones enviadas"},
	{"roles", "read", "ver roles y permisos"},
	{"roles", "manage", "administrar roles y permisos"},
}

// rolePermissionSeed mapea cada rol canónico a sus permisos por "resource:action".
var rolePermissionSeed = map[string][]string{
	RoleBrokerAdmin: {
		"users:read", "users:create", "users:update", "users:update:own",
		"users:delete", "users:assign:roles",
		"brokers:read",
		"clients:read", "clients:read:own", "clients:create", "clients:update",
		"invitations:create", "invitations:read",
		"roles:read", "roles:manage",
	},
	RoleEmployee: {
		"users:read", "users:update:own",
		"brokers:read",
		"clients:read", "clients:read:own", "clients:create", "clients:update",
	},
	RoleAgent: {
		"users:update:own",
		"clients:read:own", "clients:create",
	},
}

// Seed instala los tres roles canónicos y sus permisos si no existen.
// Idempotente: correr sobre una base ya sembrada no duplica filas.
func Seed(ctx context.Context, svc *Service) error {
	permIDs := map[string]string{}
	for _, sp := range seedPermissions {
		p, err := svc.CreatePermission(ctx, CreatePermissionInput{
			Resource:    sp.resource,
			Action:      sp.action,
			Description: sp.description,
		})
		if err != nil {
			if !errors.Is(err, ErrConflict) {
				return err
			}
			existing, gerr := svc.repo.GetPermission(ctx, sp.resource, sp.action)
			if gerr != nil {
				return gerr
			}
			p = existing
		}
		permIDs[p.String()] = p.ID
	}

	levels := map[string]int{
		RoleBrokerAdmin: LevelBrokerAdmin,
		RoleEmployee:    LevelEmployee,
		RoleAgent:       LevelAgent,
	}

	for name, perms := range rolePermissionSeed {
		r, err := svc.CreateRole(ctx, CreateRoleInput{
			Name:  name,
			Level: levels[name],
		})
		if err != nil {
			if !errors.Is(err, ErrConflict) {
				return err
			}
			existing, gerr := svc.repo.GetRoleByName(ctx, name)
			if gerr != nil {
				return gerr
			}
			r = existing
		}

		for _, key := range perms {
			pid, ok := permIDs[key]
			if !ok {
				continue
			}
			if err := svc.AttachPermission(ctx, r.ID, pid); err != nil && !errors.Is(err, ErrConflict) {
				return err
			}
		}
	}
	return nil
}
