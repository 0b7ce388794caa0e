package rbac

import (
	"context"
	"strings"
)

// ProfileSource expone el broker de un perfil sin importar el módulo users
// (evita ciclos de imports; el engine solo necesita este dato).
// Un usuario de sistema no tiene broker: brokerID vacío y sin error.
type ProfileSource interface {
	BrokerOf(ctx context.Context, userID string) (brokerID string, err error)
}

// Hierarchy es la parte del servicio de brokers que el engine consume.
type Hierarchy interface {
	CanUserAccessBroker(ctx context.Context, userBrokerID, targetBrokerID string) bool
	DescendantBrokerIDs(ctx context.Context, rootID string) []string
}

// Engine resuelve roles → permisos de un usuario y evalúa permission strings
// contra un broker objetivo.
//
// Política de errores: strings malformados fallan rápido con ErrInvalidInput;
// cualquier error de persistencia durante una evaluación degrada a false/vacío.
// Una consulta de autorización rota debe negar, no tumbar el request.
type Engine struct {
	repo      Repository
	profiles  ProfileSource
	hierarchy Hierarchy
}

func NewEngine(repo Repository, profiles ProfileSource, hierarchy Hierarchy) *Engine {
	return &Engine{
		repo:      repo,
		profiles:  profiles,
		hierarchy: hierarchy,
	}
}

// UserHasPermission responde si algún rol del usuario tiene una fila de
// permiso que matchee (resource, action) exacto. El action puede contener
// más ':' (p.ej. "assign:roles").
func (e *Engine) UserHasPermission(ctx context.Context, userID, permission string) (bool, error) {
	perm, err := ParsePerm(permission)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(userID) == "" {
		return false, ErrInvalidInput
	}

	roles, err := e.repo.ListUserRoles(ctx, userID)
	if err != nil {
		return false, nil
	}
	for _, r := range roles {
		perms, err := e.repo.ListRolePermissions(ctx, r.ID)
		if err != nil {
			continue
		}
		for _, p := range perms {
			if p.Resource == perm.Resource && p.Action == perm.Action {
				return true, nil
			}
		}
	}
	return false, nil
}

// DetailedPermission conserva de qué rol salió un permiso. Cuando el mismo
// permiso viene de varios roles, gana el primer rol encontrado; los duplicados
// se descartan en silencio.
type DetailedPermission struct {
	Permission  string
	Resource    string
	Action      string
	Description string
	FromRole    string
}

// PermissionSummary es la unión de permisos sobre todos los roles del usuario.
type PermissionSummary struct {
	Permissions []string
	Detailed    []DetailedPermission
	RoleCount   int
}

// UserPermissions calcula la unión deduplicada de permission strings del
// usuario, en orden de enumeración de roles.
func (e *Engine) UserPermissions(ctx context.Context, userID string) (PermissionSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return PermissionSummary{}, ErrInvalidInput
	}

	out := PermissionSummary{
		Permissions: []string{},
		Detailed:    []DetailedPermission{},
	}

	roles, err := e.repo.ListUserRoles(ctx, userID)
	if err != nil {
		return out, nil
	}
	out.RoleCount = len(roles)

	seen := map[string]struct{}{}
	for _, r := range roles {
		perms, err := e.repo.ListRolePermissions(ctx, r.ID)
		if err != nil {
			continue
		}
		for _, p := range perms {
			key := p.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			out.Permissions = append(out.Permissions, key)
			out.Detailed = append(out.Detailed, DetailedPermission{
				Permission:  key,
				Resource:    p.Resource,
				Action:      p.Action,
				Description: p.Description,
				FromRole:    r.Name,
			})
		}
	}
	return out, nil
}

// UserRoles devuelve los nombres de rol del usuario en orden de asignación.
func (e *Engine) UserRoles(ctx context.Context, userID string) ([]string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	roles, err := e.repo.ListUserRoles(ctx, userID)
	if err != nil {
		return []string{}, nil
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// IsPermissionBrokerScoped clasifica un permission string sin consultar datos:
// scope ":own" o recurso en la lista de sensibles.
func (e *Engine) IsPermissionBrokerScoped(permission string) (bool, error) {
	perm, err := ParsePerm(permission)
	if err != nil {
		return false, err
	}
	return perm.BrokerScoped(), nil
}

// UserHasPermissionInBroker evalúa en dos etapas:
//  1. el usuario debe tener el grant base (resource:action, compuesto entero);
//  2. sin scope: acceso por jerarquía vía CanUserAccessBroker — salvo usuario
//     de sistema (sin broker), que pasa directo una vez superada la etapa 1;
//  3. scope ":own": exige igualdad exacta de broker, sin recorrer jerarquía.
func (e *Engine) UserHasPermissionInBroker(ctx context.Context, userID, permission, targetBrokerID string) (bool, error) {
	perm, err := ParsePerm(permission)
	if err != nil {
		return false, err
	}
	targetBrokerID = strings.TrimSpace(targetBrokerID)
	if targetBrokerID == "" {
		return false, ErrInvalidInput
	}

	has, err := e.UserHasPermission(ctx, userID, perm.String())
	if err != nil {
		return false, err
	}
	if !has {
		return false, nil
	}

	userBrokerID, err := e.profiles.BrokerOf(ctx, userID)
	if err != nil {
		return false, nil
	}
	if userBrokerID == "" {
		// Usuario de sistema: sin scope de jerarquía.
		return true, nil
	}

	if perm.OwnScoped {
		// "own" es literalmente el broker propio, no "propio o debajo".
		return userBrokerID == targetBrokerID, nil
	}
	return e.hierarchy.CanUserAccessBroker(ctx, userBrokerID, targetBrokerID), nil
}

// EffectiveBrokerIDs devuelve los ids de broker sobre los que el usuario puede
// aplicar el permiso: vacío si falta el grant base o no tiene broker, solo el
// broker propio para ":own", y el set completo de descendientes en el resto.
func (e *Engine) EffectiveBrokerIDs(ctx context.Context, userID, permission string) ([]string, error) {
	perm, err := ParsePerm(permission)
	if err != nil {
		return nil, err
	}

	has, err := e.UserHasPermission(ctx, userID, perm.String())
	if err != nil {
		return nil, err
	}
	if !has {
		return []string{}, nil
	}

	userBrokerID, err := e.profiles.BrokerOf(ctx, userID)
	if err != nil || userBrokerID == "" {
		return []string{}, nil
	}

	if perm.OwnScoped {
		return []string{userBrokerID}, nil
	}
	return e.hierarchy.DescendantBrokerIDs(ctx, userBrokerID), nil
}
