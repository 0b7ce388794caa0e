package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// engineRepo implementa solo la parte de Repository que el engine consume.
// El resto de la interfaz queda en el embedded nil: si el engine tocara algo
// más, el test explota y es señal de que el fake quedó corto.
type engineRepo struct {
	Repository

	userRoles map[string][]Role
	rolePerms map[string][]Permission

	failUserRoles bool
}

func (r *engineRepo) ListUserRoles(ctx context.Context, userID string) ([]Role, error) {
	if r.failUserRoles {
		return nil, errors.New("repo: down")
	}
	return r.userRoles[userID], nil
}

func (r *engineRepo) ListRolePermissions(ctx context.Context, roleID string) ([]Permission, error) {
	return r.rolePerms[roleID], nil
}

type profileSourceFunc func(ctx context.Context, userID string) (string, error)

func (f profileSourceFunc) BrokerOf(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// stubHierarchy responde acceso por pertenencia a un árbol plano: cada broker
// accede a sí mismo y a los hijos declarados en children.
type stubHierarchy struct {
	children map[string][]string
}

func (h *stubHierarchy) DescendantBrokerIDs(ctx context.Context, rootID string) []string {
	return append([]string{rootID}, h.children[rootID]...)
}

func (h *stubHierarchy) CanUserAccessBroker(ctx context.Context, userBrokerID, targetBrokerID string) bool {
	if userBrokerID == targetBrokerID {
		return true
	}
	for _, id := range h.children[userBrokerID] {
		if id == targetBrokerID {
			return true
		}
	}
	return false
}

func perm(resource, action string) Permission {
	return Permission{ID: resource + ":" + action, Resource: resource, Action: action}
}

// newTestEngine arma un engine con dos usuarios fijos:
//   - "admin" en broker-1 con clients:read, clients:create y users:assign:roles
//   - "agent" en broker-2 con clients:read:own y users:update:own
//   - "system" sin broker, con users:read
func newTestEngine() *Engine {
	repo := &engineRepo{
		userRoles: map[string][]Role{
			"admin":  {{ID: "r-admin", Name: RoleBrokerAdmin}},
			"agent":  {{ID: "r-agent", Name: RoleAgent}},
			"system": {{ID: "r-sys", Name: "system"}},
		},
		rolePerms: map[string][]Permission{
			"r-admin": {
				perm("clients", "read"),
				perm("clients", "create"),
				perm("users", "assign:roles"),
			},
			"r-agent": {
				perm("clients", "read:own"),
				perm("users", "update:own"),
			},
			"r-sys": {perm("users", "read")},
		},
	}

	profiles := profileSourceFunc(func(_ context.Context, userID string) (string, error) {
		switch userID {
		case "admin":
			return "broker-1", nil
		case "agent":
			return "broker-2", nil
		case "system":
			return "", nil
		default:
			return "", errors.New("profile not found")
		}
	})

	hierarchy := &stubHierarchy{children: map[string][]string{
		"broker-1": {"broker-2"},
	}}

	return NewEngine(repo, profiles, hierarchy)
}

func TestUserHasPermission_ExactCompoundMatch(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	ok, err := e.UserHasPermission(ctx, "admin", "users:assign:roles")
	require.NoError(t, err)
	assert.True(t, ok, "compound action must match as a whole")

	ok, err = e.UserHasPermission(ctx, "admin", "users:assign")
	require.NoError(t, err)
	assert.False(t, ok, "prefix of a compound action must not match")

	// Un token de scope desconocido queda dentro de Action y no matchea nada.
	ok, err = e.UserHasPermission(ctx, "admin", "clients:read:all")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserHasPermission_OwnIsADistinctGrant(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	ok, err := e.UserHasPermission(ctx, "agent", "clients:read:own")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.UserHasPermission(ctx, "agent", "clients:read")
	require.NoError(t, err)
	assert.False(t, ok, "own grant must not imply the base grant")
}

func TestUserHasPermission_MalformedString(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	for _, bad := range []string{"", "users", ":read", "users:", "   "} {
		_, err := e.UserHasPermission(ctx, "admin", bad)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", bad)
	}
}

func TestUserHasPermission_RepoErrorDegradesToFalse(t *testing.T) {
	repo := &engineRepo{failUserRoles: true}
	e := NewEngine(repo, profileSourceFunc(func(context.Context, string) (string, error) {
		return "", nil
	}), &stubHierarchy{})

	ok, err := e.UserHasPermission(context.Background(), "admin", "clients:read")
	require.NoError(t, err, "persistence errors must not become request errors")
	assert.False(t, ok)
}

func TestUserPermissions_DedupKeepsFirstRole(t *testing.T) {
	repo := &engineRepo{
		userRoles: map[string][]Role{
			"u1": {{ID: "r1", Name: "first"}, {ID: "r2", Name: "second"}},
		},
		rolePerms: map[string][]Permission{
			"r1": {perm("clients", "read")},
			"r2": {perm("clients", "read"), perm("clients", "update")},
		},
	}
	e := NewEngine(repo, profileSourceFunc(func(context.Context, string) (string, error) {
		return "broker-1", nil
	}), &stubHierarchy{})

	out, err := e.UserPermissions(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, []string{"clients:read", "clients:update"}, out.Permissions)
	assert.Equal(t, 2, out.RoleCount)

	require.Len(t, out.Detailed, 2)
	assert.Equal(t, "first", out.Detailed[0].FromRole, "duplicate keeps the first role seen")
	assert.Equal(t, "second", out.Detailed[1].FromRole)
}

func TestIsPermissionBrokerScoped(t *testing.T) {
	e := newTestEngine()

	cases := []struct {
		perm string
		want bool
	}{
		{"users:read", false},
		{"users:update:own", true},
		{"clients:read", true},
		{"policies:read", true},
		{"roles:manage", false},
	}
	for _, tc := range cases {
		got, err := e.IsPermissionBrokerScoped(tc.perm)
		require.NoError(t, err, tc.perm)
		assert.Equal(t, tc.want, got, tc.perm)
	}
}

func TestUserHasPermissionInBroker(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	// grant base + broker descendiente => permitido
	ok, err := e.UserHasPermissionInBroker(ctx, "admin", "clients:read", "broker-2")
	require.NoError(t, err)
	assert.True(t, ok)

	// sin grant base, el broker no importa
	ok, err = e.UserHasPermissionInBroker(ctx, "agent", "clients:read", "broker-2")
	require.NoError(t, err)
	assert.False(t, ok)

	// ":own" exige igualdad exacta, sin jerarquía
	ok, err = e.UserHasPermissionInBroker(ctx, "agent", "clients:read:own", "broker-2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.UserHasPermissionInBroker(ctx, "agent", "clients:read:own", "broker-1")
	require.NoError(t, err)
	assert.False(t, ok, "own must not climb the hierarchy")

	// usuario de sistema: pasa la etapa de broker una vez que tiene el grant
	ok, err = e.UserHasPermissionInBroker(ctx, "system", "users:read", "broker-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEffectiveBrokerIDs(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	// base grant: broker propio + descendientes
	ids, err := e.EffectiveBrokerIDs(ctx, "admin", "clients:read")
	require.NoError(t, err)
	assert.Equal(t, []string{"broker-1", "broker-2"}, ids)

	// own grant: solo el broker propio
	ids, err = e.EffectiveBrokerIDs(ctx, "agent", "clients:read:own")
	require.NoError(t, err)
	assert.Equal(t, []string{"broker-2"}, ids)

	// sin grant: vacío
	ids, err = e.EffectiveBrokerIDs(ctx, "agent", "clients:read")
	require.NoError(t, err)
	assert.Empty(t, ids)

	// usuario de sistema sin broker: vacío aunque tenga el grant
	ids, err = e.EffectiveBrokerIDs(ctx, "system", "users:read")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
