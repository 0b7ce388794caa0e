package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "github.com/jmjalil96/CotizateAlgo/internal/adapters/storage/memory"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/brokers"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
)

// fixture arma el escenario estándar sobre el store in-memory:
//
//	root ── child          (brokers)
//	admin@root, agent@child, outsider@other-root, system (sin broker)
//
// admin tiene el rol manager (users:*), agent solo users:update:own.
type fixture struct {
	svc     *Service
	rbacSvc *rbac.Service

	root, child, other brokers.Broker

	managerRole, limitedRole rbac.Role
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := mem.NewStore()
	brokersSvc := brokers.NewService(mem.NewBrokersRepo(store))
	usersSvc := users.NewService(mem.NewUsersRepo(store))
	rbacRepo := mem.NewRBACRepo(store)
	rbacSvc := rbac.NewService(rbacRepo, store)
	engine := rbac.NewEngine(rbacRepo, usersSvc, brokersSvc)

	f := &fixture{
		svc:     NewService(engine, rbacSvc, usersSvc, nil),
		rbacSvc: rbacSvc,
	}

	var err error
	f.root, err = brokersSvc.Create(ctx, brokers.CreateInput{Name: "root"})
	require.NoError(t, err)
	f.child, err = brokersSvc.Create(ctx, brokers.CreateInput{Name: "child", ParentID: &f.root.ID})
	require.NoError(t, err)
	f.other, err = brokersSvc.Create(ctx, brokers.CreateInput{Name: "other"})
	require.NoError(t, err)

	mkUser := func(id string, brokerID *string) {
		_, err := usersSvc.Create(ctx, users.CreateInput{
			ID:        id,
			FirstName: id,
			CedulaRuc: "ced-" + id,
			BrokerID:  brokerID,
		})
		require.NoError(t, err)
	}
	mkUser("admin", &f.root.ID)
	mkUser("agent", &f.child.ID)
	mkUser("outsider", &f.other.ID)
	mkUser("system", nil)

	f.managerRole, err = rbacSvc.CreateRole(ctx, rbac.CreateRoleInput{Name: "manager", Level: 1})
	require.NoError(t, err)
	f.limitedRole, err = rbacSvc.CreateRole(ctx, rbac.CreateRoleInput{Name: "limited", Level: 3})
	require.NoError(t, err)

	attach := func(roleID, resource, action string) {
		p, err := rbacSvc.CreatePermission(ctx, rbac.CreatePermissionInput{Resource: resource, Action: action})
		if err != nil {
			p, err = f.permByPair(ctx, resource, action)
			require.NoError(t, err)
		}
		require.NoError(t, rbacSvc.AttachPermission(ctx, roleID, p.ID))
	}
	attach(f.managerRole.ID, "users", "read")
	attach(f.managerRole.ID, "users", "update")
	attach(f.managerRole.ID, "users", "update:own")
	attach(f.managerRole.ID, "users", "delete")
	attach(f.managerRole.ID, "users", "assign:roles")
	attach(f.limitedRole.ID, "users", "update:own")

	require.NoError(t, rbacSvc.AssignRole(ctx, "admin", f.managerRole.ID, "admin"))
	require.NoError(t, rbacSvc.AssignRole(ctx, "agent", f.limitedRole.ID, "admin"))

	return f
}

func (f *fixture) permByPair(ctx context.Context, resource, action string) (rbac.Permission, error) {
	perms, err := f.rbacSvc.ListPermissions(ctx)
	if err != nil {
		return rbac.Permission{}, err
	}
	for _, p := range perms {
		if p.Resource == resource && p.Action == action {
			return p, nil
		}
	}
	return rbac.Permission{}, rbac.ErrNotFound
}

func (f *fixture) rootScope() []string {
	return []string{f.root.ID, f.child.ID}
}

func TestCheckUserPermission_AccessGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// target dentro de la jerarquía
	allowed, err := f.svc.CheckUserPermission(ctx, "agent", "users:update:own", f.rootScope())
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = f.svc.CheckUserPermission(ctx, "agent", "users:delete", f.rootScope())
	require.NoError(t, err)
	assert.False(t, allowed)

	// target fuera del set accesible
	_, err = f.svc.CheckUserPermission(ctx, "outsider", "users:read", f.rootScope())
	assert.ErrorIs(t, err, ErrForbidden)

	// target inexistente
	_, err = f.svc.CheckUserPermission(ctx, "ghost", "users:read", f.rootScope())
	assert.ErrorIs(t, err, ErrNotFound)

	// los usuarios de sistema no son un target válido de chequeos cross-user
	_, err = f.svc.CheckUserPermission(ctx, "system", "users:read", f.rootScope())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCanUserManageUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// admin gestiona a cualquiera
	res, err := f.svc.CanUserManageUser(ctx, "admin", "agent")
	require.NoError(t, err)
	assert.True(t, res.CanManage)
	assert.False(t, res.IsSelfManagement)

	// sin permisos de gestión no hay nada que discutir
	res, err = f.svc.CanUserManageUser(ctx, "agent", "admin")
	require.NoError(t, err)
	assert.False(t, res.CanManage)
	assert.Equal(t, "manager lacks user management permissions", res.Reason)

	// auto-gestión pide además users:update:own; admin lo tiene
	res, err = f.svc.CanUserManageUser(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.True(t, res.CanManage)
	assert.True(t, res.IsSelfManagement)
}

func TestCanUserManageUser_SelfWithoutOwnPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// un rol con users:update pero sin users:update:own no alcanza para
	// auto-gestión
	role, err := f.rbacSvc.CreateRole(ctx, rbac.CreateRoleInput{Name: "updater", Level: 2})
	require.NoError(t, err)
	p, err := f.permByPair(ctx, "users", "update")
	require.NoError(t, err)
	require.NoError(t, f.rbacSvc.AttachPermission(ctx, role.ID, p.ID))
	require.NoError(t, f.rbacSvc.AssignRole(ctx, "outsider", role.ID, "admin"))

	res, err := f.svc.CanUserManageUser(ctx, "outsider", "outsider")
	require.NoError(t, err)
	assert.False(t, res.CanManage)
	assert.True(t, res.IsSelfManagement)
	assert.Equal(t, "self management requires users:update:own", res.Reason)
}

func TestFilterUsersByPermission_Partition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.FilterUsersByPermission(
		ctx,
		[]string{"admin", "agent", "outsider", "ghost"},
		"users:update:own",
		f.rootScope(),
	)
	require.NoError(t, err)

	// admin y agent tienen el permiso y están dentro del scope; outsider queda
	// fuera del scope y ghost no existe: ambos van a Unauthorized, no se pierden
	assert.Equal(t, []string{"admin", "agent"}, res.Authorized)
	assert.Equal(t, []string{"outsider", "ghost"}, res.Unauthorized)
}

func TestFilterUsersByPermission_MalformedPermission(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.FilterUsersByPermission(context.Background(), []string{"admin"}, "nope", f.rootScope())
	assert.ErrorIs(t, err, rbac.ErrInvalidInput)
}

func TestValidateRoleAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// caso feliz
	res, err := f.svc.ValidateRoleAssignment(ctx, "admin", "agent", f.managerRole.ID)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	// assigner sin users:assign:roles
	res, err = f.svc.ValidateRoleAssignment(ctx, "agent", "admin", f.limitedRole.ID)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "assigner lacks users:assign:roles", res.Reason)

	// target inexistente
	res, err = f.svc.ValidateRoleAssignment(ctx, "admin", "ghost", f.managerRole.ID)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "target user not found", res.Reason)

	// rol inexistente
	res, err = f.svc.ValidateRoleAssignment(ctx, "admin", "agent", "no-such-role")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "role not found", res.Reason)

	// el target ya tiene el rol
	res, err = f.svc.ValidateRoleAssignment(ctx, "admin", "agent", f.limitedRole.ID)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "target already has role", res.Reason)
}

func TestResourceAccessMatrix(t *testing.T) {
	f := newFixture(t)

	matrix, err := f.svc.ResourceAccessMatrix(
		context.Background(),
		[]string{"admin", "agent"},
		[]string{"users:read", "users:update:own"},
	)
	require.NoError(t, err)

	assert.True(t, matrix["admin"]["users:read"])
	assert.True(t, matrix["admin"]["users:update:own"])
	assert.False(t, matrix["agent"]["users:read"])
	assert.True(t, matrix["agent"]["users:update:own"])
}
