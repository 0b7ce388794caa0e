package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/brokers"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/clients"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/invitations"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
)

var ErrNotFound = errors.New("not found")

// Store agrupa todas las tablas in-memory en una sola estructura para que
// RunInTx pueda snapshotear y revertir el estado completo.
//
// Los joins RBAC van en slices para preservar orden de inserción: la
// atribución "gana el primer rol visto" del engine depende de enumerar roles
// en orden estable.
type Store struct {
	mu sync.RWMutex

	brokers     map[string]brokers.Broker
	profiles    map[string]users.Profile
	roles       map[string]rbac.Role
	permissions map[string]rbac.Permission
	rolePerms   []rbac.RolePermission
	userRoles   []rbac.UserRole
	invitations map[string]invitations.Invitation
	clients     map[string]clients.Client
}

func NewStore() *Store {
	return &Store{
		brokers:     make(map[string]brokers.Broker),
		profiles:    make(map[string]users.Profile),
		roles:       make(map[string]rbac.Role),
		permissions: make(map[string]rbac.Permission),
		rolePerms:   []rbac.RolePermission{},
		userRoles:   []rbac.UserRole{},
		invitations: make(map[string]invitations.Invitation),
		clients:     make(map[string]clients.Client),
	}
}

type snapshot struct {
	brokers     map[string]brokers.Broker
	profiles    map[string]users.Profile
	roles       map[string]rbac.Role
	permissions map[string]rbac.Permission
	rolePerms   []rbac.RolePermission
	userRoles   []rbac.UserRole
	invitations map[string]invitations.Invitation
	clients     map[string]clients.Client
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) snapshotLocked() snapshot {
	return snapshot{
		brokers:     copyMap(s.brokers),
		profiles:    copyMap(s.profiles),
		roles:       copyMap(s.roles),
		permissions: copyMap(s.permissions),
		rolePerms:   append([]rbac.RolePermission{}, s.rolePerms...),
		userRoles:   append([]rbac.UserRole{}, s.userRoles...),
		invitations: copyMap(s.invitations),
		clients:     copyMap(s.clients),
	}
}

func (s *Store) restoreLocked(snap snapshot) {
	s.brokers = snap.brokers
	s.profiles = snap.profiles
	s.roles = snap.roles
	s.permissions = snap.permissions
	s.rolePerms = snap.rolePerms
	s.userRoles = snap.userRoles
	s.invitations = snap.invitations
	s.clients = snap.clients
}

// RunInTx implementa storage.TxManager con snapshot + restore: si fn falla,
// el estado vuelve exactamente a lo que había antes.
// No hay aislamiento entre transacciones concurrentes; alcanza para dev y
// tests, que es el único uso de este adapter.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.restoreLocked(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}
