package router

import (
	"context"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/brokers"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
	"github.com/jmjalil96/CotizateAlgo/internal/middleware"
	"github.com/jmjalil96/CotizateAlgo/internal/ports/auth"
)

// authInfoBuilder arma el contexto de autorización por request: perfil,
// roles/permisos y el set de brokers accesibles desde el broker propio.
type authInfoBuilder struct {
	users   *users.Service
	engine  *rbac.Engine
	brokers *brokers.Service
}

// Build carga el AuthInfo para una identidad ya verificada. Un perfil
// inexistente o inactivo no produce contexto: el request sigue como anónimo.
func (b *authInfoBuilder) Build(ctx context.Context, claims auth.Claims) (middleware.AuthInfo, bool) {
	profile, err := b.users.GetByID(ctx, claims.UserID)
	if err != nil || !profile.IsActive {
		return middleware.AuthInfo{}, false
	}

	info := middleware.AuthInfo{
		UserID:      profile.ID,
		Email:       claims.Email,
		Roles:       []string{},
		Permissions: []string{},
	}

	if summary, err := b.engine.UserPermissions(ctx, profile.ID); err == nil {
		info.Permissions = summary.Permissions
	}
	if roles, err := b.engine.UserRoles(ctx, profile.ID); err == nil {
		info.Roles = roles
	}

	if profile.IsSystemUser() {
		info.AccessibleBrokerIDs = []string{}
		return info, true
	}

	info.BrokerID = *profile.BrokerID
	info.AccessibleBrokerIDs = b.brokers.DescendantBrokerIDs(ctx, info.BrokerID)
	info.HierarchyLevel = len(b.brokers.AncestorBrokerIDs(ctx, info.BrokerID))

	if broker, err := b.brokers.GetByID(ctx, info.BrokerID); err == nil {
		info.IsRootBroker = broker.IsRoot()
	}
	return info, true
}
