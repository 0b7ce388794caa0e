package rbac

import (
	"fmt"
	"strings"
)

// OwnScopeSuffix marca un permiso limitado al broker propio del usuario,
// sin recorrer la jerarquía.
const OwnScopeSuffix = ":own"

// brokerScopedResources es la lista fija de recursos sensibles que se
// consideran broker-scoped aunque el permiso no lleve ":own". policies y
// records no tienen permisos sembrados todavía; son placeholders deliberados
// para cuando esos módulos existan.
var brokerScopedResources = map[string]struct{}{
	"clients":     {},
	"policies":    {},
	"records":     {},
	"invitations": {},
}

// Perm es un permission string parseado una sola vez en el borde, en lugar de
// re-splitear strings por todo el engine.
//
// Resource es el texto antes del primer ':'. Action es TODO el resto, incluido
// un eventual sufijo ":own" (el match contra filas almacenadas usa siempre el
// compuesto completo; "clients:read:own" es un grant distinto de
// "clients:read"). Un token de scope desconocido queda dentro de Action y por
// lo tanto nunca matchea una fila almacenada.
type Perm struct {
	Resource  string
	Action    string
	OwnScoped bool
}

// ParsePerm valida y descompone "resource:action[:own]".
func ParsePerm(s string) (Perm, error) {
	s = strings.TrimSpace(s)

	idx := strings.Index(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return Perm{}, fmt.Errorf("%w: permission must be resource:action, got %q", ErrInvalidInput, s)
	}

	p := Perm{
		Resource: s[:idx],
		Action:   s[idx+1:],
	}
	p.OwnScoped = strings.HasSuffix(p.Action, OwnScopeSuffix) && len(p.Action) > len(OwnScopeSuffix)
	return p, nil
}

// String reconstruye la forma de cable.
func (p Perm) String() string {
	return p.Resource + ":" + p.Action
}

// BrokerScoped responde si el permiso aplica filtrado por broker: ya sea por
// scope ":own" o porque el recurso está en la lista de sensibles.
func (p Perm) BrokerScoped() bool {
	if p.OwnScoped {
		return true
	}
	_, ok := brokerScopedResources[p.Resource]
	return ok
}
