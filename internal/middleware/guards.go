package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

// BrokerScope controla qué filtro de brokers recibe el handler.
type BrokerScope string

const (
	// ScopeOwn limita al broker propio del usuario.
	ScopeOwn BrokerScope = "own"
	// ScopeHierarchy habilita el broker propio más todos sus descendientes.
	ScopeHierarchy BrokerScope = "hierarchy"
)

type brokerFilterKey struct{}

// GetBrokerFilter devuelve los broker IDs autorizados para el request,
// colgados por RequireBrokerAccess.
func GetBrokerFilter(ctx context.Context) ([]string, bool) {
	v := ctx.Value(brokerFilterKey{})
	if v == nil {
		return nil, false
	}
	ids, ok := v.([]string)
	return ids, ok
}

// RequireAuth corta con 401 si el request no trae identidad verificada.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetClaims(r.Context()); !ok {
			writeGuardError(w, http.StatusUnauthorized, "no autenticado")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission corta con 403 si el usuario no tiene el permiso base.
// La evaluación es por membresía exacta sobre los permisos ya cargados
// en el AuthInfo del request.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := GetAuthInfo(r.Context())
			if !ok {
				if _, authed := GetClaims(r.Context()); authed {
					writeGuardError(w, http.StatusInternalServerError, "contexto de autorización no disponible")
					return
				}
				writeGuardError(w, http.StatusUnauthorized, "no autenticado")
				return
			}
			for _, p := range info.Permissions {
				if p == permission {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeGuardError(w, http.StatusForbidden, "permiso insuficiente")
		})
	}
}

// RequireBrokerAccess resuelve el filtro de brokers del request según el
// scope y lo cuelga del contexto para los handlers de listado/lectura.
//
// Usuarios de sistema no tienen broker: se rechazan con 403 salvo que
// allowSystem sea true, en cuyo caso pasan sin filtro colgado.
func RequireBrokerAccess(scope BrokerScope, allowSystem bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := GetAuthInfo(r.Context())
			if !ok {
				if _, authed := GetClaims(r.Context()); authed {
					// Hay identidad pero nadie armó el contexto: bug de
					// orden de middlewares, no un problema del cliente.
					writeGuardError(w, http.StatusInternalServerError, "contexto de autorización no disponible")
					return
				}
				writeGuardError(w, http.StatusUnauthorized, "no autenticado")
				return
			}

			if info.BrokerID == "" {
				if allowSystem {
					next.ServeHTTP(w, r)
					return
				}
				writeGuardError(w, http.StatusForbidden, "usuario sin broker asignado")
				return
			}

			var filter []string
			switch scope {
			case ScopeOwn:
				filter = []string{info.BrokerID}
			case ScopeHierarchy:
				filter = info.AccessibleBrokerIDs
				if len(filter) == 0 {
					filter = []string{info.BrokerID}
				}
			default:
				writeGuardError(w, http.StatusInternalServerError, "scope de broker desconocido")
				return
			}

			ctx := context.WithValue(r.Context(), brokerFilterKey{}, filter)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeGuardError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
