package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/jmjalil96/CotizateAlgo/internal/ports/auth"
)

type ctxKey string

const (
	claimsKey   ctxKey = "claims"
	authInfoKey ctxKey = "auth_info"
)

// AuthInfo es el contexto de autorización de un request autenticado.
// Se computa fresco en cada request; nunca se comparte entre requests.
type AuthInfo struct {
	UserID string
	Email  string

	// BrokerID vacío = usuario de sistema (sin scope de jerarquía).
	BrokerID            string
	AccessibleBrokerIDs []string
	HierarchyLevel      int
	IsRootBroker        bool

	Roles       []string
	Permissions []string
}

// AuthInfoBuilder arma el AuthInfo a partir de la identidad verificada.
// La implementación real vive en el router, que conoce los servicios de
// dominio; acá solo se necesita el contrato.
type AuthInfoBuilder interface {
	Build(ctx context.Context, claims auth.Claims) (AuthInfo, bool)
}

// AuthContext autentica el bearer token y cuelga claims + AuthInfo del
// request. No corta: los guards y handlers deciden 401/403.
//
// Modo dev (verifier nil): el header X-Debug-User-ID inyecta la identidad.
func AuthContext(verifier auth.AuthVerifier, builder AuthInfoBuilder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var claims auth.Claims
			var ok bool

			if verifier == nil {
				if uid := strings.TrimSpace(r.Header.Get("X-Debug-User-ID")); uid != "" {
					claims = auth.Claims{UserID: uid}
					ok = true
				}
			} else if token := bearerToken(r.Header.Get("Authorization")); token != "" {
				c, err := verifier.Verify(r.Context(), token)
				if err == nil {
					claims = c
					ok = true
				}
			}

			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			if builder != nil {
				if info, built := builder.Build(ctx, claims); built {
					ctx = context.WithValue(ctx, authInfoKey, info)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClaims(ctx context.Context) (auth.Claims, bool) {
	v := ctx.Value(claimsKey)
	if v == nil {
		return auth.Claims{}, false
	}
	c, ok := v.(auth.Claims)
	return c, ok
}

func GetAuthInfo(ctx context.Context) (AuthInfo, bool) {
	v := ctx.Value(authInfoKey)
	if v == nil {
		return AuthInfo{}, false
	}
	info, ok := v.(AuthInfo)
	return info, ok
}

func bearerToken(authHeader string) string {
	if strings.TrimSpace(authHeader) == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
