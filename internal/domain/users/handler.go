package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/middleware"
)

// MountRoutes registra las rutas de lectura de usuarios sobre el subrouter
// /users. Las rutas de gestión (update, deactivate, roles) las registra el
// módulo authz sobre el mismo subrouter porque dependen de sus chequeos
// compuestos.
func MountRoutes(ur chi.Router, svc *Service, engine *rbac.Engine) {
	ur.With(
		middleware.RequirePermission("users:read"),
		middleware.RequireBrokerAccess(middleware.ScopeHierarchy, false),
	).Get("/", listUsersHandler(svc))

	ur.With(
		middleware.RequirePermission("users:read"),
		middleware.RequireBrokerAccess(middleware.ScopeHierarchy, true),
	).Get("/{userID}", getUserHandler(svc))

	ur.Get("/{userID}/permissions", userPermissionsHandler(engine))
}

type profileResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CedulaRuc string    `json:"cedula_ruc"`
	Phone     string    `json:"phone"`
	BrokerID  *string   `json:"broker_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type detailedPermissionResponse struct {
	Permission  string `json:"permission"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
	FromRole    string `json:"from_role"`
}

type permissionSummaryResponse struct {
	Permissions []string                     `json:"permissions"`
	Detailed    []detailedPermissionResponse `json:"detailed"`
	RoleCount   int                          `json:"role_count"`
}

// listUsersHandler godoc
// @Summary Listar usuarios visibles
// @Description Lista los perfiles de los brokers accesibles desde la jerarquía del usuario autenticado. Requiere el permiso `users:read`.
// @Tags users
// @Produce json
// @Param Authorization header string false "Bearer token en producción"
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Success 200 {array} profileResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /users [get]
func listUsersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, ok := middleware.GetBrokerFilter(r.Context())
		if !ok {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		items, err := svc.ListByBrokers(r.Context(), filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]profileResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toProfileResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, _ := middleware.GetAuthInfo(r.Context())
		userID := chi.URLParam(r, "userID")

		p, err := svc.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		// Usuario de sistema pasa sin filtro; el resto solo ve perfiles
		// dentro de su jerarquía.
		if info.BrokerID != "" {
			filter, ok := middleware.GetBrokerFilter(r.Context())
			if !ok {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if p.BrokerID == nil || !containsID(filter, *p.BrokerID) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		writeJSON(w, http.StatusOK, toProfileResponse(p))
	}
}

// userPermissionsHandler expone la unión de permisos de un usuario.
// Cada usuario puede ver los propios; ver los de otro exige users:read.
func userPermissionsHandler(engine *rbac.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := middleware.GetAuthInfo(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		userID := chi.URLParam(r, "userID")
		if userID != info.UserID && !containsID(info.Permissions, "users:read") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		summary, err := engine.UserPermissions(r.Context(), userID)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}

		out := permissionSummaryResponse{
			Permissions: summary.Permissions,
			Detailed:    make([]detailedPermissionResponse, 0, len(summary.Detailed)),
			RoleCount:   summary.RoleCount,
		}
		for _, d := range summary.Detailed {
			out.Detailed = append(out.Detailed, detailedPermissionResponse{
				Permission:  d.Permission,
				Resource:    d.Resource,
				Action:      d.Action,
				Description: d.Description,
				FromRole:    d.FromRole,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toProfileResponse(p Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		CedulaRuc: p.CedulaRuc,
		Phone:     p.Phone,
		BrokerID:  p.BrokerID,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
