package rbac

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmjalil96/CotizateAlgo/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/roles", func(rr chi.Router) {
		rr.Use(middleware.RequireAuth)

		rr.With(middleware.RequirePermission("roles:read")).Get("/", listRolesHandler(svc))
		rr.With(middleware.RequirePermission("roles:read")).Get("/{roleID}", getRoleHandler(svc))
		rr.With(middleware.RequirePermission("roles:read")).Get("/{roleID}/permissions", listRolePermissionsHandler(svc))

		rr.Group(func(mr chi.Router) {
			mr.Use(middleware.RequirePermission("roles:manage"))
			mr.Post("/", createRoleHandler(svc))
			mr.Delete("/{roleID}", deleteRoleHandler(svc))
			mr.Put("/{roleID}/permissions", replaceRolePermissionsHandler(svc))
			mr.Post("/{roleID}/permissions/{permissionID}", attachPermissionHandler(svc))
			mr.Delete("/{roleID}/permissions/{permissionID}", detachPermissionHandler(svc))
		})
	})

	r.Route("/permissions", func(pr chi.Router) {
		pr.Use(middleware.RequireAuth)

		pr.With(middleware.RequirePermission("roles:read")).Get("/", listPermissionsHandler(svc))
		pr.With(middleware.RequirePermission("roles:manage")).Post("/", createPermissionHandler(svc))
		pr.With(middleware.RequirePermission("roles:manage")).Delete("/{permissionID}", deletePermissionHandler(svc))
	})
}

type createRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Level       int    `json:"level"`
}

type roleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Level       int       `json:"level"`
	CreatedAt   time.Time `json:"created_at"`
}

type createPermissionRequest struct {
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

type permissionResponse struct {
	ID          string `json:"id"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
	Permission  string `json:"permission"`
}

type replaceRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

// createRoleHandler godoc
// @Summary Crear rol
// @Description Crea un rol con nombre único. Requiere el permiso `roles:manage`.
// @Tags rbac
// @Accept json
// @Produce json
// @Param payload body createRoleRequest true "Datos del rol"
// @Success 201 {object} roleResponse
// @Failure 400 {string} string "invalid json / datos incompletos"
// @Failure 409 {string} string "nombre de rol ya existe"
// @Router /roles [post]
func createRoleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		role, err := svc.CreateRole(r.Context(), CreateRoleInput{
			Name:        req.Name,
			Description: req.Description,
			Level:       req.Level,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toRoleResponse(role))
	}
}

func listRolesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles, err := svc.ListRoles(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]roleResponse, 0, len(roles))
		for _, role := range roles {
			out = append(out, toRoleResponse(role))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getRoleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := svc.GetRole(r.Context(), chi.URLParam(r, "roleID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRoleResponse(role))
	}
}

// deleteRoleHandler rechaza con 409 si el rol todavía tiene usuarios.
func deleteRoleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteRole(r.Context(), chi.URLParam(r, "roleID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createPermissionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPermissionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.CreatePermission(r.Context(), CreatePermissionInput{
			Resource:    req.Resource,
			Action:      req.Action,
			Description: req.Description,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPermissionResponse(p))
	}
}

func listPermissionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perms, err := svc.ListPermissions(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]permissionResponse, 0, len(perms))
		for _, p := range perms {
			out = append(out, toPermissionResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deletePermissionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeletePermission(r.Context(), chi.URLParam(r, "permissionID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listRolePermissionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roleID := chi.URLParam(r, "roleID")
		if _, err := svc.GetRole(r.Context(), roleID); err != nil {
			writeServiceError(w, err)
			return
		}

		perms, err := svc.repo.ListRolePermissions(r.Context(), roleID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]permissionResponse, 0, len(perms))
		for _, p := range perms {
			out = append(out, toPermissionResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func attachPermissionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.AttachPermission(r.Context(), chi.URLParam(r, "roleID"), chi.URLParam(r, "permissionID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func detachPermissionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.DetachPermission(r.Context(), chi.URLParam(r, "roleID"), chi.URLParam(r, "permissionID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// replaceRolePermissionsHandler reemplaza el set completo de forma atómica.
func replaceRolePermissionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req replaceRolePermissionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		err := svc.ReplaceRolePermissions(r.Context(), chi.URLParam(r, "roleID"), req.PermissionIDs)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toRoleResponse(role Role) roleResponse {
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Level:       role.Level,
		CreatedAt:   role.CreatedAt,
	}
}

func toPermissionResponse(p Permission) permissionResponse {
	return permissionResponse{
		ID:          p.ID,
		Resource:    p.Resource,
		Action:      p.Action,
		Description: p.Description,
		Permission:  p.String(),
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
