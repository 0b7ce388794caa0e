package authz

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
	"github.com/jmjalil96/CotizateAlgo/internal/middleware"
)

// RegisterRoutes registra los endpoints de consulta de autorización y el
// árbol completo /users: la parte de lectura la monta el módulo users y las
// rutas de gestión las registra este módulo, porque dependen de sus chequeos
// compuestos.
func RegisterRoutes(r chi.Router, svc *Service, usersSvc *users.Service, rbacSvc *rbac.Service, engine *rbac.Engine) {
	r.Route("/authz", func(ar chi.Router) {
		ar.Use(middleware.RequireAuth)
		ar.Use(middleware.RequireBrokerAccess(middleware.ScopeHierarchy, true))

		ar.Post("/check", checkPermissionHandler(svc))
		ar.Get("/can-manage/{targetUserID}", canManageHandler(svc))
		ar.Post("/filter-users", filterUsersHandler(svc))
		ar.Post("/role-assignment", validateRoleAssignmentHandler(svc))
		ar.Post("/access-matrix", accessMatrixHandler(svc))
	})

	r.Route("/users", func(ur chi.Router) {
		ur.Use(middleware.RequireAuth)

		users.MountRoutes(ur, usersSvc, engine)

		ur.Group(func(mr chi.Router) {
			mr.Use(middleware.RequireBrokerAccess(middleware.ScopeHierarchy, true))

			mr.Patch("/{userID}", updateUserHandler(svc, usersSvc))
			mr.Delete("/{userID}", deactivateUserHandler(svc, usersSvc))

			mr.Put("/{userID}/roles", replaceUserRolesHandler(svc, rbacSvc))
			mr.Post("/{userID}/roles/{roleID}", assignRoleHandler(svc, rbacSvc))
			mr.Delete("/{userID}/roles/{roleID}", removeRoleHandler(svc, rbacSvc))
			mr.Get("/{userID}/roles", listUserRolesHandler(svc, rbacSvc))
		})
	})
}

type checkPermissionRequest struct {
	UserID     string `json:"user_id"`
	Permission string `json:"permission"`
}

type checkPermissionResponse struct {
	UserID     string `json:"user_id"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

type canManageResponse struct {
	CanManage        bool   `json:"can_manage"`
	IsSelfManagement bool   `json:"is_self_management"`
	Reason           string `json:"reason,omitempty"`
}

type filterUsersRequest struct {
	UserIDs    []string `json:"user_ids"`
	Permission string   `json:"permission"`
}

type filterUsersResponse struct {
	Authorized   []string `json:"authorized"`
	Unauthorized []string `json:"unauthorized"`
}

type roleAssignmentRequest struct {
	TargetUserID string `json:"target_user_id"`
	RoleID       string `json:"role_id"`
}

type roleAssignmentResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type accessMatrixRequest struct {
	UserIDs   []string `json:"user_ids"`
	Resources []string `json:"resources"`
}

type updateUserRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

type replaceUserRolesRequest struct {
	RoleIDs []string `json:"role_ids"`
}

type userRoleResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// accessibleIDs resuelve el universo de brokers del caller. Para usuarios de
// sistema el guard no cuelga filtro: se usa un set vacío, que la compuerta de
// acceso interpreta como "nada visible" — los usuarios de sistema operan por
// los endpoints admin, no por los cross-user.
func accessibleIDs(r *http.Request) []string {
	if filter, ok := middleware.GetBrokerFilter(r.Context()); ok {
		return filter
	}
	return []string{}
}

// checkPermissionHandler godoc
// @Summary Consultar un permiso de otro usuario
// @Description Evalúa si el usuario objetivo tiene el permiso indicado. El objetivo tiene que estar dentro de la jerarquía del caller; si no, 403.
// @Tags authz
// @Accept json
// @Produce json
// @Param payload body checkPermissionRequest true "Usuario objetivo y permission string"
// @Success 200 {object} checkPermissionResponse
// @Failure 400 {string} string "invalid json / permission string malformado"
// @Failure 403 {string} string "target fuera de la jerarquía"
// @Failure 404 {string} string "usuario objetivo inexistente"
// @Router /authz/check [post]
func checkPermissionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkPermissionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		allowed, err := svc.CheckUserPermission(r.Context(), req.UserID, req.Permission, accessibleIDs(r))
		if err != nil {
			writeAuthzError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, checkPermissionResponse{
			UserID:     req.UserID,
			Permission: req.Permission,
			Allowed:    allowed,
		})
	}
}

func canManageHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, _ := middleware.GetAuthInfo(r.Context())

		res, err := svc.CanUserManageUser(r.Context(), info.UserID, chi.URLParam(r, "targetUserID"))
		if err != nil {
			writeAuthzError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, canManageResponse{
			CanManage:        res.CanManage,
			IsSelfManagement: res.IsSelfManagement,
			Reason:           res.Reason,
		})
	}
}

func filterUsersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req filterUsersRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.FilterUsersByPermission(r.Context(), req.UserIDs, req.Permission, accessibleIDs(r))
		if err != nil {
			writeAuthzError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, filterUsersResponse{
			Authorized:   res.Authorized,
			Unauthorized: res.Unauthorized,
		})
	}
}

func validateRoleAssignmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, _ := middleware.GetAuthInfo(r.Context())

		var req roleAssignmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.ValidateRoleAssignment(r.Context(), info.UserID, req.TargetUserID, req.RoleID)
		if err != nil {
			writeAuthzError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, roleAssignmentResponse{Valid: res.Valid, Reason: res.Reason})
	}
}

func accessMatrixHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accessMatrixRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		matrix, err := svc.ResourceAccessMatrix(r.Context(), req.UserIDs, req.Resources)
		if err != nil {
			writeAuthzError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, matrix)
	}
}

// requireManage corre la compuerta de gestión; devuelve false si ya respondió.
func requireManage(w http.ResponseWriter, r *http.Request, svc *Service, targetUserID string) bool {
	info, _ := middleware.GetAuthInfo(r.Context())

	if info.BrokerID != "" {
		if _, err := svc.validateUserAccess(r.Context(), targetUserID, accessibleIDs(r)); err != nil {
			writeAuthzError(w, err)
			return false
		}
	}

	res, err := svc.CanUserManageUser(r.Context(), info.UserID, targetUserID)
	if err != nil {
		writeAuthzError(w, err)
		return false
	}
	if !res.CanManage {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func updateUserHandler(svc *Service, usersSvc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := chi.URLParam(r, "userID")
		if !requireManage(w, r, svc, targetID) {
			return
		}

		var req updateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := usersSvc.Update(r.Context(), targetID, users.UpdateInput{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
		})
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":         p.ID,
			"first_name": p.FirstName,
			"last_name":  p.LastName,
			"phone":      p.Phone,
			"is_active":  p.IsActive,
			"updated_at": p.UpdatedAt,
		})
	}
}

// deactivateUserHandler desactiva sin borrar: exige además users:delete.
func deactivateUserHandler(svc *Service, usersSvc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, _ := middleware.GetAuthInfo(r.Context())
		if !containsPerm(info.Permissions, "users:delete") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		targetID := chi.URLParam(r, "userID")
		if !requireManage(w, r, svc, targetID) {
			return
		}

		if _, err := usersSvc.Deactivate(r.Context(), targetID); err != nil {
			if errors.Is(err, users.ErrNotFound) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func assignRoleHandler(svc *Service, rbacSvc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, _ := middleware.GetAuthInfo(r.Context())
		targetID := chi.URLParam(r, "userID")
		roleID := chi.URLParam(r, "roleID")

		check, err := svc.ValidateRoleAssignment(r.Context(), info.UserID, targetID, roleID)
		if err != nil {
			writeAuthzError(w, err)
			return
		}
		if !check.Valid {
			writeJSON(w, http.StatusForbidden, roleAssignmentResponse{Valid: false, Reason: check.Reason})
			return
		}

		if err := rbacSvc.AssignRole(r.Context(), targetID, roleID, info.UserID); err != nil {
			writeRbacError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeRoleHandler(svc *Service, rbacSvc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, _ := middleware.GetAuthInfo(r.Context())
		if !containsPerm(info.Permissions, "users:assign:roles") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		targetID := chi.URLParam(r, "userID")
		if info.BrokerID != "" {
			if _, err := svc.validateUserAccess(r.Context(), targetID, accessibleIDs(r)); err != nil {
				writeAuthzError(w, err)
				return
			}
		}

		if err := rbacSvc.RemoveRole(r.Context(), targetID, chi.URLParam(r, "roleID")); err != nil {
			writeRbacError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// replaceUserRolesHandler reemplaza el set completo de roles en una sola
// transacción.
func replaceUserRolesHandler(svc *Service, rbacSvc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, _ := middleware.GetAuthInfo(r.Context())
		if !containsPerm(info.Permissions, "users:assign:roles") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		targetID := chi.URLParam(r, "userID")
		if info.BrokerID != "" {
			if _, err := svc.validateUserAccess(r.Context(), targetID, accessibleIDs(r)); err != nil {
				writeAuthzError(w, err)
				return
			}
		}

		var req replaceUserRolesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if err := rbacSvc.ReplaceUserRoles(r.Context(), targetID, req.RoleIDs, info.UserID); err != nil {
			writeRbacError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listUserRolesHandler(svc *Service, rbacSvc *rbac.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, _ := middleware.GetAuthInfo(r.Context())
		targetID := chi.URLParam(r, "userID")

		if targetID != info.UserID && info.BrokerID != "" {
			if _, err := svc.validateUserAccess(r.Context(), targetID, accessibleIDs(r)); err != nil {
				writeAuthzError(w, err)
				return
			}
		}

		roles, err := rbacSvc.ListUserRoles(r.Context(), targetID)
		if err != nil {
			writeRbacError(w, err)
			return
		}

		out := make([]userRoleResponse, 0, len(roles))
		for _, role := range roles {
			out = append(out, userRoleResponse{ID: role.ID, Name: role.Name, Level: role.Level})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func containsPerm(perms []string, perm string) bool {
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

func writeAuthzError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, rbac.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeRbacError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rbac.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, rbac.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, rbac.ErrConflict):
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
