package authz

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)

// Service es la fachada de política a nivel request: combina el engine de
// permisos con la jerarquía de brokers en chequeos de orden superior que usan
// los handlers.
type Service struct {
	engine *rbac.Engine
	rbac   *rbac.Service
	users  *users.Service
	audit  AuditSink
	now    func() time.Time
}

func NewService(engine *rbac.Engine, rbacSvc *rbac.Service, usersSvc *users.Service, audit AuditSink) *Service {
	if audit == nil {
		audit = NopSink{}
	}
	return &Service{
		engine: engine,
		rbac:   rbacSvc,
		users:  usersSvc,
		audit:  audit,
		now:    time.Now,
	}
}

// validateUserAccess es la compuerta estándar que toda operación cross-user
// aplica antes de hacer nada: NotFound si el usuario objetivo o su broker no
// existen, Forbidden si su broker queda fuera del set accesible del caller.
func (s *Service) validateUserAccess(ctx context.Context, targetUserID string, accessibleBrokerIDs []string) (users.Profile, error) {
	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		return users.Profile{}, ErrNotFound
	}
	if target.IsSystemUser() {
		return users.Profile{}, ErrNotFound
	}

	for _, id := range accessibleBrokerIDs {
		if id == *target.BrokerID {
			return target, nil
		}
	}
	return users.Profile{}, ErrForbidden
}

// CheckUserPermission aplica la compuerta de acceso y luego delega al engine.
func (s *Service) CheckUserPermission(ctx context.Context, userID, permission string, accessibleBrokerIDs []string) (bool, error) {
	if _, err := s.validateUserAccess(ctx, userID, accessibleBrokerIDs); err != nil {
		return false, err
	}

	allowed, err := s.engine.UserHasPermission(ctx, userID, permission)
	if err != nil {
		return false, err
	}

	s.audit.Record(ctx, AuditEvent{
		Kind:       "check_permission",
		UserID:     userID,
		Permission: permission,
		Allowed:    allowed,
		At:         s.now(),
	})
	return allowed, nil
}

// Permisos que habilitan gestión de usuarios. Cualquiera alcanza.
var managePermissions = []string{
	"users:update",
	"users:delete",
	"users:assign:roles",
}

// ManageUserResult explica el resultado de CanUserManageUser.
type ManageUserResult struct {
	CanManage        bool
	IsSelfManagement bool
	Reason           string
}

// CanUserManageUser responde si manager puede gestionar a target. La
// auto-gestión exige además el permiso users:update:own.
func (s *Service) CanUserManageUser(ctx context.Context, managerID, targetUserID string) (ManageUserResult, error) {
	managerID = strings.TrimSpace(managerID)
	targetUserID = strings.TrimSpace(targetUserID)
	if managerID == "" || targetUserID == "" {
		return ManageUserResult{}, ErrInvalidInput
	}

	res := ManageUserResult{IsSelfManagement: managerID == targetUserID}

	hasAny := false
	for _, perm := range managePermissions {
		ok, err := s.engine.UserHasPermission(ctx, managerID, perm)
		if err != nil {
			return ManageUserResult{}, err
		}
		if ok {
			hasAny = true
			break
		}
	}
	if !hasAny {
		res.Reason = "manager lacks user management permissions"
		s.recordManage(ctx, managerID, targetUserID, res)
		return res, nil
	}

	if res.IsSelfManagement {
		ok, err := s.engine.UserHasPermission(ctx, managerID, "users:update:own")
		if err != nil {
			return ManageUserResult{}, err
		}
		if !ok {
			res.Reason = "self management requires users:update:own"
			s.recordManage(ctx, managerID, targetUserID, res)
			return res, nil
		}
	}

	res.CanManage = true
	s.recordManage(ctx, managerID, targetUserID, res)
	return res, nil
}

func (s *Service) recordManage(ctx context.Context, managerID, targetUserID string, res ManageUserResult) {
	s.audit.Record(ctx, AuditEvent{
		Kind:         "manage_user",
		UserID:       managerID,
		TargetUserID: targetUserID,
		Allowed:      res.CanManage,
		Reason:       res.Reason,
		At:           s.now(),
	})
}

// FilterResult particiona la lista original completa: los ids fuera del set
// accesible se reportan como no autorizados, no se descartan en silencio.
type FilterResult struct {
	Authorized   []string
	Unauthorized []string
}

// FilterUsersByPermission pre-filtra los candidatos al set de brokers
// accesibles y después chequea el permiso solo sobre los que quedaron.
func (s *Service) FilterUsersByPermission(ctx context.Context, userIDs []string, permission string, accessibleBrokerIDs []string) (FilterResult, error) {
	if _, err := rbac.ParsePerm(permission); err != nil {
		return FilterResult{}, err
	}

	res := FilterResult{
		Authorized:   []string{},
		Unauthorized: []string{},
	}

	for _, uid := range userIDs {
		if _, err := s.validateUserAccess(ctx, uid, accessibleBrokerIDs); err != nil {
			res.Unauthorized = append(res.Unauthorized, uid)
			continue
		}
		ok, err := s.engine.UserHasPermission(ctx, uid, permission)
		if err != nil {
			return FilterResult{}, err
		}
		if ok {
			res.Authorized = append(res.Authorized, uid)
		} else {
			res.Unauthorized = append(res.Unauthorized, uid)
		}
	}
	return res, nil
}

// RoleAssignmentCheck es un resultado estructurado pensado para un caller que
// quiere explicar por qué fallaría la asignación antes de intentarla; no se
// lanza error por condiciones de negocio.
type RoleAssignmentCheck struct {
	Valid  bool
	Reason string
}

// ValidateRoleAssignment chequea las precondiciones compuestas de asignar
// roleID a targetUserID por parte de assignerID.
func (s *Service) ValidateRoleAssignment(ctx context.Context, assignerID, targetUserID, roleID string) (RoleAssignmentCheck, error) {
	assignerID = strings.TrimSpace(assignerID)
	targetUserID = strings.TrimSpace(targetUserID)
	roleID = strings.TrimSpace(roleID)
	if assignerID == "" || targetUserID == "" || roleID == "" {
		return RoleAssignmentCheck{}, ErrInvalidInput
	}

	ok, err := s.engine.UserHasPermission(ctx, assignerID, "users:assign:roles")
	if err != nil {
		return RoleAssignmentCheck{}, err
	}
	if !ok {
		return s.assignmentResult(ctx, assignerID, targetUserID, "assigner lacks users:assign:roles"), nil
	}

	if _, err := s.users.GetByID(ctx, targetUserID); err != nil {
		return s.assignmentResult(ctx, assignerID, targetUserID, "target user not found"), nil
	}

	role, err := s.rbac.GetRole(ctx, roleID)
	if err != nil {
		return s.assignmentResult(ctx, assignerID, targetUserID, "role not found"), nil
	}

	held, err := s.rbac.ListUserRoles(ctx, targetUserID)
	if err != nil {
		return RoleAssignmentCheck{}, err
	}
	for _, r := range held {
		if r.ID == role.ID {
			return s.assignmentResult(ctx, assignerID, targetUserID, "target already has role"), nil
		}
	}

	res := RoleAssignmentCheck{Valid: true}
	s.audit.Record(ctx, AuditEvent{
		Kind:         "role_assignment",
		UserID:       assignerID,
		TargetUserID: targetUserID,
		Allowed:      true,
		At:           s.now(),
	})
	return res, nil
}

func (s *Service) assignmentResult(ctx context.Context, assignerID, targetUserID, reason string) RoleAssignmentCheck {
	s.audit.Record(ctx, AuditEvent{
		Kind:         "role_assignment",
		UserID:       assignerID,
		TargetUserID: targetUserID,
		Allowed:      false,
		Reason:       reason,
		At:           s.now(),
	})
	return RoleAssignmentCheck{Valid: false, Reason: reason}
}

// ResourceAccessMatrix arma una matriz densa usuario × recurso por pertenencia
// literal del string en el set completo de permisos del usuario. Los recursos
// acá ya vienen como permission strings completos.
func (s *Service) ResourceAccessMatrix(ctx context.Context, userIDs, resources []string) (map[string]map[string]bool, error) {
	matrix := make(map[string]map[string]bool, len(userIDs))

	for _, uid := range userIDs {
		summary, err := s.engine.UserPermissions(ctx, uid)
		if err != nil {
			return nil, err
		}
		held := make(map[string]struct{}, len(summary.Permissions))
		for _, p := range summary.Permissions {
			held[p] = struct{}{}
		}

		row := make(map[string]bool, len(resources))
		for _, res := range resources {
			_, ok := held[res]
			row[res] = ok
		}
		matrix[uid] = row
	}
	return matrix, nil
}
