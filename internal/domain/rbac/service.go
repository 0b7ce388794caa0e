package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmjalil96/CotizateAlgo/internal/ports/storage"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Service cubre el CRUD del grafo RBAC: roles, permisos y sus joins.
// Las evaluaciones de autorización viven en Engine.
type Service struct {
	repo Repository
	txm  storage.TxManager
	now  func() time.Time
}

func NewService(repo Repository, txm storage.TxManager) *Service {
	return &Service{
		repo: repo,
		txm:  txm,
		now:  time.Now,
	}
}

type CreateRoleInput struct {
	Name        string
	Description string
	Level       int
}

func (s *Service) CreateRole(ctx context.Context, in CreateRoleInput) (Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Role{}, ErrInvalidInput
	}
	if _, err := s.repo.GetRoleByName(ctx, name); err == nil {
		return Role{}, fmt.Errorf("%w: role %q already exists", ErrConflict, name)
	}

	r := Role{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Level:       in.Level,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	if err := s.repo.CreateRole(ctx, r); err != nil {
		return Role{}, err
	}
	return r, nil
}

func (s *Service) GetRole(ctx context.Context, id string) (Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Role{}, ErrInvalidInput
	}
	r, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return Role{}, ErrNotFound
	}
	return r, nil
}

// GetRoleByName resuelve un rol canónico (broker_admin, employee, agent) o
// cualquier rol creado por admin.
func (s *Service) GetRoleByName(ctx context.Context, name string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrInvalidInput
	}
	r, err := s.repo.GetRoleByName(ctx, name)
	if err != nil {
		return Role{}, fmt.Errorf("%w: role %q", ErrNotFound, name)
	}
	return r, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// DeleteRole borra un rol solo si ningún usuario lo tiene.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	if _, err := s.repo.GetRoleByID(ctx, id); err != nil {
		return ErrNotFound
	}
	n, err := s.repo.CountRoleHolders(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: role is held by %d user(s)", ErrConflict, n)
	}
	return s.repo.DeleteRole(ctx, id)
}

type CreatePermissionInput struct {
	Resource    string
	Action      string
	Description string
}

func (s *Service) CreatePermission(ctx context.Context, in CreatePermissionInput) (Permission, error) {
	resource := strings.TrimSpace(in.Resource)
	action := strings.TrimSpace(in.Action)
	if resource == "" || action == "" {
		return Permission{}, ErrInvalidInput
	}
	if _, err := s.repo.GetPermission(ctx, resource, action); err == nil {
		return Permission{}, fmt.Errorf("%w: permission %s:%s already exists", ErrConflict, resource, action)
	}

	p := Permission{
		ID:          uuid.NewString(),
		Resource:    resource,
		Action:      action,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreatePermission(ctx, p); err != nil {
		return Permission{}, err
	}
	return p, nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *Service) DeletePermission(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	if _, err := s.repo.GetPermissionByID(ctx, id); err != nil {
		return ErrNotFound
	}
	return s.repo.DeletePermission(ctx, id)
}

func (s *Service) AttachPermission(ctx context.Context, roleID, permissionID string) error {
	roleID = strings.TrimSpace(roleID)
	permissionID = strings.TrimSpace(permissionID)
	if roleID == "" || permissionID == "" {
		return ErrInvalidInput
	}
	if _, err := s.repo.GetRoleByID(ctx, roleID); err != nil {
		return ErrNotFound
	}
	if _, err := s.repo.GetPermissionByID(ctx, permissionID); err != nil {
		return ErrNotFound
	}

	existing, err := s.repo.ListRolePermissions(ctx, roleID)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if p.ID == permissionID {
			return fmt.Errorf("%w: role already has permission", ErrConflict)
		}
	}
	return s.repo.AttachPermission(ctx, roleID, permissionID)
}

func (s *Service) DetachPermission(ctx context.Context, roleID, permissionID string) error {
	roleID = strings.TrimSpace(roleID)
	permissionID = strings.TrimSpace(permissionID)
	if roleID == "" || permissionID == "" {
		return ErrInvalidInput
	}
	return s.repo.DetachPermission(ctx, roleID, permissionID)
}

// ReplaceRolePermissions reemplaza el set completo de permisos de un rol.
// Delete-all + insert-all dentro de una transacción: un lector concurrente
// nunca ve el rol con cero permisos a mitad de camino.
func (s *Service) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return ErrInvalidInput
	}
	if _, err := s.repo.GetRoleByID(ctx, roleID); err != nil {
		return ErrNotFound
	}
	for _, pid := range permissionIDs {
		if _, err := s.repo.GetPermissionByID(ctx, strings.TrimSpace(pid)); err != nil {
			return fmt.Errorf("%w: permission %s", ErrNotFound, pid)
		}
	}

	return s.txm.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteRolePermissions(ctx, roleID); err != nil {
			return err
		}
		for _, pid := range permissionIDs {
			if err := s.repo.AttachPermission(ctx, roleID, strings.TrimSpace(pid)); err != nil {
				return err
			}
		}
		return nil
	})
}

// AssignRole asigna un rol a un usuario con auditoría de quién y cuándo.
func (s *Service) AssignRole(ctx context.Context, userID, roleID, assignedBy string) error {
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return ErrInvalidInput
	}
	if _, err := s.repo.GetRoleByID(ctx, roleID); err != nil {
		return ErrNotFound
	}

	has, err := s.repo.UserHasRole(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("%w: user already has role", ErrConflict)
	}

	return s.repo.AssignRole(ctx, UserRole{
		UserID:     userID,
		RoleID:     roleID,
		AssignedAt: s.now(),
		AssignedBy: strings.TrimSpace(assignedBy),
	})
}

func (s *Service) RemoveRole(ctx context.Context, userID, roleID string) error {
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return ErrInvalidInput
	}
	return s.repo.RemoveRole(ctx, userID, roleID)
}

func (s *Service) ListUserRoles(ctx context.Context, userID string) ([]Role, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListUserRoles(ctx, userID)
}

// ReplaceUserRoles reemplaza el set completo de roles de un usuario, atómico
// por la misma razón que ReplaceRolePermissions.
func (s *Service) ReplaceUserRoles(ctx context.Context, userID string, roleIDs []string, assignedBy string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidInput
	}
	for _, rid := range roleIDs {
		if _, err := s.repo.GetRoleByID(ctx, strings.TrimSpace(rid)); err != nil {
			return fmt.Errorf("%w: role %s", ErrNotFound, rid)
		}
	}

	now := s.now()
	return s.txm.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteUserRoles(ctx, userID); err != nil {
			return err
		}
		for _, rid := range roleIDs {
			ur := UserRole{
				UserID:     userID,
				RoleID:     strings.TrimSpace(rid),
				AssignedAt: now,
				AssignedBy: strings.TrimSpace(assignedBy),
			}
			if err := s.repo.AssignRole(ctx, ur); err != nil {
				return err
			}
		}
		return nil
	})
}
