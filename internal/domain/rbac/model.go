package rbac

import "time"

// Nombres canónicos de rol. Definidos una sola vez; cualquier decisión por
// nombre de rol en otros módulos debe pasar por estas constantes.
const (
	RoleBrokerAdmin = "broker_admin"
	RoleEmployee    = "employee"
	RoleAgent       = "agent"
)

// Niveles del set semilla (menor = más privilegio).
const (
	LevelBrokerAdmin = 1
	LevelEmployee    = 2
	LevelAgent       = 3
)

// Role agrupa permisos. Name es único.
type Role struct {
	ID          string
	Name        string
	Description string
	Level       int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Permission es una fila (resource, action), única por el par. Action puede
// llevar sufijo de scope codificado, p.ej. "read:own" o "assign:roles".
type Permission struct {
	ID          string
	Resource    string
	Action      string
	Description string

	CreatedAt time.Time
}

// String devuelve la representación de cable "resource:action".
func (p Permission) String() string {
	return p.Resource + ":" + p.Action
}

// RolePermission une Role×Permission; no tiene identidad más allá del par.
type RolePermission struct {
	RoleID       string
	PermissionID string
}

// UserRole une Profile×Role con auditoría. Un usuario no puede tener el mismo
// rol dos veces.
type UserRole struct {
	UserID     string
	RoleID     string
	AssignedAt time.Time
	AssignedBy string // Profile id del asignador
}
