package users

import "time"

// Profile es el usuario local. El ID es el id opaco que emite el proveedor de
// identidad: acá no viven credenciales, solo datos de negocio.
//
// BrokerID nil = usuario de sistema, sin scope de jerarquía.
type Profile struct {
	ID        string
	FirstName string
	LastName  string
	CedulaRuc string // único
	Phone     string
	BrokerID  *string
	IsActive  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsSystemUser indica que el perfil no pertenece a ningún broker.
func (p Profile) IsSystemUser() bool {
	return p.BrokerID == nil || *p.BrokerID == ""
}
