package invitations

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
)

// InviteTTL es la vigencia de una invitación desde su creación.
const InviteTTL = 7 * 24 * time.Hour

// Invitation es una invitación tokenizada para dar de alta un sub-broker.
// Se consume exactamente una vez: la transición pending→accepted es one-way.
// ParentBrokerID es el broker del invitador; el broker hijo se crea debajo
// de él recién al aceptar.
type Invitation struct {
	ID        string
	Token     string // JWT firmado; también único en storage
	Email     string
	InvitedBy string // Profile id del invitador

	ParentBrokerID         string
	ChildBrokerName        string
	ChildBrokerDescription string

	Status    Status
	ExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired responde si la invitación ya venció en el instante dado.
func (i Invitation) Expired(at time.Time) bool {
	return at.After(i.ExpiresAt)
}
