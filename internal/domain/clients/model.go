package clients

import "time"

// Client es un asegurado o prospecto de un broker. Pertenece exactamente a un
// broker; todo listado se filtra por broker id.
type Client struct {
	ID        string
	BrokerID  string
	FirstName string
	LastName  string
	CedulaRuc string
	Email     string
	Phone     string

	CreatedAt time.Time
	UpdatedAt time.Time
}
