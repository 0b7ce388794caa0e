package brokers

import "context"

type Repository interface {
	Create(ctx context.Context, b Broker) error
	GetByID(ctx context.Context, id string) (Broker, error)
	GetByName(ctx context.Context, name string) (Broker, error)
	ListChildren(ctx context.Context, parentID string) ([]Broker, error)

	// DescendantIDs devuelve el id raíz más todos sus descendientes en orden
	// por nivel (raíz primero), acotado a maxDepth niveles bajo la raíz.
	DescendantIDs(ctx context.Context, rootID string, maxDepth int) ([]string, error)

	// AncestorIDs devuelve los ancestros propios de childID ordenados desde la
	// raíz hacia abajo (el padre directo al final). No incluye a childID.
	AncestorIDs(ctx context.Context, childID string, maxDepth int) ([]string, error)
}
