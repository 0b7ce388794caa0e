package brokers

import "time"

// Broker representa una organización de corretaje de seguros.
// Forma un bosque de árboles vía auto-referencia en ParentID.
// Invariantes: Name único global; nunca ciclos (un broker no puede ser su propio ancestro).
type Broker struct {
	ID          string
	Name        string
	Description string
	ParentID    *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRoot indica si el broker no tiene padre.
func (b Broker) IsRoot() bool {
	return b.ParentID == nil || *b.ParentID == ""
}

// HierarchyStats resume la posición de un broker en el árbol.
type HierarchyStats struct {
	TotalDescendants int
	TotalAncestors   int
	HierarchyLevel   int // 0 para un root
}

// HierarchyInfo es la vista completa de un broker dentro de su jerarquía.
type HierarchyInfo struct {
	Broker             Broker
	Parent             *Broker
	DirectChildren     []Broker
	Stats              HierarchyStats
	AccessibleBrokerID []string
}
