package brokers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("broker not found")
	ErrConflict     = errors.New("broker name already exists")
)

// MaxHierarchyDepth acota toda expansión del árbol. Un recorrido por debajo
// de este nivel se trunca en silencio; no es un error.
const MaxHierarchyDepth = 10

// Service responde consultas con forma de jerarquía sobre el árbol de brokers
// y protege su único invariante mutable (aciclicidad).
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Name        string
	Description string
	ParentID    *string
}

// Create valida unicidad de nombre y aciclicidad antes de insertar.
// El enlace al padre es inmutable después de creado (no hay re-parenting).
func (s *Service) Create(ctx context.Context, in CreateInput) (Broker, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Broker{}, ErrInvalidInput
	}

	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return Broker{}, ErrConflict
	}

	b := Broker{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}

	if in.ParentID != nil && strings.TrimSpace(*in.ParentID) != "" {
		parentID := strings.TrimSpace(*in.ParentID)
		if _, err := s.repo.GetByID(ctx, parentID); err != nil {
			return Broker{}, ErrNotFound
		}
		if !s.ValidateNoCycles(ctx, parentID, b.ID) {
			return Broker{}, ErrInvalidInput
		}
		b.ParentID = &parentID
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return Broker{}, err
	}
	return b, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Broker, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Broker{}, ErrInvalidInput
	}
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Broker{}, ErrNotFound
	}
	return b, nil
}

// DescendantBrokerIDs devuelve rootID más todos sus descendientes, en orden
// por nivel (la raíz en nivel 0), hasta MaxHierarchyDepth niveles.
//
// Si la consulta subyacente falla, degrada a [rootID]: mejor exponer solo el
// broker propio que tumbar todos los requests autorizados. Las escrituras no
// comparten esta política (ver ValidateNoCycles).
func (s *Service) DescendantBrokerIDs(ctx context.Context, rootID string) []string {
	rootID = strings.TrimSpace(rootID)
	if rootID == "" {
		return []string{}
	}

	ids, err := s.repo.DescendantIDs(ctx, rootID, MaxHierarchyDepth)
	if err != nil || len(ids) == 0 {
		return []string{rootID}
	}
	return ids
}

// AncestorBrokerIDs devuelve los ancestros propios de childID ordenados desde
// la raíz hacia el nodo consultado (padre directo al final). childID no se
// incluye. Misma cota de profundidad y mismo fallback de lectura que los
// descendientes: en fallo devuelve [childID].
func (s *Service) AncestorBrokerIDs(ctx context.Context, childID string) []string {
	childID = strings.TrimSpace(childID)
	if childID == "" {
		return []string{}
	}

	ids, err := s.repo.AncestorIDs(ctx, childID, MaxHierarchyDepth)
	if err != nil {
		return []string{childID}
	}
	return ids
}

// ValidateNoCycles responde si asignar childID bajo parentID mantiene el árbol
// acíclico. Auto-parenting es siempre inválido. Ids vacíos son vacíamente
// válidos. A diferencia de las lecturas, un error interno aquí retorna false:
// una escritura que podría corromper el árbol no debe pasar.
func (s *Service) ValidateNoCycles(ctx context.Context, parentID, childID string) bool {
	parentID = strings.TrimSpace(parentID)
	childID = strings.TrimSpace(childID)

	if parentID == "" || childID == "" {
		return true
	}
	if parentID == childID {
		return false
	}

	// Si el padre propuesto ya desciende del hijo propuesto, habría ciclo.
	// Consulta directa al repo: acá un error debe cerrar, no degradar.
	descendants, err := s.repo.DescendantIDs(ctx, childID, MaxHierarchyDepth)
	if err != nil {
		return false
	}
	for _, id := range descendants {
		if id == parentID {
			return false
		}
	}
	return true
}

// HierarchyInfo arma la vista completa de un broker: padre, hijos directos,
// estadísticas y el conjunto de ids accesibles desde él.
func (s *Service) HierarchyInfo(ctx context.Context, brokerID string) (HierarchyInfo, error) {
	brokerID = strings.TrimSpace(brokerID)
	if brokerID == "" {
		return HierarchyInfo{}, ErrInvalidInput
	}

	b, err := s.repo.GetByID(ctx, brokerID)
	if err != nil {
		return HierarchyInfo{}, ErrNotFound
	}

	info := HierarchyInfo{Broker: b}

	if b.ParentID != nil && *b.ParentID != "" {
		if p, err := s.repo.GetByID(ctx, *b.ParentID); err == nil {
			info.Parent = &p
		}
	}

	children, err := s.repo.ListChildren(ctx, brokerID)
	if err == nil {
		info.DirectChildren = children
	} else {
		info.DirectChildren = []Broker{}
	}

	descendants := s.DescendantBrokerIDs(ctx, brokerID)
	ancestors := s.AncestorBrokerIDs(ctx, brokerID)

	info.AccessibleBrokerID = descendants
	info.Stats = HierarchyStats{
		TotalDescendants: len(descendants) - 1, // sin contar al propio broker
		TotalAncestors:   len(ancestors),
		HierarchyLevel:   len(ancestors),
	}
	return info, nil
}

// CanUserAccessBroker es la primitiva de autorización sobre la que se
// construye todo lo demás: un broker actúa sobre sí mismo y sobre lo que está
// debajo suyo en el árbol, nunca hacia arriba ni hacia los lados.
func (s *Service) CanUserAccessBroker(ctx context.Context, userBrokerID, targetBrokerID string) bool {
	userBrokerID = strings.TrimSpace(userBrokerID)
	targetBrokerID = strings.TrimSpace(targetBrokerID)

	if userBrokerID == "" || targetBrokerID == "" {
		return false
	}
	if userBrokerID == targetBrokerID {
		return true
	}

	for _, id := range s.DescendantBrokerIDs(ctx, userBrokerID) {
		if id == targetBrokerID {
			return true
		}
	}
	return false
}
