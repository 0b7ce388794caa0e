package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/brokers"
)

type brokersRepo struct {
	s *Store
}

func NewBrokersRepo(s *Store) brokers.Repository {
	return &brokersRepo{s: s}
}

func (r *brokersRepo) Create(ctx context.Context, b brokers.Broker) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if b.ID == "" {
		return errors.New("broker id required")
	}
	if _, exists := r.s.brokers[b.ID]; exists {
		return errors.New("broker already exists")
	}
	r.s.brokers[b.ID] = b
	return nil
}

func (r *brokersRepo) GetByID(ctx context.Context, id string) (brokers.Broker, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.brokers[id]
	if !ok {
		return brokers.Broker{}, ErrNotFound
	}
	return b, nil
}

func (r *brokersRepo) GetByName(ctx context.Context, name string) (brokers.Broker, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, b := range r.s.brokers {
		if b.Name == name {
			return b, nil
		}
	}
	return brokers.Broker{}, ErrNotFound
}

func (r *brokersRepo) ListChildren(ctx context.Context, parentID string) ([]brokers.Broker, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.childrenLocked(parentID), nil
}

func (r *brokersRepo) childrenLocked(parentID string) []brokers.Broker {
	out := make([]brokers.Broker, 0)
	for _, b := range r.s.brokers {
		if b.ParentID != nil && *b.ParentID == parentID {
			out = append(out, b)
		}
	}
	// Orden estable: por creación y después por nombre.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DescendantIDs expande parent→children por niveles (BFS), raíz primero,
// truncando bajo maxDepth. Equivale al CTE recursivo del adapter postgres.
func (r *brokersRepo) DescendantIDs(ctx context.Context, rootID string, maxDepth int) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.brokers[rootID]; !ok {
		return []string{}, nil
	}

	out := []string{rootID}
	seen := map[string]struct{}{rootID: {}}
	frontier := []string{rootID}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		next := make([]string, 0)
		for _, id := range frontier {
			for _, child := range r.childrenLocked(id) {
				if _, dup := seen[child.ID]; dup {
					continue
				}
				seen[child.ID] = struct{}{}
				out = append(out, child.ID)
				next = append(next, child.ID)
			}
		}
		frontier = next
	}
	return out, nil
}

// AncestorIDs sube por los punteros de padre y devuelve la cadena desde la
// raíz hacia abajo, sin incluir a childID.
func (r *brokersRepo) AncestorIDs(ctx context.Context, childID string, maxDepth int) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.brokers[childID]
	if !ok {
		return []string{}, nil
	}

	chain := make([]string, 0)
	seen := map[string]struct{}{childID: {}}

	cur := b
	for depth := 0; depth < maxDepth; depth++ {
		if cur.ParentID == nil || *cur.ParentID == "" {
			break
		}
		parent, ok := r.s.brokers[*cur.ParentID]
		if !ok {
			break
		}
		if _, dup := seen[parent.ID]; dup {
			break // protección ante data corrupta con ciclos
		}
		seen[parent.ID] = struct{}{}
		chain = append(chain, parent.ID)
		cur = parent
	}

	// chain quedó del padre directo hacia arriba; invertir a root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
