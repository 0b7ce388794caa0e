package brokers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmjalil96/CotizateAlgo/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/brokers", func(br chi.Router) {
		br.Use(middleware.RequireAuth)
		br.Use(middleware.RequirePermission("brokers:read"))

		br.Get("/{brokerID}/hierarchy", hierarchyHandler(svc))
		br.Get("/{brokerID}/descendants", descendantsHandler(svc))
	})
}

type brokerResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ParentID    *string   `json:"parent_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type hierarchyStatsResponse struct {
	TotalDescendants int `json:"total_descendants"`
	TotalAncestors   int `json:"total_ancestors"`
	HierarchyLevel   int `json:"hierarchy_level"`
}

type hierarchyResponse struct {
	Broker              brokerResponse         `json:"broker"`
	Parent              *brokerResponse        `json:"parent,omitempty"`
	DirectChildren      []brokerResponse       `json:"direct_children"`
	Stats               hierarchyStatsResponse `json:"stats"`
	AccessibleBrokerIDs []string               `json:"accessible_broker_ids"`
}

type descendantsResponse struct {
	BrokerID      string   `json:"broker_id"`
	DescendantIDs []string `json:"descendant_ids"`
}

// canSeeBroker: el target tiene que caer dentro de la jerarquía del usuario.
// Usuarios de sistema (sin broker) ven cualquier broker.
func canSeeBroker(info middleware.AuthInfo, svc *Service, r *http.Request, targetID string) bool {
	if info.BrokerID == "" {
		return true
	}
	return svc.CanUserAccessBroker(r.Context(), info.BrokerID, targetID)
}

// hierarchyHandler godoc
// @Summary Vista de jerarquía de un broker
// @Description Devuelve el broker con su padre, hijos directos, estadísticas de posición en el árbol y el set completo de broker IDs accesibles desde él. Solo brokers dentro de la jerarquía del usuario autenticado.
// @Tags brokers
// @Produce json
// @Param Authorization header string false "Bearer token en producción"
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param brokerID path string true "ID del broker"
// @Success 200 {object} hierarchyResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "broker not found"
// @Router /brokers/{brokerID}/hierarchy [get]
func hierarchyHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := middleware.GetAuthInfo(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		brokerID := chi.URLParam(r, "brokerID")
		if !canSeeBroker(info, svc, r, brokerID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		h, err := svc.HierarchyInfo(r.Context(), brokerID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "broker not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toHierarchyResponse(h))
	}
}

func descendantsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := middleware.GetAuthInfo(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		brokerID := chi.URLParam(r, "brokerID")
		if _, err := svc.GetByID(r.Context(), brokerID); err != nil {
			http.Error(w, "broker not found", http.StatusNotFound)
			return
		}
		if !canSeeBroker(info, svc, r, brokerID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		writeJSON(w, http.StatusOK, descendantsResponse{
			BrokerID:      brokerID,
			DescendantIDs: svc.DescendantBrokerIDs(r.Context(), brokerID),
		})
	}
}

func toBrokerResponse(b Broker) brokerResponse {
	return brokerResponse{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		ParentID:    b.ParentID,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toHierarchyResponse(h HierarchyInfo) hierarchyResponse {
	out := hierarchyResponse{
		Broker:         toBrokerResponse(h.Broker),
		DirectChildren: make([]brokerResponse, 0, len(h.DirectChildren)),
		Stats: hierarchyStatsResponse{
			TotalDescendants: h.Stats.TotalDescendants,
			TotalAncestors:   h.Stats.TotalAncestors,
			HierarchyLevel:   h.Stats.HierarchyLevel,
		},
		AccessibleBrokerIDs: h.AccessibleBrokerID,
	}
	if h.Parent != nil {
		p := toBrokerResponse(*h.Parent)
		out.Parent = &p
	}
	for _, c := range h.DirectChildren {
		out.DirectChildren = append(out.DirectChildren, toBrokerResponse(c))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
