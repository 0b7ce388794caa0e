package clients

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/middleware"
)

// RegisterRoutes registra las rutas de clientes. El scope efectivo se deriva
// por permiso: clients:read ve toda la jerarquía, clients:read:own solo el
// broker propio.
func RegisterRoutes(r chi.Router, svc *Service, engine *rbac.Engine) {
	r.Route("/clients", func(cr chi.Router) {
		cr.Use(middleware.RequireAuth)

		cr.Get("/", listClientsHandler(svc, engine))
		cr.Get("/{clientID}", getClientHandler(svc, engine))
		cr.Post("/", createClientHandler(svc, engine))
		cr.Patch("/{clientID}", updateClientHandler(svc, engine))
	})
}

type createClientRequest struct {
	BrokerID  string `json:"broker_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CedulaRuc string `json:"cedula_ruc"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type updateClientRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

type clientResponse struct {
	ID        string    `json:"id"`
	BrokerID  string    `json:"broker_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CedulaRuc string    `json:"cedula_ruc"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// effectiveBrokerIDs resuelve los brokers habilitados para el permiso base,
// cayendo a la variante :own si el base no está otorgado.
func effectiveBrokerIDs(r *http.Request, engine *rbac.Engine, userID, permission string) []string {
	ids, err := engine.EffectiveBrokerIDs(r.Context(), userID, permission)
	if err != nil || len(ids) > 0 {
		return ids
	}
	ids, _ = engine.EffectiveBrokerIDs(r.Context(), userID, permission+rbac.OwnScopeSuffix)
	return ids
}

// listClientsHandler godoc
// @Summary Listar clientes visibles
// @Description Lista los clientes de los brokers habilitados para el usuario. Con `clients:read` el alcance es toda la jerarquía descendiente; con `clients:read:own` solo el broker propio.
// @Tags clients
// @Produce json
// @Param Authorization header string false "Bearer token en producción"
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Success 200 {array} clientResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "sin permiso de lectura de clientes"
// @Router /clients [get]
func listClientsHandler(svc *Service, engine *rbac.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := middleware.GetAuthInfo(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ids := effectiveBrokerIDs(r, engine, info.UserID, "clients:read")
		if len(ids) == 0 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		items, err := svc.ListByBrokers(r.Context(), ids)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]clientResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toClientResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getClientHandler(svc *Service, engine *rbac.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := middleware.GetAuthInfo(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ids := effectiveBrokerIDs(r, engine, info.UserID, "clients:read")
		if len(ids) == 0 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		c, err := svc.GetByID(r.Context(), ids, chi.URLParam(r, "clientID"))
		if err != nil {
			writeClientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toClientResponse(c))
	}
}

func createClientHandler(svc *Service, engine *rbac.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := middleware.GetAuthInfo(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ids := effectiveBrokerIDs(r, engine, info.UserID, "clients:create")
		if len(ids) == 0 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req createClientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		// Sin broker destino explícito, el cliente cae en el broker propio.
		brokerID := req.BrokerID
		if brokerID == "" {
			brokerID = info.BrokerID
		}

		c, err := svc.Create(r.Context(), ids, CreateInput{
			BrokerID:  brokerID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			CedulaRuc: req.CedulaRuc,
			Email:     req.Email,
			Phone:     req.Phone,
		})
		if err != nil {
			writeClientError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toClientResponse(c))
	}
}

func updateClientHandler(svc *Service, engine *rbac.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := middleware.GetAuthInfo(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ids := effectiveBrokerIDs(r, engine, info.UserID, "clients:update")
		if len(ids) == 0 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req updateClientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		c, err := svc.Update(r.Context(), ids, chi.URLParam(r, "clientID"), UpdateInput{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
		})
		if err != nil {
			writeClientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toClientResponse(c))
	}
}

func toClientResponse(c Client) clientResponse {
	return clientResponse{
		ID:        c.ID,
		BrokerID:  c.BrokerID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		CedulaRuc: c.CedulaRuc,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func writeClientError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "client not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
