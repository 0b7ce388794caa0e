package invitations

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmjalil96/CotizateAlgo/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/invitations", func(ir chi.Router) {
		// Accept es público: el que acepta todavía no tiene cuenta.
		ir.Post("/accept", acceptHandler(svc))

		ir.Group(func(ar chi.Router) {
			ar.Use(middleware.RequireAuth)

			ar.With(
				middleware.RequirePermission("invitations:create"),
				middleware.RequireBrokerAccess(middleware.ScopeOwn, false),
			).Post("/", sendHandler(svc))

			ar.With(
				middleware.RequirePermission("invitations:read"),
				middleware.RequireBrokerAccess(middleware.ScopeHierarchy, false),
			).Get("/", listHandler(svc))
		})
	})
}

type sendRequest struct {
	Email                  string `json:"email"`
	ChildBrokerName        string `json:"child_broker_name"`
	ChildBrokerDescription string `json:"child_broker_description"`
}

type invitationResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	InvitedBy       string    `json:"invited_by"`
	ParentBrokerID  string    `json:"parent_broker_id"`
	ChildBrokerName string    `json:"child_broker_name"`
	Status          Status    `json:"status"`
	ExpiresAt       time.Time `json:"expires_at"`
	CreatedAt       time.Time `json:"created_at"`
}

type sendResponse struct {
	Invitation invitationResponse `json:"invitation"`
	// Token firmado que viaja en el link de invitación. En producción lo
	// entrega el canal de email; acá se devuelve para integraciones.
	Token string `json:"token"`
}

type acceptRequest struct {
	Token     string `json:"token"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CedulaRuc string `json:"cedula_ruc"`
	Phone     string `json:"phone"`
}

type acceptResponse struct {
	UserID     string `json:"user_id"`
	BrokerID   string `json:"broker_id"`
	BrokerName string `json:"broker_name"`
}

// sendHandler godoc
// @Summary Enviar invitación a un broker hijo
// @Description Crea una invitación pendiente con vigencia de 7 días para dar de alta un broker hijo bajo el broker del invitador. Requiere el permiso `invitations:create`. Un email con invitación pendiente vigente no recibe otra.
// @Tags invitations
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token en producción"
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param payload body sendRequest true "Email del invitado y datos del broker hijo"
// @Success 201 {object} sendResponse
// @Failure 400 {string} string "invalid json / datos incompletos"
// @Failure 403 {string} string "forbidden"
// @Failure 409 {string} string "invitación pendiente vigente o nombre de broker tomado"
// @Router /invitations [post]
func sendHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, _ := middleware.GetAuthInfo(r.Context())

		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		inv, err := svc.Send(r.Context(), SendInput{
			Email:                  req.Email,
			InvitedBy:              info.UserID,
			ChildBrokerName:        req.ChildBrokerName,
			ChildBrokerDescription: req.ChildBrokerDescription,
		})
		if err != nil {
			writeInvitationError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, sendResponse{
			Invitation: toInvitationResponse(inv),
			Token:      inv.Token,
		})
	}
}

func listHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, ok := middleware.GetBrokerFilter(r.Context())
		if !ok {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		items, err := svc.ListByBrokers(r.Context(), filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]invitationResponse, 0, len(items))
		for _, inv := range items {
			out = append(out, toInvitationResponse(inv))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// acceptHandler godoc
// @Summary Aceptar una invitación
// @Description Consume la invitación: valida el token firmado, crea la cuenta en el proveedor de identidad y, en una sola transacción, el broker hijo, el perfil y el rol `agent`. Una invitación vencida o ya aceptada no deja ningún registro nuevo.
// @Tags invitations
// @Accept json
// @Produce json
// @Param payload body acceptRequest true "Token de invitación y datos del nuevo usuario"
// @Success 201 {object} acceptResponse
// @Failure 400 {string} string "invalid json / token malformado"
// @Failure 409 {string} string "invitación ya aceptada / cédula o broker en conflicto"
// @Failure 410 {string} string "invitación vencida"
// @Router /invitations/accept [post]
func acceptHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req acceptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.Accept(r.Context(), AcceptInput{
			Token:     req.Token,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			CedulaRuc: req.CedulaRuc,
			Phone:     req.Phone,
		})
		if err != nil {
			writeInvitationError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, acceptResponse{
			UserID:     res.Profile.ID,
			BrokerID:   res.Broker.ID,
			BrokerName: res.Broker.Name,
		})
	}
}

func toInvitationResponse(inv Invitation) invitationResponse {
	return invitationResponse{
		ID:              inv.ID,
		Email:           inv.Email,
		InvitedBy:       inv.InvitedBy,
		ParentBrokerID:  inv.ParentBrokerID,
		ChildBrokerName: inv.ChildBrokerName,
		Status:          inv.Status,
		ExpiresAt:       inv.ExpiresAt,
		CreatedAt:       inv.CreatedAt,
	}
}

func writeInvitationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadToken), errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "invitation not found", http.StatusNotFound)
	case errors.Is(err, ErrExpired):
		http.Error(w, err.Error(), http.StatusGone)
	case errors.Is(err, ErrConsumed), errors.Is(err, ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
