package accounts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmjalil96/CotizateAlgo/internal/ports/auth"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/register", registerHandler(svc))
		ar.Post("/login", loginHandler(svc))
		ar.Post("/logout", logoutHandler(svc))
		ar.Post("/refresh", refreshHandler(svc))
		ar.Post("/password-reset", passwordResetHandler(svc))
	})
}

type registerRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	CedulaRuc         string `json:"cedula_ruc"`
	Phone             string `json:"phone"`
	BrokerName        string `json:"broker_name"`
	BrokerDescription string `json:"broker_description"`
}

type registerResponse struct {
	UserID     string    `json:"user_id"`
	BrokerID   string    `json:"broker_id"`
	BrokerName string    `json:"broker_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokensResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// registerHandler godoc
// @Summary Registrar broker raíz con su administrador
// @Description Da de alta un broker raíz nuevo junto con el perfil del administrador y su rol `broker_admin`. La creación es atómica: si la parte local falla, se revierte también el usuario del proveedor de identidad.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerRequest true "Datos del administrador y del broker"
// @Success 201 {object} registerResponse
// @Failure 400 {string} string "invalid json / datos incompletos"
// @Failure 409 {string} string "cédula/RUC o nombre de broker ya registrado"
// @Router /auth/register [post]
func registerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.Register(r.Context(), RegisterInput{
			Email:             req.Email,
			Password:          req.Password,
			FirstName:         req.FirstName,
			LastName:          req.LastName,
			CedulaRuc:         req.CedulaRuc,
			Phone:             req.Phone,
			BrokerName:        req.BrokerName,
			BrokerDescription: req.BrokerDescription,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrConflict):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, registerResponse{
			UserID:     res.Profile.ID,
			BrokerID:   res.Broker.ID,
			BrokerName: res.Broker.Name,
			CreatedAt:  res.Profile.CreatedAt,
		})
	}
}

// loginHandler godoc
// @Summary Iniciar sesión
// @Description Autentica contra el proveedor de identidad y devuelve los tokens de sesión.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginRequest true "Credenciales"
// @Success 200 {object} tokensResponse
// @Failure 401 {string} string "credenciales inválidas"
// @Router /auth/login [post]
func loginHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		tokens, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		writeJSON(w, http.StatusOK, toTokensResponse(tokens))
	}
}

func logoutHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := svc.Logout(r.Context(), token); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func refreshHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		tokens, err := svc.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		writeJSON(w, http.StatusOK, toTokensResponse(tokens))
	}
}

func passwordResetHandler(svc *Service) http.HandlerFunc {
	// Siempre 204: no filtra si el email existe o no.
	return func(w http.ResponseWriter, r *http.Request) {
		var req passwordResetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		_ = svc.RequestPasswordReset(r.Context(), req.Email)
		w.WriteHeader(http.StatusNoContent)
	}
}

func toTokensResponse(t auth.Tokens) tokensResponse {
	return tokensResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
}

func bearerToken(h string) string {
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
