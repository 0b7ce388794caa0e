package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jmjalil96/CotizateAlgo/internal/platform/httpclient"
	"github.com/jmjalil96/CotizateAlgo/internal/ports/auth"
)

var (
	ErrNotConfigured = errors.New("supabase client not configured")
	ErrUnauthorized  = errors.New("supabase unauthorized")
	ErrUpstream      = errors.New("supabase upstream error")
)

// Config del cliente Supabase (GoTrue).
// BaseURL y ServiceKey normalmente vienen de env vars en main.
type Config struct {
	BaseURL    string
	ServiceKey string // service_role key; habilita los endpoints admin
	Timeout    time.Duration
}

// Client habla con la API de auth de Supabase. Implementa auth.AuthProvider.
// Este servicio nunca ve passwords más allá de reenviarlos al proveedor.
type Client struct {
	http       *httpclient.Client
	serviceKey string
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" || strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, ErrNotConfigured
	}

	hc, err := httpclient.NewWithBaseURL(base, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:       hc,
		serviceKey: strings.TrimSpace(cfg.ServiceKey),
	}, nil
}

// NewClientFromEnv lee SUPABASE_URL y SUPABASE_SERVICE_KEY. Sin esas vars
// devuelve (nil, nil): el caller decide si corre en modo dev sin proveedor.
func NewClientFromEnv() (*Client, error) {
	base := strings.TrimSpace(os.Getenv("SUPABASE_URL"))
	key := strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY"))
	if base == "" || key == "" {
		return nil, nil
	}
	return NewClient(Config{BaseURL: base, ServiceKey: key})
}

func (c *Client) adminHeaders() map[string]string {
	return map[string]string{
		"apikey":        c.serviceKey,
		"Authorization": "Bearer " + c.serviceKey,
	}
}

func (c *Client) userHeaders(token string) map[string]string {
	return map[string]string{
		"apikey":        c.serviceKey,
		"Authorization": "Bearer " + token,
	}
}

// Verify resuelve el usuario dueño del access token.
func (c *Client) Verify(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrUnauthorized
	}

	var out struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := c.http.DoJSON(ctx, http.MethodGet, "/auth/v1/user", c.userHeaders(token), nil, &out); err != nil {
		return auth.Claims{}, normalizeError(err)
	}

	out.ID = strings.TrimSpace(out.ID)
	if out.ID == "" {
		return auth.Claims{}, errors.New("supabase response missing user id")
	}
	return auth.Claims{UserID: out.ID, Email: strings.TrimSpace(out.Email)}, nil
}

// SignUp crea el usuario vía admin API (email confirmado de entrada; el alta
// local decide si el usuario puede operar).
func (c *Client) SignUp(ctx context.Context, in auth.SignUpInput) (string, error) {
	body := map[string]any{
		"email":         in.Email,
		"password":      in.Password,
		"email_confirm": true,
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.http.DoJSON(ctx, http.MethodPost, "/auth/v1/admin/users", c.adminHeaders(), body, &out); err != nil {
		return "", normalizeError(err)
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", errors.New("supabase sign-up response missing user id")
	}
	return out.ID, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (auth.Tokens, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var out tokenResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", c.adminHeaders(), body, &out); err != nil {
		return auth.Tokens{}, normalizeError(err)
	}
	return out.toTokens(), nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := c.http.DoJSON(ctx, http.MethodPost, "/auth/v1/logout", c.userHeaders(accessToken), nil, nil); err != nil {
		return normalizeError(err)
	}
	return nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (auth.Tokens, error) {
	body := map[string]string{
		"refresh_token": refreshToken,
	}

	var out tokenResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", c.adminHeaders(), body, &out); err != nil {
		return auth.Tokens{}, normalizeError(err)
	}
	return out.toTokens(), nil
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{
		"email": email,
	}
	if err := c.http.DoJSON(ctx, http.MethodPost, "/auth/v1/recover", c.adminHeaders(), body, nil); err != nil {
		return normalizeError(err)
	}
	return nil
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUnauthorized
	}
	if err := c.http.DoJSON(ctx, http.MethodDelete, "/auth/v1/admin/users/"+userID, c.adminHeaders(), nil, nil); err != nil {
		return normalizeError(err)
	}
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (t tokenResponse) toTokens() auth.Tokens {
	return auth.Tokens{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
}

func normalizeError(err error) error {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest:
			return fmt.Errorf("%w: status=%d", ErrUnauthorized, httpErr.StatusCode)
		default:
			return fmt.Errorf("%w: status=%d", ErrUpstream, httpErr.StatusCode)
		}
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
