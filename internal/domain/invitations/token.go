package invitations

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrBadToken = errors.New("invalid invitation token")

// tokenClaims viaja dentro del JWT de invitación. El token no reemplaza a la
// fila: al aceptar siempre se relee la invitación persistida.
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenSigner emite y valida tokens de invitación firmados HS256.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

func NewTokenSigner(secret []byte) *TokenSigner {
	return &TokenSigner{
		secret: secret,
		now:    time.Now,
	}
}

// Sign emite un token para la invitación con su misma expiración.
func (s *TokenSigner) Sign(invitationID, email string, expiresAt time.Time) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("invitation signing secret not configured")
	}

	claims := tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   invitationID,
			IssuedAt:  jwt.NewNumericDate(s.now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign invitation token: %w", err)
	}
	return signed, nil
}

// Validate verifica firma y expiración, y devuelve el id de invitación.
func (s *TokenSigner) Validate(token string) (invitationID string, err error) {
	if len(s.secret) == 0 {
		return "", errors.New("invitation signing secret not configured")
	}

	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !parsed.Valid {
		return "", ErrBadToken
	}
	if claims.Subject == "" {
		return "", ErrBadToken
	}
	return claims.Subject, nil
}
