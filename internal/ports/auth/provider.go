package auth

import "context"

// AuthVerifier verifica un token y devuelve claims o error.
// El middleware solo necesita esta parte del proveedor.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// AuthProvider es el contrato completo con el IdP externo.
// El proveedor es dueño de las credenciales (email/password); este servicio
// nunca las persiste. Los flujos de cuentas e invitaciones dependen de esto.
type AuthProvider interface {
	AuthVerifier

	SignUp(ctx context.Context, in SignUpInput) (userID string, err error)
	SignIn(ctx context.Context, email, password string) (Tokens, error)
	SignOut(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
	RequestPasswordReset(ctx context.Context, email string) error

	// DeleteUser borra el usuario en el proveedor. Se usa como compensación
	// cuando la transacción local de registro/aceptación falla.
	DeleteUser(ctx context.Context, userID string) error
}
