package auth

// Claims representa la identidad extraída de un access token.
// UserID es el id opaco que emite el proveedor; el perfil local usa ese mismo id como PK.
type Claims struct {
	UserID string
	Email  string
}

// Tokens es el par de tokens de sesión emitido por el proveedor.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // segundos
}

// SignUpInput son las credenciales para crear un usuario en el proveedor.
type SignUpInput struct {
	Email    string
	Password string
}
