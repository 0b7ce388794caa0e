package supabase

import "github.com/jmjalil96/CotizateAlgo/internal/ports/auth"

// Client cumple el contrato completo del proveedor de identidad.
var _ auth.AuthProvider = (*Client)(nil)
