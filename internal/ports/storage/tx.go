package storage

import "context"

// TxManager ejecuta fn dentro de una transacción.
// Si fn retorna error, todo lo escrito dentro se revierte.
//
// Los únicos flujos que lo necesitan son registro y aceptación de invitación
// (broker + perfil + rol deben quedar o no quedar juntos) y los replace
// masivos de roles/permisos.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
