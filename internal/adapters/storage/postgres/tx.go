package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

type txKeyType struct{}

var txKey txKeyType

// querier es lo que los repos necesitan de *sql.DB o *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q resuelve el querier activo: la transacción del contexto si existe,
// la conexión plana si no. Así los servicios usan los mismos repos dentro y
// fuera de RunInTx.
func q(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return db
}

// TxManager implementa storage.TxManager sobre database/sql.
type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*sql.Tx); ok {
		// Ya hay transacción activa: no anidamos, participamos de la misma.
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
