package postgres

import (
	"context"
	"database/sql"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/clients"
)

type ClientsRepo struct {
	db *sql.DB
}

func NewClientsRepo(db *sql.DB) *ClientsRepo {
	return &ClientsRepo{db: db}
}

const clientColumns = `id, broker_id, first_name, last_name, cedula_ruc, email, phone, created_at, updated_at`

func (r *ClientsRepo) Create(ctx context.Context, c clients.Client) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO clients (id, broker_id, first_name, last_name, cedula_ruc, email, phone, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		c.ID, c.BrokerID, c.FirstName, c.LastName, c.CedulaRuc, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *ClientsRepo) Update(ctx context.Context, c clients.Client) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE clients
		SET first_name = $2, last_name = $3, email = $4, phone = $5, updated_at = $6
		WHERE id = $1
	`, c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.UpdatedAt)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ClientsRepo) GetByID(ctx context.Context, id string) (clients.Client, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients WHERE id = $1
	`, id)

	var c clients.Client
	if err := row.Scan(&c.ID, &c.BrokerID, &c.FirstName, &c.LastName, &c.CedulaRuc, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return clients.Client{}, ErrNotFound
		}
		return clients.Client{}, err
	}
	return c, nil
}

func (r *ClientsRepo) ListByBrokers(ctx context.Context, brokerIDs []string) ([]clients.Client, error) {
	if len(brokerIDs) == 0 {
		return []clients.Client{}, nil
	}

	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients WHERE broker_id = ANY($1)
		ORDER BY created_at ASC
	`, brokerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]clients.Client, 0)
	for rows.Next() {
		var c clients.Client
		if err := rows.Scan(&c.ID, &c.BrokerID, &c.FirstName, &c.LastName, &c.CedulaRuc, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
