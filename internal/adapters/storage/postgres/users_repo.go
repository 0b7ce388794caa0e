package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
)

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

const profileColumns = `id, first_name, last_name, cedula_ruc, phone, broker_id, is_active, created_at, updated_at`

func (r *UsersRepo) Create(ctx context.Context, p users.Profile) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO profiles (id, first_name, last_name, cedula_ruc, phone, broker_id, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		p.ID,
		p.FirstName,
		p.LastName,
		p.CedulaRuc,
		p.Phone,
		toNullString(p.BrokerID),
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *UsersRepo) Update(ctx context.Context, p users.Profile) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE profiles
		SET first_name = $2,
		    last_name = $3,
		    phone = $4,
		    is_active = $5,
		    updated_at = $6
		WHERE id = $1
	`,
		p.ID,
		p.FirstName,
		p.LastName,
		p.Phone,
		p.IsActive,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return users.Profile{}, ErrNotFound
	}
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE id = $1
	`, id)
	return scanProfile(row)
}

func (r *UsersRepo) GetByCedulaRuc(ctx context.Context, cedulaRuc string) (users.Profile, error) {
	cedulaRuc = strings.TrimSpace(cedulaRuc)
	if cedulaRuc == "" {
		return users.Profile{}, ErrNotFound
	}
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE cedula_ruc = $1
	`, cedulaRuc)
	return scanProfile(row)
}

func (r *UsersRepo) ListByBrokers(ctx context.Context, brokerIDs []string) ([]users.Profile, error) {
	if len(brokerIDs) == 0 {
		return []users.Profile{}, nil
	}

	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE broker_id = ANY($1)
		ORDER BY created_at ASC
	`, brokerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]users.Profile, 0)
	for rows.Next() {
		var p users.Profile
		var brokerID sql.NullString
		if err := rows.Scan(
			&p.ID, &p.FirstName, &p.LastName, &p.CedulaRuc, &p.Phone,
			&brokerID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if brokerID.Valid {
			v := brokerID.String
			p.BrokerID = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProfile(row *sql.Row) (users.Profile, error) {
	var p users.Profile
	var brokerID sql.NullString
	if err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.CedulaRuc, &p.Phone,
		&brokerID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return users.Profile{}, ErrNotFound
		}
		return users.Profile{}, err
	}
	if brokerID.Valid {
		v := brokerID.String
		p.BrokerID = &v
	}
	return p, nil
}
