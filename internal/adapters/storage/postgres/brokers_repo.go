package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/brokers"
)

type BrokersRepo struct {
	db *sql.DB
}

func NewBrokersRepo(db *sql.DB) *BrokersRepo {
	return &BrokersRepo{db: db}
}

const brokerColumns = `id, name, description, parent_id, created_at, updated_at`

func (r *BrokersRepo) Create(ctx context.Context, b brokers.Broker) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO brokers (id, name, description, parent_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		b.ID,
		b.Name,
		b.Description,
		toNullString(b.ParentID),
		b.CreatedAt,
		b.UpdatedAt,
	)
	return err
}

func (r *BrokersRepo) GetByID(ctx context.Context, id string) (brokers.Broker, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return brokers.Broker{}, ErrNotFound
	}
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+brokerColumns+`
		FROM brokers
		WHERE id = $1
	`, id)
	return scanBroker(row)
}

func (r *BrokersRepo) GetByName(ctx context.Context, name string) (brokers.Broker, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return brokers.Broker{}, ErrNotFound
	}
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+brokerColumns+`
		FROM brokers
		WHERE name = $1
	`, name)
	return scanBroker(row)
}

func (r *BrokersRepo) ListChildren(ctx context.Context, parentID string) ([]brokers.Broker, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT `+brokerColumns+`
		FROM brokers
		WHERE parent_id = $1
		ORDER BY created_at ASC, name ASC
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]brokers.Broker, 0)
	for rows.Next() {
		b, err := scanBrokerRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DescendantIDs expande la jerarquía con un CTE recursivo sobre
// (id, parent_id), acotado a maxDepth niveles bajo la raíz. El orden por
// (depth, created_at) da la expansión por niveles que espera el servicio.
func (r *BrokersRepo) DescendantIDs(ctx context.Context, rootID string, maxDepth int) ([]string, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		WITH RECURSIVE descendants AS (
			SELECT id, parent_id, created_at, 0 AS depth
			FROM brokers
			WHERE id = $1
			UNION ALL
			SELECT b.id, b.parent_id, b.created_at, d.depth + 1
			FROM brokers b
			JOIN descendants d ON b.parent_id = d.id
			WHERE d.depth < $2
		)
		SELECT id FROM descendants
		ORDER BY depth ASC, created_at ASC
	`, rootID, maxDepth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIDs(rows)
}

// AncestorIDs sube por parent_id hasta la raíz (o hasta maxDepth) y devuelve
// la cadena root-first, sin incluir al broker consultado.
func (r *BrokersRepo) AncestorIDs(ctx context.Context, childID string, maxDepth int) ([]string, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_id, 0 AS depth
			FROM brokers
			WHERE id = $1
			UNION ALL
			SELECT b.id, b.parent_id, a.depth + 1
			FROM brokers b
			JOIN ancestors a ON b.id = a.parent_id
			WHERE a.depth < $2
		)
		SELECT id FROM ancestors
		WHERE depth > 0
		ORDER BY depth DESC
	`, childID, maxDepth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIDs(rows)
}

// helpers

func scanIDs(rows *sql.Rows) ([]string, error) {
	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanBroker(row *sql.Row) (brokers.Broker, error) {
	var b brokers.Broker
	var parentID sql.NullString
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &parentID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return brokers.Broker{}, ErrNotFound
		}
		return brokers.Broker{}, err
	}
	if parentID.Valid {
		v := parentID.String
		b.ParentID = &v
	}
	return b, nil
}

func scanBrokerRows(rows *sql.Rows) (brokers.Broker, error) {
	var b brokers.Broker
	var parentID sql.NullString
	if err := rows.Scan(&b.ID, &b.Name, &b.Description, &parentID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return brokers.Broker{}, err
	}
	if parentID.Valid {
		v := parentID.String
		b.ParentID = &v
	}
	return b, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
