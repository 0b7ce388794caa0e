package postgres

import (
	"context"
	"database/sql"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/invitations"
)

type InvitationsRepo struct {
	db *sql.DB
}

func NewInvitationsRepo(db *sql.DB) *InvitationsRepo {
	return &InvitationsRepo{db: db}
}

const invitationColumns = `id, token, email, invited_by, parent_broker_id,
	child_broker_name, child_broker_description, status, expires_at, created_at, updated_at`

func (r *InvitationsRepo) Create(ctx context.Context, i invitations.Invitation) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO invitations (
			id, token, email, invited_by, parent_broker_id,
			child_broker_name, child_broker_description, status, expires_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		i.ID, i.Token, i.Email, i.InvitedBy, i.ParentBrokerID,
		i.ChildBrokerName, i.ChildBrokerDescription, string(i.Status), i.ExpiresAt, i.CreatedAt, i.UpdatedAt,
	)
	return err
}

func (r *InvitationsRepo) Update(ctx context.Context, i invitations.Invitation) error {
	res, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE invitations
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, i.ID, string(i.Status), i.UpdatedAt)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *InvitationsRepo) GetByID(ctx context.Context, id string) (invitations.Invitation, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations WHERE id = $1
	`, id)
	return scanInvitation(row.Scan)
}

func (r *InvitationsRepo) GetByToken(ctx context.Context, token string) (invitations.Invitation, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations WHERE token = $1
	`, token)
	return scanInvitation(row.Scan)
}

func (r *InvitationsRepo) ListByEmail(ctx context.Context, email string) ([]invitations.Invitation, error) {
	return r.list(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations WHERE email = $1
		ORDER BY created_at ASC
	`, email)
}

func (r *InvitationsRepo) ListByBrokers(ctx context.Context, brokerIDs []string) ([]invitations.Invitation, error) {
	if len(brokerIDs) == 0 {
		return []invitations.Invitation{}, nil
	}
	return r.list(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations WHERE parent_broker_id = ANY($1)
		ORDER BY created_at ASC
	`, brokerIDs)
}

func (r *InvitationsRepo) list(ctx context.Context, query string, arg any) ([]invitations.Invitation, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]invitations.Invitation, 0)
	for rows.Next() {
		i, err := scanInvitation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func scanInvitation(scan func(dest ...any) error) (invitations.Invitation, error) {
	var i invitations.Invitation
	var status string
	if err := scan(
		&i.ID, &i.Token, &i.Email, &i.InvitedBy, &i.ParentBrokerID,
		&i.ChildBrokerName, &i.ChildBrokerDescription, &status, &i.ExpiresAt, &i.CreatedAt, &i.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return invitations.Invitation{}, ErrNotFound
		}
		return invitations.Invitation{}, err
	}
	i.Status = invitations.Status(status)
	return i, nil
}
