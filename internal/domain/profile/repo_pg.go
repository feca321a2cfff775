package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/biopulse/biopulse/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const profileCols = `id, account_id, full_name, name_key, date_of_birth, sex,
	avatar_color, is_primary, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.AccountID, &p.FullName, &p.NameKey, &p.DateOfBirth, &p.Sex,
		&p.AvatarColor, &p.IsPrimary, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Profile) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO profile (id, account_id, full_name, name_key, date_of_birth, sex,
			avatar_color, is_primary)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.AccountID, p.FullName, p.NameKey, p.DateOfBirth, p.Sex,
		p.AvatarColor, p.IsPrimary)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profile WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *repoPG) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Profile, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+profileCols+` FROM profile
		WHERE account_id = $1
		ORDER BY is_primary DESC, created_at ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Profile) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE profile SET full_name=$2, name_key=$3, date_of_birth=$4, sex=$5,
			avatar_color=$6, is_primary=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FullName, p.NameKey, p.DateOfBirth, p.Sex,
		p.AvatarColor, p.IsPrimary)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM profile WHERE id = $1`, id)
	return err
}
