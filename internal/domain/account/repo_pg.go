package account

import (
	"context"
	"errors"
	"time"

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

const accountCols = `id, external_id, username, display_name, locale, plan, plan_expires_at,
	monthly_uploads, monthly_uploads_reset_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.ExternalID, &a.Username, &a.DisplayName, &a.Locale, &a.Plan, &a.PlanExpiresAt,
		&a.MonthlyUploads, &a.MonthlyUploadsResetAt, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Account) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO account (id, external_id, username, display_name, locale, plan,
			plan_expires_at, monthly_uploads, monthly_uploads_reset_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.ExternalID, a.Username, a.DisplayName, a.Locale, a.Plan,
		a.PlanExpiresAt, a.MonthlyUploads, a.MonthlyUploadsResetAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	a, err := scanAccount(r.conn(ctx).QueryRow(ctx, `SELECT `+accountCols+` FROM account WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *repoPG) GetByExternalID(ctx context.Context, externalID int64) (*Account, error) {
	a, err := scanAccount(r.conn(ctx).QueryRow(ctx, `SELECT `+accountCols+` FROM account WHERE external_id = $1`, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *repoPG) Update(ctx context.Context, a *Account) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE account SET username=$2, display_name=$3, locale=$4, plan=$5,
			plan_expires_at=$6, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Username, a.DisplayName, a.Locale, a.Plan, a.PlanExpiresAt)
	return err
}

func (r *repoPG) IncrementUploads(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE account SET monthly_uploads = monthly_uploads + 1, updated_at=NOW()
		WHERE id = $1`, id)
	return err
}

func (r *repoPG) ResetUploads(ctx context.Context, id uuid.UUID, nextReset time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE account SET monthly_uploads = 0, monthly_uploads_reset_at = $2, updated_at=NOW()
		WHERE id = $1`, id, nextReset)
	return err
}
