package biomarker

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const biomarkerCols = `id, code, canonical_name, name_local, aliases, category, unit,
	ref_male_min, ref_male_max, ref_female_min, ref_female_max, sort_order, created_at`

func scanBiomarker(row pgx.Row) (*Biomarker, error) {
	var b Biomarker
	err := row.Scan(&b.ID, &b.Code, &b.CanonicalName, &b.NameLocal, &b.Aliases, &b.Category, &b.Unit,
		&b.RefMaleMin, &b.RefMaleMax, &b.RefFemaleMin, &b.RefFemaleMax, &b.SortOrder, &b.CreatedAt)
	return &b, err
}

func (r *repoPG) ListAll(ctx context.Context) ([]*Biomarker, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+biomarkerCols+` FROM biomarker ORDER BY sort_order ASC, code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Biomarker
	for rows.Next() {
		b, err := scanBiomarker(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
