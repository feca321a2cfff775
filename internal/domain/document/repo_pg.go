package document

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

const docCols = `id, account_id, profile_id, storage_path, file_type, file_size,
	status, error_message, parsed_name, parsed_dob, parsed_sex,
	test_date, lab_name, document_type, language, is_partial, parsed_payload,
	ai_model, ai_tokens_in, ai_tokens_out, processing_time_ms, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.AccountID, &d.ProfileID, &d.StoragePath, &d.FileType, &d.FileSize,
		&d.Status, &d.ErrorMessage, &d.ParsedName, &d.ParsedDOB, &d.ParsedSex,
		&d.TestDate, &d.LabName, &d.DocumentType, &d.Language, &d.IsPartial, &d.ParsedPayload,
		&d.AIModel, &d.AITokensIn, &d.AITokensOut, &d.ProcessingTimeMs, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO document (id, account_id, profile_id, storage_path, file_type, file_size, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.AccountID, d.ProfileID, d.StoragePath, d.FileType, d.FileSize, d.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := scanDocument(r.conn(ctx).QueryRow(ctx, `SELECT `+docCols+` FROM document WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (r *repoPG) Update(ctx context.Context, d *Document) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE document SET profile_id=$2, status=$3, error_message=$4, storage_path=$18,
			parsed_name=$5, parsed_dob=$6, parsed_sex=$7,
			test_date=$8, lab_name=$9, document_type=$10, language=$11, is_partial=$12,
			parsed_payload=$13,
			ai_model=$14, ai_tokens_in=$15, ai_tokens_out=$16, processing_time_ms=$17,
			updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.ProfileID, d.Status, d.ErrorMessage,
		d.ParsedName, d.ParsedDOB, d.ParsedSex,
		d.TestDate, d.LabName, d.DocumentType, d.Language, d.IsPartial,
		d.ParsedPayload,
		d.AIModel, d.AITokensIn, d.AITokensOut, d.ProcessingTimeMs,
		d.StoragePath)
	return err
}

func (r *repoPG) HasCompleted(ctx context.Context, accountID uuid.UUID, patientName, testDate string, documentType *string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM document
			WHERE account_id = $1 AND status = 'done'
			  AND parsed_name = $2 AND test_date = $3
			  AND ($4::text IS NULL OR document_type = $4)
		)`, accountID, patientName, testDate, documentType).Scan(&exists)
	return exists, err
}

func (r *repoPG) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM document WHERE account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+docCols+` FROM document WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListByProfile(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM document WHERE profile_id = $1`, profileID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+docCols+` FROM document WHERE profile_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, profileID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// =========== Reading Repository ===========

type readingRepoPG struct{ pool *pgxpool.Pool }

func NewReadingRepoPG(pool *pgxpool.Pool) ReadingRepository { return &readingRepoPG{pool: pool} }

func (r *readingRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const readingCols = `id, document_id, profile_id, biomarker_id, original_name,
	value, value_text, unit, ref_min, ref_max, flag, tested_at, created_at`

func scanReading(row pgx.Row) (*Reading, error) {
	var rd Reading
	err := row.Scan(&rd.ID, &rd.DocumentID, &rd.ProfileID, &rd.BiomarkerID, &rd.OriginalName,
		&rd.Value, &rd.ValueText, &rd.Unit, &rd.RefMin, &rd.RefMax, &rd.Flag, &rd.TestedAt, &rd.CreatedAt)
	return &rd, err
}

func (r *readingRepoPG) CreateBatch(ctx context.Context, readings []*Reading) error {
	if len(readings) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rd := range readings {
		rd.ID = uuid.New()
		batch.Queue(`
			INSERT INTO reading (id, document_id, profile_id, biomarker_id, original_name,
				value, value_text, unit, ref_min, ref_max, flag, tested_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			rd.ID, rd.DocumentID, rd.ProfileID, rd.BiomarkerID, rd.OriginalName,
			rd.Value, rd.ValueText, rd.Unit, rd.RefMin, rd.RefMax, rd.Flag, rd.TestedAt)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range readings {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *readingRepoPG) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*Reading, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+readingCols+` FROM reading WHERE document_id = $1 ORDER BY created_at ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Reading
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rd)
	}
	return items, rows.Err()
}

func (r *readingRepoPG) ListByProfileBiomarker(ctx context.Context, profileID, biomarkerID uuid.UUID) ([]*Reading, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+readingCols+` FROM reading
		WHERE profile_id = $1 AND biomarker_id = $2
		ORDER BY tested_at ASC`, profileID, biomarkerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Reading
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rd)
	}
	return items, rows.Err()
}
