package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deptcare/deptcare/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entryCols = `id, patient_id, uhid, editor_id, field_name, old_value, new_value, edited_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var oldValue *string
	err := row.Scan(&e.ID, &e.PatientID, &e.UHID, &e.EditorID, &e.FieldName, &oldValue, &e.NewValue, &e.EditedAt)
	e.OldValue = oldValue
	return &e, err
}

func (r *repoPG) Insert(ctx context.Context, e *Entry) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_edit_history (patient_id, uhid, editor_id, field_name, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, edited_at`,
		e.PatientID, e.UHID, e.EditorID, e.FieldName, e.OldValue, e.NewValue,
	).Scan(&e.ID, &e.EditedAt)
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*Entry, int, error) {
	query := `SELECT ` + entryCols + ` FROM patient_edit_history WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM patient_edit_history WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.UHID != "" {
		query += fmt.Sprintf(` AND uhid = $%d`, idx)
		countQuery += fmt.Sprintf(` AND uhid = $%d`, idx)
		args = append(args, f.UHID)
		idx++
	}
	if f.From != nil {
		query += fmt.Sprintf(` AND edited_at >= $%d`, idx)
		countQuery += fmt.Sprintf(` AND edited_at >= $%d`, idx)
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		query += fmt.Sprintf(` AND edited_at <= $%d`, idx)
		countQuery += fmt.Sprintf(` AND edited_at <= $%d`, idx)
		args = append(args, *f.To)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` ORDER BY edited_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
