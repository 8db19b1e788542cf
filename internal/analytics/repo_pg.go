package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) TotalPatients(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total)
	return total, err
}

func (r *repoPG) VisitStats(ctx context.Context) (int, *time.Time, error) {
	var total int
	var lastVisit *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), MAX(visit_date) FROM patient_medical_records`,
	).Scan(&total, &lastVisit)
	return total, lastVisit, err
}

func (r *repoPG) GenderDistribution(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(NULLIF(gender, ''), 'unknown'), COUNT(*)
		FROM patients
		GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[string]int)
	for rows.Next() {
		var gender string
		var count int
		if err := rows.Scan(&gender, &count); err != nil {
			return nil, err
		}
		dist[gender] = count
	}
	return dist, rows.Err()
}

func (r *repoPG) DatesOfBirth(ctx context.Context) ([]*time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT dob FROM patients`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dobs []*time.Time
	for rows.Next() {
		var dob *time.Time
		if err := rows.Scan(&dob); err != nil {
			return nil, err
		}
		dobs = append(dobs, dob)
	}
	return dobs, rows.Err()
}

func (r *repoPG) MonthlyRegistrations(ctx context.Context, months int) ([]MonthlyCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, COUNT(*)
		FROM patients
		WHERE created_at >= date_trunc('month', NOW()) - make_interval(months => $1 - 1)
		GROUP BY 1
		ORDER BY 1`, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []MonthlyCount
	for rows.Next() {
		var mc MonthlyCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, err
		}
		trend = append(trend, mc)
	}
	return trend, rows.Err()
}

func (r *repoPG) TopDiagnoses(ctx context.Context, limit int) ([]DiagnosisCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT diagnosis, COUNT(*)
		FROM patient_medical_records
		WHERE diagnosis <> ''
		GROUP BY diagnosis
		ORDER BY COUNT(*) DESC, diagnosis
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var top []DiagnosisCount
	for rows.Next() {
		var dc DiagnosisCount
		if err := rows.Scan(&dc.Diagnosis, &dc.Count); err != nil {
			return nil, err
		}
		top = append(top, dc)
	}
	return top, rows.Err()
}
