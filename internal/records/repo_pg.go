package records

import (
	"context"
	"encoding/json"

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// marshalJSONB encodes a value for a JSONB column, mapping nil to SQL NULL.
func marshalJSONB(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// =========== Medical records ===========

type medicalRecordRepoPG struct{ pool *pgxpool.Pool }

func NewMedicalRecordRepoPG(pool *pgxpool.Pool) MedicalRecordRepository {
	return &medicalRecordRepoPG{pool: pool}
}

const recordCols = `id, patient_id, uhid, visit_date, diagnosis, treatment, test_results, created_by, created_at, updated_at`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var r MedicalRecord
	var treatment *string
	var testResults []byte
	err := row.Scan(&r.ID, &r.PatientID, &r.UHID, &r.VisitDate, &r.Diagnosis,
		&treatment, &testResults, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if treatment != nil {
		r.Treatment = *treatment
	}
	if len(testResults) > 0 {
		if err := json.Unmarshal(testResults, &r.TestResults); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

func (rp *medicalRecordRepoPG) Create(ctx context.Context, r *MedicalRecord) error {
	testResults, err := marshalJSONB(r.TestResults)
	if err != nil {
		return err
	}
	return conn(ctx, rp.pool).QueryRow(ctx, `
		INSERT INTO patient_medical_records (patient_id, uhid, visit_date, diagnosis, treatment, test_results, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		r.PatientID, r.UHID, r.VisitDate, r.Diagnosis, r.Treatment, testResults, r.CreatedBy,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
}

func (rp *medicalRecordRepoPG) ListByUHID(ctx context.Context, uhid string, limit, offset int) ([]*MedicalRecord, int, error) {
	q := conn(ctx, rp.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patient_medical_records WHERE uhid = $1`, uhid).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	rows, err := q.Query(ctx, `SELECT `+recordCols+` FROM patient_medical_records
		WHERE uhid = $1 ORDER BY visit_date DESC LIMIT $2 OFFSET $3`, uhid, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*MedicalRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, r)
	}
	return records, total, rows.Err()
}

// =========== Prescriptions ===========

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

const prescriptionCols = `id, patient_id, uhid, visit_date, spectacle_lens, lens_type, medications,
	systemic_medication, surgery_recommendation, iol_notes, patient_instructions, follow_up_date,
	created_by, created_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var spectacleLens, medications []byte
	var lensType, systemic, surgery, iol, instructions *string
	err := row.Scan(&p.ID, &p.PatientID, &p.UHID, &p.VisitDate, &spectacleLens, &lensType, &medications,
		&systemic, &surgery, &iol, &instructions, &p.FollowUpDate, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(spectacleLens) > 0 {
		if err := json.Unmarshal(spectacleLens, &p.SpectacleLens); err != nil {
			return nil, err
		}
	}
	if len(medications) > 0 {
		if err := json.Unmarshal(medications, &p.Medications); err != nil {
			return nil, err
		}
	}
	if lensType != nil {
		p.LensType = *lensType
	}
	if systemic != nil {
		p.SystemicMedication = *systemic
	}
	if surgery != nil {
		p.SurgeryRecommendation = *surgery
	}
	if iol != nil {
		p.IOLNotes = *iol
	}
	if instructions != nil {
		p.PatientInstructions = *instructions
	}
	return &p, nil
}

func (rp *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	spectacleLens, err := marshalJSONB(p.SpectacleLens)
	if err != nil {
		return err
	}
	medications, err := marshalJSONB(p.Medications)
	if err != nil {
		return err
	}
	return conn(ctx, rp.pool).QueryRow(ctx, `
		INSERT INTO patient_prescriptions (patient_id, uhid, visit_date, spectacle_lens, lens_type,
			medications, systemic_medication, surgery_recommendation, iol_notes, patient_instructions,
			follow_up_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`,
		p.PatientID, p.UHID, p.VisitDate, spectacleLens, p.LensType,
		medications, p.SystemicMedication, p.SurgeryRecommendation, p.IOLNotes, p.PatientInstructions,
		p.FollowUpDate, p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt)
}

func (rp *prescriptionRepoPG) ListByUHID(ctx context.Context, uhid string, limit, offset int) ([]*Prescription, int, error) {
	q := conn(ctx, rp.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patient_prescriptions WHERE uhid = $1`, uhid).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	rows, err := q.Query(ctx, `SELECT `+prescriptionCols+` FROM patient_prescriptions
		WHERE uhid = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, uhid, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var prescriptions []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		prescriptions = append(prescriptions, p)
	}
	return prescriptions, total, rows.Err()
}
