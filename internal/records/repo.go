package records

import (
	"context"
	"errors"
)

var ErrInvalidInput = errors.New("invalid record input")

// MedicalRecordRepository persists visit records. Calls made inside a
// db.WithTx unit of work join the surrounding transaction.
type MedicalRecordRepository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	ListByUHID(ctx context.Context, uhid string, limit, offset int) ([]*MedicalRecord, int, error)
}

// PrescriptionRepository persists prescriptions.
type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	ListByUHID(ctx context.Context, uhid string, limit, offset int) ([]*Prescription, int, error)
}
