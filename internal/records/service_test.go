package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deptcare/deptcare/internal/audit"
	"github.com/deptcare/deptcare/internal/patient"
)

type mockRecordRepo struct {
	records   []*MedicalRecord
	createErr error
}

func (m *mockRecordRepo) Create(_ context.Context, r *MedicalRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	r.ID = int64(len(m.records) + 1)
	r.CreatedAt = time.Now()
	m.records = append(m.records, r)
	return nil
}

func (m *mockRecordRepo) ListByUHID(_ context.Context, uhid string, _, _ int) ([]*MedicalRecord, int, error) {
	var out []*MedicalRecord
	for _, r := range m.records {
		if r.UHID == uhid {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

type mockPrescriptionRepo struct {
	prescriptions []*Prescription
}

func (m *mockPrescriptionRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = int64(len(m.prescriptions) + 1)
	p.CreatedAt = time.Now()
	m.prescriptions = append(m.prescriptions, p)
	return nil
}

func (m *mockPrescriptionRepo) ListByUHID(_ context.Context, uhid string, _, _ int) ([]*Prescription, int, error) {
	var out []*Prescription
	for _, p := range m.prescriptions {
		if p.UHID == uhid {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

type mockPatientRepo struct {
	patients map[string]*patient.Patient
}

func (m *mockPatientRepo) Create(_ context.Context, _ *patient.Patient) error { return nil }
func (m *mockPatientRepo) Update(_ context.Context, _ *patient.Patient) error { return nil }
func (m *mockPatientRepo) Delete(_ context.Context, _ string) error           { return nil }
func (m *mockPatientRepo) Search(_ context.Context, _ string, _, _ int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}

func (m *mockPatientRepo) GetByUHID(_ context.Context, uhid string) (*patient.Patient, error) {
	p, ok := m.patients[uhid]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type auditSink struct {
	entries []*audit.Entry
}

func (a *auditSink) Insert(_ context.Context, e *audit.Entry) error {
	cp := *e
	a.entries = append(a.entries, &cp)
	return nil
}

func (a *auditSink) List(_ context.Context, _ audit.ListFilter) ([]*audit.Entry, int, error) {
	return a.entries, len(a.entries), nil
}

func passTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newFixture() (*Service, *mockRecordRepo, *auditSink) {
	records := &mockRecordRepo{}
	sink := &auditSink{}
	svc := NewService(
		records,
		&mockPrescriptionRepo{},
		&mockPatientRepo{patients: map[string]*patient.Patient{
			"UHID-1": {ID: 7, UHID: "UHID-1", FirstName: "Asha", LastName: "Verma"},
		}},
		audit.NewService(sink),
		passTx,
	)
	return svc, records, sink
}

func TestAddMedicalRecord(t *testing.T) {
	svc, records, sink := newFixture()

	rec, err := svc.AddMedicalRecord(context.Background(), 42, "UHID-1", MedicalRecordInput{
		VisitDate:   "2026-08-30",
		Diagnosis:   "Moderate NPDR",
		Treatment:   "anti-VEGF",
		TestResults: map[string]string{"hba1c": "8.1"},
	})
	if err != nil {
		t.Fatalf("AddMedicalRecord: %v", err)
	}
	if rec.PatientID != 7 || rec.CreatedBy != 42 {
		t.Fatalf("record = %+v", rec)
	}
	if len(records.records) != 1 {
		t.Fatalf("stored %d records", len(records.records))
	}

	if len(sink.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(sink.entries))
	}
	e := sink.entries[0]
	if e.FieldName != audit.EventMedicalRecordCreated || e.NewValue != "diagnosis: Moderate NPDR" {
		t.Fatalf("entry = %+v", e)
	}
	if e.OldValue != nil {
		t.Fatal("creation event must carry no old value")
	}
}

func TestAddMedicalRecord_RequiresDiagnosis(t *testing.T) {
	svc, _, sink := newFixture()

	_, err := svc.AddMedicalRecord(context.Background(), 42, "UHID-1", MedicalRecordInput{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(sink.entries) != 0 {
		t.Fatal("validation failure must not write audit entries")
	}
}

func TestAddMedicalRecord_UnknownPatient(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.AddMedicalRecord(context.Background(), 42, "UHID-404", MedicalRecordInput{Diagnosis: "x"})
	if !errors.Is(err, patient.ErrNotFound) {
		t.Fatalf("err = %v, want patient.ErrNotFound", err)
	}
}

func TestAddPrescription(t *testing.T) {
	svc, _, sink := newFixture()

	presc, err := svc.AddPrescription(context.Background(), 42, "UHID-1", PrescriptionInput{
		Medications: []Medication{
			{Name: "Timolol 0.5%", Dosage: "1 drop", Frequency: "BD", Duration: "30 days"},
		},
		FollowUpDate: "2026-10-01",
	})
	if err != nil {
		t.Fatalf("AddPrescription: %v", err)
	}
	if presc.FollowUpDate == nil || presc.FollowUpDate.Format("2006-01-02") != "2026-10-01" {
		t.Fatalf("follow up = %v", presc.FollowUpDate)
	}
	if len(sink.entries) != 1 || sink.entries[0].FieldName != audit.EventPrescriptionCreated {
		t.Fatalf("entries = %+v", sink.entries)
	}
}

func TestAssessRisk_AuditsWhenPatientGiven(t *testing.T) {
	svc, _, sink := newFixture()

	in := RiskInput{DiabetesDurationYears: 12, HbA1c: 8.5}
	result, err := svc.AssessRisk(context.Background(), 42, "UHID-1", in)
	if err != nil {
		t.Fatalf("AssessRisk: %v", err)
	}
	if result.Grade != GradeSevereNPDR {
		t.Fatalf("grade = %q", result.Grade)
	}

	if len(sink.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(sink.entries))
	}
	e := sink.entries[0]
	if e.FieldName != audit.EventRiskAssessed || e.NewValue != "Severe NPDR (score 7)" {
		t.Fatalf("entry = %+v", e)
	}
}

func TestAssessRisk_AdvisoryWithoutPatient(t *testing.T) {
	svc, _, sink := newFixture()

	result, err := svc.AssessRisk(context.Background(), 42, "", RiskInput{})
	if err != nil {
		t.Fatalf("AssessRisk: %v", err)
	}
	if result.Grade != GradeLowRisk {
		t.Fatalf("grade = %q", result.Grade)
	}
	if len(sink.entries) != 0 {
		t.Fatal("advisory assessment must not write audit entries")
	}
}

func TestAddPrescription_RejectsEmpty(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.AddPrescription(context.Background(), 42, "UHID-1", PrescriptionInput{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
