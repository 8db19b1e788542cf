package records

import (
	"context"
	"fmt"
	"time"

	"github.com/deptcare/deptcare/internal/audit"
	"github.com/deptcare/deptcare/internal/patient"
)

// Service owns clinical entry: medical records and prescriptions. Every
// creation is written in the same transaction as its audit event.
type Service struct {
	records       MedicalRecordRepository
	prescriptions PrescriptionRepository
	patients      patient.Repository
	audit         *audit.Service
	tx            patient.TxRunner
}

func NewService(records MedicalRecordRepository, prescriptions PrescriptionRepository, patients patient.Repository, auditSvc *audit.Service, tx patient.TxRunner) *Service {
	return &Service{
		records:       records,
		prescriptions: prescriptions,
		patients:      patients,
		audit:         auditSvc,
		tx:            tx,
	}
}

// MedicalRecordInput carries a new visit entry.
type MedicalRecordInput struct {
	VisitDate   string            `json:"visit_date"`
	Diagnosis   string            `json:"diagnosis"`
	Treatment   string            `json:"treatment"`
	TestResults map[string]string `json:"test_results"`
}

// AddMedicalRecord stores the visit entry and its creation event atomically.
func (s *Service) AddMedicalRecord(ctx context.Context, editorID int64, uhid string, in MedicalRecordInput) (*MedicalRecord, error) {
	if in.Diagnosis == "" {
		return nil, fmt.Errorf("%w: diagnosis is required", ErrInvalidInput)
	}
	visitDate := time.Now().UTC()
	if in.VisitDate != "" {
		t, err := time.Parse("2006-01-02", in.VisitDate)
		if err != nil {
			return nil, fmt.Errorf("%w: visit_date must be YYYY-MM-DD", ErrInvalidInput)
		}
		visitDate = t
	}

	var rec *MedicalRecord
	err := s.tx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByUHID(ctx, uhid)
		if err != nil {
			return err
		}

		rec = &MedicalRecord{
			PatientID:   p.ID,
			UHID:        uhid,
			VisitDate:   visitDate,
			Diagnosis:   in.Diagnosis,
			Treatment:   in.Treatment,
			TestResults: in.TestResults,
			CreatedBy:   editorID,
		}
		if err := s.records.Create(ctx, rec); err != nil {
			return err
		}
		return s.audit.RecordEvent(ctx, editorID, &p.ID, uhid, audit.EventMedicalRecordCreated,
			fmt.Sprintf("diagnosis: %s", in.Diagnosis))
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) ListMedicalRecords(ctx context.Context, uhid string, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.records.ListByUHID(ctx, uhid, limit, offset)
}

// PrescriptionInput carries a new prescription.
type PrescriptionInput struct {
	VisitDate             string         `json:"visit_date"`
	SpectacleLens         *SpectacleLens `json:"spectacle_lens"`
	LensType              string         `json:"lens_type"`
	Medications           []Medication   `json:"medications"`
	SystemicMedication    string         `json:"systemic_medication"`
	SurgeryRecommendation string         `json:"surgery_recommendation"`
	IOLNotes              string         `json:"iol_notes"`
	PatientInstructions   string         `json:"patient_instructions"`
	FollowUpDate          string         `json:"follow_up_date"`
}

// AddPrescription stores the prescription and its creation event atomically.
// A prescription must carry at least one of: lens values, medications, or a
// surgery recommendation.
func (s *Service) AddPrescription(ctx context.Context, editorID int64, uhid string, in PrescriptionInput) (*Prescription, error) {
	if in.SpectacleLens == nil && len(in.Medications) == 0 && in.SurgeryRecommendation == "" {
		return nil, fmt.Errorf("%w: prescription is empty", ErrInvalidInput)
	}

	visitDate, err := parseOptionalDate(in.VisitDate, "visit_date")
	if err != nil {
		return nil, err
	}
	followUp, err := parseOptionalDate(in.FollowUpDate, "follow_up_date")
	if err != nil {
		return nil, err
	}

	var presc *Prescription
	err = s.tx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByUHID(ctx, uhid)
		if err != nil {
			return err
		}

		presc = &Prescription{
			PatientID:             p.ID,
			UHID:                  uhid,
			VisitDate:             visitDate,
			SpectacleLens:         in.SpectacleLens,
			LensType:              in.LensType,
			Medications:           in.Medications,
			SystemicMedication:    in.SystemicMedication,
			SurgeryRecommendation: in.SurgeryRecommendation,
			IOLNotes:              in.IOLNotes,
			PatientInstructions:   in.PatientInstructions,
			FollowUpDate:          followUp,
			CreatedBy:             editorID,
		}
		if err := s.prescriptions.Create(ctx, presc); err != nil {
			return err
		}
		return s.audit.RecordEvent(ctx, editorID, &p.ID, uhid, audit.EventPrescriptionCreated,
			fmt.Sprintf("%d medications", len(in.Medications)))
	})
	if err != nil {
		return nil, err
	}
	return presc, nil
}

func (s *Service) ListPrescriptions(ctx context.Context, uhid string, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByUHID(ctx, uhid, limit, offset)
}

// AssessRisk scores a retinopathy risk profile. When a UHID is given the
// outcome is written to that patient's audit trail; without one the score is
// purely advisory and nothing is stored.
func (s *Service) AssessRisk(ctx context.Context, editorID int64, uhid string, in RiskInput) (RiskAssessment, error) {
	result := AssessRetinopathyRisk(in)
	if uhid == "" {
		return result, nil
	}

	p, err := s.patients.GetByUHID(ctx, uhid)
	if err != nil {
		return RiskAssessment{}, err
	}
	err = s.audit.RecordEvent(ctx, editorID, &p.ID, uhid, audit.EventRiskAssessed,
		fmt.Sprintf("%s (score %.0f)", result.Grade, result.Score))
	if err != nil {
		return RiskAssessment{}, err
	}
	return result, nil
}

func parseOptionalDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidInput, field)
	}
	return &t, nil
}
