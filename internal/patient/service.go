package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/deptcare/deptcare/internal/audit"
)

// TxRunner executes fn inside a single unit of work; every repository call
// made through fn's context joins it. Production wiring uses db.WithTx.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Service owns the patient demographic lifecycle. Every mutation is written
// in the same transaction as its audit trail: if either fails, both are
// discarded.
type Service struct {
	repo  Repository
	audit *audit.Service
	tx    TxRunner
}

func NewService(repo Repository, auditSvc *audit.Service, tx TxRunner) *Service {
	return &Service{repo: repo, audit: auditSvc, tx: tx}
}

// RegisterInput carries a new patient's demographics.
type RegisterInput struct {
	UHID      string `json:"uhid"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
	Gender    string `json:"gender"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (in *RegisterInput) validate() error {
	if in.UHID == "" {
		return fmt.Errorf("%w: uhid is required", ErrInvalidInput)
	}
	if in.FirstName == "" {
		return fmt.Errorf("%w: first_name is required", ErrInvalidInput)
	}
	if in.LastName == "" {
		return fmt.Errorf("%w: last_name is required", ErrInvalidInput)
	}
	return nil
}

func parseDOB(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%w: dob must be YYYY-MM-DD", ErrInvalidInput)
	}
	return &t, nil
}

// Register creates the patient and its creation event atomically.
func (s *Service) Register(ctx context.Context, editorID int64, in RegisterInput) (*Patient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	dob, err := parseDOB(in.DOB)
	if err != nil {
		return nil, err
	}

	p := &Patient{
		UHID:      in.UHID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		DOB:       dob,
		Gender:    in.Gender,
		Address:   in.Address,
		Phone:     in.Phone,
		Email:     in.Email,
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.audit.RecordEvent(ctx, editorID, &p.ID, p.UHID, audit.EventPatientCreated,
			fmt.Sprintf("registered %s %s", p.FirstName, p.LastName))
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, uhid string) (*Patient, error) {
	return s.repo.GetByUHID(ctx, uhid)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, query, limit, offset)
}

// Update applies new demographics and appends one audit entry per changed
// field, all in one transaction. An update that changes nothing writes no
// entries.
func (s *Service) Update(ctx context.Context, editorID int64, uhid string, in RegisterInput) (*Patient, error) {
	dob, err := parseDOB(in.DOB)
	if err != nil {
		return nil, err
	}

	var updated *Patient
	err = s.tx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByUHID(ctx, uhid)
		if err != nil {
			return err
		}
		before := existing.AuditSnapshot()

		existing.FirstName = in.FirstName
		existing.LastName = in.LastName
		existing.DOB = dob
		existing.Gender = in.Gender
		existing.Address = in.Address
		existing.Phone = in.Phone
		existing.Email = in.Email

		if err := s.repo.Update(ctx, existing); err != nil {
			return err
		}
		if _, err := s.audit.DiffAndLog(ctx, editorID, &existing.ID, uhid, before, existing.AuditSnapshot()); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove deletes the patient record and logs the deletion atomically.
func (s *Service) Remove(ctx context.Context, editorID int64, uhid string) error {
	return s.tx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByUHID(ctx, uhid)
		if err != nil {
			return err
		}
		// The deletion event carries no patient_id: the row it would
		// reference is gone.
		if err := s.audit.RecordEvent(ctx, editorID, nil, uhid, audit.EventPatientDeleted,
			fmt.Sprintf("removed %s %s", existing.FirstName, existing.LastName)); err != nil {
			return err
		}
		return s.repo.Delete(ctx, uhid)
	})
}
