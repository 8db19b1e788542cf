package audit

import (
	"context"
	"fmt"
	"sort"
)

// Service is the diff engine feeding the edit history. It never updates or
// deletes entries; the history is the system of record for who changed what,
// when.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// DiffAndLog compares two flat snapshots of an entity's audited fields and
// writes one entry per changed field. A field whose old and new values are
// equal produces no entry; a field absent from the new snapshot is treated
// as cleared. Returns the number of entries written.
//
// Callers run this inside the same unit of work as the entity mutation, so a
// failed write discards the mutation and its trail together.
func (s *Service) DiffAndLog(ctx context.Context, editorID int64, patientID *int64, uhid string, before, after map[string]string) (int, error) {
	fields := make([]string, 0, len(before))
	for field := range before {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	written := 0
	for _, field := range fields {
		oldValue := before[field]
		newValue := after[field]
		if oldValue == newValue {
			continue
		}

		old := oldValue
		entry := &Entry{
			PatientID: patientID,
			UHID:      uhid,
			EditorID:  editorID,
			FieldName: field,
			OldValue:  &old,
			NewValue:  newValue,
		}
		if err := s.repo.Insert(ctx, entry); err != nil {
			return written, fmt.Errorf("recording change to %s: %w", field, err)
		}
		written++
	}
	return written, nil
}

// RecordEvent writes a single synthetic entry for a creation or deletion,
// where per-field diffing has no prior state to compare against.
func (s *Service) RecordEvent(ctx context.Context, editorID int64, patientID *int64, uhid, event, description string) error {
	entry := &Entry{
		PatientID: patientID,
		UHID:      uhid,
		EditorID:  editorID,
		FieldName: event,
		NewValue:  description,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("recording %s event: %w", event, err)
	}
	return nil
}

// List returns entries newest-first, with the total count before paging.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*Entry, int, error) {
	return s.repo.List(ctx, f)
}
