package audit

import "time"

// Synthetic field names for events that are not per-field diffs.
const (
	EventMedicalRecordCreated = "medical_record_created"
	EventPrescriptionCreated  = "prescription_created"
	EventPatientCreated       = "patient_created"
	EventPatientDeleted       = "patient_deleted"
	EventUserCreated          = "user_created"
	EventUserDeleted          = "user_deleted"
	EventRiskAssessed         = "risk_assessed"
)

// Entry is one row of the edit history: a single field change on a tracked
// entity, or a creation/deletion event. Entries are never updated or deleted.
type Entry struct {
	ID        int64     `json:"id"`
	PatientID *int64    `json:"patient_id,omitempty"`
	UHID      string    `json:"uhid,omitempty"`
	EditorID  int64     `json:"editor_id"`
	FieldName string    `json:"field_name"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value"`
	EditedAt  time.Time `json:"edited_at"`
}
