package records

import "time"

// MedicalRecord is one clinical visit entry for a patient.
type MedicalRecord struct {
	ID          int64             `json:"id"`
	PatientID   int64             `json:"patient_id"`
	UHID        string            `json:"uhid"`
	VisitDate   time.Time         `json:"visit_date"`
	Diagnosis   string            `json:"diagnosis"`
	Treatment   string            `json:"treatment,omitempty"`
	TestResults map[string]string `json:"test_results,omitempty"`
	CreatedBy   int64             `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Medication is one line of a prescription.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// SpectacleLens holds per-eye refraction values as entered by the clinician.
type SpectacleLens struct {
	RightSphere   string `json:"right_sphere,omitempty"`
	RightCylinder string `json:"right_cylinder,omitempty"`
	RightAxis     string `json:"right_axis,omitempty"`
	LeftSphere    string `json:"left_sphere,omitempty"`
	LeftCylinder  string `json:"left_cylinder,omitempty"`
	LeftAxis      string `json:"left_axis,omitempty"`
	Add           string `json:"add,omitempty"`
}

// Prescription is one prescription entry, covering optical and medication
// orders from a single visit.
type Prescription struct {
	ID                    int64          `json:"id"`
	PatientID             int64          `json:"patient_id"`
	UHID                  string         `json:"uhid"`
	VisitDate             *time.Time     `json:"visit_date,omitempty"`
	SpectacleLens         *SpectacleLens `json:"spectacle_lens,omitempty"`
	LensType              string         `json:"lens_type,omitempty"`
	Medications           []Medication   `json:"medications,omitempty"`
	SystemicMedication    string         `json:"systemic_medication,omitempty"`
	SurgeryRecommendation string         `json:"surgery_recommendation,omitempty"`
	IOLNotes              string         `json:"iol_notes,omitempty"`
	PatientInstructions   string         `json:"patient_instructions,omitempty"`
	FollowUpDate          *time.Time     `json:"follow_up_date,omitempty"`
	CreatedBy             int64          `json:"created_by"`
	CreatedAt             time.Time      `json:"created_at"`
}
