package orders

import "time"

// Priority levels accepted by the external lab and imaging services.
const (
	PriorityRoutine = "routine"
	PriorityUrgent  = "urgent"
	PriorityStat    = "stat"
)

func ValidPriority(p string) bool {
	switch p {
	case PriorityRoutine, PriorityUrgent, PriorityStat:
		return true
	}
	return false
}

// Poll outcomes.
const (
	PollPending   = "pending"
	PollCompleted = "completed"
	PollTimedOut  = "timed_out"
)

// OrderRecord is one entry in the department order ledger. Records are
// appended once, after the external service accepts a request. The only
// later mutation is ArtifactName, set when a result file lands on disk.
type OrderRecord struct {
	OrderID           string    `json:"order_id"`
	ExternalReference string    `json:"external_reference"`
	SubjectID         string    `json:"subject_id"`
	Department        string    `json:"department"`
	Priority          string    `json:"priority"`
	RequestedItems    []string  `json:"requested_items"`
	Specimen          string    `json:"specimen,omitempty"`
	ScanType          string    `json:"scan_type,omitempty"`
	BodyPart          string    `json:"body_part,omitempty"`
	ArtifactName      string    `json:"artifact_name,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// DepartmentStatus is one department's portion of a combined lab order.
type DepartmentStatus struct {
	Department string   `json:"department"`
	Status     string   `json:"status"`
	Results    []string `json:"results"`
}

// StatusSummary is the normalized view of a remote order's progress.
// Status is "unknown" when the remote service could not be reached.
type StatusSummary struct {
	OrderID       string             `json:"order_id"`
	Status        string             `json:"status"`
	PerDepartment []DepartmentStatus `json:"per_department,omitempty"`
}
