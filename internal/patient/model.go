package patient

import "time"

// Patient is one demographic record, keyed by the hospital-wide UHID.
type Patient struct {
	ID        int64      `json:"id"`
	UHID      string     `json:"uhid"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	DOB       *time.Time `json:"dob,omitempty"`
	Gender    string     `json:"gender,omitempty"`
	Address   string     `json:"address,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Email     string     `json:"email,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// AuditSnapshot flattens the audited demographic fields to strings, the form
// the diff engine compares.
func (p *Patient) AuditSnapshot() map[string]string {
	dob := ""
	if p.DOB != nil {
		dob = p.DOB.Format("2006-01-02")
	}
	return map[string]string{
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"dob":        dob,
		"gender":     p.Gender,
		"address":    p.Address,
		"phone":      p.Phone,
		"email":      p.Email,
	}
}

// Age in whole years at the given reference time, or -1 when DOB is unknown.
func (p *Patient) Age(at time.Time) int {
	if p.DOB == nil {
		return -1
	}
	years := at.Year() - p.DOB.Year()
	if at.Month() < p.DOB.Month() || (at.Month() == p.DOB.Month() && at.Day() < p.DOB.Day()) {
		years--
	}
	return years
}
