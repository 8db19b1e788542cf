package analytics

import "time"

// Age bands used on the department dashboard.
const (
	BandChild      = "0-18"
	BandYoungAdult = "19-35"
	BandMiddleAge  = "36-55"
	BandSenior     = "56-75"
	BandElderly    = "75+"
	BandUnknown    = "unknown"
)

// MonthlyCount is one month of patient registrations.
type MonthlyCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// DiagnosisCount is one diagnosis and how often it was recorded.
type DiagnosisCount struct {
	Diagnosis string `json:"diagnosis"`
	Count     int    `json:"count"`
}

// Dashboard is the aggregate view served to the department dashboard.
type Dashboard struct {
	TotalPatients       int              `json:"total_patients"`
	TotalRecords        int              `json:"total_records"`
	AvgVisitsPerPatient float64          `json:"avg_visits_per_patient"`
	LastVisit           *time.Time       `json:"last_visit,omitempty"`
	GenderDistribution  map[string]int   `json:"gender_distribution"`
	AgeDistribution     map[string]int   `json:"age_distribution"`
	MonthlyTrend        []MonthlyCount   `json:"monthly_registrations"`
	TopDiagnoses        []DiagnosisCount `json:"top_diagnoses"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

// AgeBand places an age in years into its dashboard band.
func AgeBand(years int) string {
	switch {
	case years < 0:
		return BandUnknown
	case years <= 18:
		return BandChild
	case years <= 35:
		return BandYoungAdult
	case years <= 55:
		return BandMiddleAge
	case years <= 75:
		return BandSenior
	default:
		return BandElderly
	}
}

// AgeDistribution buckets dates of birth into dashboard bands as of now.
// Patients without a recorded date of birth count under "unknown".
func AgeDistribution(dobs []*time.Time, now time.Time) map[string]int {
	dist := make(map[string]int)
	for _, dob := range dobs {
		if dob == nil {
			dist[BandUnknown]++
			continue
		}
		dist[AgeBand(yearsBetween(*dob, now))]++
	}
	return dist
}

func yearsBetween(dob, at time.Time) int {
	years := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	return years
}
