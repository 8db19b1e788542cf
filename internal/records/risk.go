package records

// RiskInput is the clinical profile scored for diabetic retinopathy risk.
type RiskInput struct {
	DiabetesDurationYears float64 `json:"diabetes_duration_years"`
	HbA1c                 float64 `json:"hba1c"`
	SystolicBP            float64 `json:"systolic_bp"`
	DiastolicBP           float64 `json:"diastolic_bp"`
	KidneyDisease         bool    `json:"kidney_disease"`
	HighCholesterol       bool    `json:"high_cholesterol"`
}

// RiskAssessment is the scored outcome with its grade.
type RiskAssessment struct {
	Score float64  `json:"score"`
	Grade string   `json:"grade"`
	Notes []string `json:"notes,omitempty"`
}

// Retinopathy grades, worst first.
const (
	GradePDR          = "Proliferative DR"
	GradeSevereNPDR   = "Severe NPDR"
	GradeModerateNPDR = "Moderate NPDR"
	GradeMildNPDR     = "Mild NPDR"
	GradeLowRisk      = "Low risk"
)

// AssessRetinopathyRisk scores a diabetic patient's retinopathy risk from
// duration of disease, glycemic control, blood pressure, and comorbidities.
func AssessRetinopathyRisk(in RiskInput) RiskAssessment {
	var score float64
	var notes []string

	switch {
	case in.DiabetesDurationYears > 10:
		score += 3
		notes = append(notes, "diabetes duration over 10 years")
	case in.DiabetesDurationYears > 5:
		score++
		notes = append(notes, "diabetes duration over 5 years")
	}

	switch {
	case in.HbA1c >= 8:
		score += 4
		notes = append(notes, "poor glycemic control (HbA1c >= 8)")
	case in.HbA1c >= 7:
		score += 2
		notes = append(notes, "suboptimal glycemic control (HbA1c >= 7)")
	}

	if in.SystolicBP >= 140 || in.DiastolicBP >= 90 {
		score += 2
		notes = append(notes, "hypertension")
	}
	if in.KidneyDisease {
		score += 3
		notes = append(notes, "kidney disease")
	}
	if in.HighCholesterol {
		score++
		notes = append(notes, "high cholesterol")
	}

	return RiskAssessment{Score: score, Grade: gradeFor(score), Notes: notes}
}

func gradeFor(score float64) string {
	switch {
	case score >= 10:
		return GradePDR
	case score >= 7:
		return GradeSevereNPDR
	case score >= 4:
		return GradeModerateNPDR
	case score >= 2:
		return GradeMildNPDR
	}
	return GradeLowRisk
}
