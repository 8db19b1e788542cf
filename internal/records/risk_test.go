package records

import "testing"

func TestAssessRetinopathyRisk(t *testing.T) {
	cases := []struct {
		name      string
		in        RiskInput
		wantScore float64
		wantGrade string
	}{
		{
			name:      "no risk factors",
			in:        RiskInput{},
			wantScore: 0,
			wantGrade: GradeLowRisk,
		},
		{
			name:      "moderate duration only",
			in:        RiskInput{DiabetesDurationYears: 7},
			wantScore: 1,
			wantGrade: GradeLowRisk,
		},
		{
			name:      "long duration",
			in:        RiskInput{DiabetesDurationYears: 12},
			wantScore: 3,
			wantGrade: GradeMildNPDR,
		},
		{
			name:      "poor control alone",
			in:        RiskInput{HbA1c: 8.5},
			wantScore: 4,
			wantGrade: GradeModerateNPDR,
		},
		{
			name:      "suboptimal control with hypertension",
			in:        RiskInput{HbA1c: 7.2, SystolicBP: 150},
			wantScore: 4,
			wantGrade: GradeModerateNPDR,
		},
		{
			name:      "diastolic hypertension counts",
			in:        RiskInput{SystolicBP: 120, DiastolicBP: 95},
			wantScore: 2,
			wantGrade: GradeMildNPDR,
		},
		{
			name:      "severe profile",
			in:        RiskInput{DiabetesDurationYears: 11, HbA1c: 8, KidneyDisease: false},
			wantScore: 7,
			wantGrade: GradeSevereNPDR,
		},
		{
			name: "everything",
			in: RiskInput{
				DiabetesDurationYears: 15,
				HbA1c:                 9.1,
				SystolicBP:            160,
				DiastolicBP:           100,
				KidneyDisease:         true,
				HighCholesterol:       true,
			},
			wantScore: 13,
			wantGrade: GradePDR,
		},
		{
			name:      "boundary hba1c 7",
			in:        RiskInput{HbA1c: 7},
			wantScore: 2,
			wantGrade: GradeMildNPDR,
		},
		{
			name:      "boundary duration exactly 10 scores as moderate band",
			in:        RiskInput{DiabetesDurationYears: 10},
			wantScore: 1,
			wantGrade: GradeLowRisk,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AssessRetinopathyRisk(tc.in)
			if got.Score != tc.wantScore {
				t.Errorf("score = %v, want %v", got.Score, tc.wantScore)
			}
			if got.Grade != tc.wantGrade {
				t.Errorf("grade = %q, want %q", got.Grade, tc.wantGrade)
			}
		})
	}
}
