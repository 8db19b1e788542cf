package analytics

import (
	"context"
	"testing"
	"time"
)

func TestAgeBand(t *testing.T) {
	cases := []struct {
		years int
		want  string
	}{
		{0, BandChild},
		{18, BandChild},
		{19, BandYoungAdult},
		{35, BandYoungAdult},
		{36, BandMiddleAge},
		{55, BandMiddleAge},
		{56, BandSenior},
		{75, BandSenior},
		{76, BandElderly},
		{102, BandElderly},
		{-1, BandUnknown},
	}
	for _, tc := range cases {
		if got := AgeBand(tc.years); got != tc.want {
			t.Errorf("AgeBand(%d) = %q, want %q", tc.years, got, tc.want)
		}
	}
}

func TestAgeDistribution(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	date := func(y, m, d int) *time.Time {
		t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
		return &t
	}

	dobs := []*time.Time{
		date(2015, 3, 10),  // 11
		date(2008, 9, 2),   // 17, birthday tomorrow
		date(2008, 9, 1),   // 18, birthday today
		date(1990, 1, 1),   // 36
		date(1949, 12, 25), // 76
		nil,
	}

	dist := AgeDistribution(dobs, now)

	want := map[string]int{
		BandChild:     3,
		BandMiddleAge: 1,
		BandElderly:   1,
		BandUnknown:   1,
	}
	for band, count := range want {
		if dist[band] != count {
			t.Errorf("dist[%s] = %d, want %d", band, dist[band], count)
		}
	}
	if dist[BandYoungAdult] != 0 || dist[BandSenior] != 0 {
		t.Errorf("unexpected counts in empty bands: %+v", dist)
	}
}

type stubRepo struct {
	total     int
	visits    int
	lastVisit *time.Time
	gender    map[string]int
	dobs      []*time.Time
	trend     []MonthlyCount
	diagnoses []DiagnosisCount
}

func (s *stubRepo) TotalPatients(context.Context) (int, error) { return s.total, nil }
func (s *stubRepo) VisitStats(context.Context) (int, *time.Time, error) {
	return s.visits, s.lastVisit, nil
}
func (s *stubRepo) GenderDistribution(context.Context) (map[string]int, error) {
	return s.gender, nil
}
func (s *stubRepo) DatesOfBirth(context.Context) ([]*time.Time, error) { return s.dobs, nil }
func (s *stubRepo) MonthlyRegistrations(context.Context, int) ([]MonthlyCount, error) {
	return s.trend, nil
}
func (s *stubRepo) TopDiagnoses(context.Context, int) ([]DiagnosisCount, error) {
	return s.diagnoses, nil
}

func TestDashboard(t *testing.T) {
	dob := time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC)
	lastVisit := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	svc := NewService(&stubRepo{
		total:     42,
		visits:    63,
		lastVisit: &lastVisit,
		gender:    map[string]int{"female": 25, "male": 17},
		dobs:      []*time.Time{&dob, nil},
		trend:     []MonthlyCount{{Month: "2026-08", Count: 7}},
		diagnoses: []DiagnosisCount{
			{Diagnosis: "Moderate NPDR", Count: 12},
			{Diagnosis: "Cataract", Count: 9},
		},
	})
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }

	dash, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if dash.TotalPatients != 42 {
		t.Errorf("total = %d", dash.TotalPatients)
	}
	if dash.TotalRecords != 63 || dash.AvgVisitsPerPatient != 1.5 {
		t.Errorf("records = %d, avg = %v", dash.TotalRecords, dash.AvgVisitsPerPatient)
	}
	if dash.LastVisit == nil || !dash.LastVisit.Equal(lastVisit) {
		t.Errorf("last visit = %v", dash.LastVisit)
	}
	if dash.AgeDistribution[BandMiddleAge] != 1 || dash.AgeDistribution[BandUnknown] != 1 {
		t.Errorf("age distribution = %+v", dash.AgeDistribution)
	}
	if len(dash.TopDiagnoses) != 2 || dash.TopDiagnoses[0].Diagnosis != "Moderate NPDR" {
		t.Errorf("diagnoses = %+v", dash.TopDiagnoses)
	}
	if dash.GeneratedAt.IsZero() {
		t.Error("generated_at not set")
	}
}
