package analytics

import (
	"context"
	"time"
)

const (
	defaultTrendMonths  = 12
	defaultTopDiagnoses = 10
)

// Service assembles the department dashboard from patient and clinical data.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	total, err := s.repo.TotalPatients(ctx)
	if err != nil {
		return nil, err
	}
	totalRecords, lastVisit, err := s.repo.VisitStats(ctx)
	if err != nil {
		return nil, err
	}
	gender, err := s.repo.GenderDistribution(ctx)
	if err != nil {
		return nil, err
	}
	dobs, err := s.repo.DatesOfBirth(ctx)
	if err != nil {
		return nil, err
	}
	trend, err := s.repo.MonthlyRegistrations(ctx, defaultTrendMonths)
	if err != nil {
		return nil, err
	}
	diagnoses, err := s.repo.TopDiagnoses(ctx, defaultTopDiagnoses)
	if err != nil {
		return nil, err
	}

	avgVisits := 0.0
	if total > 0 {
		avgVisits = float64(totalRecords) / float64(total)
	}

	return &Dashboard{
		TotalPatients:       total,
		TotalRecords:        totalRecords,
		AvgVisitsPerPatient: avgVisits,
		LastVisit:           lastVisit,
		GenderDistribution:  gender,
		AgeDistribution:     AgeDistribution(dobs, s.now()),
		MonthlyTrend:        trend,
		TopDiagnoses:        diagnoses,
		GeneratedAt:         s.now().UTC(),
	}, nil
}
