package analytics

import (
	"context"
	"time"
)

type Repository interface {
	TotalPatients(ctx context.Context) (int, error)
	VisitStats(ctx context.Context) (total int, lastVisit *time.Time, err error)
	GenderDistribution(ctx context.Context) (map[string]int, error)
	DatesOfBirth(ctx context.Context) ([]*time.Time, error)
	MonthlyRegistrations(ctx context.Context, months int) ([]MonthlyCount, error)
	TopDiagnoses(ctx context.Context, limit int) ([]DiagnosisCount, error)
}
