package audit

import (
	"context"
	"time"
)

// ListFilter narrows an audit listing. Zero values mean "no restriction".
type ListFilter struct {
	UHID   string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Repository persists audit entries. Inserts made within a db.WithTx unit of
// work join the surrounding transaction.
type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	List(ctx context.Context, f ListFilter) ([]*Entry, int, error)
}
