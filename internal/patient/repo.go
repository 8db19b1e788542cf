package patient

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("patient not found")
	ErrDuplicateUHID = errors.New("a patient with this uhid already exists")
	ErrInvalidInput  = errors.New("invalid patient input")
)

// Repository persists patients. Calls made inside a db.WithTx unit of work
// join the surrounding transaction.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByUHID(ctx context.Context, uhid string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, uhid string) error

	// Search matches the query against UHID, names, and phone; an empty
	// query lists everyone. Returns the page and the total match count.
	Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
}
