package identity

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrInvalidInput      = errors.New("invalid input")
	// ErrBadCredentials is returned for both unknown usernames and wrong
	// passwords so login failures do not reveal which accounts exist.
	ErrBadCredentials = errors.New("invalid username or password")
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
}
