package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/deptcare/deptcare/internal/audit"
	"github.com/deptcare/deptcare/internal/patient"
	"github.com/deptcare/deptcare/internal/platform/auth"
)

// Service handles staff login and account administration.
type Service struct {
	repo   Repository
	issuer *auth.TokenIssuer
	audit  *audit.Service
	tx     patient.TxRunner
}

func NewService(repo Repository, issuer *auth.TokenIssuer, auditSvc *audit.Service, tx patient.TxRunner) *Service {
	return &Service{repo: repo, issuer: issuer, audit: auditSvc, tx: tx}
}

// Session is the result of a successful login.
type Session struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	User      *User  `json:"user"`
}

// Login verifies the credentials and issues a session token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}

	token, expiresAt, err := s.issuer.Issue(fmt.Sprintf("%d", u.ID), u.Role, u.Department)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"), User: u}, nil
}

// CreateUserInput carries a new staff account.
type CreateUserInput struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

const minPasswordLength = 8

// CreateUser registers a staff account and its creation event atomically.
func (s *Service) CreateUser(ctx context.Context, editorID int64, in CreateUserInput) (*User, error) {
	if in.Username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if !ValidRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         in.Role,
		Department:   in.Department,
	}
	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, u); err != nil {
			return err
		}
		return s.audit.RecordEvent(ctx, editorID, nil, "", audit.EventUserCreated,
			fmt.Sprintf("%s (%s)", u.Username, u.Role))
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes a staff account and records the deletion. Accounts may
// not delete themselves.
func (s *Service) DeleteUser(ctx context.Context, editorID, userID int64) error {
	if editorID == userID {
		return fmt.Errorf("%w: cannot delete own account", ErrInvalidInput)
	}
	return s.tx(ctx, func(ctx context.Context) error {
		u, err := s.repo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.audit.RecordEvent(ctx, editorID, nil, "", audit.EventUserDeleted,
			fmt.Sprintf("%s (%s)", u.Username, u.Role)); err != nil {
			return err
		}
		return s.repo.Delete(ctx, userID)
	})
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// HashPassword is exposed for seeding the initial admin account.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}
