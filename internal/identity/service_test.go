package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/deptcare/deptcare/internal/audit"
	"github.com/deptcare/deptcare/internal/platform/auth"
)

type memoryUsers struct {
	users  map[int64]*User
	nextID int64
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[int64]*User{}, nextID: 1}
}

func (m *memoryUsers) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return ErrDuplicateUsername
		}
	}
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	m.nextID++
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryUsers) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) Delete(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryUsers) List(_ context.Context, _, _ int) ([]*User, int, error) {
	var out []*User
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, len(out), nil
}

type auditSink struct {
	entries []*audit.Entry
}

func (a *auditSink) Insert(_ context.Context, e *audit.Entry) error {
	cp := *e
	a.entries = append(a.entries, &cp)
	return nil
}

func (a *auditSink) List(_ context.Context, _ audit.ListFilter) ([]*audit.Entry, int, error) {
	return a.entries, len(a.entries), nil
}

func passTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newFixture(t *testing.T) (*Service, *memoryUsers, *auditSink) {
	t.Helper()
	repo := newMemoryUsers()
	sink := &auditSink{}
	issuer := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	return NewService(repo, issuer, audit.NewService(sink), passTx), repo, sink
}

func seedUser(t *testing.T, repo *memoryUsers, username, password, role, department string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	u := &User{Username: username, PasswordHash: string(hash), Role: role, Department: department}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestLogin(t *testing.T) {
	svc, repo, _ := newFixture(t)
	seedUser(t, repo, "dr.rao", "correct-horse", "doctor", "ophthalmology")

	session, err := svc.Login(context.Background(), "dr.rao", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.Token == "" {
		t.Fatal("empty token")
	}
	if session.User.Username != "dr.rao" || session.User.Department != "ophthalmology" {
		t.Fatalf("user = %+v", session.User)
	}

	claims, err := auth.VerifyToken([]byte("test-secret"), session.Token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Role != "doctor" || claims.Department != "ophthalmology" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, repo, _ := newFixture(t)
	seedUser(t, repo, "dr.rao", "correct-horse", "doctor", "")

	for name, attempt := range map[string][2]string{
		"wrong password":   {"dr.rao", "wrong"},
		"unknown username": {"nobody", "correct-horse"},
	} {
		if _, err := svc.Login(context.Background(), attempt[0], attempt[1]); !errors.Is(err, ErrBadCredentials) {
			t.Errorf("%s: err = %v, want ErrBadCredentials", name, err)
		}
	}
}

func TestCreateUser(t *testing.T) {
	svc, repo, sink := newFixture(t)

	u, err := svc.CreateUser(context.Background(), 1, CreateUserInput{
		Username:   "nurse.k",
		Password:   "longenough",
		Role:       "staff",
		Department: "ophthalmology",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("user id not assigned")
	}

	stored, err := repo.GetByUsername(context.Background(), "nurse.k")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if stored.PasswordHash == "longenough" {
		t.Fatal("password stored in the clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("longenough")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	if len(sink.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(sink.entries))
	}
	e := sink.entries[0]
	if e.FieldName != audit.EventUserCreated || e.NewValue != "nurse.k (staff)" {
		t.Fatalf("entry = %+v", e)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _, sink := newFixture(t)

	cases := map[string]CreateUserInput{
		"missing username": {Password: "longenough", Role: "staff"},
		"short password":   {Username: "x", Password: "short", Role: "staff"},
		"unknown role":     {Username: "x", Password: "longenough", Role: "superuser"},
	}
	for name, in := range cases {
		if _, err := svc.CreateUser(context.Background(), 1, in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", name, err)
		}
	}
	if len(sink.entries) != 0 {
		t.Fatal("validation failures must not write audit entries")
	}
}

func TestDeleteUser(t *testing.T) {
	svc, repo, sink := newFixture(t)
	target := seedUser(t, repo, "nurse.k", "longenough", "staff", "")

	if err := svc.DeleteUser(context.Background(), 99, target.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), target.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("user still present after delete")
	}
	if len(sink.entries) != 1 || sink.entries[0].FieldName != audit.EventUserDeleted {
		t.Fatalf("entries = %+v", sink.entries)
	}
}

func TestDeleteUser_SelfForbidden(t *testing.T) {
	svc, repo, _ := newFixture(t)
	u := seedUser(t, repo, "admin", "longenough", "admin", "")

	if err := svc.DeleteUser(context.Background(), u.ID, u.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
