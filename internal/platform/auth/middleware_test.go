package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testSecret = []byte("test-secret")

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	token, expiresAt, err := issuer.Issue("u-1", "doctor", "Ophthalmology")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("expected future expiry")
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotUser, gotRole, gotDept string
	h := JWTMiddleware(testSecret)(func(c echo.Context) error {
		ctx := c.Request().Context()
		gotUser = UserIDFromContext(ctx)
		gotRole = RoleFromContext(ctx)
		gotDept = DepartmentFromContext(ctx)
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}

	if gotUser != "u-1" || gotRole != "doctor" || gotDept != "Ophthalmology" {
		t.Errorf("identity = %q/%q/%q", gotUser, gotRole, gotDept)
	}
}

func TestJWTMiddleware_RejectsBadTokens(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := JWTMiddleware(testSecret)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			err := h(c)
			if err == nil {
				t.Fatal("expected error")
			}
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusUnauthorized {
				t.Fatalf("err = %v, want 401", err)
			}
		})
	}
}

func TestJWTMiddleware_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer([]byte("other-secret"), time.Hour)
	token, _, err := issuer.Issue("u-1", "doctor", "Ophthalmology")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := JWTMiddleware(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err == nil {
		t.Fatal("expected error for token signed with wrong secret")
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name     string
		role     string
		required []string
		allowed  bool
	}{
		{"exact match", "doctor", []string{"doctor"}, true},
		{"one of several", "nurse", []string{"doctor", "nurse"}, true},
		{"admin override", "admin", []string{"doctor"}, true},
		{"wrong role", "clerk", []string{"doctor"}, false},
		{"empty role", "", []string{"doctor"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(ContextWithIdentity(req.Context(), "u-1", tc.role, "Cardiology"))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := RequireRole(tc.required...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			err := h(c)
			if tc.allowed && err != nil {
				t.Fatalf("expected pass, got %v", err)
			}
			if !tc.allowed {
				he, ok := err.(*echo.HTTPError)
				if !ok || he.Code != http.StatusForbidden {
					t.Fatalf("err = %v, want 403", err)
				}
			}
		})
	}
}
