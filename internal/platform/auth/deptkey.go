package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
)

// ErrUnknownKey indicates the presented API key maps to no department.
var ErrUnknownKey = errors.New("unknown api key")

// DepartmentResolver maps a raw API key to the department it belongs to.
// Device-style integrations (kiosks, scanner workstations) authenticate with
// a static key instead of a user session.
type DepartmentResolver interface {
	ResolveDepartment(ctx context.Context, rawKey string) (string, error)
}

// InMemoryDepartmentKeys is a thread-safe DepartmentResolver backed by a map.
// Suitable for configuration-driven deployments and testing.
type InMemoryDepartmentKeys struct {
	mu   sync.RWMutex
	keys map[string]string // raw key -> department
}

// NewInMemoryDepartmentKeys builds a resolver from a key-to-department map.
func NewInMemoryDepartmentKeys(keys map[string]string) *InMemoryDepartmentKeys {
	cp := make(map[string]string, len(keys))
	for k, v := range keys {
		cp[k] = v
	}
	return &InMemoryDepartmentKeys{keys: cp}
}

// Register adds or replaces a key mapping.
func (s *InMemoryDepartmentKeys) Register(rawKey, department string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[rawKey] = department
}

// ResolveDepartment implements DepartmentResolver.
func (s *InMemoryDepartmentKeys) ResolveDepartment(_ context.Context, rawKey string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dept, ok := s.keys[rawKey]
	if !ok {
		return "", ErrUnknownKey
	}
	return dept, nil
}

// APIKeyMiddleware authenticates requests carrying an X-API-Key header and
// places the resolved department on the request context. Requests without a
// key, or with a key the resolver does not know, are rejected.
func APIKeyMiddleware(resolver DepartmentResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawKey := c.Request().Header.Get("X-API-Key")
			if rawKey == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing api key")
			}

			dept, err := resolver.ResolveDepartment(c.Request().Context(), rawKey)
			if err != nil {
				if errors.Is(err, ErrUnknownKey) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "api key validation error")
			}

			ctx := context.WithValue(c.Request().Context(), DepartmentKey, dept)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("department", dept)

			return next(c)
		}
	}
}
