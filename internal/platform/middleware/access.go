package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deptcare/deptcare/internal/platform/auth"
)

// AccessEntry captures who touched which patient resource, when, and how.
type AccessEntry struct {
	UserID     string
	Role       string
	Department string
	Resource   string
	UHID       string
	Action     string // read, create, update, delete
	Path       string
	Method     string
	RemoteIP   string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AccessRecorder persists access entries. Decoupled from the concrete sink so
// tests can capture entries in memory.
type AccessRecorder interface {
	RecordAccess(entry AccessEntry) error
}

// AccessRecorderFunc adapts a function to AccessRecorder.
type AccessRecorderFunc func(entry AccessEntry) error

func (f AccessRecorderFunc) RecordAccess(entry AccessEntry) error { return f(entry) }

// Access logs every request under /api/v1/ that can touch patient data.
// Entries always go to the structured log; an optional recorder receives them
// as well.
func Access(logger zerolog.Logger, recorders ...AccessRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			ctx := req.Context()
			entry := AccessEntry{
				UserID:     auth.UserIDFromContext(ctx),
				Role:       auth.RoleFromContext(ctx),
				Department: auth.DepartmentFromContext(ctx),
				Resource:   resourceFromPath(path),
				UHID:       uhidFromRequest(c),
				Action:     methodToAction(req.Method),
				Path:       path,
				Method:     req.Method,
				RemoteIP:   c.RealIP(),
				StatusCode: c.Response().Status,
				Timestamp:  time.Now().UTC(),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record access entry")
				}
			}

			logger.Info().
				Str("type", "phi_access").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("role", entry.Role).
				Str("department", entry.Department).
				Str("resource", entry.Resource).
				Str("uhid", entry.UHID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.RemoteIP).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}

func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceFromPath returns the first path segment under /api/v1/.
func resourceFromPath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}

// uhidFromRequest finds a patient identifier in /api/v1/patients/<uhid>...
// paths or a ?uhid= query parameter.
func uhidFromRequest(c echo.Context) string {
	path := c.Request().URL.Path
	if strings.HasPrefix(path, "/api/v1/patients/") {
		segments := strings.Split(strings.TrimPrefix(path, "/api/v1/patients/"), "/")
		if len(segments) > 0 && segments[0] != "" {
			return segments[0]
		}
	}
	return c.QueryParam("uhid")
}
