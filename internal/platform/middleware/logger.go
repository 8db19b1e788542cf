package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deptcare/deptcare/internal/platform/auth"
)

// Logger emits one structured line per request. For authenticated calls the
// line carries who acted and for which department, which is what staff
// incident reviews ask for first.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Re-read the request after the chain ran: the auth
			// middlewares swap in a request with identity context.
			req := c.Request()

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			if rid, ok := c.Get("request_id").(string); ok && rid != "" {
				evt = evt.Str("request_id", rid)
			}
			if uid := auth.UserIDFromContext(req.Context()); uid != "" {
				evt = evt.Str("user_id", uid)
			}
			if dept := auth.DepartmentFromContext(req.Context()); dept != "" {
				evt = evt.Str("department", dept)
			}

			evt.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
