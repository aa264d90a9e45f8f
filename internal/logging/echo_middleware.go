package logging

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// UserIDKey is the echo context key the auth middleware stores the caller id under.
const UserIDKey = "user_id"

// LoggerMiddleware writes one structured line per request. Probe traffic is skipped.
func LoggerMiddleware(logger *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			if c.Path() == "/healthz" || req.URL.Path == "/healthz" {
				return nil
			}

			latency := time.Since(start)
			fields := logrus.Fields{
				"remote_ip":  c.RealIP(),
				"method":     req.Method,
				"uri":        req.RequestURI,
				"route":      c.Path(),
				"user_agent": req.UserAgent(),
				"status":     res.Status,
				"latency_ms": latency.Milliseconds(),
				"bytes_out":  res.Size,
			}
			if id, ok := c.Get(UserIDKey).(string); ok && id != "" {
				fields["user_id"] = id
			}

			entry := logger.WithFields(fields)
			switch {
			case res.Status >= 500:
				entry.Error("HTTP request")
			case res.Status >= 400:
				entry.Warn("HTTP request")
			default:
				entry.Info("HTTP request")
			}

			return nil
		}
	}
}
