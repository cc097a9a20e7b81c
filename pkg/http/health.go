package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthCheck pings one infrastructure dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthReport is the body of GET /healthz.
type HealthReport struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks"`
}

// HealthHandler answers GET /healthz with 200 when every check passes and 503
// otherwise. Each check gets its own timeout.
func HealthHandler(checks []HealthCheck, timeout time.Duration) Handler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return HandlerFunc(func(e *echo.Echo) {
		e.GET("/healthz", func(c echo.Context) error {
			report := HealthReport{Healthy: true, Checks: make(map[string]string, len(checks))}
			for _, hc := range checks {
				ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
				err := hc.Check(ctx)
				cancel()
				if err != nil {
					report.Healthy = false
					report.Checks[hc.Name] = err.Error()
					continue
				}
				report.Checks[hc.Name] = "ok"
			}
			status := http.StatusOK
			if !report.Healthy {
				status = http.StatusServiceUnavailable
			}
			return DataResponse(c, status, report)
		})
	})
}
