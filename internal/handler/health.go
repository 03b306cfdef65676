package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http" // net/http provides status codes and response helpers
    "time"

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a liveness probe.  It returns "ok" as long as the process
// serves HTTP and never touches dependencies.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Ready returns a readiness probe running every check with a shared 2s
// budget.  Any failure answers 503 with the per-check status.
func Ready(checks map[string]Check) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()

        status := http.StatusOK
        report := make(map[string]string, len(checks))
        for name, check := range checks {
            if err := check(ctx); err != nil {
                status = http.StatusServiceUnavailable
                report[name] = err.Error()
                continue
            }
            report[name] = "ok"
        }
        return c.JSON(status, echo.Map{"checks": report})
    }
}
