package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health reports that the process is serving requests.
func Health(now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"message":   "Admin Dashboard API is running!",
			"timestamp": now().UTC().Format(time.RFC3339),
		})
	}
}
