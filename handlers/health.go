package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// HealthHandler reports whether the database is reachable
func HealthHandler(database *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := http.StatusOK
		dbStatus := "ok"

		sqlDB, err := database.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request().Context())
		}
		if err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "unavailable"
		}

		return c.JSON(status, map[string]string{
			"status":   http.StatusText(status),
			"database": dbStatus,
		})
	}
}
