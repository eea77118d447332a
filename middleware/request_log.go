package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger logs one structured line per request with the global zap logger
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo write the response so the logged status is final
				c.Error(err)
			}

			req := c.Request()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
				zap.String("user_agent", req.UserAgent()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			}
			if caller := GetCaller(c); caller != "" {
				fields = append(fields, zap.String("caller", caller))
			}

			switch status := c.Response().Status; {
			case status >= 500:
				zap.L().Error("request", append(fields, zap.Error(err))...)
			case status >= 400:
				zap.L().Warn("request", fields...)
			default:
				zap.L().Info("request", fields...)
			}
			return nil
		}
	}
}
