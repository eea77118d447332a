package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	// ContextKeyCaller is the context key for the authenticated caller name
	ContextKeyCaller = "caller"

	// CallerService identifies requests authenticated with the service token
	CallerService = "service"
)

// RequireServiceToken is middleware that requires an "Authorization: Bearer <token>"
// header matching the configured service token
func RequireServiceToken(token string) echo.MiddlewareFunc {
	expected := []byte(token)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			presented, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok || len(expected) == 0 || subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"error":   "No autorizado",
				})
			}

			c.Set(ContextKeyCaller, CallerService)
			return next(c)
		}
	}
}

// GetCaller returns the authenticated caller, or an empty string
func GetCaller(c echo.Context) string {
	caller, _ := c.Get(ContextKeyCaller).(string)
	return caller
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
