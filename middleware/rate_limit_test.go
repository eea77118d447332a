package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
	})
	defer rl.Stop()

	assert.NotNil(t, rl)
	assert.Equal(t, 10, rl.config.Requests)
	assert.Equal(t, time.Minute, rl.config.Window)
	assert.NotNil(t, rl.config.KeyFunc)
	assert.NotEmpty(t, rl.config.Message)
}

func TestRateLimiterMiddleware(t *testing.T) {
	e := echo.New()

	serve := func(handler echo.HandlerFunc, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		rec := httptest.NewRecorder()
		assert.NoError(t, handler(e.NewContext(req, rec)))
		return rec
	}

	t.Run("WithinLimit", func(t *testing.T) {
		rl := NewRateLimiter(RateLimitConfig{Requests: 2, Window: time.Second})
		defer rl.Stop()
		handler := rl.Middleware()(func(c echo.Context) error {
			return c.String(http.StatusOK, "success")
		})

		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1").Code)
		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1").Code)
	})

	t.Run("ExceededLimit", func(t *testing.T) {
		rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute, Message: "slow down"})
		defer rl.Stop()
		handler := rl.Middleware()(func(c echo.Context) error {
			return c.String(http.StatusOK, "success")
		})

		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.2").Code)

		rec := serve(handler, "10.0.0.2")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "slow down")

		// Other clients are unaffected
		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.3").Code)
	})

	t.Run("WindowReset", func(t *testing.T) {
		rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: 50 * time.Millisecond})
		defer rl.Stop()
		handler := rl.Middleware()(func(c echo.Context) error {
			return c.String(http.StatusOK, "success")
		})

		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.4").Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.4").Code)
		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.4").Code)
	})
}

func TestRateLimiter_CustomKey(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Requests: 1,
		Window:   time.Minute,
		KeyFunc:  func(c echo.Context) string { return c.Request().Header.Get("X-Client") },
	})
	defer rl.Stop()

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestNewIntakeRateLimiter(t *testing.T) {
	rl := NewIntakeRateLimiter(3)
	defer rl.Stop()
	assert.Equal(t, 3, rl.config.Requests)
	assert.Equal(t, time.Minute, rl.config.Window)
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute})
	rl.Stop()
	rl.Stop()
}
