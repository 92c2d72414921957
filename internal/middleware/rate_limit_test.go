package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 5)
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		if !rl.Allow(1) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}
	if rl.Allow(1) {
		t.Error("Request 6 should be rate limited")
	}
}

func TestRateLimiter_WorkspacesAreIndependent(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		rl.Allow(1)
	}
	assert.False(t, rl.Allow(1))

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(2), "workspace 2 request %d", i+1)
	}
}

func TestRateLimiter_EvictStale(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 3)
	defer rl.Stop()

	rl.Allow(1)
	rl.evictStale(time.Now().Add(LimiterTTL + time.Second))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.limiters)
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter()
	rl.Stop()
	rl.Stop()
}

func TestRateLimitMiddleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(60, 2)
	defer rl.Stop()

	serve := func(workspaceID int32) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/financing-payments", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if workspaceID != 0 {
			SetWorkspaceID(c, workspaceID)
		}
		err := RateLimitMiddleware(rl)(func(c echo.Context) error {
			return c.NoContent(http.StatusCreated)
		})(c)
		require.NoError(t, err)
		return rec
	}

	t.Run("allows burst then rejects", func(t *testing.T) {
		first := serve(9)
		assert.Equal(t, http.StatusCreated, first.Code)
		assert.Equal(t, "60", first.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

		assert.Equal(t, http.StatusCreated, serve(9).Code)

		limited := serve(9)
		assert.Equal(t, http.StatusTooManyRequests, limited.Code)
		assert.Equal(t, "0", limited.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, limited.Header().Get("Retry-After"))
		assert.Contains(t, limited.Body.String(), "Rate Limit Exceeded")
	})

	t.Run("skips requests without a workspace", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusCreated, serve(0).Code)
		}
	})
}
