package relay

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRateLimiter_DisabledIsNil(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	if rl != nil {
		t.Fatal("expected a nil limiter for a zero rate")
	}
	rl.Stop()

	called := false
	next := func(c echo.Context) error {
		called = true
		return nil
	}
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	if err := rl.Middleware()(next)(c); err != nil || !called {
		t.Errorf("disabled limiter should pass through, got %v", err)
	}
}

func TestRateLimiter_CleanupAndStop(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, Burst: 1, CleanupInterval: 5 * time.Millisecond})
	rl.getLimiter("10.0.0.1")

	deadline := time.Now().Add(2 * time.Second)
	for {
		rl.mu.RLock()
		n := len(rl.limiters)
		rl.mu.RUnlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cleanup never dropped the idle limiter")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rl.Stop()
	rl.Stop()

	select {
	case <-rl.exited:
	default:
		t.Error("cleanup loop should have exited after Stop")
	}
}

func TestHandler_CloseStopsLimiter(t *testing.T) {
	h := NewHandler(&fakeDetector{}, nil, nil, Config{RateLimit: DefaultRateLimiterConfig()}, testLogger())
	h.Close()

	select {
	case <-h.limiter.exited:
	case <-time.After(time.Second):
		t.Fatal("handler Close should stop the limiter")
	}
}
