package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"
)

func TestKeyFuncs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	if got := KeyByUserOrIP()(c); got != "ip:203.0.113.9" {
		t.Fatalf("anonymous key = %q", got)
	}
	c.Set(userIDKey, "u123")
	if got := KeyByUserOrIP()(c); got != "user:u123" {
		t.Fatalf("user key = %q", got)
	}
	if got := KeyByIP()(c); got != "ip:203.0.113.9" {
		t.Fatalf("KeyByIP should ignore the user, got %q", got)
	}
}

func TestNewRateLimiter_BurstCoercionAndReuse(t *testing.T) {
	rl := NewRateLimiter("t", 2.0, 0, KeyByUserOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst coercion failed, got %d", rl.burst)
	}
	lim := rl.bucketFor("k1")
	if got := rl.bucketFor("k1"); got != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
}

func TestRateLimiter_GC(t *testing.T) {
	rl := NewRateLimiter("t", 1.0, 1, KeyByUserOrIP())
	rl.idleTTL = time.Nanosecond

	rl.mu.Lock()
	rl.buckets["old"] = &bucket{lim: rate.NewLimiter(1, 1), seen: time.Now().Add(-time.Hour)}
	rl.hits = sweepEveryHits - 1
	rl.mu.Unlock()

	_ = rl.bucketFor("new")

	rl.mu.Lock()
	_, existsOld := rl.buckets["old"]
	_, existsNew := rl.buckets["new"]
	rl.mu.Unlock()
	if existsOld || !existsNew {
		t.Fatalf("old=%v new=%v; want old evicted and new created", existsOld, existsNew)
	}
}

func TestRetryAfter(t *testing.T) {
	cases := []struct {
		rps  float64
		want int
	}{
		{10, 1},
		{1, 1},
		{0.1, 10},
		{1.0 / 60, 60},
		{0, 60},
	}
	for _, tc := range cases {
		if got := NewRateLimiter("t", tc.rps, 1, KeyByIP()).retryAfter(); got != tc.want {
			t.Errorf("retryAfter(rps=%v) = %d; want %d", tc.rps, got, tc.want)
		}
	}
}

func TestRateLimiter_Handler_AllowDenyBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter("send_code_test", 0.1, 1, KeyByIP())
	before := testutil.ToFloat64(rateLimited.WithLabelValues("send_code_test"))

	r := gin.New()
	r.Use(RequestID())
	r.Use(rl.Handler())
	r.POST("/api/send-code", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodPost, "/api/send-code", nil))
	if w1.Code != http.StatusOK {
		t.Fatalf("first request should be allowed, got %d", w1.Code)
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/api/send-code", nil)
	req2.Header.Set(requestIDHeader, "rid-429")
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be rate-limited, got %d", w2.Code)
	}
	if got := testutil.ToFloat64(rateLimited.WithLabelValues("send_code_test")); got != before+1 {
		t.Fatalf("rejection counter = %v; want %v", got, before+1)
	}
	if got := w2.Header().Get("Retry-After"); got != "10" {
		t.Fatalf("Retry-After = %q; want 10", got)
	}
	var body map[string]string
	if err := json.Unmarshal(w2.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["code"] != "rate_limited" || body["error"] != "rate limit exceeded" || body["request_id"] != "rid-429" {
		t.Fatalf("unexpected JSON body: %v", body)
	}

	rBypass := gin.New()
	rBypass.Use(func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() })
	rBypass.Use(rl.Handler())
	rBypass.POST("/api/send-code", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w3 := httptest.NewRecorder()
	rBypass.ServeHTTP(w3, httptest.NewRequest(http.MethodPost, "/api/send-code", nil))
	if w3.Code != http.StatusOK {
		t.Fatalf("bypass request should be allowed, got %d", w3.Code)
	}
}

func TestRateLimiter_Skip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter("skip_test", 0.1, 1, KeyByIP())
	rl.Skip = func(c *gin.Context) bool { return c.FullPath() == "/callback" }

	r := gin.New()
	r.Use(rl.Handler())
	r.POST("/callback", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/other", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/callback", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("skipped route request %d = %d", i, w.Code)
		}
	}

	// skipped requests spent no token
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/other", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first limited request = %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/other", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second limited request = %d; want 429", w.Code)
	}
}

func TestIsRateBypass_NonBool(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if IsRateBypass(c) {
		t.Fatal("default should be false")
	}
	c.Set(ctxKeyRateBypass, "yes")
	if IsRateBypass(c) {
		t.Fatal("non-bool should read as false")
	}
}
