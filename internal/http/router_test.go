package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/designai/studio-backend/internal/auth"
	"github.com/designai/studio-backend/internal/config"
	"github.com/designai/studio-backend/internal/domain"
	"github.com/designai/studio-backend/internal/http/middleware"
	"github.com/designai/studio-backend/internal/repo"
	"github.com/designai/studio-backend/internal/services"
)

const testToken = "good-token"

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api",
		RateRPS:        100,
		RateBurst:      50,
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func testVerifier() auth.Verifier {
	return auth.VerifierFunc(func(_ context.Context, token string) (*auth.User, error) {
		if token != testToken {
			return nil, auth.ErrInvalidToken
		}
		return &auth.User{ID: "user-1"}, nil
	})
}

func newTestEngine(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	r := gin.New()
	RegisterRoutes(r, Deps{DB: db, Verifier: testVerifier()}, cfg)
	return r, db
}

// countStatements counts every statement GORM runs on db from now on.
func countStatements(t *testing.T, db *gorm.DB) *atomic.Int64 {
	t.Helper()
	var n atomic.Int64
	inc := func(*gorm.DB) { n.Add(1) }
	cb := db.Callback()
	for name, err := range map[string]error{
		"query":  cb.Query().Before("gorm:query").Register("test:count_query", inc),
		"row":    cb.Row().Before("gorm:row").Register("test:count_row", inc),
		"raw":    cb.Raw().Before("gorm:raw").Register("test:count_raw", inc),
		"create": cb.Create().Before("gorm:create").Register("test:count_create", inc),
		"update": cb.Update().Before("gorm:update").Register("test:count_update", inc),
		"delete": cb.Delete().Before("gorm:delete").Register("test:count_delete", inc),
	} {
		if err != nil {
			t.Fatalf("register %s callback: %v", name, err)
		}
	}
	return &n
}

func serve(r http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer() map[string]string { return map[string]string{"Authorization": "Bearer " + testToken} }

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error     string `json:"error"`
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body not JSON: %v (%q)", err, w.Body.String())
	}
	if body.Error == "" || body.RequestID == "" {
		t.Fatalf("incomplete error envelope: %s", w.Body.String())
	}
	return body.Code
}

func TestRegisterRoutes_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newTestEngine(t, testConfig())

	w := serve(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"ok"}` {
		t.Fatalf("GET /health = %d %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing: %v", w.Header())
	}

	w = serve(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("GET /metrics bad: code=%d", w.Code)
	}

	w = serve(r, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "not_found" {
		t.Fatalf("GET /nope = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodPost, "/health", "", nil)
	if w.Code != http.StatusMethodNotAllowed || errorCode(t, w) != "method_not_allowed" {
		t.Fatalf("POST /health = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodGet, "/swagger/index.html", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger must be off by default, got %d", w.Code)
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r, _ := newTestEngine(t, cfg)

	w := serve(r, http.MethodGet, "/swagger/index.html", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/index.html = %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"https://studio.example.org"}}
	r, _ := newTestEngine(t, cfg)

	w := serve(r, http.MethodGet, "/health", "", map[string]string{"Origin": "https://studio.example.org"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://studio.example.org" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	w = serve(r, http.MethodGet, "/health", "", map[string]string{"Origin": "https://evil.example.net"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign origin expected 403, got %d", w.Code)
	}
}

func TestRegisterRoutes_Gzip(t *testing.T) {
	r, _ := newTestEngine(t, testConfig())
	w := serve(r, http.MethodGet, "/health", "", map[string]string{"Accept-Encoding": "gzip"})
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response, headers=%v", w.Header())
	}
}

func TestRegisterRoutes_AuthRequired(t *testing.T) {
	r, db := newTestEngine(t, testConfig())
	statements := countStatements(t, db)

	for _, rt := range []struct{ method, path string }{
		{http.MethodGet, "/api/check-status?task_id=t1"},
		{http.MethodGet, "/api/user/credits"},
		{http.MethodGet, "/api/user/history"},
		{http.MethodPost, "/api/payment/create"},
		{http.MethodPost, "/api/prompt/enhance"},
	} {
		w := serve(r, rt.method, rt.path, "", nil)
		if w.Code != http.StatusUnauthorized || errorCode(t, w) != "unauthorized" {
			t.Fatalf("%s %s without token = %d %s", rt.method, rt.path, w.Code, w.Body.String())
		}
		w = serve(r, rt.method, rt.path, "", map[string]string{"Authorization": "Bearer nope"})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s bad token = %d", rt.method, rt.path, w.Code)
		}
		hdr := map[string]string{"Authorization": "Bearer nope", middleware.HeaderIdempotencyKey: "k1"}
		if w = serve(r, rt.method, rt.path, `{"planId":"pro","amount":99}`, hdr); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s bad token with body = %d", rt.method, rt.path, w.Code)
		}
	}
	if n := statements.Load(); n != 0 {
		t.Fatalf("rejected requests ran %d statements; want 0", n)
	}

	// the counter itself works
	if w := serve(r, http.MethodGet, "/api/user/credits", "", bearer()); w.Code != http.StatusOK {
		t.Fatalf("credits with token = %d", w.Code)
	}
	if statements.Load() == 0 {
		t.Fatal("authenticated read ran no statements")
	}
}

func TestRegisterRoutes_AuthenticatedReads(t *testing.T) {
	r, db := newTestEngine(t, testConfig())

	w := serve(r, http.MethodGet, "/api/user/credits", "", bearer())
	if w.Code != http.StatusOK || w.Body.String() != `{"balance":0,"transactions":[]}` {
		t.Fatalf("credits = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("credits must not be cached: %v", w.Header())
	}

	if err := db.Create(&domain.GenerationHistory{ID: "h1", UserID: "user-1", Prompt: "cat"}).Error; err != nil {
		t.Fatalf("seed history: %v", err)
	}
	w = serve(r, http.MethodGet, "/api/user/history", "", bearer())
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || etag == "" || w.Header().Get("Cache-Control") == "no-store" {
		t.Fatalf("history = %d etag=%q cc=%q", w.Code, etag, w.Header().Get("Cache-Control"))
	}
	hdr := bearer()
	hdr["If-None-Match"] = etag
	if w = serve(r, http.MethodGet, "/api/user/history", "", hdr); w.Code != http.StatusNotModified {
		t.Fatalf("history revalidation = %d", w.Code)
	}

	w = serve(r, http.MethodGet, "/api/check-status?task_id=missing", "", bearer())
	if w.Code != http.StatusNotFound {
		t.Fatalf("check-status = %d", w.Code)
	}
}

func TestRegisterRoutes_UnconfiguredUpstreams(t *testing.T) {
	r, _ := newTestEngine(t, testConfig())

	w := serve(r, http.MethodPost, "/api/payment/create", `{"planId":"pro","amount":99}`, bearer())
	if w.Code != http.StatusServiceUnavailable || errorCode(t, w) != "service_unavailable" {
		t.Fatalf("payment/create = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodPost, "/api/payment/notify", `{"trade_order_id":"x"}`, nil)
	if w.Code != http.StatusServiceUnavailable || w.Body.String() != "fail" {
		t.Fatalf("payment/notify = %d %q", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodPost, "/api/prompt/enhance", `{"prompt":"cat"}`, bearer())
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("prompt/enhance = %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_SendCodePerIPLimit(t *testing.T) {
	r, _ := newTestEngine(t, testConfig())

	for i := 0; i < sendCodeBurst; i++ {
		body := fmt.Sprintf(`{"phone":"1380000000%d"}`, i)
		if w := serve(r, http.MethodPost, "/api/auth/send-code", body, nil); w.Code != http.StatusOK {
			t.Fatalf("send %d = %d %s", i, w.Code, w.Body.String())
		}
	}
	w := serve(r, http.MethodPost, "/api/auth/send-code", `{"phone":"13800000099"}`, nil)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected per-IP 429, got %d %v", w.Code, w.Header())
	}

	// check-phone is not behind the send-code bucket.
	w = serve(r, http.MethodPost, "/api/auth/check-phone", `{"phone":"13800000001"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("check-phone = %d", w.Code)
	}
}

func TestRegisterRoutes_NotifyBypassesGlobalLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.01
	cfg.RateBurst = 2
	r, _ := newTestEngine(t, cfg)

	for i := 0; i < 5; i++ {
		w := serve(r, http.MethodPost, "/api/payment/notify", `{"trade_order_id":"x"}`, nil)
		if w.Code == http.StatusTooManyRequests {
			t.Fatalf("notify %d was rate limited", i)
		}
	}

	// other routes still share the per-IP bucket, untouched by the callbacks
	for i := 0; i < cfg.RateBurst; i++ {
		if w := serve(r, http.MethodPost, "/api/auth/check-phone", `{"phone":"13800000001"}`, nil); w.Code != http.StatusOK {
			t.Fatalf("check-phone %d = %d", i, w.Code)
		}
	}
	w := serve(r, http.MethodPost, "/api/auth/check-phone", `{"phone":"13800000001"}`, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("global bucket should be spent, got %d", w.Code)
	}
}

func TestRegisterRoutes_GlobalLimitIgnoresToken(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.01
	cfg.RateBurst = 1
	r, _ := newTestEngine(t, cfg)

	if w := serve(r, http.MethodGet, "/api/user/credits", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("first = %d", w.Code)
	}
	// a token does not buy a second bucket on the same IP
	if w := serve(r, http.MethodGet, "/api/user/credits", "", bearer()); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d; want 429", w.Code)
	}
}

func TestRegisterRoutes_PasswordRoutes(t *testing.T) {
	r, _ := newTestEngine(t, testConfig())

	for _, rt := range []struct{ path, body string }{
		{"/api/auth/register", `{"phone":"13800138000","code":"123456","password":"secret123"}`},
		{"/api/auth/login", `{"phone":"13800138000","password":"secret123"}`},
		{"/api/auth/reset-password", `{"phone":"13800138000","code":"123456","newPassword":"secret123"}`},
	} {
		w := serve(r, http.MethodPost, rt.path, rt.body, nil)
		if w.Code != http.StatusServiceUnavailable || errorCode(t, w) != "service_unavailable" {
			t.Fatalf("%s without auth server = %d %s", rt.path, w.Code, w.Body.String())
		}
	}

	// register, login and reset share one per-IP bucket; three were spent above
	for i := 3; i < authBurst; i++ {
		if w := serve(r, http.MethodPost, "/api/auth/login", `{"phone":"13800138000","password":"x"}`, nil); w.Code == http.StatusTooManyRequests {
			t.Fatalf("login %d limited early", i)
		}
	}
	w := serve(r, http.MethodPost, "/api/auth/login", `{"phone":"13800138000","password":"x"}`, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected auth bucket 429, got %d", w.Code)
	}
}

func TestIdempotencyLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	lookup := idempotencyLookup(db)

	if hit, err := lookup(ctx, "u1", services.ScopePaymentCreate, "k1", now); hit || err != nil {
		t.Fatalf("miss expected, got hit=%v err=%v", hit, err)
	}

	if _, err := repo.CreateIdempotency(ctx, db, "u1", services.ScopePaymentCreate, "k1", "order-1", http.StatusOK, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if hit, err := lookup(ctx, "u1", services.ScopePaymentCreate, "k1", now); !hit || err != nil {
		t.Fatalf("hit expected, got hit=%v err=%v", hit, err)
	}
	if hit, _ := lookup(ctx, "u2", services.ScopePaymentCreate, "k1", now); hit {
		t.Fatal("keys are per user")
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()
	if hit, err := lookup(ctx, "u1", services.ScopePaymentCreate, "k1", now); hit || err == nil || errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("closed db should surface an error, got hit=%v err=%v", hit, err)
	}
}

func TestRegisterRoutes_InvalidIdempotencyKey(t *testing.T) {
	r, _ := newTestEngine(t, testConfig())
	hdr := bearer()
	hdr[middleware.HeaderIdempotencyKey] = strings.Repeat("k", idempotencyKeySize+1)

	w := serve(r, http.MethodPost, "/api/payment/create", `{"planId":"pro","amount":99}`, hdr)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "bad_idempotency_key" {
		t.Fatalf("oversized key = %d %s", w.Code, w.Body.String())
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}
