package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/designai/studio-backend/internal/auth"
	"github.com/designai/studio-backend/internal/domain"
	"github.com/designai/studio-backend/internal/services"
)

// ---------- service stubs ----------

type stubAccounts struct {
	check    func(context.Context, string) (bool, string, error)
	sendCode func(ctx context.Context, phone, purpose string) error
	register func(ctx context.Context, phone, code, password string) (*auth.Session, error)
	login    func(ctx context.Context, phone, password string) (*auth.Session, error)
	reset    func(ctx context.Context, phone, code, password string) error
}

func (s stubAccounts) CheckPhone(ctx context.Context, phone string) (bool, string, error) {
	return s.check(ctx, phone)
}

func (s stubAccounts) SendCode(ctx context.Context, phone, purpose string) error {
	return s.sendCode(ctx, phone, purpose)
}

func (s stubAccounts) Register(ctx context.Context, phone, code, password string) (*auth.Session, error) {
	return s.register(ctx, phone, code, password)
}

func (s stubAccounts) Login(ctx context.Context, phone, password string) (*auth.Session, error) {
	return s.login(ctx, phone, password)
}

func (s stubAccounts) ResetPassword(ctx context.Context, phone, code, password string) error {
	return s.reset(ctx, phone, code, password)
}

type stubCredits struct {
	summary func(context.Context, string) (*services.CreditSummary, error)
}

func (s stubCredits) Summary(ctx context.Context, userID string) (*services.CreditSummary, error) {
	return s.summary(ctx, userID)
}

type stubHistory struct {
	items    []domain.GenerationHistory
	listErr  error
	statsErr error
	count    int64
	newest   *time.Time
	listed   int
}

func (s *stubHistory) List(context.Context, string) ([]domain.GenerationHistory, error) {
	s.listed++
	return s.items, s.listErr
}

func (s *stubHistory) Stats(context.Context, string) (int64, *time.Time, error) {
	return s.count, s.newest, s.statsErr
}

type stubTasks struct {
	status func(context.Context, string, string) (*domain.GenerationTask, error)
}

func (s stubTasks) Status(ctx context.Context, userID, taskID string) (*domain.GenerationTask, error) {
	return s.status(ctx, userID, taskID)
}

type stubPayments struct {
	create func(context.Context, string, services.CreatePaymentInput) (*services.PaymentResult, error)
	notify func(context.Context, map[string]any) (string, error)
}

func (s stubPayments) Create(ctx context.Context, userID string, in services.CreatePaymentInput) (*services.PaymentResult, error) {
	return s.create(ctx, userID, in)
}

func (s stubPayments) HandleNotify(ctx context.Context, fields map[string]any) (string, error) {
	return s.notify(ctx, fields)
}

type stubPrompts struct {
	enhance func(context.Context, string, string) (string, error)
}

func (s stubPrompts) Enhance(ctx context.Context, userID, prompt string) (string, error) {
	return s.enhance(ctx, userID, prompt)
}

// ---------- helpers ----------

// newTestRouter mounts every route. When userID is non-empty it is injected
// the way auth.RequireUser would.
func newTestRouter(h *Handlers, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("requestID", "rid-test")
		if userID != "" {
			c.Set("userID", userID)
		}
		c.Next()
	})
	r.POST("/auth/check-phone", h.CheckPhone)
	r.POST("/auth/send-code", h.SendCode)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/reset-password", h.ResetPassword)
	r.GET("/check-status", h.CheckStatus)
	r.GET("/user/credits", h.GetCredits)
	r.GET("/user/history", h.GetHistory)
	r.POST("/payment/create", h.CreatePayment)
	r.POST("/payment/notify", h.PaymentNotify)
	r.POST("/prompt/enhance", h.EnhancePrompt)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("error body is not JSON: %q", w.Body.String())
	}
	if er.Error == "" || er.RequestID != "rid-test" {
		t.Fatalf("error envelope incomplete: %+v", er)
	}
	return er
}
