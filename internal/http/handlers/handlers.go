// Package handlers implements the HTTP endpoints of the studio API.
//
// Handlers are transport-thin: they bind input, call an application service
// through the narrow interfaces below, and translate results and sentinel
// errors into HTTP responses. Every service method takes a context so client
// disconnects cancel datastore and upstream calls.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/designai/studio-backend/internal/auth"
	"github.com/designai/studio-backend/internal/domain"
	"github.com/designai/studio-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AccountService covers the unauthenticated phone routes.
type AccountService interface {
	// CheckPhone reports whether the normalized phone has an account.
	CheckPhone(ctx context.Context, phone string) (bool, string, error)
	// SendCode issues and delivers a verification code for purpose.
	SendCode(ctx context.Context, phone, purpose string) error
	// Register creates a phone account from a registration code.
	Register(ctx context.Context, phone, code, password string) (*auth.Session, error)
	// Login checks the phone password.
	Login(ctx context.Context, phone, password string) (*auth.Session, error)
	// ResetPassword sets a new password from a reset code.
	ResetPassword(ctx context.Context, phone, code, newPassword string) error
}

// CreditService reads a user's balance and ledger.
type CreditService interface {
	Summary(ctx context.Context, userID string) (*services.CreditSummary, error)
}

// HistoryService reads finished generations. Stats backs the ETag.
type HistoryService interface {
	List(ctx context.Context, userID string) ([]domain.GenerationHistory, error)
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// TaskService looks up an owner-scoped generation task.
type TaskService interface {
	Status(ctx context.Context, userID, taskID string) (*domain.GenerationTask, error)
}

// PaymentService opens orders and fulfils gateway callbacks.
type PaymentService interface {
	Create(ctx context.Context, userID string, in services.CreatePaymentInput) (*services.PaymentResult, error)
	HandleNotify(ctx context.Context, fields map[string]any) (string, error)
}

// PromptService rewrites generation prompts through the LLM.
type PromptService interface {
	Enhance(ctx context.Context, userID, prompt string) (string, error)
}

// Services bundles the dependencies of Handlers. Nil entries are allowed in
// tests that only exercise other routes.
type Services struct {
	Accounts AccountService
	Credits  CreditService
	History  HistoryService
	Tasks    TaskService
	Payments PaymentService
	Prompts  PromptService
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	accounts AccountService
	credits  CreditService
	history  HistoryService
	tasks    TaskService
	payments PaymentService
	prompts  PromptService
}

// New constructs Handlers from s.
func New(s Services) *Handlers {
	return &Handlers{
		accounts: s.Accounts,
		credits:  s.Credits,
		history:  s.History,
		tasks:    s.Tasks,
		payments: s.Payments,
		prompts:  s.Prompts,
	}
}

// userID returns the id set by auth.RequireUser. Routes that call it are
// only mounted behind that middleware.
func userID(c *gin.Context) string {
	return auth.UserID(c)
}
