// Package domain defines the persistence models for the studio backend.
// The tables live in the managed Supabase database; the gorm tags describe
// them closely enough for the local SQLite schema used in development and
// tests. Nothing here uses soft deletes: the upstream schema has none.
package domain

import "time"

// PhoneUser links a phone number to a Supabase auth user. Rows are created
// at registration; PasswordHash is the bcrypt hash of the phone password.
type PhoneUser struct {
	ID             string    `json:"id"               gorm:"type:varchar(36);primaryKey"`
	Phone          string    `json:"phone"            gorm:"type:varchar(32);not null;uniqueIndex:ux_phone_users_phone"`
	PasswordHash   string    `json:"-"                gorm:"type:varchar(72)"`
	SupabaseUserID string    `json:"supabase_user_id" gorm:"type:varchar(36);not null;index:idx_phone_users_user"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for PhoneUser.
func (PhoneUser) TableName() string { return "phone_users" }

// UserCredits is the per-user balance and subscription record.
//
// Fields:
//   - Balance: spendable credits.
//   - DailyGenerations / LastDailyReset: free-tier counters maintained elsewhere.
//   - SubscriptionTier / Status / ExpiresAt: set when a subscription plan is paid.
type UserCredits struct {
	UserID                string     `json:"user_id"                           gorm:"type:varchar(36);primaryKey"`
	Balance               int        `json:"balance"                           gorm:"not null;default:0"`
	DailyGenerations      int        `json:"daily_generations"                 gorm:"not null;default:0"`
	LastDailyReset        *time.Time `json:"last_daily_reset,omitempty"`
	SubscriptionTier      string     `json:"subscription_tier,omitempty"       gorm:"type:varchar(32)"`
	SubscriptionStatus    string     `json:"subscription_status,omitempty"     gorm:"type:varchar(32)"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName returns the database table name for UserCredits.
func (UserCredits) TableName() string { return "user_credits" }

// Credit transaction types written by this service.
const (
	TxTypePurchase = "purchase"
	TxTypeAdmin    = "admin_grant"
)

// CreditTransaction is one append-only ledger entry. Positive amounts are
// grants, negative ones are spends.
type CreditTransaction struct {
	ID           string    `json:"id"            gorm:"type:varchar(36);primaryKey"`
	UserID       string    `json:"user_id"       gorm:"type:varchar(36);not null;index:idx_credit_tx_user,priority:1"`
	Amount       int       `json:"amount"        gorm:"not null"`
	BalanceAfter *int      `json:"balance_after,omitempty"`
	Type         string    `json:"type"          gorm:"type:varchar(32)"`
	Description  string    `json:"description"   gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"    gorm:"index:idx_credit_tx_user,priority:2"`
}

// TableName returns the database table name for CreditTransaction.
func (CreditTransaction) TableName() string { return "credit_transactions" }

// GenerationHistory is a finished generation shown in the user's history.
type GenerationHistory struct {
	ID          string    `json:"id"           gorm:"type:varchar(36);primaryKey"`
	UserID      string    `json:"user_id"      gorm:"type:varchar(36);not null;index:idx_history_user,priority:1"`
	Prompt      string    `json:"prompt"       gorm:"type:text"`
	Type        string    `json:"type"         gorm:"type:varchar(32)"`
	ImageURL    string    `json:"image_url,omitempty"  gorm:"type:text"`
	ResultURL   string    `json:"result_url,omitempty" gorm:"type:text"`
	CreditsUsed int       `json:"credits_used" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index:idx_history_user,priority:2"`
}

// TableName returns the database table name for GenerationHistory.
func (GenerationHistory) TableName() string { return "generation_history" }

// Task statuses. The lifecycle is driven by the external generation queue.
const (
	TaskPending    = "pending"
	TaskProcessing = "processing"
	TaskCompleted  = "completed"
	TaskFailed     = "failed"
)

// GenerationTask is an asynchronous generation job.
type GenerationTask struct {
	ID        string    `json:"id"         gorm:"type:varchar(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(36);not null;index"`
	Prompt    string    `json:"prompt"     gorm:"type:text"`
	ImageURL  string    `json:"image_url"  gorm:"type:text"`
	Type      string    `json:"type"       gorm:"type:varchar(32)"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null;default:'pending'"`
	ResultURL *string   `json:"result_url,omitempty" gorm:"type:text"`
	Error     *string   `json:"error,omitempty"      gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for GenerationTask.
func (GenerationTask) TableName() string { return "generation_tasks" }

// Verification code purposes.
const (
	CodePurposeRegister = "register"
	CodePurposeReset    = "reset"
)

// VerificationCode is a one-time SMS code. Verified flips to true when the
// code is used and never back.
type VerificationCode struct {
	ID        string    `json:"id"         gorm:"type:varchar(36);primaryKey"`
	Phone     string    `json:"phone"      gorm:"type:varchar(32);not null;index:idx_codes_phone,priority:1"`
	Code      string    `json:"-"          gorm:"type:varchar(8);not null"`
	Purpose   string    `json:"purpose"    gorm:"type:varchar(16);not null;default:'register'"`
	Verified  bool      `json:"verified"   gorm:"not null;default:false"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_codes_phone,priority:2"`
}

// TableName returns the database table name for VerificationCode.
func (VerificationCode) TableName() string { return "verification_codes" }

// Order statuses.
const (
	OrderPending = "pending"
	OrderPaid    = "paid"
)

// Order is a purchase opened with the payment gateway.
//
// TradeID is the id sent to the gateway (the order UUID without hyphens) and
// is how notify callbacks find the order again.
type Order struct {
	ID              string    `json:"id"                          gorm:"type:varchar(36);primaryKey"`
	UserID          string    `json:"user_id"                     gorm:"type:varchar(36);not null;index"`
	PlanID          string    `json:"plan_id"                     gorm:"type:varchar(32);not null"`
	PlanName        string    `json:"plan_name"                   gorm:"type:varchar(255)"`
	Amount          float64   `json:"amount"                      gorm:"not null"`
	Status          string    `json:"status"                      gorm:"type:varchar(16);not null;default:'pending'"`
	TradeID         string    `json:"trade_id"                    gorm:"type:varchar(32);uniqueIndex:ux_orders_trade_id"`
	ProviderTradeNo string    `json:"provider_trade_no,omitempty" gorm:"type:varchar(64)"`
	PaymentURL      string    `json:"payment_url,omitempty"       gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// All lists every model for local schema creation.
func All() []any {
	return []any{
		&PhoneUser{},
		&UserCredits{},
		&CreditTransaction{},
		&GenerationHistory{},
		&GenerationTask{},
		&VerificationCode{},
		&Order{},
		&Idempotency{},
	}
}
