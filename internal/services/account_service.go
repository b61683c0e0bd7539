// Package services – AccountService
//
// This file implements phone accounts: registration checks, SMS verification
// codes, and password register, login and reset.
//
// A phone account is backed by a Supabase auth user whose email is
// <phone>@phone.login and whose password is derived from the phone password
// and a server-side salt, so the web client only ever sees the phone and its
// own password. The bcrypt hash in phone_users is what Login checks.
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/width"
	"gorm.io/gorm"

	"github.com/designai/studio-backend/internal/auth"
	"github.com/designai/studio-backend/internal/domain"
	"github.com/designai/studio-backend/internal/observability"
	"github.com/designai/studio-backend/internal/repo"
	"github.com/designai/studio-backend/internal/sms"
)

const (
	defaultCodeInterval = 60 * time.Second
	defaultCodeTTL      = 5 * time.Minute
	maxPhoneDigits      = 20

	minPasswordBytes = 6
	maxPasswordBytes = 72 // bcrypt input limit
	bcryptCost       = 10

	shadowEmailDomain = "@phone.login"
)

// SMSSender delivers one text message and reports the provider status.
// *sms.Client satisfies it.
type SMSSender interface {
	Send(ctx context.Context, phone, content string) sms.Status
}

// AuthAdmin manages the auth users behind phone accounts.
// *auth.AdminClient satisfies it.
type AuthAdmin interface {
	Configured() bool
	CreateUser(ctx context.Context, email, password string, metadata map[string]any) (string, error)
	UpdatePassword(ctx context.Context, userID, password string) error
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
}

// AccountService manages phone accounts.
type AccountService struct {
	DB *gorm.DB

	// SMS sends the code. When nil the service runs in dev mode: the code is
	// stored and logged but no message leaves the process.
	SMS SMSSender

	// Auth and ShadowSalt back Register, Login and ResetPassword; without
	// both those return ErrAuthUnavailable.
	Auth       AuthAdmin
	ShadowSalt string

	// Interval is the minimum gap between two codes for one phone; zero
	// disables the throttle.
	Interval time.Duration
	// CodeTTL is how long an issued code stays valid.
	CodeTTL time.Duration

	// Test seams.
	Now     func() time.Time
	NewCode func() (string, error)
}

// NewAccountService returns an AccountService with the default throttle and
// code lifetime.
func NewAccountService(db *gorm.DB, sender SMSSender) *AccountService {
	return &AccountService{
		DB:       db,
		SMS:      sender,
		Interval: defaultCodeInterval,
		CodeTTL:  defaultCodeTTL,
	}
}

// NormalizePhone trims the input, folds full-width digits to ASCII, drops
// spaces and hyphens, and checks that what remains is a digit string.
func NormalizePhone(raw string) (string, error) {
	s := width.Narrow.String(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "", "-", "").Replace(s)
	if s == "" {
		return "", ErrPhoneRequired
	}
	if len(s) > maxPhoneDigits {
		return "", ErrInvalidPhone
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return s, nil
}

// CheckPhone reports whether phone is registered. It returns the normalized
// phone so callers can echo it. "No row" is a normal outcome; any other
// datastore failure is returned as an error.
func (s *AccountService) CheckPhone(ctx context.Context, phone string) (bool, string, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return false, "", err
	}
	registered, err := s.registered(ctx, phone)
	if err != nil {
		return false, phone, err
	}
	return registered, phone, nil
}

// SendCode issues a six-digit code for purpose (domain.CodePurposeRegister
// when empty, or domain.CodePurposeReset).
//
// Rules:
//   - a registration code for a registered phone gets ErrPhoneRegistered;
//   - a reset code for an unregistered phone gets ErrPhoneNotRegistered;
//   - a phone that received a code less than Interval ago gets ErrSendTooFrequent;
//   - the code is stored before the SMS is sent; a provider failure is
//     returned as *SMSError.
func (s *AccountService) SendCode(ctx context.Context, phone, purpose string) error {
	ctx, span := otel.Tracer("services/AccountService").Start(ctx, "SendCode")
	defer span.End()

	phone, err := NormalizePhone(phone)
	if err != nil {
		return err
	}
	switch purpose {
	case "":
		purpose = domain.CodePurposeRegister
	case domain.CodePurposeRegister, domain.CodePurposeReset:
	default:
		return ErrInvalidPurpose
	}
	span.SetAttributes(attribute.String("code.purpose", purpose))

	registered, err := s.registered(ctx, phone)
	if err != nil {
		return err
	}
	if purpose == domain.CodePurposeRegister && registered {
		return ErrPhoneRegistered
	}
	if purpose == domain.CodePurposeReset && !registered {
		return ErrPhoneNotRegistered
	}

	now := s.now()
	last, err := repo.LatestCode(ctx, s.DB, phone)
	switch {
	case err == nil:
		if s.Interval > 0 && now.Sub(last.CreatedAt) < s.Interval {
			return ErrSendTooFrequent
		}
	case !errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("lookup last code: %w", err)
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	if _, err := repo.CreateCode(ctx, s.DB, phone, code, purpose, now, s.codeTTL()); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	content := fmt.Sprintf("【验证码】您的验证码是%s。如非本人操作，请忽略。", code)
	if s.SMS == nil {
		log.Info().Str("phone", phone).Str("code", code).Msg("sms dev mode: code not sent")
		return nil
	}

	status := s.SMS.Send(ctx, phone, content)
	observability.RecordSMSSend(string(status), status.Known())
	span.SetAttributes(attribute.String("sms.status", string(status)))
	if !status.OK() {
		span.AddEvent("sms failed", trace.WithAttributes(attribute.String("sms.message", status.Message())))
		return &SMSError{Status: status}
	}
	return nil
}

// Register creates a phone account after checking a registration code, and
// signs it in.
//
// The code is consumed and the phone_users row written in one transaction
// that also spans the auth user creation: a failure anywhere leaves the code
// usable. The returned session comes from a password sign-in right after.
func (s *AccountService) Register(ctx context.Context, phone, code, password string) (*auth.Session, error) {
	ctx, span := otel.Tracer("services/AccountService").Start(ctx, "Register")
	defer span.End()

	phone, code, err := s.credentials(phone, code, password)
	if err != nil {
		return nil, err
	}
	registered, err := s.registered(ctx, phone)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrPhoneRegistered
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	email, shadow := shadowEmail(phone), s.shadowPassword(phone, password)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.consumeCode(ctx, tx, phone, code, domain.CodePurposeRegister); err != nil {
			return err
		}
		userID, err := s.Auth.CreateUser(ctx, email, shadow, map[string]any{"phone_number": phone})
		if err != nil {
			return fmt.Errorf("create auth user: %w", err)
		}
		span.SetAttributes(attribute.String("user.id", userID))
		if _, err := repo.CreatePhoneUser(ctx, tx, phone, string(hash), userID); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrPhoneRegistered
			}
			return fmt.Errorf("store phone user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("phone", phone).Msg("phone account registered")

	sess, err := s.Auth.SignIn(ctx, email, shadow)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return sess, nil
}

// Login checks the phone password and returns an auth session.
func (s *AccountService) Login(ctx context.Context, phone, password string) (*auth.Session, error) {
	ctx, span := otel.Tracer("services/AccountService").Start(ctx, "Login")
	defer span.End()

	phone, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrCredentialsRequired
	}
	if !s.authConfigured() {
		return nil, ErrAuthUnavailable
	}

	u, err := repo.FindPhoneUserByPhone(ctx, s.DB, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPhoneNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("lookup phone: %w", err)
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrWrongPassword
	}

	sess, err := s.Auth.SignIn(ctx, shadowEmail(phone), s.shadowPassword(phone, password))
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return sess, nil
}

// ResetPassword sets a new password after checking a reset code. The code,
// the stored hash and the auth user's password change together or not at
// all.
func (s *AccountService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	ctx, span := otel.Tracer("services/AccountService").Start(ctx, "ResetPassword")
	defer span.End()

	phone, code, err := s.credentials(phone, code, newPassword)
	if err != nil {
		return err
	}
	u, err := repo.FindPhoneUserByPhone(ctx, s.DB, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPhoneNotRegistered
	}
	if err != nil {
		return fmt.Errorf("lookup phone: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.consumeCode(ctx, tx, phone, code, domain.CodePurposeReset); err != nil {
			return err
		}
		if err := repo.UpdatePasswordHash(ctx, tx, phone, string(hash)); err != nil {
			return fmt.Errorf("store password: %w", err)
		}
		if err := s.Auth.UpdatePassword(ctx, u.SupabaseUserID, s.shadowPassword(phone, newPassword)); err != nil {
			return fmt.Errorf("update auth password: %w", err)
		}
		return nil
	})
}

// credentials normalizes and validates the common register/reset input.
func (s *AccountService) credentials(phone, code, password string) (string, string, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return "", "", err
	}
	code = strings.TrimSpace(code)
	if code == "" || password == "" {
		return "", "", ErrCredentialsRequired
	}
	if len(password) < minPasswordBytes || len(password) > maxPasswordBytes {
		return "", "", ErrInvalidPassword
	}
	if !s.authConfigured() {
		return "", "", ErrAuthUnavailable
	}
	return phone, code, nil
}

func (s *AccountService) consumeCode(ctx context.Context, tx *gorm.DB, phone, code, purpose string) error {
	err := repo.ConsumeCode(ctx, tx, phone, code, purpose, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	return nil
}

func (s *AccountService) authConfigured() bool {
	return s.Auth != nil && s.Auth.Configured() && s.ShadowSalt != ""
}

// shadowPassword derives the auth-server password of a phone account. The
// format (32 hex chars plus a fixed suffix) satisfies GoTrue's password
// policy and matches accounts created before this service existed.
func (s *AccountService) shadowPassword(phone, password string) string {
	sum := sha256.Sum256([]byte(phone + password + s.ShadowSalt))
	return hex.EncodeToString(sum[:])[:32] + "Aa1!"
}

func shadowEmail(phone string) string { return phone + shadowEmailDomain }

func (s *AccountService) registered(ctx context.Context, phone string) (bool, error) {
	_, err := repo.FindPhoneUserByPhone(ctx, s.DB, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup phone: %w", err)
	}
	return true, nil
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AccountService) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return defaultCodeTTL
}

func (s *AccountService) newCode() (string, error) {
	if s.NewCode != nil {
		return s.NewCode()
	}
	return randomCode()
}

// randomCode returns a uniformly random six-digit code (100000-999999).
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
