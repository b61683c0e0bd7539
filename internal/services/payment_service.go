// Package services – PaymentService
//
// This file implements the purchase flow against the Xunhu gateway:
//
//   - Create opens a pending order, asks the gateway for a pay URL and stores
//     it. An Idempotency-Key replay returns the stored URL instead of opening
//     a second order.
//   - HandleNotify verifies the gateway's signed callback and fulfills the
//     order exactly once: the pending→paid transition and the credit grant
//     commit in one transaction, and a notification for an order that is no
//     longer pending changes nothing.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/designai/studio-backend/internal/domain"
	"github.com/designai/studio-backend/internal/observability"
	"github.com/designai/studio-backend/internal/payment"
	"github.com/designai/studio-backend/internal/repo"
)

// ScopePaymentCreate is the idempotency scope of payment creation.
const ScopePaymentCreate = "payment.create"

// PaymentGateway is the gateway contract. *payment.Gateway satisfies it.
type PaymentGateway interface {
	Configured() bool
	Verify(fields map[string]any) bool
	CreatePayment(ctx context.Context, p payment.CreateParams) (*payment.CreateResult, error)
}

// CreatePaymentInput is a purchase request from an authenticated user.
type CreatePaymentInput struct {
	PlanID         string
	PlanName       string
	Amount         float64
	IdempotencyKey string
}

// PaymentResult is the outcome of Create.
type PaymentResult struct {
	OrderID  string
	URL      string
	Replayed bool
}

// PaymentService creates gateway payments and fulfills paid orders.
type PaymentService struct {
	DB             *gorm.DB
	Gateway        PaymentGateway
	IdempotencyTTL time.Duration

	Now func() time.Time
}

// Create opens an order for in.PlanID and returns the gateway pay URL.
// in.Amount must equal one of the plan's list prices; the order is stored at
// that price.
func (s *PaymentService) Create(ctx context.Context, userID string, in CreatePaymentInput) (*PaymentResult, error) {
	ctx, span := otel.Tracer("services/PaymentService").Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("plan.id", in.PlanID),
		),
	)
	defer span.End()

	in.PlanID = strings.TrimSpace(in.PlanID)
	in.PlanName = strings.TrimSpace(in.PlanName)
	price, ok := payment.PriceFor(in.PlanID, in.Amount)
	if !ok {
		return nil, ErrInvalidOrder
	}
	if in.PlanName == "" {
		in.PlanName = in.PlanID
	}
	if s.Gateway == nil || !s.Gateway.Configured() {
		return nil, ErrPaymentUnavailable
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if res, ok := s.replay(ctx, userID, key); ok {
			return res, nil
		}
	}

	order, err := repo.CreateOrder(ctx, s.DB, userID, in.PlanID, in.PlanName, price)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	pay, err := s.Gateway.CreatePayment(ctx, payment.CreateParams{
		TradeOrderID: order.TradeID,
		Amount:       order.Amount,
		Title:        order.PlanName,
	})
	observability.RecordPaymentCreate(err == nil)
	if err != nil {
		return nil, err
	}

	if err := repo.SetOrderPaymentURL(ctx, s.DB, order.ID, pay.URL); err != nil {
		return nil, fmt.Errorf("store payment url: %w", err)
	}

	if key != "" {
		if _, err := repo.CreateIdempotency(ctx, s.DB, userID, ScopePaymentCreate, key, order.ID, 200, s.ttl()); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			log.Warn().Err(err).Str("order_id", order.ID).Msg("store idempotency key")
		}
	}

	return &PaymentResult{OrderID: order.ID, URL: pay.URL}, nil
}

func (s *PaymentService) replay(ctx context.Context, userID, key string) (*PaymentResult, bool) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, ScopePaymentCreate, key, s.now())
	if err != nil {
		return nil, false
	}
	order, err := repo.GetOrder(ctx, s.DB, rec.ResourceID, userID)
	if err != nil || order.PaymentURL == "" {
		return nil, false
	}
	return &PaymentResult{OrderID: order.ID, URL: order.PaymentURL, Replayed: true}, true
}

// HandleNotify processes one gateway callback and returns the outcome
// (one of the observability.Notify* values).
//
//   - a bad signature returns ErrInvalidSignature;
//   - a status other than "OD" is acknowledged and ignored;
//   - an unknown trade id returns ErrOrderNotFound;
//   - a total_fee that differs from the order amount returns
//     ErrAmountMismatch and leaves the order pending;
//   - an order that is already paid is acknowledged without a second grant.
func (s *PaymentService) HandleNotify(ctx context.Context, fields map[string]any) (string, error) {
	ctx, span := otel.Tracer("services/PaymentService").Start(ctx, "HandleNotify")
	defer span.End()

	outcome, err := s.handleNotify(ctx, fields)
	span.SetAttributes(attribute.String("payment.outcome", outcome))
	observability.RecordPaymentNotify(outcome)
	return outcome, err
}

func (s *PaymentService) handleNotify(ctx context.Context, fields map[string]any) (string, error) {
	if s.Gateway == nil || !s.Gateway.Configured() {
		return observability.NotifyInternalError, ErrPaymentUnavailable
	}
	if !s.Gateway.Verify(fields) {
		return observability.NotifyBadSignature, ErrInvalidSignature
	}
	if field(fields, "status") != payment.StatusPaid {
		return observability.NotifyIgnored, nil
	}

	tradeID := field(fields, "trade_order_id")
	order, err := repo.GetOrderByTradeID(ctx, s.DB, tradeID)
	if errors.Is(err, repo.ErrNotFound) {
		return observability.NotifyUnknownOrder, ErrOrderNotFound
	}
	if err != nil {
		return observability.NotifyInternalError, err
	}
	if fee, ok := payment.ParseFee(field(fields, "total_fee")); !ok || fee != payment.Cents(order.Amount) {
		log.Warn().
			Str("order_id", order.ID).
			Str("total_fee", field(fields, "total_fee")).
			Float64("amount", order.Amount).
			Msg("notify amount mismatch")
		return observability.NotifyAmountMismatch, ErrAmountMismatch
	}

	outcome := observability.NotifyDuplicate
	grant := payment.GrantFor(order.PlanID, order.Amount)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changed, err := repo.MarkOrderPaid(ctx, tx, order.ID, field(fields, "open_order_id"))
		if err != nil || !changed {
			return err
		}
		outcome = observability.NotifyCredited
		if grant.Empty() {
			return nil
		}
		_, err = applyGrant(ctx, tx, order.UserID, grant, domain.TxTypePurchase, "购买 "+order.PlanName, s.now())
		return err
	})
	if err != nil {
		return observability.NotifyInternalError, err
	}
	if outcome == observability.NotifyCredited {
		observability.RecordCreditsGranted(grant.Credits)
		log.Info().
			Str("order_id", order.ID).
			Str("user_id", order.UserID).
			Str("plan_id", order.PlanID).
			Int("credits", grant.Credits).
			Msg("order fulfilled")
	}
	return outcome, nil
}

// applyGrant adds g to the user's balance (creating the row when missing),
// extends the subscription for subscription plans and appends a ledger
// entry. It must run inside a transaction: the balance row stays locked from
// the read to the commit, so concurrent grants apply one after the other.
func applyGrant(ctx context.Context, tx *gorm.DB, userID string, g payment.Grant, typ, desc string, now time.Time) (*domain.UserCredits, error) {
	if err := repo.EnsureCredits(ctx, tx, userID); err != nil {
		return nil, err
	}
	uc, err := repo.GetCreditsForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	uc.Balance += g.Credits
	if g.Subscription() {
		start := now
		if uc.SubscriptionExpiresAt != nil && uc.SubscriptionExpiresAt.After(now) {
			start = *uc.SubscriptionExpiresAt
		}
		exp := start.AddDate(0, g.Months, 0)
		uc.SubscriptionTier = g.Tier
		uc.SubscriptionStatus = "active"
		uc.SubscriptionExpiresAt = &exp
	}
	if err := repo.SaveCredits(ctx, tx, uc); err != nil {
		return nil, err
	}
	if g.Credits != 0 {
		if _, err := repo.CreateTransaction(ctx, tx, userID, g.Credits, uc.Balance, typ, desc); err != nil {
			return nil, err
		}
	}
	return uc, nil
}

func (s *PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *PaymentService) ttl() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 24 * time.Hour
}

// field renders a notification value as a trimmed string.
func field(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(payment.FormatValue(v))
}
