// Payment HTTP handlers.
//
// This file exposes:
//   - POST /payment/create   (authenticated; opens an order, returns pay URL)
//   - POST /payment/notify   (gateway callback; plaintext success/fail)
//
// The notify endpoint answers in plaintext because the gateway only looks for
// the literal "success" and retries on anything else.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/designai/studio-backend/internal/http/middleware"
	"github.com/designai/studio-backend/internal/payment"
	"github.com/designai/studio-backend/internal/services"
)

const (
	notifySuccess = "success"
	notifyFail    = "fail"
)

// CreatePaymentRequest is the body of POST /payment/create.
type CreatePaymentRequest struct {
	PlanID   string  `json:"planId"   binding:"required" example:"popular"`
	PlanName string  `json:"planName"                    example:"热门套餐"`
	Amount   float64 `json:"amount"   binding:"required" example:"99"`
}

// CreatePaymentResponse carries the hosted checkout URL.
type CreatePaymentResponse struct {
	URL string `json:"url" example:"https://api.xunhupay.com/payment/pay.html?id=123"`
}

// CreatePayment godoc
// @ID          createPayment
// @Summary     Open a payment for a plan
// @Description Creates a pending order and returns the gateway checkout URL. amount must be one of the plan's list prices.
// @Description Supports idempotency via the Idempotency-Key header (same key → same URL, no second order).
// @Tags        Payment
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreatePaymentRequest  true  "Plan selection"
// @Success     200  {object}  handlers.CreatePaymentResponse
// @Header      200  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid plan or amount"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     502  {object}  handlers.ErrorResponse  "Gateway rejected the order"
// @Failure     503  {object}  handlers.ErrorResponse  "Payment not configured"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /payment/create [post]
func (h *Handlers) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "planId and amount are required")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	res, err := h.payments.Create(c.Request.Context(), userID(c), services.CreatePaymentInput{
		PlanID:         req.PlanID,
		PlanName:       req.PlanName,
		Amount:         req.Amount,
		IdempotencyKey: key,
	})

	var gwErr *payment.GatewayError
	switch {
	case err == nil:
	case errors.Is(err, services.ErrInvalidOrder):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid plan or amount")
		return
	case errors.Is(err, services.ErrPaymentUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable,
			"Payment system configuration missing (APPID/SECRET). Please configure server.", err)
		return
	case errors.As(err, &gwErr):
		msg := gwErr.Message
		if msg == "" {
			msg = "支付初始化失败"
		}
		fail(c, http.StatusBadGateway, ErrCodeGatewayError, msg, err)
		return
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "Internal Server Error", err)
		return
	}

	if res.Replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	ok(c, http.StatusOK, CreatePaymentResponse{URL: res.URL})
}

// PaymentNotify godoc
// @ID          paymentNotify
// @Summary     Gateway payment callback
// @Description Accepts form-encoded or JSON fields signed by the gateway. Answers plaintext.
// @Tags        Payment
// @Accept      x-www-form-urlencoded
// @Accept      json
// @Produce     plain
// @Success     200  {string}  string  "success"
// @Failure     400  {string}  string  "fail"
// @Failure     404  {string}  string  "fail"
// @Failure     503  {string}  string  "fail"
// @Failure     500  {string}  string  "fail"
// @Router      /payment/notify [post]
func (h *Handlers) PaymentNotify(c *gin.Context) {
	lg := middleware.LoggerFrom(c)

	fields, err := notifyFields(c)
	if err != nil {
		lg.Warn().Err(err).Msg("payment notify: unreadable body")
		c.String(http.StatusBadRequest, notifyFail)
		return
	}

	outcome, err := h.payments.HandleNotify(c.Request.Context(), fields)
	ev := lg.Info()
	if err != nil {
		ev = lg.Warn().Err(err)
	}
	ev.Str("outcome", outcome).
		Str("trade_order_id", payment.FormatValue(fields["trade_order_id"])).
		Msg("payment notify")

	switch {
	case err == nil:
		c.String(http.StatusOK, notifySuccess)
	case errors.Is(err, services.ErrInvalidSignature), errors.Is(err, services.ErrAmountMismatch):
		c.String(http.StatusBadRequest, notifyFail)
	case errors.Is(err, services.ErrOrderNotFound):
		c.String(http.StatusNotFound, notifyFail)
	case errors.Is(err, services.ErrPaymentUnavailable):
		c.String(http.StatusServiceUnavailable, notifyFail)
	default:
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, notifyFail)
	}
}

// notifyFields reads the callback body. JSON numbers are kept as
// json.Number so the signature sees them exactly as sent.
func notifyFields(c *gin.Context) (map[string]any, error) {
	if strings.Contains(c.ContentType(), "json") {
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, err
		}
		return m, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	m := make(map[string]any, len(c.Request.PostForm))
	for k, vs := range c.Request.PostForm {
		if len(vs) > 0 {
			m[k] = vs[0]
		}
	}
	return m, nil
}
