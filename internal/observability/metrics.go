// Package observability – domain metrics
//
// Prometheus counters for the outbound integrations (SMS provider, payment
// gateway, LLM). HTTP traffic metrics live in the middleware package; these
// complement them with outcomes that a 200 response can hide, such as an SMS
// provider returning a non-zero status code.
//
// Label values come from closed sets so cardinality stays bounded.
package observability

import "github.com/prometheus/client_golang/prometheus"

// Payment notify outcomes.
const (
	NotifyCredited       = "credited"
	NotifyDuplicate      = "duplicate"
	NotifyIgnored        = "ignored"
	NotifyBadSignature   = "bad_signature"
	NotifyUnknownOrder   = "unknown_order"
	NotifyAmountMismatch = "amount_mismatch"
	NotifyInternalError  = "error"
)

var (
	smsSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_send_total",
			Help: "SMS send attempts by provider status code.",
		},
		[]string{"status"},
	)

	paymentCreates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_create_total",
			Help: "Payment creation attempts by result.",
		},
		[]string{"result"},
	)

	paymentNotifies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_notify_total",
			Help: "Payment gateway notifications by outcome.",
		},
		[]string{"result"},
	)

	creditsGranted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_granted_total",
			Help: "Credits granted through payments and admin grants.",
		},
	)

	llmCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Chat completion requests by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(smsSends, paymentCreates, paymentNotifies, creditsGranted, llmCalls)
}

// RecordSMSSend counts one SMS attempt. Unknown provider codes are folded
// into "other".
func RecordSMSSend(status string, known bool) {
	if !known {
		status = "other"
	}
	smsSends.WithLabelValues(status).Inc()
}

// RecordPaymentCreate counts one payment creation ("ok" or "error").
func RecordPaymentCreate(ok bool) {
	paymentCreates.WithLabelValues(result(ok)).Inc()
}

// RecordPaymentNotify counts one notify callback by outcome.
func RecordPaymentNotify(outcome string) {
	paymentNotifies.WithLabelValues(outcome).Inc()
}

// RecordCreditsGranted adds n granted credits. Non-positive values are ignored.
func RecordCreditsGranted(n int) {
	if n > 0 {
		creditsGranted.Add(float64(n))
	}
}

// RecordLLMCall counts one chat completion request.
func RecordLLMCall(ok bool) {
	llmCalls.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
