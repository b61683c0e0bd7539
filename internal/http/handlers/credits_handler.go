// Account read HTTP handlers.
//
// This file exposes the authenticated read routes:
//   - GET /user/credits   (balance, subscription and recent ledger)
//   - GET /user/history   (recent generations, weak ETag support)
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/designai/studio-backend/internal/domain"
)

// SubscriptionInfo is present in CreditsResponse for users with a plan.
type SubscriptionInfo struct {
	Tier      string     `json:"tier"                 example:"pro"`
	Status    string     `json:"status"               example:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" example:"2026-03-01T00:00:00Z"`
}

// CreditsResponse is the body of GET /user/credits.
type CreditsResponse struct {
	Balance      int                        `json:"balance" example:"120"`
	Subscription *SubscriptionInfo          `json:"subscription,omitempty"`
	Transactions []domain.CreditTransaction `json:"transactions"`
}

// HistoryResponse is the body of GET /user/history.
type HistoryResponse struct {
	History []domain.GenerationHistory `json:"history"`
}

// GetCredits godoc
// @ID          getCredits
// @Summary     Current balance and recent credit transactions
// @Description Returns balance 0 when the user has no balance row yet. At most 50 transactions, newest first.
// @Tags        Account
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.CreditsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /user/credits [get]
func (h *Handlers) GetCredits(c *gin.Context) {
	sum, err := h.credits.Summary(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", err)
		return
	}

	resp := CreditsResponse{Balance: sum.Balance, Transactions: sum.Transactions}
	if uc := sum.Subscription; uc != nil && uc.SubscriptionTier != "" {
		resp.Subscription = &SubscriptionInfo{
			Tier:      uc.SubscriptionTier,
			Status:    uc.SubscriptionStatus,
			ExpiresAt: uc.SubscriptionExpiresAt,
		}
	}
	ok(c, http.StatusOK, resp)
}

// GetHistory godoc
// @ID          getHistory
// @Summary     Recent generation history
// @Description Returns up to 50 finished generations, newest first.
// @Description Supports conditional requests with a weak ETag (If-None-Match → 304).
// @Tags        Account
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
// @Success     200  {object}  handlers.HistoryResponse
// @Success     304  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /user/history [get]
func (h *Handlers) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// ETag pre-check (best effort).
	if count, newest, err := h.history.Stats(ctx, uid); err == nil {
		etag := historyETag(uid, count, newest)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			notModified(c)
			return
		}
	}

	items, err := h.history.List(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch history", err)
		return
	}
	ok(c, http.StatusOK, HistoryResponse{History: items})
}

func historyETag(userID string, count int64, newest *time.Time) string {
	var ts int64
	if newest != nil {
		ts = newest.UnixNano()
	}
	return fmt.Sprintf(`W/"history:%s:%d:%d"`, userID, count, ts)
}
