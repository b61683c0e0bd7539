package payment

import (
	"math"
	"strconv"
	"strings"
)

// Grant is what a paid order entitles the buyer to.
type Grant struct {
	Credits int
	Tier    string // subscription tier, empty for one-off credit packs
	Months  int    // subscription length added on top of the current expiry
}

// Subscription reports whether g carries a subscription.
func (g Grant) Subscription() bool { return g.Tier != "" }

// Empty reports whether g grants nothing (unknown plan).
func (g Grant) Empty() bool { return g.Credits == 0 && g.Tier == "" }

type creditPack struct {
	credits int
	price   float64
}

type subscriptionPlan struct {
	monthly      int
	monthlyPrice float64
	yearlyPrice  float64
}

var creditPacks = map[string]creditPack{
	"gift":    {credits: 30, price: 2.9},
	"starter": {credits: 100, price: 19.9},
	"popular": {credits: 650, price: 99},
	"expert":  {credits: 4000, price: 499},
}

var subscriptions = map[string]subscriptionPlan{
	"lite":   {monthly: 225, monthlyPrice: 29.9, yearlyPrice: 289},
	"pro":    {monthly: 750, monthlyPrice: 99, yearlyPrice: 890},
	"agency": {monthly: 2250, monthlyPrice: 299, yearlyPrice: 2890},
}

// GrantFor maps a plan id and the amount actually paid to a Grant.
// A subscription order is yearly when its amount is the yearly price; a
// yearly purchase credits twelve months up front.
func GrantFor(planID string, amount float64) Grant {
	if p, ok := creditPacks[planID]; ok {
		return Grant{Credits: p.credits}
	}
	sp, ok := subscriptions[planID]
	if !ok {
		return Grant{}
	}
	if Cents(amount) == Cents(sp.yearlyPrice) {
		return Grant{Credits: sp.monthly * 12, Tier: planID, Months: 12}
	}
	return Grant{Credits: sp.monthly, Tier: planID, Months: 1}
}

// KnownPlan reports whether planID is purchasable.
func KnownPlan(planID string) bool {
	if _, ok := creditPacks[planID]; ok {
		return true
	}
	_, ok := subscriptions[planID]
	return ok
}

// Price returns the list price of planID. yearly selects the yearly price of
// a subscription and is ignored for credit packs.
func Price(planID string, yearly bool) (float64, bool) {
	if p, ok := creditPacks[planID]; ok {
		return p.price, true
	}
	sp, ok := subscriptions[planID]
	if !ok {
		return 0, false
	}
	if yearly {
		return sp.yearlyPrice, true
	}
	return sp.monthlyPrice, true
}

// PriceFor returns the list price of planID that equals amount to the cent.
// It fails for unknown plans and for amounts that match no price of the plan.
func PriceFor(planID string, amount float64) (float64, bool) {
	for _, yearly := range []bool{false, true} {
		p, ok := Price(planID, yearly)
		if !ok {
			return 0, false
		}
		if Cents(p) == Cents(amount) {
			return p, true
		}
	}
	return 0, false
}

// Cents converts a yuan amount to whole cents.
func Cents(yuan float64) int64 {
	return int64(math.Round(yuan * 100))
}

// ParseFee parses a gateway fee such as "99.00" into cents.
func ParseFee(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return Cents(v), true
}
