// Package pricing computes the coin cost of unlocking a tutoring request's
// contact details. Everything here is pure: the clock is passed in.
package pricing

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tutorlink/tutorlink-api/internal/domain/tutoring"
)

const (
	BaseCost    = 5
	MinimumCost = 3
)

// Factor is one multiplier that contributed to a quote.
type Factor struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
}

// Quote is a computed unlock cost together with the multipliers applied.
type Quote struct {
	Cost    int      `json:"cost"`
	Base    int      `json:"base"`
	Factors []Factor `json:"factors"`
}

type tier struct {
	above      decimal.Decimal
	multiplier float64
}

// Tiers are ordered highest first; only the first match applies.
var (
	priceTiers = []tier{
		{decimal.NewFromInt(100), 1.8},
		{decimal.NewFromInt(50), 1.4},
		{decimal.NewFromInt(25), 1.2},
	}
	viewTiers = []tier{
		{decimal.NewFromInt(20), 2.5},
		{decimal.NewFromInt(10), 2.0},
		{decimal.NewFromInt(5), 1.5},
	}
)

var premiumSubjects = map[string]struct{}{
	"mathematics":      {},
	"physics":          {},
	"chemistry":        {},
	"computer science": {},
	"programming":      {},
}

const (
	subjectPremium = 1.3
	freshBonus     = 1.6
	recentBonus    = 1.3
	freshAge       = 24 * time.Hour
	recentAge      = 3 * 24 * time.Hour
)

// Calculate returns the unlock cost of r at now.
func Calculate(r *tutoring.Request, now time.Time) int {
	return Explain(r, now).Cost
}

// Explain computes the unlock cost of r at now and lists the factors used.
// Missing fields never fail: they simply contribute no bonus.
func Explain(r *tutoring.Request, now time.Time) Quote {
	q := Quote{Base: BaseCost, Factors: []Factor{}}
	if r == nil {
		q.Cost = BaseCost
		return q
	}

	total := float64(BaseCost)
	apply := func(name string, m float64) {
		if m == 1 {
			return
		}
		total *= m
		q.Factors = append(q.Factors, Factor{Name: name, Multiplier: m})
	}

	apply("urgency", urgencyMultiplier(r.Urgency))
	if r.PriceAmount.Valid {
		apply("price", tierMultiplier(priceTiers, r.PriceAmount.Decimal))
	}
	apply("popularity", tierMultiplier(viewTiers, decimal.NewFromInt(r.Views())))
	if hasPremiumSubject(r.Subjects) {
		apply("subject", subjectPremium)
	}
	if r.CreatedAt.Valid {
		apply("recency", recencyMultiplier(now.Sub(r.CreatedAt.Time)))
	}

	if math.IsNaN(total) || math.IsInf(total, 0) {
		q.Cost = BaseCost
		q.Factors = []Factor{}
		return q
	}

	cost := int(math.Round(total))
	if cost < MinimumCost {
		cost = MinimumCost
	}
	q.Cost = cost
	return q
}

func urgencyMultiplier(u tutoring.Urgency) float64 {
	switch u.Normalize() {
	case tutoring.UrgencyUrgent:
		return 2.0
	case tutoring.UrgencyWithinWeek:
		return 1.5
	default:
		return 1.0
	}
}

func tierMultiplier(tiers []tier, v decimal.Decimal) float64 {
	for _, t := range tiers {
		if v.GreaterThan(t.above) {
			return t.multiplier
		}
	}
	return 1.0
}

func hasPremiumSubject(subjects []string) bool {
	for _, s := range subjects {
		if _, ok := premiumSubjects[strings.ToLower(strings.TrimSpace(s))]; ok {
			return true
		}
	}
	return false
}

// A created_at in the future (clock skew) counts as brand new.
func recencyMultiplier(age time.Duration) float64 {
	switch {
	case age < freshAge:
		return freshBonus
	case age < recentAge:
		return recentBonus
	default:
		return 1.0
	}
}
