// Package pricing holds the buy-box step repricing rule.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alihassan4198-tech/repricer/internal/domain"
)

const (
	raisedMarker  = "increase price"
	loweredMarker = "decrease price"
)

// Window is the input of one evaluation: rank-1 observations plus the audit trail of the
// same product and period.
type Window struct {
	BuyBox []domain.Observation
	Audits []domain.AuditRecord
}

// NewWindow splits store records into the evaluation window of productID.
// Observations of other products or ranks are dropped.
func NewWindow(productID string, records []domain.Record) Window {
	var w Window
	for _, rec := range records {
		switch {
		case rec.Observation != nil:
			obs := rec.Observation
			if obs.ProductID == productID && obs.IsBuyBox() {
				w.BuyBox = append(w.BuyBox, *obs)
			}
		case rec.Audit != nil:
			if rec.Audit.ProductID == productID {
				w.Audits = append(w.Audits, *rec.Audit)
			}
		}
	}
	return w
}

// Metrics are the aggregates the decision table is evaluated on.
type Metrics struct {
	BuyBoxRegionCount int
	CurrentPrice      decimal.Decimal
	HasRaisedAlready  bool
	HasLoweredAlready bool
}

// Measure computes Metrics for a non-empty window.
func Measure(w Window, seller string) Metrics {
	var m Metrics
	for i, obs := range w.BuyBox {
		if obs.SellerName == seller {
			m.BuyBoxRegionCount++
		}
		if i == 0 || obs.Price.LessThan(m.CurrentPrice) {
			m.CurrentPrice = obs.Price
		}
	}
	for _, audit := range w.Audits {
		if strings.Contains(audit.Description, raisedMarker) {
			m.HasRaisedAlready = true
		}
		if strings.Contains(audit.Description, loweredMarker) {
			m.HasLoweredAlready = true
		}
	}
	return m
}

// Evaluate applies the step rule. It has no side effects.
//
// Guards run first: an empty window or any rank-1 row showing low stock yields no action.
// Then the first matching row of the decision table wins:
//
//	count >= X and not raised already            -> current + step
//	count <  Y and current > minimum + step      -> current - step
//	otherwise                                    -> none
func Evaluate(w Window, policy domain.Policy, product domain.Product) (domain.Decision, error) {
	decision := domain.Decision{
		ProductID:  product.ID,
		Action:     domain.ActionNone,
		WindowSize: len(w.BuyBox),
	}

	if len(w.BuyBox) == 0 {
		decision.Reason = domain.ReasonNoData
		return decision, nil
	}

	for _, obs := range w.BuyBox {
		if obs.HasLowStock() {
			decision.Reason = domain.ReasonLowStock
			return decision, nil
		}
	}

	m := Measure(w, policy.SellerName)
	decision.BuyBoxRegionCount = m.BuyBoxRegionCount
	decision.CurrentPrice = m.CurrentPrice

	if m.BuyBoxRegionCount >= policy.MinZipsForIncrease && !m.HasRaisedAlready {
		decision.Action = domain.ActionIncrease
		decision.Reason = domain.ReasonBuyBox
		decision.NewPrice = m.CurrentPrice.Add(policy.PriceStep)
		return decision, nil
	}

	if m.BuyBoxRegionCount < policy.MaxZipsForDecrease {
		if product.MinimumPrice == nil {
			return decision, fmt.Errorf("minimum price of %s: %w", product.ID, domain.ErrConfigurationMissing)
		}
		floor := product.MinimumPrice.Add(policy.PriceStep)
		blocked := policy.GuardRepeatedDecrease && m.HasLoweredAlready
		if m.CurrentPrice.GreaterThan(floor) && !blocked {
			decision.Action = domain.ActionDecrease
			decision.Reason = domain.ReasonLost
			decision.NewPrice = m.CurrentPrice.Sub(policy.PriceStep)
			return decision, nil
		}
	}

	decision.Reason = domain.ReasonHold
	return decision, nil
}
