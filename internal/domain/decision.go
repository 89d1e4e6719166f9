package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Action enumerates what the engine decided to do with a listing price.
type Action string

const (
	ActionNone     Action = "none"
	ActionIncrease Action = "increase"
	ActionDecrease Action = "decrease"
)

// Reason explains why an action was or was not chosen.
type Reason string

const (
	ReasonNoData   Reason = "no_data"
	ReasonLowStock Reason = "low_stock"
	ReasonBuyBox   Reason = "buy_box_held"
	ReasonLost     Reason = "buy_box_lost"
	ReasonHold     Reason = "hold"
)

// Decision is the outcome of one engine evaluation for a product.
type Decision struct {
	ProductID         string
	Action            Action
	Reason            Reason
	CurrentPrice      decimal.Decimal
	NewPrice          decimal.Decimal
	BuyBoxRegionCount int
	WindowSize        int
	// UpdateFailed is set when the live marketplace update was attempted and failed.
	UpdateFailed bool
}

// Changed reports whether the decision carries a price change.
func (d Decision) Changed() bool {
	return d.Action == ActionIncrease || d.Action == ActionDecrease
}

// Description renders the audit text, e.g. "increase price by 0.5".
func (d Decision) Description(step decimal.Decimal) string {
	if !d.Changed() {
		return ""
	}
	return fmt.Sprintf("%s price by %s", d.Action, step.String())
}
