package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSellerName is the operator's own seller identity on the marketplace.
const DefaultSellerName = "SodaSmart-de"

// DefaultChannel labels every record written by this service.
const DefaultChannel = "Amazon"

// Product is the static per-listing configuration.
type Product struct {
	ID  string
	SKU string
	// MinimumPrice is the floor below which a decrease is forbidden; nil when not configured.
	MinimumPrice *decimal.Decimal
}

// Policy holds the global repricing parameters of one run.
type Policy struct {
	PriceStep          decimal.Decimal
	TestMode           bool
	MinZipsForIncrease int
	MaxZipsForDecrease int
	SellerName         string
	// GuardRepeatedDecrease blocks a second decrease inside one evaluation window,
	// mirroring the guard the increase branch always has.
	GuardRepeatedDecrease bool
	// Window bounds the store query to rows newer than now-Window; zero reads everything.
	Window time.Duration
}
