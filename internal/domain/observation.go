package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuyBoxRank marks the winning offer for a region.
const BuyBoxRank = 1

// MaxRank is the deepest offer position recorded per region.
const MaxRank = 4

// Observation is one observed offer for a product in a region at a point in time.
type Observation struct {
	ID         string
	Channel    string
	ObservedAt time.Time
	ProductID  string
	SKU        string
	Region     string
	SellerName string
	Price      decimal.Decimal
	Rank       int
	// LowStock is the "only N left" hint shown next to the buy box; nil when absent.
	LowStock *int
}

// IsBuyBox reports whether the observation is the rank-1 offer.
func (o Observation) IsBuyBox() bool {
	return o.Rank == BuyBoxRank
}

// HasLowStock reports whether a positive remaining quantity was displayed.
func (o Observation) HasLowStock() bool {
	return o.LowStock != nil && *o.LowStock > 0
}

// AuditRecord documents a pricing action chosen by the engine.
type AuditRecord struct {
	ID          string
	Channel     string
	RecordedAt  time.Time
	ProductID   string
	NewPrice    decimal.Decimal
	Action      Action
	Description string
}

// Record is a row of the observation store: exactly one of Observation or Audit is set.
type Record struct {
	Observation *Observation
	Audit       *AuditRecord
}

// ObservationRecord wraps an observation.
func ObservationRecord(o Observation) Record {
	return Record{Observation: &o}
}

// AuditRecordOf wraps an audit record.
func AuditRecordOf(a AuditRecord) Record {
	return Record{Audit: &a}
}

// ProductID returns the product of whichever variant is set.
func (r Record) ProductID() string {
	switch {
	case r.Observation != nil:
		return r.Observation.ProductID
	case r.Audit != nil:
		return r.Audit.ProductID
	default:
		return ""
	}
}

// Time returns the observation or recording timestamp.
func (r Record) Time() time.Time {
	switch {
	case r.Observation != nil:
		return r.Observation.ObservedAt
	case r.Audit != nil:
		return r.Audit.RecordedAt
	default:
		return time.Time{}
	}
}

// Offer is a single ranked offer returned by an offer collector before it is stored.
type Offer struct {
	Rank       int
	SellerName string
	Price      decimal.Decimal
	LowStock   *int
}
