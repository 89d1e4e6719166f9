package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alihassan4198-tech/repricer/internal/domain"
)

// Query narrows a store read. Zero values mean "no restriction".
type Query struct {
	ProductID string
	// Since excludes records older than this instant.
	Since time.Time
}

// ObservationStore is the append-only log of observations and audit records.
type ObservationStore interface {
	Append(ctx context.Context, record domain.Record) error
	Read(ctx context.Context, q Query) ([]domain.Record, error)
}

// PriceUpdater pushes a new listing price to the marketplace.
type PriceUpdater interface {
	UpdatePrice(ctx context.Context, product domain.Product, newPrice decimal.Decimal) error
}

// OfferCollector samples the ranked offers of a product in one region.
type OfferCollector interface {
	Collect(ctx context.Context, product domain.Product, region string) ([]domain.Offer, error)
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
