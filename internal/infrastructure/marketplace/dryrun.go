package marketplace

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alihassan4198-tech/repricer/internal/domain"
	"github.com/alihassan4198-tech/repricer/internal/ports"
)

// DryRunUpdater only logs the update it would have sent.
type DryRunUpdater struct {
	logger *slog.Logger
}

var _ ports.PriceUpdater = (*DryRunUpdater)(nil)

// NewDryRunUpdater is used when no marketplace credentials are configured.
func NewDryRunUpdater(logger *slog.Logger) *DryRunUpdater {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DryRunUpdater{logger: logger}
}

// UpdatePrice logs the intended update.
func (d *DryRunUpdater) UpdatePrice(_ context.Context, product domain.Product, newPrice decimal.Decimal) error {
	d.logger.Info("dry run: would update listing price", "product", product.ID, "sku", product.SKU, "new_price", newPrice.StringFixed(2))
	return nil
}
