package domain

import "errors"

var (
	// ErrNoDataAvailable means the evaluation window was empty.
	ErrNoDataAvailable = errors.New("no data available")
	// ErrStoreRead wraps failures reading the observation store.
	ErrStoreRead = errors.New("observation store read failed")
	// ErrStoreWrite wraps failures appending to the observation store.
	ErrStoreWrite = errors.New("observation store write failed")
	// ErrUpdater wraps failures of the marketplace price update.
	ErrUpdater = errors.New("marketplace update failed")
	// ErrConfigurationMissing is returned when a product setting required by the rule is absent.
	ErrConfigurationMissing = errors.New("product configuration missing")
	// ErrUnknownProduct is returned for a product id that is not configured.
	ErrUnknownProduct = errors.New("unknown product")
)
