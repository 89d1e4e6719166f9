package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alihassan4198-tech/repricer/internal/domain"
	"github.com/alihassan4198-tech/repricer/internal/ports"
	"github.com/alihassan4198-tech/repricer/internal/pricing"
)

const (
	defaultUpdateTimeout = 30 * time.Second
	auditWriteTimeout    = 10 * time.Second
)

// EngineDeps wires the driven adapters and run parameters into the decision engine.
type EngineDeps struct {
	Store         ports.ObservationStore
	Updater       ports.PriceUpdater
	Products      []domain.Product
	Policy        domain.Policy
	Channel       string
	UpdateTimeout time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
	NewID         func() string
}

// Engine turns the stored evaluation window of a product into at most one price action.
type Engine struct {
	store         ports.ObservationStore
	updater       ports.PriceUpdater
	products      map[string]domain.Product
	policy        domain.Policy
	channel       string
	updateTimeout time.Duration
	logger        *slog.Logger
	now           func() time.Time
	newID         func() string
}

// NewEngine constructs the engine; zero-valued deps fall back to defaults.
func NewEngine(deps EngineDeps) *Engine {
	e := &Engine{
		store:         deps.Store,
		updater:       deps.Updater,
		products:      make(map[string]domain.Product, len(deps.Products)),
		policy:        deps.Policy,
		channel:       deps.Channel,
		updateTimeout: deps.UpdateTimeout,
		logger:        deps.Logger,
		now:           deps.Now,
		newID:         deps.NewID,
	}
	for _, p := range deps.Products {
		e.products[p.ID] = p
	}
	if e.policy.SellerName == "" {
		e.policy.SellerName = domain.DefaultSellerName
	}
	if e.channel == "" {
		e.channel = domain.DefaultChannel
	}
	if e.updateTimeout <= 0 {
		e.updateTimeout = defaultUpdateTimeout
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// Decide evaluates productID once. When an action is chosen the live price is updated
// (unless in test mode) and exactly one audit record is appended, even if the update failed.
func (e *Engine) Decide(ctx context.Context, productID string) (domain.Decision, error) {
	log := e.logger.With("product", productID)

	product, ok := e.products[productID]
	if !ok {
		log.Warn("product not configured, evaluating without minimum price")
		product = domain.Product{ID: productID}
	}

	query := ports.Query{ProductID: productID}
	if e.policy.Window > 0 {
		query.Since = e.now().Add(-e.policy.Window)
	}

	records, err := e.store.Read(ctx, query)
	if err != nil {
		log.Error("read evaluation window", "error", err)
		return domain.Decision{ProductID: productID, Action: domain.ActionNone, Reason: domain.ReasonNoData},
			fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}

	window := pricing.NewWindow(productID, records)
	decision, err := pricing.Evaluate(window, e.policy, product)
	if err != nil {
		return decision, err
	}

	log.Debug("window evaluated",
		"rows", decision.WindowSize,
		"buy_box_regions", decision.BuyBoxRegionCount,
		"current_price", decision.CurrentPrice.String(),
		"reason", decision.Reason)

	if decision.Reason == domain.ReasonNoData {
		log.Info("no price adjustment", "reason", domain.ErrNoDataAvailable)
		return decision, nil
	}
	if !decision.Changed() {
		log.Info("no price adjustment", "reason", decision.Reason)
		return decision, nil
	}

	description := decision.Description(e.policy.PriceStep)
	log.Info("applying action", "action", description, "new_price", decision.NewPrice.String())

	live := false
	switch {
	case e.policy.TestMode:
		log.Info("test mode, live price left unchanged", "new_price", decision.NewPrice.String())
	case e.updater == nil:
		log.Warn("no price updater configured, live price left unchanged", "new_price", decision.NewPrice.String())
	case !ok:
		log.Warn("marketplace update skipped", "error", fmt.Errorf("%w: %s", domain.ErrUnknownProduct, productID))
		decision.UpdateFailed = true
	default:
		if err := e.pushPrice(ctx, product, decision); err != nil {
			log.Warn("marketplace update failed, recording intended action", "error", err)
			decision.UpdateFailed = true
		} else {
			live = true
		}
	}

	audit := domain.AuditRecord{
		ID:          e.newID(),
		Channel:     e.channel,
		RecordedAt:  e.now(),
		ProductID:   productID,
		NewPrice:    decision.NewPrice,
		Action:      decision.Action,
		Description: description,
	}
	// The audit is written even when ctx was cancelled after the update.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if err := e.store.Append(auditCtx, domain.AuditRecordOf(audit)); err != nil {
		log.Error("audit write failed, price change may be unrecorded",
			"action", description, "new_price", decision.NewPrice.String(), "live", live, "error", err)
		return decision, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}

	return decision, nil
}

func (e *Engine) pushPrice(ctx context.Context, product domain.Product, decision domain.Decision) error {
	ctx, cancel := context.WithTimeout(ctx, e.updateTimeout)
	defer cancel()

	if err := e.updater.UpdatePrice(ctx, product, decision.NewPrice); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUpdater, err)
	}
	return nil
}
