package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alihassan4198-tech/repricer/internal/domain"
	"github.com/alihassan4198-tech/repricer/internal/ports"
)

// Decider evaluates one product; implemented by Engine.
type Decider interface {
	Decide(ctx context.Context, productID string) (domain.Decision, error)
}

// RunnerDeps wires collection, storage and the engine into a run.
type RunnerDeps struct {
	Collector ports.OfferCollector
	Store     ports.ObservationStore
	Decider   Decider
	Notifier  ports.Notifier
	Products  []domain.Product
	Regions   []string
	Channel   string
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

// Runner collects offers for every product and region, then evaluates each product.
type Runner struct {
	collector ports.OfferCollector
	store     ports.ObservationStore
	decider   Decider
	notifier  ports.Notifier
	products  []domain.Product
	regions   []string
	channel   string
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// ProductFailure records why a product could not be evaluated.
type ProductFailure struct {
	ProductID string
	Err       error
}

// Report summarises one run.
type Report struct {
	StartedAt     time.Time
	Observations  int
	CollectErrors int
	Decisions     []domain.Decision
	Failures      []ProductFailure
}

// Changed returns the decisions that carried a price action.
func (r Report) Changed() []domain.Decision {
	var out []domain.Decision
	for _, d := range r.Decisions {
		if d.Changed() {
			out = append(out, d)
		}
	}
	return out
}

// NewRunner constructs the run driver.
func NewRunner(deps RunnerDeps) *Runner {
	r := &Runner{
		collector: deps.Collector,
		store:     deps.Store,
		decider:   deps.Decider,
		notifier:  deps.Notifier,
		products:  deps.Products,
		regions:   deps.Regions,
		channel:   deps.Channel,
		logger:    deps.Logger,
		now:       deps.Now,
		newID:     deps.NewID,
	}
	if r.channel == "" {
		r.channel = domain.DefaultChannel
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	return r
}

// Run processes products sequentially. A failing product is logged and skipped;
// only context cancellation stops the run early.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	report := Report{StartedAt: r.now()}

	for _, product := range r.products {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("run interrupted: %w", err)
		}

		r.collect(ctx, product, &report)

		decision, err := r.decider.Decide(ctx, product.ID)
		if err != nil {
			r.logger.Error("pricing failed", "product", product.ID, "error", err)
			report.Failures = append(report.Failures, ProductFailure{ProductID: product.ID, Err: err})
			if !decision.Changed() {
				continue
			}
		}
		report.Decisions = append(report.Decisions, decision)
	}

	r.logger.Info("run finished",
		"products", len(r.products),
		"observations", report.Observations,
		"collect_errors", report.CollectErrors,
		"changed", len(report.Changed()),
		"failures", len(report.Failures))

	r.notify(ctx, report)
	return report, nil
}

func (r *Runner) collect(ctx context.Context, product domain.Product, report *Report) {
	if r.collector == nil || r.store == nil {
		return
	}

	for _, region := range r.regions {
		offers, err := r.collector.Collect(ctx, product, region)
		if err != nil {
			r.logger.Warn("collect offers", "product", product.ID, "region", region, "error", err)
			report.CollectErrors++
			continue
		}

		observedAt := r.now()
		for _, offer := range offers {
			if offer.Rank < domain.BuyBoxRank || offer.Rank > domain.MaxRank {
				continue
			}
			obs := domain.Observation{
				ID:         r.newID(),
				Channel:    r.channel,
				ObservedAt: observedAt,
				ProductID:  product.ID,
				SKU:        product.SKU,
				Region:     region,
				SellerName: offer.SellerName,
				Price:      offer.Price,
				Rank:       offer.Rank,
			}
			if offer.Rank == domain.BuyBoxRank {
				obs.LowStock = offer.LowStock
			}
			if err := r.store.Append(ctx, domain.ObservationRecord(obs)); err != nil {
				r.logger.Error("store observation", "product", product.ID, "region", region, "rank", offer.Rank, "error", err)
				continue
			}
			report.Observations++
		}
		r.logger.Debug("region sampled", "product", product.ID, "region", region, "offers", len(offers))
	}
}

func (r *Runner) notify(ctx context.Context, report Report) {
	if r.notifier == nil {
		return
	}
	digest := buildDigestMessage(report)
	if digest == "" {
		return
	}
	if err := r.notifier.PublishDigest(ctx, digest); err != nil {
		r.logger.Warn("publish digest", "error", err)
	}
}

func buildDigestMessage(report Report) string {
	changed := report.Changed()
	if len(changed) == 0 && len(report.Failures) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Repricing run %s\n", report.StartedAt.UTC().Format(time.RFC3339))
	for _, d := range changed {
		fmt.Fprintf(&b, "- %s: %s %s -> %s", d.ProductID, d.Action, d.CurrentPrice.StringFixed(2), d.NewPrice.StringFixed(2))
		if d.UpdateFailed {
			b.WriteString(" (update failed)")
		}
		b.WriteString("\n")
	}
	for _, f := range report.Failures {
		fmt.Fprintf(&b, "- %s: error: %v\n", f.ProductID, f.Err)
	}
	return b.String()
}
