package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alihassan4198-tech/repricer/internal/domain"
	"github.com/alihassan4198-tech/repricer/internal/infrastructure/storage"
	"github.com/alihassan4198-tech/repricer/internal/ports"
)

type fakeCollector struct {
	offers map[string][]domain.Offer
	failOn string
}

func (f *fakeCollector) Collect(_ context.Context, _ domain.Product, region string) ([]domain.Offer, error) {
	if region == f.failOn {
		return nil, errors.New("captcha page")
	}
	return f.offers[region], nil
}

type fakeDecider struct {
	results map[string]domain.Decision
	errs    map[string]error
	seen    []string
}

func (f *fakeDecider) Decide(_ context.Context, productID string) (domain.Decision, error) {
	f.seen = append(f.seen, productID)
	return f.results[productID], f.errs[productID]
}

type captureNotifier struct {
	digests []string
}

func (c *captureNotifier) PublishDigest(_ context.Context, digest string) error {
	c.digests = append(c.digests, digest)
	return nil
}

func TestRunnerCollectsThenDecides(t *testing.T) {
	t.Parallel()

	qty := 3
	collector := &fakeCollector{
		offers: map[string][]domain.Offer{
			"10115": {
				{Rank: 1, SellerName: domain.DefaultSellerName, Price: dec("10.00"), LowStock: &qty},
				{Rank: 2, SellerName: "OtherSeller", Price: dec("10.20"), LowStock: &qty},
				{Rank: 7, SellerName: "Ignored", Price: dec("99")},
			},
		},
		failOn: "20095",
	}
	store := storage.NewMemoryStore()
	minPrice := dec("5")
	product := domain.Product{ID: asin, SKU: "SODA-1", MinimumPrice: &minPrice}
	engine := newTestEngine(store, nil, nil)

	runner := NewRunner(RunnerDeps{
		Collector: collector,
		Store:     store,
		Decider:   engine,
		Products:  []domain.Product{product},
		Regions:   []string{"10115", "20095"},
		Now:       func() time.Time { return fixedNow },
	})

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Observations != 2 || report.CollectErrors != 1 {
		t.Fatalf("unexpected collection stats: %+v", report)
	}

	records, _ := store.Read(context.Background(), ports.Query{ProductID: asin})
	var runnerUp *domain.Observation
	for _, r := range records {
		if r.Observation != nil && r.Observation.Rank == 2 {
			runnerUp = r.Observation
		}
	}
	if runnerUp == nil || runnerUp.LowStock != nil || runnerUp.SKU != "SODA-1" || runnerUp.Region != "10115" {
		t.Fatalf("unexpected runner-up observation: %+v", runnerUp)
	}

	if len(report.Decisions) != 1 || report.Decisions[0].Reason != domain.ReasonLowStock {
		t.Fatalf("expected low stock hold, got %+v", report.Decisions)
	}
}

func TestRunnerIsolatesProductFailures(t *testing.T) {
	t.Parallel()

	decider := &fakeDecider{
		results: map[string]domain.Decision{
			"B": {ProductID: "B", Action: domain.ActionDecrease, CurrentPrice: dec("8"), NewPrice: dec("7.5")},
		},
		errs: map[string]error{"A": domain.ErrConfigurationMissing},
	}
	notifier := &captureNotifier{}

	runner := NewRunner(RunnerDeps{
		Decider:  decider,
		Notifier: notifier,
		Products: []domain.Product{{ID: "A"}, {ID: "B"}},
		Now:      func() time.Time { return fixedNow },
	})

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(decider.seen) != 2 {
		t.Fatalf("expected both products evaluated, got %v", decider.seen)
	}
	if len(report.Failures) != 1 || report.Failures[0].ProductID != "A" {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}
	if len(report.Changed()) != 1 {
		t.Fatalf("expected one changed decision, got %+v", report.Decisions)
	}

	if len(notifier.digests) != 1 {
		t.Fatalf("expected one digest, got %d", len(notifier.digests))
	}
	digest := notifier.digests[0]
	if !strings.Contains(digest, "B: decrease 8.00 -> 7.50") || !strings.Contains(digest, "A: error") {
		t.Fatalf("unexpected digest:\n%s", digest)
	}
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	decider := &fakeDecider{}
	runner := NewRunner(RunnerDeps{Decider: decider, Products: []domain.Product{{ID: "A"}}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := runner.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(decider.seen) != 0 {
		t.Fatalf("no product should be evaluated after cancellation")
	}
}

func TestBuildDigestMessageEmpty(t *testing.T) {
	t.Parallel()

	if msg := buildDigestMessage(Report{Decisions: []domain.Decision{{Action: domain.ActionNone}}}); msg != "" {
		t.Fatalf("expected empty digest, got %q", msg)
	}
}
