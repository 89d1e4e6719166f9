package offers

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/alihassan4198-tech/repricer/internal/config"
	"github.com/alihassan4198-tech/repricer/internal/domain"
	"github.com/alihassan4198-tech/repricer/internal/ports"
)

// Client samples ranked offers from an HTTP offers feed.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
}

var _ ports.OfferCollector = (*Client)(nil)

// NewClient creates a reusable, rate limited feed client.
func NewClient(cfg config.OffersConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(limit, burst),
	}
}

type feedResponse struct {
	Offers []feedOffer `json:"offers"`
}

type feedOffer struct {
	Rank     int              `json:"rank"`
	Seller   string           `json:"seller"`
	Price    *decimal.Decimal `json:"price"`
	LowStock *int             `json:"lowStock"`
}

// Collect fetches the offers shown for the product in one region, best rank first.
func (c *Client) Collect(ctx context.Context, product domain.Product, region string) ([]domain.Offer, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("offers endpoint not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("asin", product.ID)
	if product.SKU != "" {
		q.Set("sku", product.SKU)
	}
	q.Set("zip", region)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/offers?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	reader, err := bodyReader(resp)
	if err != nil {
		return nil, fmt.Errorf("decompress response: %w", err)
	}
	defer reader.Close()

	var feed feedResponse
	if err := json.NewDecoder(reader).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]domain.Offer, 0, len(feed.Offers))
	for _, o := range feed.Offers {
		if o.Rank < domain.BuyBoxRank || o.Rank > domain.MaxRank || o.Price == nil {
			continue
		}
		out = append(out, domain.Offer{
			Rank:       o.Rank,
			SellerName: strings.TrimSpace(o.Seller),
			Price:      *o.Price,
			LowStock:   o.LowStock,
		})
	}
	return out, nil
}

// bodyReader decodes the response body per Content-Encoding. Closing the returned
// reader releases the decoder only; the caller still closes resp.Body.
func bodyReader(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}
