package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/alihassan4198-tech/repricer/internal/config"
	"github.com/alihassan4198-tech/repricer/internal/domain"
	"github.com/alihassan4198-tech/repricer/internal/ports"
)

const listingsAPIVersion = "2021-08-01"

// ListingsClient implements ports.PriceUpdater with a listings PATCH of the purchasable offer.
type ListingsClient struct {
	endpoint      string
	sellerID      string
	marketplaceID string
	currency      string
	productType   string
	tokens        *TokenSource
	httpClient    *http.Client
	limiter       *rate.Limiter
}

var _ ports.PriceUpdater = (*ListingsClient)(nil)

// NewListingsClient builds a client from configuration.
func NewListingsClient(cfg config.MarketplaceConfig) *ListingsClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &ListingsClient{
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/"),
		sellerID:      cfg.SellerID,
		marketplaceID: cfg.MarketplaceID,
		currency:      cfg.Currency,
		productType:   cfg.ProductType,
		tokens:        NewTokenSource(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken, httpClient),
		httpClient:    httpClient,
		limiter:       rate.NewLimiter(limit, 1),
	}
}

type listingsPatch struct {
	ProductType string       `json:"productType"`
	Patches     []patchEntry `json:"patches"`
}

type patchEntry struct {
	Op    string           `json:"op"`
	Path  string           `json:"path"`
	Value []offerAttribute `json:"value"`
}

type offerAttribute struct {
	MarketplaceID string     `json:"marketplace_id"`
	Currency      string     `json:"currency"`
	OurPrice      []ourPrice `json:"our_price"`
}

type ourPrice struct {
	Schedule []scheduledPrice `json:"schedule"`
}

type scheduledPrice struct {
	ValueWithTax json.Number `json:"value_with_tax"`
}

type listingsResponse struct {
	SKU    string `json:"sku"`
	Status string `json:"status"`
	Issues []struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Severity string `json:"severity"`
	} `json:"issues"`
}

// UpdatePrice replaces the listing's offer price for the configured marketplace.
func (c *ListingsClient) UpdatePrice(ctx context.Context, product domain.Product, newPrice decimal.Decimal) error {
	if c == nil {
		return fmt.Errorf("listings client is nil")
	}
	if product.SKU == "" {
		return fmt.Errorf("product %s has no sku", product.ID)
	}
	if !newPrice.IsPositive() {
		return fmt.Errorf("refusing non-positive price %s for %s", newPrice, product.ID)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("access token: %w", err)
	}

	body, err := json.Marshal(c.buildPatch(newPrice))
	if err != nil {
		return fmt.Errorf("marshal listings patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.itemURL(product.SKU), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-amz-access-token", token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("patch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("listings error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var result listingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode listings response: %w", err)
	}
	if result.Status == "INVALID" {
		var msgs []string
		for _, issue := range result.Issues {
			msgs = append(msgs, fmt.Sprintf("%s: %s", issue.Code, issue.Message))
		}
		return fmt.Errorf("listing %s rejected: %s", product.SKU, strings.Join(msgs, "; "))
	}

	return nil
}

func (c *ListingsClient) buildPatch(newPrice decimal.Decimal) listingsPatch {
	return listingsPatch{
		ProductType: c.productType,
		Patches: []patchEntry{{
			Op:   "replace",
			Path: "/attributes/purchasable_offer",
			Value: []offerAttribute{{
				MarketplaceID: c.marketplaceID,
				Currency:      c.currency,
				OurPrice: []ourPrice{{
					Schedule: []scheduledPrice{{ValueWithTax: json.Number(newPrice.StringFixed(2))}},
				}},
			}},
		}},
	}
}

func (c *ListingsClient) itemURL(sku string) string {
	q := url.Values{}
	q.Set("marketplaceIds", c.marketplaceID)
	return fmt.Sprintf("%s/listings/%s/items/%s/%s?%s",
		c.endpoint, listingsAPIVersion, url.PathEscape(c.sellerID), url.PathEscape(sku), q.Encode())
}
