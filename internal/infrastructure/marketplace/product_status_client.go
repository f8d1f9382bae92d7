package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/config"
	"go.uber.org/zap"
)

const apiProductStatus = "product_status"

type statusEntry struct {
	status product.Status
	at     time.Time
}

// ProductStatusClient looks up article barcodes in the inventory system.
// Answers are cached per article; a failing lookup falls back to the cached answer.
type ProductStatusClient struct {
	http       httpDoer
	baseURL    string
	token      string
	ttl        time.Duration
	retryDelay time.Duration
	now        func() time.Time
	logger     *zap.Logger

	mu    sync.Mutex
	cache map[string]statusEntry
}

// StatusOption configures a ProductStatusClient.
type StatusOption func(*ProductStatusClient)

// WithStatusHTTPClient replaces the default HTTP client.
func WithStatusHTTPClient(c *http.Client) StatusOption {
	return func(cl *ProductStatusClient) {
		cl.http.client = c
	}
}

// WithStatusClock sets the clock used for cache freshness.
func WithStatusClock(now func() time.Time) StatusOption {
	return func(cl *ProductStatusClient) {
		cl.now = now
	}
}

// WithStatusObserver reports request outcomes to o.
func WithStatusObserver(o RequestObserver) StatusOption {
	return func(cl *ProductStatusClient) {
		if o != nil {
			cl.http.observer = o
		}
	}
}

// NewProductStatusClient creates a product status client.
func NewProductStatusClient(cfg config.ProductStatusConfig, timeout time.Duration, logger *zap.Logger, opts ...StatusOption) *ProductStatusClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ProductStatusClient{
		http:       newHTTPDoer(nil, timeout, "", nil),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		ttl:        cfg.CacheTTL,
		retryDelay: cfg.RetryDelay,
		now:        time.Now,
		logger:     logger,
		cache:      make(map[string]statusEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ product.StatusSource = (*ProductStatusClient)(nil)

// Lookup returns whether the article exists and its barcodes.
func (c *ProductStatusClient) Lookup(ctx context.Context, article string, force bool) (product.Status, error) {
	if c.token == "" {
		return product.Status{}, product.ErrSourceDisabled
	}
	article = product.NormalizeArticle(article)
	if article == "" {
		return product.Status{}, product.ErrArticleRequired
	}

	cached, hasCached := c.cached(article)
	if hasCached && !force && c.now().Sub(cached.at) < c.ttl {
		return cached.status, nil
	}

	status, err := c.fetch(ctx, article)
	if err != nil {
		select {
		case <-ctx.Done():
			return product.Status{}, ctx.Err()
		case <-time.After(c.retryDelay):
		}
		status, err = c.fetch(ctx, article)
	}
	if err != nil {
		if hasCached {
			c.logger.Warn("Product status lookup failed, using cached answer",
				zap.String("article", article), zap.Error(err))
			return cached.status, nil
		}
		return product.Status{}, err
	}

	c.mu.Lock()
	c.cache[article] = statusEntry{status: status, at: c.now()}
	c.mu.Unlock()
	return status, nil
}

func (c *ProductStatusClient) cached(article string) (statusEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[article]
	return e, ok
}

type statusResponse struct {
	Rows []struct {
		Barcodes []any `json:"barcodes"`
	} `json:"rows"`
}

func (c *ProductStatusClient) fetch(ctx context.Context, article string) (product.Status, error) {
	body, err := c.http.do(ctx, request{
		api:    apiProductStatus,
		method: http.MethodGet,
		url:    c.baseURL + "/entity/product?filter=" + url.QueryEscape("article="+article),
		auth:   "Bearer " + c.token,
	})
	if err != nil {
		return product.Status{}, err
	}
	var resp statusResponse
	if err := decodeJSON(body, &resp); err != nil {
		return product.Status{}, fmt.Errorf("product status: decode: %w", err)
	}
	if len(resp.Rows) == 0 {
		return product.Status{Found: false, Barcodes: []string{}}, nil
	}
	return product.Status{Found: true, Barcodes: extractBarcodes(resp.Rows[0].Barcodes)}, nil
}

// extractBarcodes accepts plain values and objects such as {"ean13": "..."}.
func extractBarcodes(items []any) []string {
	var out []string
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			for _, inner := range v {
				if s := scalarString(inner); s != "" {
					out = append(out, s)
				}
			}
		default:
			if s := scalarString(v); s != "" {
				out = append(out, s)
			}
		}
	}
	barcodes := make([]string, 0, len(out))
	for _, b := range product.UniqueStrings(out) {
		if nb := product.NormalizeBarcode(b); nb != "" {
			barcodes = append(barcodes, nb)
		}
	}
	return barcodes
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	default:
		return numberString(v)
	}
}
