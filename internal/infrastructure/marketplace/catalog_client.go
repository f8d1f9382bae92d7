package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/config"
	"golang.org/x/time/rate"
)

const (
	apiCatalog = "content"

	pathCardsList  = "/content/v2/get/cards/list"
	pathCardsTrash = "/content/v2/get/cards/trash"

	// nameCharacteristicID is the catalog characteristic holding the product name.
	nameCharacteristicID = 15000785
)

// CatalogClient talks to the marketplace content API.
// Listing and archive pages are throttled by separate limiters shared across stores.
type CatalogClient struct {
	http         httpDoer
	baseURL      string
	listLimiter  *rate.Limiter
	trashLimiter *rate.Limiter
}

// CatalogOption configures a CatalogClient.
type CatalogOption func(*CatalogClient)

// WithCatalogHTTPClient replaces the default HTTP client.
func WithCatalogHTTPClient(c *http.Client) CatalogOption {
	return func(cl *CatalogClient) {
		cl.http.client = c
	}
}

// WithCatalogObserver reports request outcomes to o.
func WithCatalogObserver(o RequestObserver) CatalogOption {
	return func(cl *CatalogClient) {
		if o != nil {
			cl.http.observer = o
		}
	}
}

// NewCatalogClient creates a content API client.
func NewCatalogClient(cfg config.MarketplaceConfig, opts ...CatalogOption) *CatalogClient {
	c := &CatalogClient{
		http:         newHTTPDoer(nil, cfg.Timeout, cfg.UserAgent, nil),
		baseURL:      strings.TrimRight(cfg.ContentBaseURL, "/"),
		listLimiter:  newLimiter(cfg.ListInterval),
		trashLimiter: newLimiter(cfg.TrashInterval),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

var _ product.CatalogAPI = (*CatalogClient)(nil)

type cursorBody struct {
	Limit     int    `json:"limit"`
	UpdatedAt string `json:"updatedAt,omitempty"`
	TrashedAt string `json:"trashedAt,omitempty"`
	NmID      int64  `json:"nmID,omitempty"`
}

type filterBody struct {
	TextSearch string `json:"textSearch,omitempty"`
	WithPhoto  int    `json:"withPhoto"`
}

type sortBody struct {
	Ascending bool `json:"ascending"`
}

type settingsBody struct {
	Sort   *sortBody   `json:"sort,omitempty"`
	Cursor cursorBody  `json:"cursor"`
	Filter *filterBody `json:"filter,omitempty"`
}

type cardsRequest struct {
	Settings settingsBody `json:"settings"`
}

type characteristic struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type remoteCard struct {
	NmID            *int64           `json:"nmID"`
	VendorCode      string           `json:"vendorCode"`
	Title           string           `json:"title"`
	SubjectName     string           `json:"subjectName"`
	Brand           string           `json:"brand"`
	Characteristics []characteristic `json:"characteristics"`
	Sizes           []struct {
		Skus []string `json:"skus"`
	} `json:"sizes"`
}

type cardsResponse struct {
	Cards  []remoteCard `json:"cards"`
	Cursor struct {
		UpdatedAt string `json:"updatedAt"`
		TrashedAt string `json:"trashedAt"`
		NmID      int64  `json:"nmID"`
		Total     int    `json:"total"`
	} `json:"cursor"`
}

func (c *CatalogClient) post(ctx context.Context, store product.StoreRef, path string, body cardsRequest) (cardsResponse, error) {
	header := map[string]string{}
	if store.ClientSecret != "" {
		header["X-Client-Secret"] = store.ClientSecret
	}
	raw, err := c.http.do(ctx, request{
		api:    apiCatalog,
		method: http.MethodPost,
		url:    c.baseURL + path,
		auth:   store.Token,
		header: header,
		body:   body,
	})
	if err != nil {
		return cardsResponse{}, err
	}
	var resp cardsResponse
	if err := json.Unmarshal(raw, &resp); err != nil && len(raw) > 0 {
		return cardsResponse{}, fmt.Errorf("content: decode cards: %w", err)
	}
	return resp, nil
}

// ListCards returns one page of the full catalog in ascending update order.
func (c *CatalogClient) ListCards(ctx context.Context, store product.StoreRef, cursor product.Cursor) (product.CardPage, error) {
	if err := c.listLimiter.Wait(ctx); err != nil {
		return product.CardPage{}, err
	}
	body := cardsRequest{Settings: settingsBody{
		Sort:   &sortBody{Ascending: true},
		Cursor: cursorBody{Limit: cursor.Limit, UpdatedAt: cursor.UpdatedAt, NmID: cursor.NmID},
		Filter: &filterBody{WithPhoto: -1},
	}}
	resp, err := c.post(ctx, store, pathCardsList, body)
	if err != nil {
		return product.CardPage{}, err
	}
	return resp.page(cursor.Limit), nil
}

// SearchCards runs a text search over the active catalog.
func (c *CatalogClient) SearchCards(ctx context.Context, store product.StoreRef, query string, limit int) ([]product.Card, error) {
	body := cardsRequest{Settings: settingsBody{
		Cursor: cursorBody{Limit: limit},
		Filter: &filterBody{TextSearch: query, WithPhoto: -1},
	}}
	resp, err := c.post(ctx, store, pathCardsList, body)
	if err != nil {
		return nil, err
	}
	return resp.page(limit).Cards, nil
}

// ListTrash returns one page of archived cards, optionally narrowed by text search.
func (c *CatalogClient) ListTrash(ctx context.Context, store product.StoreRef, cursor product.Cursor, textSearch string) (product.CardPage, error) {
	if err := c.trashLimiter.Wait(ctx); err != nil {
		return product.CardPage{}, err
	}
	body := cardsRequest{Settings: settingsBody{
		Sort:   &sortBody{Ascending: true},
		Cursor: cursorBody{Limit: cursor.Limit, TrashedAt: cursor.TrashedAt, NmID: cursor.NmID},
	}}
	if textSearch != "" {
		body.Settings.Filter = &filterBody{TextSearch: textSearch, WithPhoto: -1}
	}
	resp, err := c.post(ctx, store, pathCardsTrash, body)
	if err != nil {
		return product.CardPage{}, err
	}
	return resp.page(cursor.Limit), nil
}

func (r cardsResponse) page(limit int) product.CardPage {
	cards := make([]product.Card, 0, len(r.Cards))
	for _, rc := range r.Cards {
		cards = append(cards, rc.toCard())
	}
	return product.CardPage{
		Cards: cards,
		Next: product.Cursor{
			Limit:     limit,
			UpdatedAt: r.Cursor.UpdatedAt,
			TrashedAt: r.Cursor.TrashedAt,
			NmID:      r.Cursor.NmID,
		},
		Total: r.Cursor.Total,
	}
}

func (rc remoteCard) toCard() product.Card {
	var skus []string
	for _, size := range rc.Sizes {
		skus = append(skus, size.Skus...)
	}
	barcodes := make([]string, 0, len(skus))
	for _, b := range product.UniqueStrings(skus) {
		if nb := product.NormalizeBarcode(b); nb != "" {
			barcodes = append(barcodes, nb)
		}
	}
	return product.Card{
		VendorCode: product.NormalizeArticle(rc.VendorCode),
		NmID:       rc.NmID,
		Title:      rc.title(),
		Barcodes:   barcodes,
	}
}

// title picks the first non-empty of: title, the name characteristic,
// a characteristic named like a name, subject, brand.
func (rc remoteCard) title() string {
	if t := strings.TrimSpace(rc.Title); t != "" {
		return t
	}
	for _, ch := range rc.Characteristics {
		if ch.ID == nameCharacteristicID {
			if v := characteristicValue(ch.Value); v != "" {
				return v
			}
		}
	}
	for _, ch := range rc.Characteristics {
		if strings.Contains(strings.ToLower(ch.Name), "наименование") {
			if v := characteristicValue(ch.Value); v != "" {
				return v
			}
		}
	}
	if s := strings.TrimSpace(rc.SubjectName); s != "" {
		return s
	}
	return strings.TrimSpace(rc.Brand)
}

func characteristicValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	case float64:
		return strings.TrimSpace(fmt.Sprint(val))
	}
	return ""
}
