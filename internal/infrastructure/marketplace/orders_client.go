package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/config"
)

const (
	apiOrders = "marketplace"

	pageLimit    = 1000
	maxListPages = 50
	// ordersLookback is how far back the full order listing reaches.
	ordersLookback = 30 * 24 * time.Hour

	pathSupplies       = "/api/v3/supplies"
	pathLegacySupplies = "/api/marketplace/v3/supplies"
	pathNewOrders      = "/api/v3/orders/new"
	pathOrders         = "/api/v3/orders"
	pathStickers       = "/api/v3/orders/stickers"
)

// Client talks to the marketplace orders and supplies API.
type Client struct {
	http    httpDoer
	baseURL string
	now     func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.http.client = c
	}
}

// WithRequestObserver reports request outcomes to o.
func WithRequestObserver(o RequestObserver) ClientOption {
	return func(cl *Client) {
		if o != nil {
			cl.http.observer = o
		}
	}
}

// WithNow sets the clock used to compute listing windows.
func WithNow(now func() time.Time) ClientOption {
	return func(cl *Client) {
		cl.now = now
	}
}

// NewClient creates a marketplace client.
func NewClient(cfg config.MarketplaceConfig, opts ...ClientOption) *Client {
	c := &Client{
		http:    newHTTPDoer(nil, cfg.Timeout, cfg.UserAgent, nil),
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ supply.MarketplaceAPI = (*Client)(nil)

func (c *Client) call(ctx context.Context, store supply.Store, method, path string, body any) ([]byte, error) {
	header := map[string]string{}
	if store.ClientSecret != "" {
		header["X-Client-Secret"] = store.ClientSecret
	}
	return c.http.do(ctx, request{
		api:    apiOrders,
		method: method,
		url:    c.baseURL + path,
		auth:   "Bearer " + store.Token,
		header: header,
		body:   body,
	})
}

// ordersPage is the listing envelope shared by the order endpoints.
type ordersPage struct {
	Orders []supply.RawOrder `json:"orders"`
	Next   json.Number       `json:"next"`
}

// NewOrders returns orders waiting to be put into a supply.
func (c *Client) NewOrders(ctx context.Context, store supply.Store) ([]supply.RawOrder, error) {
	body, err := c.call(ctx, store, http.MethodGet, pathNewOrders, nil)
	if err != nil {
		return nil, err
	}
	var page ordersPage
	if err := decodeJSON(body, &page); err != nil {
		return nil, fmt.Errorf("marketplace: decode new orders: %w", err)
	}
	return page.Orders, nil
}

// OrdersRange pages through orders created in [from, to].
// A zero from defaults to 30 days before now.
func (c *Client) OrdersRange(ctx context.Context, store supply.Store, from, to time.Time) ([]supply.RawOrder, error) {
	if from.IsZero() {
		from = c.now().Add(-ordersLookback)
	}

	var all []supply.RawOrder
	next := "0"
	for page := 0; page < maxListPages; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageLimit))
		q.Set("next", next)
		q.Set("dateFrom", strconv.FormatInt(from.Unix(), 10))
		if !to.IsZero() {
			q.Set("dateTo", strconv.FormatInt(to.Unix(), 10))
		}

		body, err := c.call(ctx, store, http.MethodGet, pathOrders+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		var resp ordersPage
		if err := decodeJSON(body, &resp); err != nil {
			return nil, fmt.Errorf("marketplace: decode orders: %w", err)
		}
		all = append(all, resp.Orders...)

		following := resp.Next.String()
		if len(resp.Orders) == 0 || following == "" || following == "0" || following == next {
			break
		}
		next = following
	}
	return all, nil
}

type remoteSupply struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	Done      *bool  `json:"done"`
}

type suppliesPage struct {
	Supplies []remoteSupply `json:"supplies"`
	Next     json.Number    `json:"next"`
}

// Supplies pages through all supplies of the store.
func (c *Client) Supplies(ctx context.Context, store supply.Store) ([]supply.RemoteSupply, error) {
	var all []supply.RemoteSupply
	next := "0"
	for page := 0; page < maxListPages; page++ {
		path := fmt.Sprintf("%s?limit=%d&next=%s", pathSupplies, pageLimit, url.QueryEscape(next))
		body, err := c.call(ctx, store, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		var resp suppliesPage
		if err := decodeJSON(body, &resp); err != nil {
			return nil, fmt.Errorf("marketplace: decode supplies: %w", err)
		}
		for _, s := range resp.Supplies {
			all = append(all, s.toDomain())
		}

		following := resp.Next.String()
		if len(resp.Supplies) == 0 || following == "" || following == "0" || following == next {
			break
		}
		next = following
	}
	return all, nil
}

func (s remoteSupply) toDomain() supply.RemoteSupply {
	created, _ := time.Parse(time.RFC3339, s.CreatedAt)
	return supply.RemoteSupply{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: created,
		Done:      s.Done != nil && *s.Done,
	}
}

// SupplyOrders pages through the orders of a supply. Each page is tried on
// the current endpoint first and on the legacy one when that fails.
func (c *Client) SupplyOrders(ctx context.Context, store supply.Store, supplyID string) ([]supply.RawOrder, error) {
	escaped := url.PathEscape(supplyID)
	var all []supply.RawOrder
	next := "0"
	for page := 0; page < maxListPages; page++ {
		query := fmt.Sprintf("/%s/orders?limit=%d&next=%s", escaped, pageLimit, url.QueryEscape(next))
		body, err := c.call(ctx, store, http.MethodGet, pathSupplies+query, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			body, err = c.call(ctx, store, http.MethodGet, pathLegacySupplies+query, nil)
			if err != nil {
				return nil, err
			}
		}

		orders, following, err := parseSupplyOrders(body)
		if err != nil {
			return nil, fmt.Errorf("marketplace: decode supply orders: %w", err)
		}
		all = append(all, orders...)

		if len(orders) == 0 || following == "" || following == "0" || following == next {
			break
		}
		next = following
	}
	return all, nil
}

// parseSupplyOrders accepts {orders}, {data: {orders}}, {data: [...]} and a bare array.
func parseSupplyOrders(body []byte) ([]supply.RawOrder, string, error) {
	var raw any
	if err := decodeJSON(body, &raw); err != nil {
		return nil, "", err
	}

	var list any
	next := ""
	switch v := raw.(type) {
	case []any:
		list = v
	case map[string]any:
		next = numberString(v["next"])
		switch data := v["data"].(type) {
		case map[string]any:
			list = data["orders"]
			if next == "" {
				next = numberString(data["next"])
			}
		case []any:
			list = data
		}
		if orders, ok := v["orders"]; ok {
			list = orders
		}
	}

	items, _ := list.([]any)
	orders := make([]supply.RawOrder, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			orders = append(orders, supply.RawOrder(m))
		}
	}
	return orders, next, nil
}

func numberString(v any) string {
	switch n := v.(type) {
	case json.Number:
		return n.String()
	case string:
		return n
	}
	return ""
}

// CreateSupply creates an empty supply and returns its id.
func (c *Client) CreateSupply(ctx context.Context, store supply.Store, name string, legacy bool) (string, error) {
	path := pathSupplies
	if legacy {
		path = pathLegacySupplies
	}
	body, err := c.call(ctx, store, http.MethodPost, path, map[string]string{"name": name})
	if err != nil {
		return "", err
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(body, &resp); err != nil {
		return "", fmt.Errorf("marketplace: decode created supply: %w", err)
	}
	if strings.TrimSpace(resp.ID) == "" {
		return "", errors.New("marketplace: created supply has no id")
	}
	return resp.ID, nil
}

// AddOrders attaches orders to a supply in one request.
func (c *Client) AddOrders(ctx context.Context, store supply.Store, supplyID string, orderIDs []int64, legacy bool) error {
	base := pathSupplies
	if legacy {
		base = pathLegacySupplies
	}
	path := base + "/" + url.PathEscape(supplyID) + "/orders"
	_, err := c.call(ctx, store, http.MethodPatch, path, map[string][]int64{"orders": orderIDs})
	return err
}

type stickersResponse struct {
	Stickers []struct {
		OrderID json.Number `json:"orderId"`
		File    string      `json:"file"`
		Barcode string      `json:"barcode"`
	} `json:"stickers"`
}

// Stickers requests label images for orders.
func (c *Client) Stickers(ctx context.Context, store supply.Store, orderIDs []int64, spec supply.StickerSpec) ([]supply.Sticker, error) {
	q := url.Values{}
	q.Set("type", spec.Type)
	q.Set("width", strconv.Itoa(spec.Width))
	q.Set("height", strconv.Itoa(spec.Height))

	body, err := c.call(ctx, store, http.MethodPost, pathStickers+"?"+q.Encode(), map[string][]int64{"orders": orderIDs})
	if err != nil {
		return nil, err
	}
	var resp stickersResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, fmt.Errorf("marketplace: decode stickers: %w", err)
	}

	stickers := make([]supply.Sticker, 0, len(resp.Stickers))
	for _, s := range resp.Stickers {
		id, err := s.OrderID.Int64()
		if err != nil {
			continue
		}
		stickers = append(stickers, supply.Sticker{OrderID: id, File: s.File, Barcode: s.Barcode})
	}
	return stickers, nil
}
