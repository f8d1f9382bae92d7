package supply

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
)

// RawOrder is an order exactly as decoded from a remote payload.
// Field names vary between endpoints and API versions.
type RawOrder map[string]any

// Order is a marketplace order after normalization.
type Order struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Article     string    `json:"article,omitempty"`
	NmID        *int64    `json:"nmId,omitempty"`
	WarehouseID *int64    `json:"warehouseId,omitempty"`
	CargoType   *int64    `json:"cargoType,omitempty"`
	SupplyID    string    `json:"supplyId,omitempty"`
	Quantity    int       `json:"quantity"`
	Skus        []string  `json:"skus,omitempty"`
	Barcode     string    `json:"barcode,omitempty"`
	ProductName string    `json:"productName,omitempty"`
}

// NeedsInfo reports whether the order lacks a usable name or a barcode.
func (o Order) NeedsInfo() bool {
	if o.Article == "" {
		return false
	}
	return product.IsPlaceholderName(o.ProductName, o.Article) || o.Barcode == ""
}

// Enrich fills the name and barcode from resolved product info without
// replacing a real name.
func (o Order) Enrich(info product.Info, ok bool) Order {
	if !ok {
		if product.IsPlaceholderName(o.ProductName, o.Article) {
			o.ProductName = ""
		}
		return o
	}
	if o.Barcode == "" {
		o.Barcode = info.FirstBarcode()
	}
	if product.IsPlaceholderName(o.ProductName, o.Article) {
		o.ProductName = info.Title
	}
	return o
}

// NormalizeOrder converts a remote payload into an Order, accepting synonym
// field names. fallbackSupplyID is used when the payload carries no supply id.
// The second result is false when the payload has no usable order id.
func NormalizeOrder(raw RawOrder, fallbackSupplyID string) (Order, bool) {
	if raw == nil {
		return Order{}, false
	}

	id, ok := toInt64(first(raw, "id", "orderId", "orderID", "order_id"))
	if !ok || id == 0 {
		return Order{}, false
	}

	quantity := 1
	if q, ok := toInt64(first(raw, "quantity", "qty", "count")); ok && q > 0 {
		quantity = int(q)
	}

	skus := toStrings(first(raw, "skus", "sku", "barcodes"))
	barcode := product.NormalizeBarcode(toString(first(raw, "barcode", "barCode")))
	if barcode == "" && len(skus) > 0 {
		barcode = skus[0]
	}

	supplyID := strings.TrimSpace(toString(first(raw, "supplyId", "supplyID", "supply_id")))
	if supplyID == "" {
		supplyID = strings.TrimSpace(fallbackSupplyID)
	}

	order := Order{
		ID:          id,
		CreatedAt:   toTime(first(raw, "createdAt", "created_at", "dateCreated", "date_created")),
		Article:     product.NormalizeArticle(toString(first(raw, "article", "vendorCode", "vendor_code"))),
		NmID:        optionalInt64(first(raw, "nmId", "nmID", "nm_id")),
		WarehouseID: optionalInt64(first(raw, "warehouseId", "warehouse_id")),
		CargoType:   optionalInt64(first(raw, "cargoType", "cargo_type")),
		SupplyID:    supplyID,
		Quantity:    quantity,
		Skus:        skus,
		Barcode:     barcode,
		ProductName: strings.TrimSpace(toString(first(raw, "productName", "product_name", "name", "goodsName"))),
	}
	return order, true
}

func first(raw RawOrder, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func optionalInt64(v any) *int64 {
	if i, ok := toInt64(v); ok {
		return &i
	}
	return nil
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}

func toStrings(v any) []string {
	switch list := v.(type) {
	case nil:
		return nil
	case []string:
		return product.UniqueStrings(list)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, toString(item))
		}
		return product.UniqueStrings(out)
	default:
		if s := toString(list); s != "" {
			return []string{s}
		}
	}
	return nil
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed
			}
		}
	case time.Time:
		return t
	default:
		if sec, ok := toInt64(v); ok && sec > 0 {
			return time.Unix(sec, 0).UTC()
		}
	}
	return time.Time{}
}
