package supply

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRaw(t *testing.T, payload string) RawOrder {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var raw RawOrder
	require.NoError(t, dec.Decode(&raw))
	return raw
}

func TestNormalizeOrder(t *testing.T) {
	t.Run("canonical fields", func(t *testing.T) {
		raw := decodeRaw(t, `{"id": 101, "createdAt": "2026-03-01T10:00:00Z", "article": " SKU-1 ",
			"nmId": 555, "warehouseId": 5, "cargoType": 1, "supplyId": "WB-1", "quantity": 2,
			"skus": ["460001", "460002"], "productName": "Mug"}`)

		order, ok := NormalizeOrder(raw, "")

		require.True(t, ok)
		assert.Equal(t, int64(101), order.ID)
		assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), order.CreatedAt)
		assert.Equal(t, "SKU-1", order.Article)
		assert.Equal(t, int64(555), *order.NmID)
		assert.Equal(t, int64(5), *order.WarehouseID)
		assert.Equal(t, int64(1), *order.CargoType)
		assert.Equal(t, "WB-1", order.SupplyID)
		assert.Equal(t, 2, order.Quantity)
		assert.Equal(t, "460001", order.Barcode)
		assert.Equal(t, "Mug", order.ProductName)
	})

	t.Run("synonym fields and string coercion", func(t *testing.T) {
		raw := decodeRaw(t, `{"order_id": "202", "created_at": "2026-03-02T08:00:00Z",
			"vendor_code": "SKU-2", "nm_id": "777", "warehouse_id": "9", "supply_id": "WB-2",
			"qty": "3", "barCode": "4600 0000 1", "goodsName": "Plate"}`)

		order, ok := NormalizeOrder(raw, "fallback")

		require.True(t, ok)
		assert.Equal(t, int64(202), order.ID)
		assert.Equal(t, "SKU-2", order.Article)
		assert.Equal(t, int64(777), *order.NmID)
		assert.Equal(t, int64(9), *order.WarehouseID)
		assert.Nil(t, order.CargoType)
		assert.Equal(t, "WB-2", order.SupplyID)
		assert.Equal(t, 3, order.Quantity)
		assert.Equal(t, "460000001", order.Barcode)
		assert.Equal(t, "Plate", order.ProductName)
	})

	t.Run("defaults", func(t *testing.T) {
		raw := decodeRaw(t, `{"orderId": 303, "count": 0, "sku": "123"}`)

		order, ok := NormalizeOrder(raw, " WB-3 ")

		require.True(t, ok)
		assert.Equal(t, 1, order.Quantity)
		assert.Equal(t, "WB-3", order.SupplyID)
		assert.Equal(t, "123", order.Barcode)
		assert.True(t, order.CreatedAt.IsZero())
	})

	t.Run("rejects payload without id", func(t *testing.T) {
		_, ok := NormalizeOrder(decodeRaw(t, `{"article": "X"}`), "")
		assert.False(t, ok)

		_, ok = NormalizeOrder(nil, "")
		assert.False(t, ok)
	})
}

func TestOrder_NeedsInfoAndEnrich(t *testing.T) {
	info := product.Info{Title: "Cotton T-shirt", Barcodes: []string{"460100"}}

	t.Run("placeholder name is replaced", func(t *testing.T) {
		o := Order{Article: "TS-1", ProductName: "ts-1", Barcode: "111"}
		assert.True(t, o.NeedsInfo())

		enriched := o.Enrich(info, true)
		assert.Equal(t, "Cotton T-shirt", enriched.ProductName)
		assert.Equal(t, "111", enriched.Barcode)
	})

	t.Run("real name is kept and missing barcode filled", func(t *testing.T) {
		o := Order{Article: "TS-1", ProductName: "Shirt"}
		assert.True(t, o.NeedsInfo())

		enriched := o.Enrich(info, true)
		assert.Equal(t, "Shirt", enriched.ProductName)
		assert.Equal(t, "460100", enriched.Barcode)
	})

	t.Run("unresolved placeholder is cleared", func(t *testing.T) {
		o := Order{Article: "TS-1", ProductName: "—"}
		assert.Equal(t, "", o.Enrich(product.Info{}, false).ProductName)
	})

	t.Run("order without article never needs info", func(t *testing.T) {
		assert.False(t, Order{}.NeedsInfo())
	})
}
