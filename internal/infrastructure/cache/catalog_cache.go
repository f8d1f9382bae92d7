package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader lists the whole catalog of a store.
type CatalogLoader func(ctx context.Context) ([]product.Card, error)

// CatalogCache is the per-store snapshot of catalog cards keyed by vendor code.
// Every successful refresh is written to a JSON file so a restart can warm up
// without listing the catalog again.
type CatalogCache struct {
	path   string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu    sync.RWMutex
	items map[string]product.Card
	ts    time.Time

	group singleflight.Group
}

type snapshotFile struct {
	TS    int64          `json:"ts"`
	Items []snapshotItem `json:"items"`
}

type snapshotItem struct {
	VendorCode string   `json:"vendorCode"`
	Title      *string  `json:"title"`
	Barcodes   []string `json:"barcodes"`
}

// SnapshotPath returns the snapshot file of a store inside dir.
func SnapshotPath(dir, storeID string) string {
	if storeID == "" {
		return filepath.Join(dir, "cards-cache.json")
	}
	return filepath.Join(dir, fmt.Sprintf("cards-cache-%s.json", storeID))
}

// NewCatalogCache creates an empty catalog cache persisted at path.
// An empty path disables persistence.
func NewCatalogCache(path string, ttl time.Duration, opts ...Option) *CatalogCache {
	o := applyOptions(opts)
	return &CatalogCache{
		path:   path,
		ttl:    ttl,
		now:    o.now,
		logger: o.logger.With(zap.String("cache", "catalog")),
		items:  map[string]product.Card{},
	}
}

// Lookup returns the card of an article from the current snapshot.
func (c *CatalogCache) Lookup(article string) (product.Card, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	card, ok := c.items[product.NormalizeArticle(article)]
	if !ok || !card.HasData() {
		return product.Card{}, false
	}
	return card, true
}

// Len returns the number of cards in the snapshot.
func (c *CatalogCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Fresh reports whether the snapshot is populated and younger than the TTL.
func (c *CatalogCache) Fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items) > 0 && c.now().Sub(c.ts) < c.ttl
}

// Refresh reloads the snapshot unless it is fresh and force is false.
// Concurrent callers share one load.
func (c *CatalogCache) Refresh(ctx context.Context, force bool, load CatalogLoader) error {
	if !force && c.Fresh() {
		return nil
	}
	ch := c.group.DoChan("catalog", func() (any, error) {
		cards, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.replace(cards, c.now())
		c.save()
		return nil, nil
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshAsync starts a background refresh if the snapshot is stale.
func (c *CatalogCache) RefreshAsync(ctx context.Context, load CatalogLoader) {
	if c.Fresh() {
		return
	}
	go func() {
		if err := c.Refresh(context.WithoutCancel(ctx), true, load); err != nil {
			c.logger.Warn("Catalog refresh failed", zap.Error(err))
		}
	}()
}

func (c *CatalogCache) replace(cards []product.Card, ts time.Time) {
	items := make(map[string]product.Card, len(cards))
	for _, card := range cards {
		key := product.NormalizeArticle(card.VendorCode)
		if key == "" {
			continue
		}
		card.VendorCode = key
		items[key] = card
	}

	c.mu.Lock()
	c.items = items
	c.ts = ts
	c.mu.Unlock()
}

// writeFileAtomic writes data next to path and renames it into place, so a
// reader never sees a partial snapshot.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (c *CatalogCache) save() {
	if c.path == "" {
		return
	}

	c.mu.RLock()
	payload := snapshotFile{TS: c.ts.UnixMilli(), Items: make([]snapshotItem, 0, len(c.items))}
	for key, card := range c.items {
		item := snapshotItem{VendorCode: key, Barcodes: card.Barcodes}
		if card.Title != "" {
			title := card.Title
			item.Title = &title
		}
		if item.Barcodes == nil {
			item.Barcodes = []string{}
		}
		payload.Items = append(payload.Items, item)
	}
	c.mu.RUnlock()

	data, err := json.Marshal(payload)
	if err == nil {
		err = writeFileAtomic(c.path, data)
	}
	if err != nil {
		c.logger.Warn("Failed to save catalog snapshot", zap.String("path", c.path), zap.Error(err))
	}
}

// WarmLoad fills the cache from the snapshot file. A missing or unreadable
// file leaves the cache empty; only an empty file path is not an error.
func (c *CatalogCache) WarmLoad() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read catalog snapshot: %w", err)
	}

	var payload snapshotFile
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode catalog snapshot: %w", err)
	}

	cards := make([]product.Card, 0, len(payload.Items))
	for _, item := range payload.Items {
		card := product.Card{VendorCode: item.VendorCode, Barcodes: item.Barcodes}
		if item.Title != nil {
			card.Title = *item.Title
		}
		cards = append(cards, card)
	}
	if len(cards) == 0 {
		return nil
	}

	ts := c.now()
	if payload.TS > 0 {
		ts = time.UnixMilli(payload.TS)
	}
	c.replace(cards, ts)
	return nil
}
