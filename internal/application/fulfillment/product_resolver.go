package fulfillment

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/shared"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// ProductResolver maps articles to product titles and barcodes.
//
// Lookups go through the product cache, then the catalog snapshot, then a
// bounded number of remote searches. Misses are cached negatively so a
// missing article costs no remote calls until its negative entry expires.
// A rate-limited response pauses remote catalog calls of the store.
type ProductResolver struct {
	catalog product.CatalogAPI
	caches  *cache.Registry
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
}

// NewProductResolver creates a new ProductResolver
func NewProductResolver(catalog product.CatalogAPI, caches *cache.Registry, cfg Config, logger *zap.Logger) *ProductResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductResolver{
		catalog: catalog,
		caches:  caches,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock replaces time.Now, mainly for tests.
func (r *ProductResolver) WithClock(now func() time.Time) *ProductResolver {
	r.now = now
	return r
}

// Resolve returns the known info of each article. Articles in force bypass
// their negative cache entry. Unresolved articles are absent from the result.
func (r *ProductResolver) Resolve(ctx context.Context, store supply.Store, articles []string, force map[string]bool) map[string]product.Info {
	sc := r.caches.For(store.ID)
	results := make(map[string]product.Info)
	now := r.now()

	var missing []string
	for _, article := range product.UniqueStrings(articles) {
		cached, ok := sc.Products.Get(ctx, sc.StoreID, article)
		age := now.Sub(cached.CachedAt)
		if ok && !cached.Missing && cached.HasData() && age < r.cfg.ProductTTL {
			results[article] = cached
			continue
		}
		if ok && cached.Missing && age < r.cfg.ProductMissTTL && !force[article] {
			if info, hit := r.fromSnapshot(ctx, sc, article); hit {
				results[article] = info
			}
			continue
		}
		if info, hit := r.fromSnapshot(ctx, sc, article); hit {
			results[article] = info
			continue
		}
		missing = append(missing, article)
	}
	if len(missing) == 0 {
		return results
	}

	sc.Catalog.RefreshAsync(ctx, r.catalogLoader(store))
	if sc.Backoff.Active() {
		return results
	}

	for _, article := range missing[:min(len(missing), r.cfg.ResolveBatch)] {
		card, found, err := r.fetchByArticle(ctx, store, sc, article)
		if err != nil {
			if errors.Is(err, shared.ErrRateLimited) {
				r.trip(sc)
				break
			}
			r.logger.Warn("Product search failed",
				zap.String("store_id", sc.StoreID),
				zap.String("article", article),
				zap.Error(err))
			continue
		}
		if !found {
			sc.Products.Set(ctx, sc.StoreID, article, product.Info{CachedAt: r.now(), Barcodes: []string{}, Missing: true})
			continue
		}
		info := card.ToInfo(r.now())
		sc.Products.Set(ctx, sc.StoreID, article, info)
		results[article] = info
	}
	return results
}

// ResolveForOrders resolves the articles of orders. Articles whose order
// carries a placeholder name are forced. Articles still unresolved after the
// cache and a catalog refresh are searched by catalog id.
func (r *ProductResolver) ResolveForOrders(ctx context.Context, store supply.Store, orders []supply.Order) map[string]product.Info {
	force := make(map[string]bool)
	articles := make([]string, 0, len(orders))
	for _, o := range orders {
		article := product.NormalizeArticle(o.Article)
		if article == "" {
			continue
		}
		articles = append(articles, article)
		if product.IsPlaceholderName(o.ProductName, article) {
			force[article] = true
		}
	}

	infos := r.Resolve(ctx, store, articles, force)
	sc := r.caches.For(store.ID)
	if sc.Backoff.Active() {
		return infos
	}

	unresolved := false
	for _, article := range articles {
		if _, ok := infos[article]; !ok {
			unresolved = true
			break
		}
	}
	if !unresolved {
		return infos
	}

	if !sc.Catalog.Fresh() {
		if err := sc.Catalog.Refresh(ctx, true, r.catalogLoader(store)); err != nil {
			r.logger.Warn("Catalog refresh failed", zap.String("store_id", sc.StoreID), zap.Error(err))
		}
	}
	for _, article := range articles {
		if _, ok := infos[article]; ok {
			continue
		}
		if info, hit := r.fromSnapshot(ctx, sc, article); hit {
			infos[article] = info
		}
	}

	r.resolveByNmID(ctx, store, sc, orders, infos)
	return infos
}

func (r *ProductResolver) resolveByNmID(ctx context.Context, store supply.Store, sc *cache.StoreCache, orders []supply.Order, infos map[string]product.Info) {
	var nmIDs []int64
	byNmID := make(map[int64][]string)
	for _, o := range orders {
		article := product.NormalizeArticle(o.Article)
		if article == "" || o.NmID == nil {
			continue
		}
		if _, ok := infos[article]; ok {
			continue
		}
		if _, seen := byNmID[*o.NmID]; !seen {
			nmIDs = append(nmIDs, *o.NmID)
		}
		byNmID[*o.NmID] = append(byNmID[*o.NmID], article)
	}

	limit := max(5, r.cfg.ResolveBatch/2)
	for _, nmID := range nmIDs[:min(len(nmIDs), limit)] {
		cards, err := r.catalog.SearchCards(ctx, store.Ref(), strconv.FormatInt(nmID, 10), searchLimit)
		if err != nil {
			if errors.Is(err, shared.ErrRateLimited) {
				r.trip(sc)
				return
			}
			r.logger.Warn("Product search by catalog id failed",
				zap.String("store_id", sc.StoreID),
				zap.Int64("nm_id", nmID),
				zap.Error(err))
			continue
		}
		card, ok := pickByNmID(cards, nmID)
		if !ok || (card.NmID != nil && *card.NmID != nmID) || !card.HasData() {
			continue
		}
		info := card.ToInfo(r.now())
		for _, article := range byNmID[nmID] {
			sc.Products.Set(ctx, sc.StoreID, article, info)
			infos[article] = info
		}
	}
}

// LoadCatalog lists the whole catalog of a store. A rate-limited page trips
// the backoff and returns what was listed so far.
func (r *ProductResolver) LoadCatalog(ctx context.Context, store supply.Store) ([]product.Card, error) {
	sc := r.caches.For(store.ID)
	cursor := product.Cursor{Limit: catalogPageLimit}

	var cards []product.Card
	for page := 0; page < catalogMaxPages; page++ {
		res, err := r.catalog.ListCards(ctx, store.Ref(), cursor)
		if err != nil {
			if errors.Is(err, shared.ErrRateLimited) {
				r.trip(sc)
				break
			}
			return nil, err
		}
		cards = append(cards, res.Cards...)

		total := res.Total
		if total == 0 {
			total = len(res.Cards)
		}
		if len(res.Cards) == 0 || total < cursor.Limit || res.Next.IsZero() {
			break
		}
		next := product.Cursor{Limit: cursor.Limit, UpdatedAt: res.Next.UpdatedAt, NmID: res.Next.NmID}
		if next == cursor {
			break
		}
		cursor = next
	}
	return cards, nil
}

// RefreshCatalogs starts a background refresh of every stale catalog snapshot
// of the stores.
func (r *ProductResolver) RefreshCatalogs(ctx context.Context, stores []supply.Store) {
	for _, store := range stores {
		r.caches.For(store.ID).Catalog.RefreshAsync(ctx, r.catalogLoader(store))
	}
}

func (r *ProductResolver) catalogLoader(store supply.Store) cache.CatalogLoader {
	return func(ctx context.Context) ([]product.Card, error) {
		return r.LoadCatalog(ctx, store)
	}
}

func (r *ProductResolver) fromSnapshot(ctx context.Context, sc *cache.StoreCache, article string) (product.Info, bool) {
	card, ok := sc.Catalog.Lookup(article)
	if !ok {
		return product.Info{}, false
	}
	info := card.ToInfo(r.now())
	sc.Products.Set(ctx, sc.StoreID, article, info)
	return info, true
}

// fetchByArticle searches the active catalog and falls back to the archive
// when the active card has no title.
func (r *ProductResolver) fetchByArticle(ctx context.Context, store supply.Store, sc *cache.StoreCache, article string) (product.Card, bool, error) {
	cards, err := r.catalog.SearchCards(ctx, store.Ref(), article, searchLimit)
	if err != nil {
		return product.Card{}, false, err
	}
	primary, found := pickByVendorCode(cards, article)
	if found && primary.Title != "" {
		return primary, true, nil
	}

	fallback, ok, err := r.searchTrash(ctx, store, sc, article)
	if err != nil {
		return product.Card{}, false, err
	}
	switch {
	case !ok:
		return primary, found && primary.HasData(), nil
	case !found:
		return fallback, fallback.HasData(), nil
	}
	if primary.Title == "" {
		primary.Title = fallback.Title
	}
	if len(primary.Barcodes) == 0 {
		primary.Barcodes = fallback.Barcodes
	}
	return primary, primary.HasData(), nil
}

// searchTrash looks for an archived card with exactly this vendor code, first
// by text search and then by paging through the archive. A rate-limited
// response trips the backoff and is returned, so the lookup counts as aborted
// rather than missing.
func (r *ProductResolver) searchTrash(ctx context.Context, store supply.Store, sc *cache.StoreCache, article string) (product.Card, bool, error) {
	if sc.Backoff.Active() {
		return product.Card{}, false, shared.ErrRateLimited
	}

	page, err := r.catalog.ListTrash(ctx, store.Ref(), product.Cursor{Limit: trashSearchLimit}, article)
	switch {
	case errors.Is(err, shared.ErrRateLimited):
		r.trip(sc)
		return product.Card{}, false, err
	case err == nil:
		if card, ok := matchVendorCode(page.Cards, article); ok {
			return card, true, nil
		}
	}

	cursor := product.Cursor{Limit: catalogPageLimit}
	for i := 0; i < trashMaxPages && ctx.Err() == nil; i++ {
		res, err := r.catalog.ListTrash(ctx, store.Ref(), cursor, "")
		if err != nil {
			if errors.Is(err, shared.ErrRateLimited) {
				r.trip(sc)
				return product.Card{}, false, err
			}
			break
		}
		if card, ok := matchVendorCode(res.Cards, article); ok {
			return card, true, nil
		}
		if len(res.Cards) == 0 || (res.Next.TrashedAt == "" && res.Next.NmID == 0) {
			break
		}
		cursor = product.Cursor{Limit: cursor.Limit, TrashedAt: res.Next.TrashedAt, NmID: res.Next.NmID}
	}
	return product.Card{}, false, nil
}

func (r *ProductResolver) trip(sc *cache.StoreCache) {
	sc.Backoff.Trip(r.cfg.RateBackoff)
	r.logger.Warn("Catalog rate limited, pausing remote calls",
		zap.String("store_id", sc.StoreID),
		zap.Time("until", sc.Backoff.Until()))
}

func matchVendorCode(cards []product.Card, article string) (product.Card, bool) {
	for _, c := range cards {
		if strings.EqualFold(product.NormalizeArticle(c.VendorCode), article) {
			return c, true
		}
	}
	return product.Card{}, false
}

// pickByVendorCode prefers the card with exactly this vendor code and falls back to the first.
func pickByVendorCode(cards []product.Card, article string) (product.Card, bool) {
	if card, ok := matchVendorCode(cards, article); ok {
		return card, true
	}
	if len(cards) == 0 {
		return product.Card{}, false
	}
	return cards[0], true
}

func pickByNmID(cards []product.Card, nmID int64) (product.Card, bool) {
	for _, c := range cards {
		if c.NmID != nil && *c.NmID == nmID {
			return c, true
		}
	}
	if len(cards) == 0 {
		return product.Card{}, false
	}
	return cards[0], true
}
