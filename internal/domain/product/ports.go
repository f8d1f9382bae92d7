package product

import (
	"context"
	"errors"
	"time"
)

var (
	ErrArticleRequired = errors.New("product: article is required")
	ErrSourceDisabled  = errors.New("product: status source is not configured")
)

// StoreRef identifies the seller account a remote call is made for.
type StoreRef struct {
	ID           string
	Token        string
	ClientSecret string
}

// Cursor is the continuation token of the catalog listings.
// Listing pages continue from UpdatedAt, archive pages from TrashedAt.
type Cursor struct {
	Limit     int
	UpdatedAt string
	TrashedAt string
	NmID      int64
}

// IsZero reports whether the cursor carries no continuation.
func (c Cursor) IsZero() bool {
	return c.UpdatedAt == "" && c.TrashedAt == "" && c.NmID == 0
}

// CardPage is one page of a catalog listing.
type CardPage struct {
	Cards []Card
	Next  Cursor
	Total int
}

// CatalogAPI is the remote catalog.
// Implementations wrap shared.ErrRateLimited on HTTP 429.
type CatalogAPI interface {
	ListCards(ctx context.Context, store StoreRef, cursor Cursor) (CardPage, error)
	SearchCards(ctx context.Context, store StoreRef, query string, limit int) ([]Card, error)
	ListTrash(ctx context.Context, store StoreRef, cursor Cursor, textSearch string) (CardPage, error)
}

// Status is the answer of the product-status source for one article.
type Status struct {
	Found    bool
	Barcodes []string
}

// StatusSource looks up valid barcodes of an article.
// force bypasses the source's own cache.
type StatusSource interface {
	Lookup(ctx context.Context, article string, force bool) (Status, error)
}

// InfoCache stores resolution results per store and article.
type InfoCache interface {
	Get(ctx context.Context, storeID, article string) (Info, bool)
	Set(ctx context.Context, storeID, article string, info Info)
}

// Clock returns the current time.
type Clock func() time.Time
