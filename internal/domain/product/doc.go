// Package product contains the Product Info bounded context.
// It describes how marketplace articles map to human readable titles and barcodes.
//
// Key concepts:
//   - Info: cached resolution result for one article, positive or negative
//   - Card: one catalog listing (vendor code, catalog id, title, barcodes)
//   - CatalogAPI: port for the remote catalog (listing, archive listing, text search)
//   - StatusSource: port for the external product-status source used to verify scans
//
// Adapters live in internal/infrastructure/marketplace and internal/infrastructure/cache.
package product
