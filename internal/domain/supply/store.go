package supply

import (
	"strings"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
)

// Store is a seller account on the marketplace. Stores are registered once at startup.
type Store struct {
	ID           string
	Name         string
	Token        string
	ClientSecret string
}

// Ref returns the credentials needed for remote catalog calls.
func (s Store) Ref() product.StoreRef {
	return product.StoreRef{ID: s.ID, Token: s.Token, ClientSecret: s.ClientSecret}
}

// NormalizeStoreID trims and lowercases a store id.
func NormalizeStoreID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Directory is the immutable set of registered stores.
// The first registered store is the default.
type Directory struct {
	list []Store
	byID map[string]Store
}

// NewDirectory registers stores in order. Stores without an id or token are skipped.
func NewDirectory(stores []Store) *Directory {
	d := &Directory{byID: make(map[string]Store, len(stores))}
	for _, s := range stores {
		s.ID = NormalizeStoreID(s.ID)
		if s.ID == "" || s.Token == "" {
			continue
		}
		if _, dup := d.byID[s.ID]; dup {
			continue
		}
		d.list = append(d.list, s)
		d.byID[s.ID] = s
	}
	return d
}

// Default returns the first registered store.
func (d *Directory) Default() (Store, bool) {
	if len(d.list) == 0 {
		return Store{}, false
	}
	return d.list[0], true
}

// Resolve returns the store with the given id, falling back to the default store
// for empty or unknown ids.
func (d *Directory) Resolve(id string) (Store, bool) {
	if s, ok := d.byID[NormalizeStoreID(id)]; ok {
		return s, true
	}
	return d.Default()
}

// Lookup returns the store with exactly this id.
func (d *Directory) Lookup(id string) (Store, bool) {
	s, ok := d.byID[NormalizeStoreID(id)]
	return s, ok
}

// All returns the registered stores in registration order.
func (d *Directory) All() []Store {
	out := make([]Store, len(d.list))
	copy(out, d.list)
	return out
}
