package product

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Info is the resolved metadata of an article.
// A Missing entry records that the article could not be found remotely.
type Info struct {
	CachedAt time.Time `json:"ts"`
	Title    string    `json:"title,omitempty"`
	Barcodes []string  `json:"barcodes"`
	Missing  bool      `json:"missing,omitempty"`
}

// HasData reports whether the entry carries a title or at least one barcode.
func (i Info) HasData() bool {
	return i.Title != "" || len(i.Barcodes) > 0
}

// FirstBarcode returns the first known barcode or an empty string.
func (i Info) FirstBarcode() string {
	if len(i.Barcodes) == 0 {
		return ""
	}
	return i.Barcodes[0]
}

// Card is a single catalog listing.
type Card struct {
	VendorCode string
	NmID       *int64
	Title      string
	Barcodes   []string
}

// HasData reports whether the card can resolve an article.
func (c Card) HasData() bool {
	return c.Title != "" || len(c.Barcodes) > 0
}

// ToInfo converts the card into a positive cache entry.
func (c Card) ToInfo(now time.Time) Info {
	barcodes := c.Barcodes
	if barcodes == nil {
		barcodes = []string{}
	}
	return Info{CachedAt: now, Title: c.Title, Barcodes: barcodes}
}

// NormalizeArticle trims an article code. Empty input yields an empty key.
func NormalizeArticle(article string) string {
	return strings.TrimSpace(article)
}

// NormalizeBarcode removes all whitespace from a scanned or stored barcode.
func NormalizeBarcode(barcode string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, barcode)
}

// IsPlaceholderName reports whether name is not a real product title and
// the article has to be resolved again.
func IsPlaceholderName(name, article string) bool {
	raw := strings.TrimSpace(name)
	if raw == "" {
		return true
	}
	switch raw {
	case "—", "-", "_":
		return true
	}

	junk := 0
	for _, r := range raw {
		if r == utf8.RuneError || r == '?' {
			junk++
		}
	}
	threshold := int(math.Max(2, math.Floor(float64(utf8.RuneCountInString(raw))*0.3)))
	if junk > 0 && junk >= threshold {
		return true
	}

	art := NormalizeArticle(article)
	return art != "" && strings.EqualFold(raw, art)
}

// UniqueStrings returns the non-empty values of in without duplicates, keeping order.
func UniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
