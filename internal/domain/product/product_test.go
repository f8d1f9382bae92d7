package product

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsPlaceholderName(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		article string
		want    bool
	}{
		{"empty", "", "A-1", true},
		{"whitespace only", "   ", "A-1", true},
		{"em dash sentinel", "—", "A-1", true},
		{"dash sentinel", "-", "A-1", true},
		{"underscore sentinel", "_", "A-1", true},
		{"question mark noise", "??????? ????", "A-1", true},
		{"replacement runes", "���ab", "A-1", true},
		{"single question mark is fine", "What?", "A-1", false},
		{"equals article ignoring case", "sku-42", "SKU-42", true},
		{"real title", "Cotton T-shirt", "SKU-42", false},
		{"real title with one noise rune", "Mug ?", "SKU-42", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlaceholderName(tt.title, tt.article))
		})
	}
}

func TestNormalizeBarcode(t *testing.T) {
	assert.Equal(t, "4600000000017", NormalizeBarcode(" 4600 0000\t00017\n"))
	assert.Equal(t, "", NormalizeBarcode("   "))
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, UniqueStrings([]string{"a", " ", "b", "a", ""}))
}

func TestCard_ToInfo(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	info := Card{VendorCode: "A", Title: "Mug"}.ToInfo(now)

	assert.Equal(t, now, info.CachedAt)
	assert.Equal(t, "Mug", info.Title)
	assert.NotNil(t, info.Barcodes)
	assert.True(t, info.HasData())
	assert.False(t, info.Missing)
}
