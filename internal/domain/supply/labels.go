package supply

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxSlugRunes = 80

var lower = cases.Lower(language.Und)

// Slugify lowercases s and collapses every run of characters that are not
// letters or digits into a single underscore. The result is trimmed of
// underscores and capped at 80 runes.
func Slugify(s string) string {
	s = lower.String(strings.TrimSpace(s))

	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	runes := []rune(b.String())
	if len(runes) > maxSlugRunes {
		runes = runes[:maxSlugRunes]
	}
	return strings.TrimRight(string(runes), "_")
}

// BuildLabelsPrefix returns the object storage prefix of a supply's labels.
func BuildLabelsPrefix(supplyID, supplyName string, now time.Time) string {
	id := strings.TrimSpace(supplyID)
	if name := Slugify(supplyName); name != "" {
		return fmt.Sprintf("%s-%s", id, name)
	}
	if id != "" {
		return id
	}
	return fmt.Sprintf("supply-%d", now.UnixMilli())
}

// LabelKey returns the object key of one order's label document.
func LabelKey(prefix string, orderID int64) string {
	return fmt.Sprintf("%s/%d.pdf", prefix, orderID)
}

// StickerSpec describes the label image requested from the marketplace.
type StickerSpec struct {
	Type   string
	Width  int
	Height int
}

// Sticker is a label returned by the marketplace for one order.
// File holds the base64 encoded image.
type Sticker struct {
	OrderID int64
	File    string
	Barcode string
}

// LabelJobState is the progress snapshot of a label job.
type LabelJobState struct {
	Status     LabelStatus `json:"status"`
	Total      int         `json:"total"`
	Loaded     int         `json:"loaded"`
	Error      string      `json:"error,omitempty"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
}

// Advance counts one more loaded label without exceeding the total.
func (s *LabelJobState) Advance() {
	if s.Loaded < s.Total {
		s.Loaded++
	}
}

// Finish sets the final status from the failure count.
func (s *LabelJobState) Finish(failures int, at time.Time) {
	s.FinishedAt = &at
	if failures > 0 {
		s.Status = LabelsError
		s.Error = fmt.Sprintf("Ошибок: %d", failures)
		return
	}
	s.Status = LabelsReady
	s.Error = ""
}
