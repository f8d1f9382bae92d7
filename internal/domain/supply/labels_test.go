package supply

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Поставка 12 Мая!", "поставка_12_мая"},
		{"  --Hello,   World--  ", "hello_world"},
		{"", ""},
		{"!!!", ""},
		{strings.Repeat("a", 100), strings.Repeat("a", 80)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestBuildLabelsPrefix(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	assert.Equal(t, "WB-GI-1-morning_batch", BuildLabelsPrefix("WB-GI-1", "Morning batch", now))
	assert.Equal(t, "WB-GI-1", BuildLabelsPrefix(" WB-GI-1 ", "***", now))
	assert.Equal(t, "supply-1700000000000", BuildLabelsPrefix("", "", now))
	assert.Equal(t, "WB-GI-1-x/42.pdf", LabelKey("WB-GI-1-x", 42))
}

func TestLabelJobState(t *testing.T) {
	now := time.Now()

	s := LabelJobState{Status: LabelsLoading, Total: 2, Loaded: 1}
	s.Advance()
	s.Advance()
	assert.Equal(t, 2, s.Loaded)

	s.Finish(0, now)
	assert.Equal(t, LabelsReady, s.Status)
	assert.Empty(t, s.Error)

	s.Finish(3, now)
	assert.Equal(t, LabelsError, s.Status)
	assert.Equal(t, "Ошибок: 3", s.Error)
}
