package naming

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Nomadcxx/javorganize/internal/metadata"
	"github.com/stretchr/testify/assert"
)

func sampleVideo() *metadata.Video {
	return &metadata.Video{
		Provider:      "JavBus",
		Num:           "ABP-123",
		Title:         "Summer: Story / Part 2?",
		OriginalTitle: "夏の物語",
		Studio:        "Prestige",
		Maker:         "Prestige",
		Date:          "2021-07-09",
		Genres:        []string{"Drama", metadata.ChineseSubtitleGenre},
		Actors:        []string{"Aoi", "Yui"},
	}
}

func TestFormat_Fields(t *testing.T) {
	f := NewFormatter()
	v := sampleVideo()

	tests := []struct {
		pattern string
		want    string
	}{
		{"%num%", "ABP-123"},
		{"%actor%/%num%", "Aoi, Yui/ABP-123"},
		{"%actor_first%/%year%-%month%/%num%", "Aoi/2021-07/ABP-123"},
		{"%num% %title%", "ABP-123 Summer Story Part 2"},
		{"%studio% [%date%]", "Prestige [2021-07-09]"},
		{"%title_original%", "夏の物語"},
		{"%NUM%", "ABP-123"},
		{"%unknown% %num%", "%unknown% ABP-123"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(tt.pattern, v, "NULL", true))
		})
	}
}

func TestFormat_EmptyValue(t *testing.T) {
	f := NewFormatter()
	v := &metadata.Video{Num: "SSIS-001"}

	assert.Equal(t, "NULL/SSIS-001", f.Format("%actor%/%num%", v, "NULL", true))
	assert.Equal(t, "Unknown/SSIS-001", f.Format("%set%/%num%", v, "Unknown", true))
	assert.Equal(t, "NULL", f.Format("%num%", nil, "NULL", true))
}

func TestFormat_EmptyValueIsSanitized(t *testing.T) {
	f := NewFormatter()
	v := &metadata.Video{Num: "SSIS-001"}

	assert.Equal(t, "NA/SSIS-001", f.Format("%actor%/%num%", v, "N/A", true))
	assert.Equal(t, "Who/SSIS-001", f.Format("%actor%/%num%", v, "Who?", true))
	assert.Equal(t, "N/A/SSIS-001", f.Format("%actor%/%num%", v, "N/A", false))
}

func TestFormat_SanitizeRemovesSeparatorsFromValues(t *testing.T) {
	f := NewFormatter()
	v := &metadata.Video{Num: "A/B", Title: `a\b:c*d"e<f>g|h`}

	assert.Equal(t, "AB", f.Format("%num%", v, "", true))
	assert.Equal(t, "abcdefgh", f.Format("%title%", v, "", true))
	assert.Equal(t, "A/B", f.Format("%num%", v, "", false), "raw values pass through unsanitized")
}

func TestFormat_TrimsSegments(t *testing.T) {
	f := NewFormatter()
	v := &metadata.Video{Num: "ABP-123", Title: "Ends with dots..."}
	assert.Equal(t, "ABP-123/Ends with dots", f.Format(" %num% / %title% ", v, "", true))
}

func TestFormat_LongTitleTruncatedOnRuneBoundary(t *testing.T) {
	f := NewFormatter()
	v := &metadata.Video{Title: strings.Repeat("長", 150)}
	got := f.Format("%title%", v, "", true)
	assert.LessOrEqual(t, len(got), MaxSegmentBytes)
	assert.True(t, utf8.ValidString(got))
}

func TestSanitizeValue(t *testing.T) {
	assert.Equal(t, "a b", SanitizeValue(" a \t\n b "))
	assert.Equal(t, "", SanitizeValue("/\\?*"))
	// NFD "é" composes to a single rune
	assert.Equal(t, "é", SanitizeValue("é"))
}
