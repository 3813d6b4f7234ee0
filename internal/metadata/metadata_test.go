package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	v := &Video{Provider: "JavBus ", Num: "abp-123"}
	assert.Equal(t, "javbus:ABP-123", v.Key())
}

func TestIncompleteAndBackfill(t *testing.T) {
	v := &Video{Num: "ABP-123", Genres: []string{}}
	assert.True(t, v.Incomplete())

	cached := &Video{Num: "ABP-123", Genres: []string{"Drama"}, Actors: []string{"A"}}
	got := v.Backfill(cached)

	assert.Equal(t, []string{}, got.Genres, "populated-but-empty genres are kept")
	assert.Equal(t, []string{"A"}, got.Actors)
	assert.Nil(t, v.Actors, "original record is not modified")
	assert.False(t, got.Incomplete())

	cached.Actors[0] = "changed"
	assert.Equal(t, "A", got.Actors[0])
}

func TestBackfillNilCache(t *testing.T) {
	v := &Video{Num: "X"}
	got := v.Backfill(nil)
	assert.Equal(t, v, got)
	assert.NotSame(t, v, got)
}

func TestYearMonth(t *testing.T) {
	v := &Video{Date: "2021-07-09"}
	assert.Equal(t, "2021", v.Year())
	assert.Equal(t, "07", v.Month())

	v = &Video{Date: "21"}
	assert.Equal(t, "", v.Year())
	assert.Equal(t, "", v.Month())
}

func TestHasGenre(t *testing.T) {
	item := &Item{Genres: []string{"Drama", ChineseSubtitleGenre}}
	assert.True(t, item.HasGenre(ChineseSubtitleGenre))
	assert.False(t, (&Item{}).HasGenre(ChineseSubtitleGenre))
}
