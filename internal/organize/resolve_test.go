package organize

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/javorganize/internal/metadata"
	"github.com/Nomadcxx/javorganize/internal/naming"
)

func resolveOptions(root string) Options {
	return Options{
		WatchLocations: []string{filepath.Join(root, "watch")},
		TargetLocation: filepath.Join(root, "library"),
		FolderPattern:  "%actor_first%/%num%",
		FilePattern:    "%num%",
	}
}

func testVideo() *metadata.Video {
	return &metadata.Video{
		Provider: "javbus",
		Num:      "ABP-123",
		Title:    "Title",
		Actors:   []string{"Aoi"},
		Genres:   []string{"Drama"},
	}
}

func TestResolveBasic(t *testing.T) {
	root := t.TempDir()
	opts := resolveOptions(root)
	src := filepath.Join(root, "watch", "abp123", "abp123.mp4")

	dest, err := Resolve(naming.NewFormatter(), testVideo(), nil, opts, src)
	require.NoError(t, err)

	lib := filepath.Join(root, "library")
	assert.Equal(t, filepath.Join(lib, "Aoi", "ABP-123"), dest.Dir)
	assert.Equal(t, "ABP-123", dest.Name)
	assert.Equal(t, ".mp4", dest.Ext)
	assert.Equal(t, filepath.Join(lib, "Aoi", "ABP-123", "ABP-123.mp4"), dest.Path)
}

func TestResolveWithoutFilePatternUsesFolderName(t *testing.T) {
	root := t.TempDir()
	opts := resolveOptions(root)
	opts.FilePattern = ""
	src := filepath.Join(root, "watch", "x.mkv")

	dest, err := Resolve(naming.NewFormatter(), testVideo(), nil, opts, src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "library", "Aoi"), dest.Dir)
	assert.Equal(t, "ABP-123", dest.Name)
	assert.Equal(t, ".mkv", dest.Ext)
}

func TestResolveWithoutFolderPattern(t *testing.T) {
	root := t.TempDir()
	opts := resolveOptions(root)
	opts.FolderPattern = ""
	src := filepath.Join(root, "watch", "x.mp4")

	dest, err := Resolve(naming.NewFormatter(), testVideo(), nil, opts, src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "library"), dest.Dir)
	assert.Equal(t, filepath.Join(root, "library", "ABP-123.mp4"), dest.Path)
}

func TestResolveNestedFileName(t *testing.T) {
	root := t.TempDir()
	opts := resolveOptions(root)
	opts.FolderPattern = "F"
	opts.FilePattern = "N"
	f := stubFormatter{"F": "Studio", "N": "Series/ABP-123"}
	src := filepath.Join(root, "watch", "x.mp4")

	dest, err := Resolve(f, testVideo(), nil, opts, src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "library", "Studio", "Series"), dest.Dir)
	assert.Equal(t, "ABP-123", dest.Name)
}

func TestResolveSubtitleSuffix(t *testing.T) {
	root := t.TempDir()
	lib := filepath.Join(root, "library")
	src := filepath.Join(root, "watch", "abp123", "abp123.mp4")
	subbed := []string{metadata.ChineseSubtitleGenre}

	tests := []struct {
		name     string
		policy   SuffixPolicy
		genres   []string
		wantDir  string
		wantName string
	}{
		{"none", SuffixNone, subbed, filepath.Join(lib, "Aoi", "ABP-123"), "ABP-123"},
		{"folder", SuffixFolderOnly, subbed, filepath.Join(lib, "Aoi", "ABP-123-C"), "ABP-123"},
		{"file", SuffixFileOnly, subbed, filepath.Join(lib, "Aoi", "ABP-123"), "ABP-123-C"},
		{"both", SuffixBoth, subbed, filepath.Join(lib, "Aoi", "ABP-123-C"), "ABP-123-C"},
		{"no subtitles", SuffixBoth, []string{"Drama"}, filepath.Join(lib, "Aoi", "ABP-123"), "ABP-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := resolveOptions(root)
			opts.SubtitleSuffix = tt.policy

			dest, err := Resolve(naming.NewFormatter(), testVideo(), tt.genres, opts, src)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDir, dest.Dir)
			assert.Equal(t, tt.wantName, dest.Name)
			assert.Equal(t, filepath.Join(tt.wantDir, tt.wantName+".mp4"), dest.Path)
		})
	}
}

func TestResolveSuffixNotDuplicated(t *testing.T) {
	root := t.TempDir()
	opts := resolveOptions(root)
	opts.SubtitleSuffix = SuffixBoth
	v := testVideo()
	v.Num = "ABP-123-C"
	src := filepath.Join(root, "watch", "ABP-123-C.mp4")

	dest, err := Resolve(naming.NewFormatter(), v, nil, opts, src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "library", "Aoi", "ABP-123-C"), dest.Dir)
	assert.Equal(t, "ABP-123-C", dest.Name)
}

func TestResolveFolderSuffixSkipsTargetRoot(t *testing.T) {
	root := t.TempDir()
	opts := resolveOptions(root)
	opts.FolderPattern = ""
	opts.SubtitleSuffix = SuffixBoth
	src := filepath.Join(root, "watch", "ABP-123-C.mp4")

	dest, err := Resolve(naming.NewFormatter(), testVideo(), nil, opts, src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "library"), dest.Dir)
	assert.Equal(t, "ABP-123-C", dest.Name)
}

func TestResolveRejectsEscape(t *testing.T) {
	root := t.TempDir()
	opts := resolveOptions(root)
	opts.FolderPattern = "F"
	opts.FilePattern = "N"
	f := stubFormatter{"F": "../../outside", "N": "ABP-123"}

	_, err := Resolve(f, testVideo(), nil, opts, filepath.Join(root, "watch", "x.mp4"))
	assert.ErrorIs(t, err, ErrDestinationEscapes)
}

func TestResolveRejectsEmptyName(t *testing.T) {
	root := t.TempDir()
	opts := resolveOptions(root)
	opts.FolderPattern = "F"
	opts.FilePattern = "N"
	f := stubFormatter{"F": "Studio", "N": ""}

	_, err := Resolve(f, testVideo(), nil, opts, filepath.Join(root, "watch", "x.mp4"))
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestHasChineseSubtitle(t *testing.T) {
	tests := []struct {
		name   string
		genres []string
		path   string
		want   bool
	}{
		{"genre tag", []string{metadata.ChineseSubtitleGenre}, "/w/ABP-123.mp4", true},
		{"dash marker", nil, "/w/ABP-123-C.mp4", true},
		{"dash marker lowercase", nil, "/w/abp-123-c.mp4", true},
		{"second part marker", nil, "/w/ABP-123-C2.mkv", true},
		{"underscore marker", nil, "/w/ABP-123_C.mp4", true},
		{"folder marker", nil, "/w/ABP-123-C/movie.mp4", true},
		{"no marker", []string{"Drama"}, "/w/ABP-123/ABP-123.mp4", false},
		{"letter c inside name", nil, "/w/ABC-123.mp4", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasChineseSubtitle(tt.genres, tt.path))
		})
	}
}
