package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/geonews/internal/models"
)

func names(ss []Source) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.Name)
	}
	return out
}

func testCatalog() Catalog {
	return Catalog{
		{Name: "in-1", Languages: []string{"hi"}, Country: "india", Continent: "asia", Categories: []string{"national"}},
		{Name: "in-2", Languages: []string{"en"}, Country: "india", Continent: "asia", Categories: []string{"national", "business"}},
		{Name: "in-3", Languages: []string{"mr"}, Country: "india", Continent: "asia", Categories: []string{"politics"}},
		{Name: "qa-1", Languages: []string{"ar"}, Country: "qatar", Continent: "asia", Categories: []string{"national"}},
		{Name: "gl-1", Languages: []string{"en"}, Country: Global, Continent: Global, Categories: []string{"world"}},
		{Name: "gl-2", Languages: []string{"en"}, Country: Global, Continent: Global, Categories: []string{"world", "business"}},
	}
}

func TestSelectIndiaUsesCountryTierOnly(t *testing.T) {
	t.Parallel()
	got := testCatalog().Select(models.Context{Country: "india", Continent: "asia"})
	assert.Equal(t, []string{"in-1", "in-2", "in-3"}, names(got))
}

func TestSelectFallsBack(t *testing.T) {
	t.Parallel()
	cat := testCatalog()

	t.Run("to continent when country tier filters out", func(t *testing.T) {
		got := cat.Select(models.Context{Country: "india", Continent: "asia", Languages: []string{"ar"}})
		assert.Equal(t, []string{"qa-1"}, names(got))
	})

	t.Run("to global when no regional source speaks the language", func(t *testing.T) {
		got := cat.Select(models.Context{Country: "spain", Continent: "europe", Languages: []string{"en"}})
		assert.Equal(t, []string{"gl-1", "gl-2"}, names(got))
	})

	t.Run("global only for an empty context", func(t *testing.T) {
		got := cat.Select(models.Context{})
		assert.Equal(t, []string{"gl-1", "gl-2"}, names(got))
	})

	t.Run("empty when nothing matches", func(t *testing.T) {
		got := cat.Select(models.Context{Country: "india", Languages: []string{"ja"}})
		assert.Empty(t, got)
	})
}

func TestSelectCategorySoftMatch(t *testing.T) {
	t.Parallel()
	cat := testCatalog()

	got := cat.Select(models.Context{Country: "india", Category: "world"})
	assert.Equal(t, []string{"in-1", "in-2"}, names(got))

	got = cat.Select(models.Context{Category: "national"})
	assert.Equal(t, []string{"gl-1", "gl-2"}, names(got))

	got = cat.Select(models.Context{Country: "india", Category: "business"})
	assert.Equal(t, []string{"in-2"}, names(got))
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	data := `sources:
  - name: BBC India
    feed_url: https://feeds.bbci.co.uk/hindi/rss.xml
    languages: [HI]
    country: India
    continent: Asia
    categories: [national, politics]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, cat, 1)
	assert.Equal(t, "india", cat[0].Country)
	assert.Equal(t, "hi", cat[0].PrimaryLanguage())
	assert.Equal(t, "national", cat[0].PrimaryCategory())
}

func TestLoadCatalogRejectsInvalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	data := `sources:
  - name: Broken
    feed_url: not a url
    languages: []
    country: x
    continent: y
    categories: [national]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := LoadCatalog(path)
	assert.Error(t, err)
}

func TestDefaultCatalogIsValid(t *testing.T) {
	t.Parallel()
	globals := 0
	for _, s := range DefaultCatalog() {
		require.NoError(t, validate.Struct(s), s.Name)
		if s.IsGlobal() {
			globals++
		}
	}
	assert.Equal(t, 3, globals)
}
