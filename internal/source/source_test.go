package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranksOps/catgap/internal/urlclass"
)

func paths(t *testing.T) urlclass.PathConfig {
	t.Helper()
	pc, err := urlclass.NewPathConfig("https://shop.example/",
		[]string{"/collections/"}, []string{"/products/"}, []string{"/", "/pages/"}, urlclass.Segments{})
	require.NoError(t, err)
	return pc
}

func TestReadKeywords(t *testing.T) {
	in := "\ufeffhair powder\n\n  pomade  \nhair powder\r\nbeard oil\n   \ncomb\n"

	got, err := ReadKeywords(strings.NewReader(in), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"hair powder", "pomade", "beard oil", "comb"}, got)

	got, err = ReadKeywords(strings.NewReader(in), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"hair powder", "pomade"}, got)
}

func TestReadKeywords_DefaultLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString(strings.Repeat("k", i+1) + "\n")
	}
	got, err := ReadKeywords(strings.NewReader(b.String()), -1)
	require.NoError(t, err)
	assert.Len(t, got, DefaultKeywordLimit)
}

func TestReadKeywords_SkipsOverlongLine(t *testing.T) {
	in := "pomade\n" + strings.Repeat("x", 200<<10) + "\r\nbeard oil\n" + strings.Repeat("y", 70<<10)

	got, err := ReadKeywords(strings.NewReader(in), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"pomade", "beard oil"}, got)
}

func TestLoadKeywords_Missing(t *testing.T) {
	got, err := LoadKeywords(filepath.Join(t.TempDir(), "nope.txt"), 25)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, got)
}

func TestLoadKnownListings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known.csv")
	csvData := "Title, url ,Notes\n" +
		"Hair,https://shop.example/pages/hair?ref=nav,x\n" +
		"Dup,https://shop.example/pages/hair,\n" +
		"Short row\n" +
		"Empty,,\n" +
		"Relative,/sale/,\n"
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o644))

	set, err := LoadKnownListings(path, paths(t))
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.True(t, set.Contains("https://shop.example/pages/hair"))
	assert.True(t, set.Contains("https://shop.example/sale/"))
}

func TestLoadKnownListings_Errors(t *testing.T) {
	pc := paths(t)

	set, err := LoadKnownListings("", pc)
	require.NoError(t, err)
	assert.Empty(t, set)

	set, err = LoadKnownListings(filepath.Join(t.TempDir(), "missing.csv"), pc)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, set)

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Address\nhttps://shop.example/a\n"), 0o644))
	_, err = LoadKnownListings(path, pc)
	assert.ErrorContains(t, err, `no "URL" column`)
}

func TestListingURLsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteListingURLs(&buf, []string{"https://shop.example/collections/a", "https://shop.example/collections/b,c"}))

	got, err := ReadListingURLs(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop.example/collections/a", "https://shop.example/collections/b,c"}, got)
}

type fakeLocator []string

func (f fakeLocator) Sitemaps(context.Context, string) []string { return f }

type fakeSitemaps struct {
	pages   map[string][]string
	fetched []string
}

func (f *fakeSitemaps) FetchSitemap(_ context.Context, u string) ([]string, error) {
	f.fetched = append(f.fetched, u)
	pages, ok := f.pages[u]
	if !ok {
		return nil, errors.New("404")
	}
	return pages, nil
}

func TestDiscoverListings(t *testing.T) {
	reader := &fakeSitemaps{pages: map[string][]string{
		"https://shop.example/sitemap_collections.xml": {
			"https://shop.example/collections/pomade",
			"https://shop.example/collections/beard?page=2",
			"https://shop.example/collections/beard",
			"https://shop.example/collections/beard/products/oil",
		},
		"https://shop.example/sitemap_pages.xml": {
			"https://shop.example/pages/about",
			"https://shop.example/",
		},
	}}
	locator := fakeLocator{
		"https://shop.example/sitemap_collections.xml",
		"https://shop.example/sitemap_pages.xml",
		"https://shop.example/sitemap_gone.xml",
	}

	got, err := DiscoverListings(context.Background(), locator, reader, paths(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://shop.example/collections/beard",
		"https://shop.example/collections/pomade",
	}, got)
	assert.Len(t, reader.fetched, 3)
}

func TestDiscoverListings_FallbackAndFailure(t *testing.T) {
	reader := &fakeSitemaps{pages: map[string][]string{}}

	_, err := DiscoverListings(context.Background(), fakeLocator(nil), reader, paths(t), nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"https://shop.example/sitemap.xml"}, reader.fetched)

	reader.pages["https://shop.example/sitemap.xml"] = []string{"https://shop.example/collections/x"}
	got, err := DiscoverListings(context.Background(), nil, reader, paths(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop.example/collections/x"}, got)
}

type fakeWalker struct {
	seed string
	urls []string
	err  error
}

func (f *fakeWalker) Crawl(_ context.Context, seed string) ([]string, error) {
	f.seed = seed
	return f.urls, f.err
}

func TestCrawlListings(t *testing.T) {
	walker := &fakeWalker{urls: []string{
		"https://shop.example/",
		"https://shop.example/collections/pomade",
		"https://shop.example/collections/beard",
		"https://shop.example/products/oil",
		"https://shop.example/collections/beard?page=2",
	}}

	got, err := CrawlListings(context.Background(), walker, paths(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/", walker.seed)
	assert.Equal(t, []string{
		"https://shop.example/collections/beard",
		"https://shop.example/collections/pomade",
	}, got)

	_, err = CrawlListings(context.Background(), &fakeWalker{err: context.Canceled}, paths(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
