package urlclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const site = "https://www.fatshackvintage.com.au/"

func testPaths(t *testing.T) PathConfig {
	t.Helper()
	pc, err := NewPathConfig(site,
		[]string{"/shop-by-category/", "/shop-all-products/", "/shop-all/", "/collections"},
		[]string{"/products/"},
		[]string{"/articles/", "/help/", "/about-us/", "/contact-us/", "/"},
		Segments{},
	)
	require.NoError(t, err)
	return pc
}

func TestNormalize(t *testing.T) {
	pc := testPaths(t)

	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"root without slash", "https://www.fatshackvintage.com.au", "https://www.fatshackvintage.com.au/", true},
		{"query and fragment", "https://www.fatshackvintage.com.au/shop-all/?page=2#top", "https://www.fatshackvintage.com.au/shop-all/", true},
		{"case folding of scheme and host", "HTTPS://WWW.Example.com/A?b=1", "https://www.example.com/A", true},
		{"relative path gets site host", "/products/pomade", "https://www.fatshackvintage.com.au/products/pomade", true},
		{"schemeless host", "fatshackvintage.com.au/products/x", "https://fatshackvintage.com.au/products/x", true},
		{"http kept", "http://www.fatshackvintage.com.au/help/", "http://www.fatshackvintage.com.au/help/", true},
		{"empty", "   ", "", false},
		{"unsupported scheme", "ftp://files.example.com/a", "", false},
		{"opaque", "mailto:hello@example.com", "", false},
		{"unparseable", "http://[::1", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := pc.Normalize(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	pc := testPaths(t)
	known := NewKnownSet(pc, []string{
		"https://www.fatshackvintage.com.au/pages/sale?ref=nav",
		"https://www.fatshackvintage.com.au/help/faq",
	})

	tests := []struct {
		in   string
		want Classification
	}{
		{"https://www.fatshackvintage.com.au/", Irrelevant},
		{"https://www.fatshackvintage.com.au/?utm_source=x", Irrelevant},
		{"/articles/how-to-use-pomade", Irrelevant},
		{"https://www.fatshackvintage.com.au/articles/", Irrelevant},
		{"/help/faq", Irrelevant},
		{"/help", Unknown},
		{"/pages/sale", KnownListing},
		{"/shop-all-products/", KnownListing},
		{"/shop-by-category/hair", KnownListing},
		{"/collections/hair-care", KnownListing},
		{"/collections/hair-care/products/matte-pomade", KnownDetail},
		{"/products/hair-styling-powder", KnownDetail},
		{"/en/products/hair-styling-powder", KnownDetail},
		{"/blogs/news/pomade-guide", Unknown},
		{"mailto:hi@fatshackvintage.com.au", Unknown},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, pc.Classify(tc.in, known))
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	pc := testPaths(t)
	for _, u := range []string{"/collections/wax", "/products/wax", "/", "/blog/x", "::bad"} {
		first := pc.Classify(u, nil)
		assert.Equal(t, first, pc.Classify(u, nil), u)

		if n, ok := pc.Normalize(u); ok {
			assert.Equal(t, first, pc.Classify(n, nil), "normalized %s", u)
		}
	}
}

func TestClassify_CustomSegments(t *testing.T) {
	pc, err := NewPathConfig("shop.example.com", []string{"/c/"}, []string{"/p/"}, nil,
		Segments{Collection: "/c/", Product: "/item/"})
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/", pc.Root())
	assert.Equal(t, KnownListing, pc.Classify("/c/shoes", nil))
	assert.Equal(t, KnownDetail, pc.Classify("/c/shoes/item/runner", nil))
	assert.Equal(t, KnownDetail, pc.Classify("/p/runner", nil))
	assert.Equal(t, Unknown, pc.Classify("/products/runner", nil))
}

func TestNewPathConfig_Errors(t *testing.T) {
	_, err := NewPathConfig("", nil, nil, nil, Segments{})
	assert.Error(t, err)

	_, err = NewPathConfig(site, []string{"ftp://other/x"}, nil, nil, Segments{})
	assert.Error(t, err)
}

func TestPathConfig_AccessorsReturnCopies(t *testing.T) {
	pc := testPaths(t)
	paths := pc.ListingPaths()
	paths[0] = "mutated"
	assert.NotEqual(t, "mutated", pc.ListingPaths()[0])
}
