package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is the readable content of an HTML page.
type Document struct {
	URL         string
	Title       string
	Description string
	Breadcrumbs []string
	Headings    []string
	// ProductLinks counts distinct links containing productSegment, a cheap
	// hint of how many products a listing shows.
	ProductLinks int
	Text         string
}

const productSegment = "/products/"

// ParseDocument extracts title, description, breadcrumbs, headings and the
// visible text of body.
func ParseDocument(pageURL string, body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	d := &Document{
		URL:   pageURL,
		Title: clean(doc.Find("title").First().Text()),
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		d.Description = clean(desc)
	}

	doc.Find(`nav[aria-label*="readcrumb"] a, .breadcrumb a, .breadcrumbs a`).Each(func(_ int, s *goquery.Selection) {
		if t := clean(s.Text()); t != "" {
			d.Breadcrumbs = append(d.Breadcrumbs, t)
		}
	})

	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if t := clean(s.Text()); t != "" && len(d.Headings) < 40 {
			d.Headings = append(d.Headings, t)
		}
	})

	base, _ := url.Parse(pageURL)
	products := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.Contains(href, productSegment) {
			return
		}
		if u, err := url.Parse(href); err == nil && base != nil {
			href = base.ResolveReference(u).Path
		}
		products[href] = struct{}{}
	})
	d.ProductLinks = len(products)

	doc.Find("script, style, noscript, svg, iframe, template").Remove()
	d.Text = clean(doc.Find("body").Text())
	if d.Text == "" {
		d.Text = clean(doc.Text())
	}
	return d, nil
}

// clean collapses runs of whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
