package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/catgap/internal/fingerprint"
)

func newTestFetcher(t *testing.T, cfg FetchConfig) *Fetcher {
	t.Helper()
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	cfg.Fingerprint = fingerprint.ProfileGo
	f, err := NewFetcher(cfg)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	return f
}

func TestFetcher_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TestBrowser/1.0" {
			t.Errorf("expected User-Agent TestBrowser/1.0, got %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("X-Test", "true")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	fetcher := newTestFetcher(t, FetchConfig{UserAgent: "TestBrowser/1.0"})

	page, err := fetcher.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if page.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", page.StatusCode)
	}
	if string(page.Body) != "ok" {
		t.Errorf("expected body 'ok', got %s", string(page.Body))
	}
	if page.Headers.Get("X-Test") != "true" {
		t.Errorf("expected X-Test header 'true', got %v", page.Headers.Get("X-Test"))
	}
	if page.Duration == 0 {
		t.Errorf("expected non-zero duration")
	}
	if page.ID == "" {
		t.Errorf("expected non-empty UUID")
	}
	if page.Challenged() {
		t.Errorf("expected no challenge, got %s", page.DetectedBy)
	}
}

func TestFetcher_DefaultUserAgent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "catgap/") {
			t.Errorf("expected default user agent, got %q", r.Header.Get("User-Agent"))
		}
	}))
	defer ts.Close()

	if _, err := newTestFetcher(t, FetchConfig{}).Fetch(context.Background(), ts.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetcher_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	fetcher := newTestFetcher(t, FetchConfig{Timeout: 10 * time.Millisecond})

	if _, err := fetcher.Fetch(context.Background(), ts.URL); err == nil {
		t.Errorf("expected timeout error")
	}
}

func TestFetcher_DetectsChallenge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "cloudflare")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Attention Required! | Cloudflare"))
	}))
	defer ts.Close()

	page, err := newTestFetcher(t, FetchConfig{}).Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.DetectedBy != "Cloudflare" {
		t.Errorf("expected Cloudflare detection, got %q", page.DetectedBy)
	}
}

func TestFetcher_TruncatesLargeBodies(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer ts.Close()

	page, err := newTestFetcher(t, FetchConfig{MaxBodyBytes: 10}).Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Body) != 10 || !page.Truncated {
		t.Errorf("expected 10 truncated bytes, got %d (truncated=%v)", len(page.Body), page.Truncated)
	}
}
