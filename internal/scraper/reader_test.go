package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func readerServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	})
	mux.HandleFunc("/collections/denim", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML))
	})
	mux.HandleFunc("/private/stock", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("disallowed page was fetched")
	})
	mux.HandleFunc("/blocked", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-DataDome", "protected")
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestReader_Read(t *testing.T) {
	ts := readerServer(t)
	fetcher := newTestFetcher(t, FetchConfig{})
	reader := NewReader(fetcher, NewRobotsTxtAuditor(fetcher, slog.Default()), slog.Default())
	ctx := context.Background()

	doc, err := reader.Read(ctx, ts.URL+"/collections/denim")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title == "" || doc.URL != ts.URL+"/collections/denim" {
		t.Errorf("unexpected document %+v", doc)
	}

	if _, err := reader.Read(ctx, ts.URL+"/private/stock"); !errors.Is(err, ErrDisallowed) {
		t.Errorf("expected ErrDisallowed, got %v", err)
	}
	if _, err := reader.Read(ctx, ts.URL+"/blocked"); !errors.Is(err, ErrChallenged) {
		t.Errorf("expected ErrChallenged, got %v", err)
	}
	if _, err := reader.Read(ctx, ts.URL+"/gone"); err == nil {
		t.Errorf("expected error for 410 response")
	}
}

func TestReader_WithoutRobots(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			t.Errorf("robots.txt fetched with auditing disabled")
		}
		_, _ = w.Write([]byte("<p>hello</p>"))
	}))
	defer ts.Close()

	reader := NewReader(newTestFetcher(t, FetchConfig{}), nil, nil)
	doc, err := reader.Read(context.Background(), ts.URL+"/private/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text != "hello" {
		t.Errorf("unexpected text %q", doc.Text)
	}
}
