package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/FranksOps/catgap/internal/urlclass"
)

// URLColumn is the header of the column holding listing URLs.
const URLColumn = "URL"

// LoadKnownListings reads the listing reference CSV at path and normalizes
// it against pc. An empty path yields an empty set. A missing file yields an
// empty set and an error wrapping os.ErrNotExist, which callers may treat as
// a warning.
func LoadKnownListings(path string, pc urlclass.PathConfig) (urlclass.KnownSet, error) {
	if strings.TrimSpace(path) == "" {
		return urlclass.KnownSet{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return urlclass.KnownSet{}, fmt.Errorf("open known listings: %w", err)
	}
	defer f.Close()

	urls, err := ReadListingURLs(f)
	if err != nil {
		return urlclass.KnownSet{}, fmt.Errorf("read known listings %s: %w", path, err)
	}
	return urlclass.NewKnownSet(pc, urls), nil
}

// ReadListingURLs returns the non-empty values of the URL column. The header
// match ignores case and surrounding space.
func ReadListingURLs(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	col := -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if strings.EqualFold(h, URLColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no %q column in header %v", URLColumn, header)
	}

	var urls []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if col >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[col]); v != "" {
			urls = append(urls, v)
		}
	}
	return urls, nil
}

// WriteListingURLs writes urls as a single-column CSV readable by
// ReadListingURLs.
func WriteListingURLs(w io.Writer, urls []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{URLColumn}); err != nil {
		return err
	}
	for _, u := range urls {
		if err := cw.Write([]string{u}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
