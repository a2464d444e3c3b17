// Package source loads the inputs of a run: the keyword list and the set of
// listing pages the site is already known to have.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultKeywordLimit caps how many keywords one run consumes.
const DefaultKeywordLimit = 25

// LoadKeywords reads one keyword per line from path. See ReadKeywords.
func LoadKeywords(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keywords: %w", err)
	}
	defer f.Close()
	return ReadKeywords(f, limit)
}

// maxKeywordLine bounds one line of the keyword file. Longer lines are not
// keywords and are skipped.
const maxKeywordLine = 64 << 10

// ReadKeywords returns the trimmed, non-empty lines of r with duplicates
// removed, first occurrence kept, capped at limit. A limit <= 0 means
// DefaultKeywordLimit. Lines longer than 64 KiB are skipped.
func ReadKeywords(r io.Reader, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultKeywordLimit
	}

	var keywords []string
	seen := make(map[string]struct{})
	br := bufio.NewReaderSize(r, maxKeywordLine)
	for first := true; ; first = false {
		raw, isPrefix, err := br.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read keywords: %w", err)
		}
		if isPrefix {
			if err := discardLine(br); err != nil {
				return nil, fmt.Errorf("read keywords: %w", err)
			}
			continue
		}

		line := string(raw)
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		kw := strings.TrimSpace(line)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords, nil
}

// discardLine consumes the rest of an over-long line.
func discardLine(br *bufio.Reader) error {
	for {
		_, isPrefix, err := br.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil || !isPrefix {
			return err
		}
	}
}
