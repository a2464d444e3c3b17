// Package jsonbackend stores keyword results as newline-delimited JSON.
package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

// maxLineBytes bounds a single encoded result.
const maxLineBytes = 16 << 20

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New creates a new NDJSON-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open jsonl: %w", err)
	}

	return &jsonBackend{
		file: f,
	}, nil
}

func (b *jsonBackend) Save(ctx context.Context, result *evidence.KeywordResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %q: %w", result.Keyword, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, err = b.file.Write(append(data, '\n'))
	if err != nil {
		return fmt.Errorf("write jsonl: %w", err)
	}

	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*evidence.KeywordResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek jsonl: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	return Read(b.file, filter)
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}

// Read decodes results from an NDJSON stream. For NDJSON there is no query
// engine: everything is read, then filtered and paged in memory.
func Read(r io.Reader, filter storage.Filter) ([]*evidence.KeywordResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var all []*evidence.KeywordResult
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var res evidence.KeywordResult
		if err := json.Unmarshal(line, &res); err != nil {
			return nil, fmt.Errorf("decode jsonl: %w", err)
		}
		all = append(all, &res)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}

	return storage.Apply(all, filter), nil
}
