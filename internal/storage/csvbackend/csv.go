// Package csvbackend stores keyword results as rows of the tabular
// category-opportunity report.
package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/storage"
	"github.com/FranksOps/catgap/internal/urlclass"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// Headers is the CSV column order. The assessment columns hold JSON maps
// keyed by URL; the trailing assessments column holds the full ordered
// list and is what Query reads back.
var Headers = []string{
	"keyword",
	"decision",
	"justification",
	"serp_results_found",
	"serp_raw_html_url",
	"initial_classification",
	"known_listing_assessment",
	"known_detail_assessment",
	"unknown_url_assessment",
	"id",
	"run_id",
	"best_listing_relevance",
	"related_detail_found",
	"created_at",
	"assessments",
}

const (
	colKeyword = iota
	colDecision
	colJustification
	colSERPFound
	colRawHTML
	colInitial
	colListing
	colDetail
	colUnknown
	colID
	colRunID
	colBest
	colRelatedDetail
	colCreatedAt
	colAssessments
)

// cell is one URL's entry in an assessment column.
type cell struct {
	PageType      string `json:"page_type,omitempty"`
	Relevance     string `json:"relevance"`
	Justification string `json:"justification"`
}

// New opens filePath for appending, creating it with a header row if it
// is empty.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(Headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, result *evidence.KeywordResult) error {
	record, err := encode(result)
	if err != nil {
		return fmt.Errorf("encode %q: %w", result.Keyword, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek csv: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*evidence.KeywordResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek csv: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	return read(b.file, filter)
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}

// Read parses a results CSV from r without opening it for writing.
func Read(r io.Reader, filter storage.Filter) ([]*evidence.KeywordResult, error) {
	return read(r, filter)
}

func read(r io.Reader, filter storage.Filter) ([]*evidence.KeywordResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return []*evidence.KeywordResult{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var all []*evidence.KeywordResult
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(record) != len(Headers) {
			continue // skip malformed rows
		}

		res, err := decode(record)
		if err != nil {
			return nil, fmt.Errorf("decode csv row %q: %w", record[colKeyword], err)
		}
		all = append(all, res)
	}

	return storage.Apply(all, filter), nil
}

func encode(r *evidence.KeywordResult) ([]string, error) {
	initial, err := json.Marshal(r.Evidence.Initial)
	if err != nil {
		return nil, err
	}
	listing, err := assessmentColumn(r.Evidence.ByKind(evidence.KindListing), false)
	if err != nil {
		return nil, err
	}
	detail, err := assessmentColumn(r.Evidence.ByKind(evidence.KindDetail), false)
	if err != nil {
		return nil, err
	}
	unknown, err := assessmentColumn(r.Evidence.ByKind(evidence.KindUnknown), true)
	if err != nil {
		return nil, err
	}
	assessments, err := json.Marshal(r.Evidence.Assessments)
	if err != nil {
		return nil, err
	}

	return []string{
		r.Keyword,
		r.Decision.Label(),
		r.Justification,
		strconv.FormatBool(r.SERPResultsFound),
		r.RawSearchArtifact,
		string(initial),
		listing,
		detail,
		unknown,
		r.ID.String(),
		r.RunID,
		r.Evidence.BestListingLabel(),
		strconv.FormatBool(r.Evidence.RelatedDetailFound),
		r.CreatedAt.Format(time.RFC3339Nano),
		string(assessments),
	}, nil
}

func assessmentColumn(as []evidence.PageAssessment, withType bool) (string, error) {
	m := make(map[string]cell, len(as))
	for _, a := range as {
		c := cell{Relevance: a.VerdictLabel(), Justification: a.Justification}
		if withType {
			c.PageType = a.PageTypeLabel()
		}
		m[a.URL] = c
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(record []string) (*evidence.KeywordResult, error) {
	decision, ok := evidence.ParseDecision(record[colDecision])
	if !ok {
		return nil, fmt.Errorf("unknown decision %q", record[colDecision])
	}
	id, err := uuid.Parse(record[colID])
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, record[colCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	serpFound, _ := strconv.ParseBool(record[colSERPFound])
	relatedDetail, _ := strconv.ParseBool(record[colRelatedDetail])

	ev := evidence.NewKeywordEvidence()
	ev.RelatedDetailFound = relatedDetail
	if v, ok := evidence.ParseListingVerdict(record[colBest]); ok {
		ev.BestListing = &v
	}

	var initial map[urlclass.Classification][]string
	if err := json.Unmarshal([]byte(record[colInitial]), &initial); err != nil {
		return nil, fmt.Errorf("initial_classification: %w", err)
	}
	for c, urls := range initial {
		ev.Initial[c] = urls
	}
	if err := json.Unmarshal([]byte(record[colAssessments]), &ev.Assessments); err != nil {
		return nil, fmt.Errorf("assessments: %w", err)
	}

	return &evidence.KeywordResult{
		ID:                id,
		RunID:             record[colRunID],
		Keyword:           record[colKeyword],
		Decision:          decision,
		Justification:     record[colJustification],
		SERPResultsFound:  serpFound,
		RawSearchArtifact: record[colRawHTML],
		Evidence:          ev,
		CreatedAt:         createdAt,
	}, nil
}
