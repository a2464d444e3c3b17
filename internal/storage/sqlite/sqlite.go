// Package sqlite stores keyword results in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS keyword_results (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	keyword TEXT NOT NULL,
	decision TEXT NOT NULL,
	justification TEXT NOT NULL,
	serp_results_found BOOLEAN NOT NULL,
	serp_raw_html_url TEXT NOT NULL,
	best_listing_relevance TEXT NOT NULL,
	related_detail_found BOOLEAN NOT NULL,
	evidence TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS keyword_results_run_idx ON keyword_results (run_id, created_at);
`

const columns = `id, run_id, keyword, decision, justification, serp_results_found, serp_raw_html_url, evidence, created_at`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, result *evidence.KeywordResult) error {
	evidenceJSON, err := json.Marshal(result.Evidence)
	if err != nil {
		return fmt.Errorf("encode evidence for %q: %w", result.Keyword, err)
	}

	query := `
	INSERT INTO keyword_results (
		id, run_id, keyword, decision, justification, serp_results_found, serp_raw_html_url,
		best_listing_relevance, related_detail_found, evidence, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		result.ID.String(),
		result.RunID,
		result.Keyword,
		string(result.Decision),
		result.Justification,
		result.SERPResultsFound,
		result.RawSearchArtifact,
		result.Evidence.BestListingLabel(),
		result.Evidence.RelatedDetailFound,
		string(evidenceJSON),
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert %q: %w", result.Keyword, err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*evidence.KeywordResult, error) {
	query := `SELECT ` + columns + ` FROM keyword_results WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Keyword != "" {
		query += ` AND keyword = ?`
		args = append(args, filter.Keyword)
	}
	if filter.Decision != "" {
		query += ` AND decision = ?`
		args = append(args, string(filter.Decision))
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC, rowid DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keyword results: %w", err)
	}
	defer rows.Close()

	var results []*evidence.KeywordResult
	for rows.Next() {
		var r evidence.KeywordResult
		var id, decision, evidenceJSON string

		err := rows.Scan(
			&id, &r.RunID, &r.Keyword, &decision, &r.Justification,
			&r.SERPResultsFound, &r.RawSearchArtifact, &evidenceJSON, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan keyword result: %w", err)
		}

		if err := r.ID.UnmarshalText([]byte(id)); err != nil {
			return nil, fmt.Errorf("keyword result id: %w", err)
		}
		r.Decision = evidence.Decision(decision)
		if err := json.Unmarshal([]byte(evidenceJSON), &r.Evidence); err != nil {
			return nil, fmt.Errorf("decode evidence for %q: %w", r.Keyword, err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword results: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
