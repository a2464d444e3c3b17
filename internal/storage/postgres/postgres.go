// Package postgres stores keyword results in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/storage"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS keyword_results (
	id UUID PRIMARY KEY,
	run_id TEXT NOT NULL,
	keyword TEXT NOT NULL,
	decision TEXT NOT NULL,
	justification TEXT NOT NULL,
	serp_results_found BOOLEAN NOT NULL,
	serp_raw_html_url TEXT NOT NULL,
	best_listing_relevance TEXT NOT NULL,
	related_detail_found BOOLEAN NOT NULL,
	evidence JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS keyword_results_run_idx ON keyword_results (run_id, created_at);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	_, err = pool.Exec(ctx, schema)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, result *evidence.KeywordResult) error {
	evidenceJSON, err := json.Marshal(result.Evidence)
	if err != nil {
		return fmt.Errorf("encode evidence for %q: %w", result.Keyword, err)
	}

	query := `
	INSERT INTO keyword_results (
		id, run_id, keyword, decision, justification, serp_results_found, serp_raw_html_url,
		best_listing_relevance, related_detail_found, evidence, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = b.pool.Exec(ctx, query,
		result.ID.String(),
		result.RunID,
		result.Keyword,
		string(result.Decision),
		result.Justification,
		result.SERPResultsFound,
		result.RawSearchArtifact,
		result.Evidence.BestListingLabel(),
		result.Evidence.RelatedDetailFound,
		evidenceJSON,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert %q: %w", result.Keyword, err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*evidence.KeywordResult, error) {
	query := `SELECT id::text, run_id, keyword, decision, justification, serp_results_found, serp_raw_html_url, evidence, created_at FROM keyword_results WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.Keyword != "" {
		query += fmt.Sprintf(` AND keyword = $%d`, paramCount)
		args = append(args, filter.Keyword)
		paramCount++
	}
	if filter.Decision != "" {
		query += fmt.Sprintf(` AND decision = $%d`, paramCount)
		args = append(args, string(filter.Decision))
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keyword results: %w", err)
	}
	defer rows.Close()

	var results []*evidence.KeywordResult
	for rows.Next() {
		var r evidence.KeywordResult
		var id, decision string
		var evidenceJSON []byte

		err := rows.Scan(
			&id, &r.RunID, &r.Keyword, &decision, &r.Justification,
			&r.SERPResultsFound, &r.RawSearchArtifact, &evidenceJSON, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan keyword result: %w", err)
		}

		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("keyword result id: %w", err)
		}
		r.Decision = evidence.Decision(decision)
		if err := json.Unmarshal(evidenceJSON, &r.Evidence); err != nil {
			return nil, fmt.Errorf("decode evidence for %q: %w", r.Keyword, err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword results: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
