package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FranksOps/catgap/internal/config"
	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/storage"
	"github.com/FranksOps/catgap/internal/storage/csvbackend"
	"github.com/FranksOps/catgap/internal/storage/jsonbackend"
	"github.com/FranksOps/catgap/internal/storage/postgres"
	"github.com/FranksOps/catgap/internal/storage/sqlite"
)

// driverCSV is only a read source: CSV is always written, never selected.
const driverCSV = "csv"

// InferDriver guesses the storage driver of a result source from its file
// extension or URL scheme.
func InferDriver(from string) (string, error) {
	lower := strings.ToLower(from)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return config.DriverPostgres, nil
	}
	switch filepath.Ext(lower) {
	case ".csv":
		return driverCSV, nil
	case ".jsonl", ".ndjson", ".json":
		return config.DriverJSONL, nil
	case ".db", ".sqlite", ".sqlite3":
		return config.DriverSQLite, nil
	}
	return "", fmt.Errorf("cannot infer result format of %q; pass --driver", from)
}

// LoadResults reads stored keyword results from a CSV report, a JSONL file,
// a SQLite database or a Postgres DSN. An empty driver is inferred.
func LoadResults(ctx context.Context, from, driver string, filter storage.Filter) ([]*evidence.KeywordResult, error) {
	if driver == "" {
		var err error
		if driver, err = InferDriver(from); err != nil {
			return nil, err
		}
	}

	switch driver {
	case driverCSV, config.DriverJSONL:
		f, err := os.Open(from)
		if err != nil {
			return nil, fmt.Errorf("open results: %w", err)
		}
		defer f.Close()
		if driver == driverCSV {
			return csvbackend.Read(f, filter)
		}
		return jsonbackend.Read(f, filter)
	case config.DriverSQLite:
		if _, err := os.Stat(from); err != nil {
			return nil, fmt.Errorf("open results: %w", err)
		}
		b, err := sqlite.New(from)
		if err != nil {
			return nil, err
		}
		defer b.Close()
		return b.Query(ctx, filter)
	case config.DriverPostgres:
		b, err := postgres.New(ctx, from)
		if err != nil {
			return nil, err
		}
		defer b.Close()
		return b.Query(ctx, filter)
	default:
		return nil, fmt.Errorf("unknown result driver %q", driver)
	}
}
