// Package sink persists batch results. Every sink receives the full,
// append-only record set at each checkpoint; whole-file sinks rewrite their
// output atomically while appending sinks write only what is new.
package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/carbocation/geoquery"
)

type Sink interface {
	Checkpoint(records []geoquery.ResultRecord) error
	Close() error
}

// Options carries the clients that remote sinks need. They may be nil when
// the output is local.
type Options struct {
	// Append selects the loose, append-only JSON format for local JSON output.
	Append bool

	StorageClient  *storage.Client
	BigQueryClient *bigquery.Client

	// RunID seeds BigQuery insert IDs so that retried inserts are dropped.
	RunID string
}

// Open picks a sink from the shape of output:
//
//	bq://project.dataset.table  BigQuery streaming inserts
//	gs://bucket/object          JSON array rewritten on Google Storage
//	*.csv, *.tsv                delimited text via gocsv
//	*.sqlite, *.sqlite3, *.db   SQLite
//	anything else               JSON array (or loose append with opts.Append)
func Open(ctx context.Context, output string, opts Options) (Sink, error) {
	if _, _, _, ok := ParseBigQueryTarget(output); ok {
		if opts.BigQueryClient == nil {
			return nil, fmt.Errorf("%s: a BigQuery client is required", output)
		}
		return NewBigQuery(ctx, opts.BigQueryClient, output, opts.RunID)
	}

	if strings.HasPrefix(output, "gs://") {
		if opts.Append {
			return nil, fmt.Errorf("%s: append mode is not supported on Google Storage", output)
		}
		if opts.StorageClient == nil {
			return nil, fmt.Errorf("%s: a storage client is required", output)
		}
		return NewGCS(ctx, opts.StorageClient, output)
	}

	output = geoquery.ExpandHome(output)

	switch strings.ToLower(filepath.Ext(output)) {
	case ".csv":
		return NewCSV(output, ','), nil
	case ".tsv":
		return NewCSV(output, '\t'), nil
	case ".sqlite", ".sqlite3", ".db":
		return NewSQLite(output)
	}

	if opts.Append {
		return NewLooseAppend(output)
	}

	return NewJSONArray(output), nil
}

// NeedsStorage reports whether path lives on Google Storage.
func NeedsStorage(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// ParseBigQueryTarget splits bq://project.dataset.table.
func ParseBigQueryTarget(output string) (project, dataset, table string, ok bool) {
	if !strings.HasPrefix(output, "bq://") {
		return "", "", "", false
	}

	parts := strings.Split(strings.TrimPrefix(output, "bq://"), ".")
	if len(parts) != 3 {
		return "", "", "", false
	}
	for _, p := range parts {
		if p == "" {
			return "", "", "", false
		}
	}

	return parts[0], parts[1], parts[2], true
}
