package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/carbocation/geoquery"
	"github.com/carbocation/pfx"
	"google.golang.org/api/googleapi"
)

// BigQueryRow is the streamed representation of a record.
type BigQueryRow struct {
	Term   string   `bigquery:"term"`
	GEOIDs []string `bigquery:"GEO_IDs"`
	Parent string   `bigquery:"parent"`
	Root   string   `bigquery:"root"`
}

// BigQuery streams new records into a table, creating it if needed. Each row
// carries an insert ID derived from the run ID and its position, so a retried
// checkpoint does not duplicate rows.
type BigQuery struct {
	Target string
	RunID  string

	ctx      context.Context
	inserter *bigquery.Inserter
	written  int
}

func NewBigQuery(ctx context.Context, client *bigquery.Client, target, runID string) (*BigQuery, error) {
	_, dataset, tableName, ok := ParseBigQueryTarget(target)
	if !ok {
		return nil, fmt.Errorf("%s: expected bq://project.dataset.table", target)
	}

	table := client.Dataset(dataset).Table(tableName)
	if _, err := table.Metadata(ctx); err != nil {
		var apiErr *googleapi.Error
		if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
			return nil, pfx.Err(err)
		}

		schema, err := bigquery.InferSchema(BigQueryRow{})
		if err != nil {
			return nil, pfx.Err(err)
		}
		if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
			return nil, pfx.Err(err)
		}
	}

	return &BigQuery{
		Target:   target,
		RunID:    runID,
		ctx:      ctx,
		inserter: table.Inserter(),
	}, nil
}

// BigQuerySavers converts records[from:] to savers with stable insert IDs.
func BigQuerySavers(runID string, records []geoquery.ResultRecord, from int) []*bigquery.StructSaver {
	savers := make([]*bigquery.StructSaver, 0, len(records)-from)
	for seq := from; seq < len(records); seq++ {
		record := records[seq]
		savers = append(savers, &bigquery.StructSaver{
			InsertID: fmt.Sprintf("%s-%d", runID, seq),
			Struct: BigQueryRow{
				Term:   record.Term,
				GEOIDs: []string(record.Accessions),
				Parent: record.Parent,
				Root:   record.Root,
			},
		})
	}

	return savers
}

func (b *BigQuery) Checkpoint(records []geoquery.ResultRecord) error {
	if len(records) < b.written {
		return fmt.Errorf("%s: received %d records but %d were already written", b.Target, len(records), b.written)
	}
	if len(records) == b.written {
		return nil
	}

	if err := b.inserter.Put(b.ctx, BigQuerySavers(b.RunID, records, b.written)); err != nil {
		return pfx.Err(err)
	}
	b.written = len(records)

	return nil
}

func (b *BigQuery) Close() error {
	return nil
}
