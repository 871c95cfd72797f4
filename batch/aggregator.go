// Package batch drives term resolution across a whole table: one remote
// lookup and one classification lookup per term, with the growing result set
// checkpointed to a sink every FlushEvery terms and once more at the end.
package batch

import (
	"context"
	"fmt"
	"log"

	"github.com/carbocation/geoquery"
	"github.com/carbocation/pfx"
)

// Resolver maps one term to its accessions. Any error means the term is
// skipped.
type Resolver interface {
	Resolve(ctx context.Context, term string) (geoquery.AccessionList, error)
}

// Correlator finds the classification of a term. It never fails; an unknown
// term yields the zero pair.
type Correlator interface {
	Lookup(term string) geoquery.ClassificationPair
}

// Sink persists the accumulated records. Checkpoint always receives every
// record produced so far, in order; sinks that append are expected to track
// how many they have already written. A checkpoint must be all-or-nothing.
type Sink interface {
	Checkpoint(records []geoquery.ResultRecord) error
}

type Aggregator struct {
	Resolver   Resolver
	Correlator Correlator
	Sink       Sink

	// FlushEvery is the number of processed terms between checkpoints. Values
	// below 1 mean geoquery.DefaultFlushEvery.
	FlushEvery int

	// Dedupe drops repeated terms (case-insensitive) before resolution. By
	// default every row of the table is processed, duplicates included.
	Dedupe bool
}

// Result summarizes a run.
type Result struct {
	Records     []geoquery.ResultRecord
	Skipped     []string
	Duplicates  int
	Checkpoints int
}

// Run processes terms strictly in order. A resolver failure is logged and the
// term is left out of the output. If ctx is cancelled, no further terms are
// started, the records gathered so far are checkpointed, and ctx.Err() is
// returned. A failing checkpoint aborts the run.
func (a *Aggregator) Run(ctx context.Context, terms []string) (Result, error) {
	flushEvery := a.FlushEvery
	if flushEvery < 1 {
		flushEvery = geoquery.DefaultFlushEvery
	}

	res := Result{
		Records: make([]geoquery.ResultRecord, 0, len(terms)),
		Skipped: make([]string, 0),
	}

	seen := make(map[string]struct{})
	processed := 0

	var stopErr error
	for i, term := range terms {
		if err := ctx.Err(); err != nil {
			log.Printf("Stopping before term %d of %d: %v\n", i+1, len(terms), err)
			stopErr = err
			break
		}

		if a.Dedupe {
			key := geoquery.NormalizeTerm(term)
			if _, exists := seen[key]; exists {
				res.Duplicates++
				continue
			}
			seen[key] = struct{}{}
		}

		processed++

		if record, ok := a.processTerm(ctx, term); ok {
			res.Records = append(res.Records, record)
		} else {
			res.Skipped = append(res.Skipped, term)
		}

		if processed%flushEvery == 0 {
			if err := a.checkpoint(&res); err != nil {
				return res, err
			}
		}
	}

	// Always checkpoint at the end, even if nothing changed since the last one
	if err := a.checkpoint(&res); err != nil {
		return res, err
	}

	log.Printf("Processed %d terms: %d recorded, %d skipped, %d duplicates dropped, %d checkpoints\n",
		processed, len(res.Records), len(res.Skipped), res.Duplicates, res.Checkpoints)

	return res, stopErr
}

func (a *Aggregator) processTerm(ctx context.Context, term string) (geoquery.ResultRecord, bool) {
	accessions, err := a.Resolver.Resolve(ctx, term)
	if err != nil {
		log.Printf("Skipping term %q: %v\n", term, err)
		return geoquery.ResultRecord{}, false
	}

	log.Printf("Retrieved accessions for term %q: %v\n", term, accessions)

	return geoquery.NewResultRecord(term, accessions, a.Correlator.Lookup(term)), true
}

func (a *Aggregator) checkpoint(res *Result) error {
	if err := a.Sink.Checkpoint(res.Records); err != nil {
		return pfx.Err(fmt.Errorf("checkpoint after %d records: %w", len(res.Records), err))
	}
	res.Checkpoints++

	return nil
}
