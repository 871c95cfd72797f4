// geoaccessions resolves every disease term in a table to GEO series
// accessions using NCBI ESearch, attaches each term's parent and root
// classification from the same table, and writes one record per term,
// checkpointing the output every -flush terms.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/carbocation/geoquery"
	"github.com/carbocation/geoquery/batch"
	"github.com/carbocation/geoquery/compileinfo"
	"github.com/carbocation/geoquery/esearch"
	"github.com/carbocation/geoquery/sink"
	"github.com/carbocation/geoquery/termtable"
	"github.com/carbocation/pfx"
	"google.golang.org/api/option"
)

func main() {
	compileinfo.Log("geoaccessions")

	var configPath string
	cfg := geoquery.DefaultConfig()

	flag.StringVar(&configPath, "config", "", "Optional JSON file with any of the settings below. Flags given on the command line take precedence.")
	flag.StringVar(&cfg.Input, "input", "", "Path to the term table (term, parent, root columns; header row required). May be gzip/bzip2/xz/zip compressed and/or a google storage URL (gs://)")
	flag.StringVar(&cfg.Output, "output", cfg.Output, "Output path. *.json (default), *.csv, *.tsv, *.sqlite/*.db, gs://bucket/object.json, or bq://project.dataset.table")
	flag.StringVar(&cfg.Delimiter, "delimiter", cfg.Delimiter, "Input delimiter: a single character, 'tab', or 'auto' to detect it from the table")
	flag.IntVar(&cfg.FlushEvery, "flush", cfg.FlushEvery, "Checkpoint the output after this many terms")
	flag.BoolVar(&cfg.Strict, "strict", false, "Only keep identifiers that are GEO series (200 prefix). Otherwise every identifier is prefixed with GSE")
	flag.BoolVar(&cfg.SeriesOnly, "series-only", false, "Ask ESearch for series records only (appends AND gse[ETYP] to each query)")
	flag.BoolVar(&cfg.Append, "append", false, "For JSON output, append each checkpoint to a comma-trailing pseudo-array instead of rewriting a JSON array")
	flag.BoolVar(&cfg.Dedupe, "dedupe", false, "Process each distinct term (case-insensitive) only once")
	flag.BoolVar(&cfg.Memoize, "memoize", false, "Remember lookups so repeated terms cost a single request")
	flag.BoolVar(&cfg.Rescan, "rescan", false, "Re-read the table for every classification lookup instead of indexing it once")
	flag.StringVar(&cfg.BaseURL, "base-url", esearch.DefaultBaseURL, "ESearch endpoint")
	flag.DurationVar(&cfg.Timeout.Duration, "timeout", 0, "Per-request timeout, e.g. 30s. 0 leaves it to the HTTP transport")
	flag.StringVar(&cfg.Credentials, "credentials", "", "Optional Google service account JSON for gs:// and bq:// paths")
	flag.Parse()

	if configPath != "" {
		fileCfg, err := geoquery.ParseJSONConfigFromPath(configPath)
		if err != nil {
			log.Fatalln(err)
		}

		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		cfg = mergeConfig(fileCfg, cfg, explicit)
	}

	if cfg.Input == "" {
		flag.Usage()
		log.Fatalln("Must specify an --input table")
	}

	if err := run(cfg); err != nil {
		log.Fatalln(err)
	}
}

// mergeConfig overlays the flags the user actually set onto base.
func mergeConfig(base, flags geoquery.Config, explicit map[string]bool) geoquery.Config {
	out := base
	if base.BaseURL == "" {
		out.BaseURL = flags.BaseURL
	}

	for name := range explicit {
		switch name {
		case "input":
			out.Input = flags.Input
		case "output":
			out.Output = flags.Output
		case "delimiter":
			out.Delimiter = flags.Delimiter
		case "flush":
			out.FlushEvery = flags.FlushEvery
		case "strict":
			out.Strict = flags.Strict
		case "series-only":
			out.SeriesOnly = flags.SeriesOnly
		case "append":
			out.Append = flags.Append
		case "dedupe":
			out.Dedupe = flags.Dedupe
		case "memoize":
			out.Memoize = flags.Memoize
		case "rescan":
			out.Rescan = flags.Rescan
		case "base-url":
			out.BaseURL = flags.BaseURL
		case "timeout":
			out.Timeout = flags.Timeout
		case "credentials":
			out.Credentials = flags.Credentials
		}
	}

	return out
}

func run(cfg geoquery.Config) error {
	log.Println("Started running at", time.Now())
	defer func() {
		log.Println("Completed at", time.Now())
	}()

	comma, err := geoquery.ParseDelimiter(cfg.Delimiter)
	if err != nil {
		return err
	}

	// Clients and sinks use a context that survives an interrupt, so that the
	// final checkpoint can still be written.
	bg := context.Background()
	runCtx, stop := signal.NotifyContext(bg, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var clientOpts []option.ClientOption
	if cfg.Credentials != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.Credentials))
	}

	var storageClient *storage.Client
	if sink.NeedsStorage(cfg.Input) || sink.NeedsStorage(cfg.Output) {
		storageClient, err = storage.NewClient(bg, clientOpts...)
		if err != nil {
			return pfx.Err(err)
		}
		defer storageClient.Close()
	}

	var bqClient *bigquery.Client
	if project, _, _, ok := sink.ParseBigQueryTarget(cfg.Output); ok {
		bqClient, err = bigquery.NewClient(bg, project, clientOpts...)
		if err != nil {
			return pfx.Err(err)
		}
		defer bqClient.Close()
	}

	terms, err := termtable.ReadTerms(bg, cfg.Input, storageClient, comma)
	if err != nil {
		return err
	}
	log.Printf("Read %d terms from %s\n", len(terms), cfg.Input)

	var correlator batch.Correlator
	if cfg.Rescan {
		correlator = termtable.Scanner{Context: bg, Path: cfg.Input, Client: storageClient, Comma: comma}
	} else {
		idx, err := termtable.BuildIndex(bg, cfg.Input, storageClient, comma)
		if err != nil {
			return err
		}
		log.Printf("Indexed classifications for %d distinct terms\n", idx.Len())
		correlator = idx
	}

	client := esearch.NewClient(cfg.Timeout.Duration)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	client.SeriesOnly = cfg.SeriesOnly
	if cfg.Strict {
		client.Policy = esearch.Strict
	}
	log.Printf("Resolving with %s policy (series-only queries: %v)\n", client.Policy, client.SeriesOnly)

	var resolver batch.Resolver = client
	if cfg.Memoize {
		resolver = esearch.Memoize(runCtx, client)
	}

	out, err := sink.Open(bg, cfg.Output, sink.Options{
		Append:         cfg.Append,
		StorageClient:  storageClient,
		BigQueryClient: bqClient,
		RunID:          time.Now().UTC().Format("20060102T150405.000000000"),
	})
	if err != nil {
		return err
	}

	agg := &batch.Aggregator{
		Resolver:   resolver,
		Correlator: correlator,
		Sink:       out,
		FlushEvery: cfg.FlushEvery,
		Dedupe:     cfg.Dedupe,
	}

	res, runErr := agg.Run(runCtx, terms)
	if err := out.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return fmt.Errorf("run stopped with %d records saved to %s: %w", len(res.Records), cfg.Output, runErr)
	}

	log.Printf("Successfully saved %d results to %s (%d terms skipped)\n", len(res.Records), cfg.Output, len(res.Skipped))

	return nil
}
