package termtable

import (
	"context"
	"io"
	"log"

	"cloud.google.com/go/storage"
	"github.com/carbocation/geoquery"
)

// Lookup scans the table at path for the first row whose term matches term
// (case-insensitive, trimmed) and returns its parent and root labels. The table
// is re-opened on every call. Rows with fewer than three columns never match,
// and any failure yields the zero ClassificationPair.
func Lookup(ctx context.Context, path string, client *storage.Client, comma rune, term string) geoquery.ClassificationPair {
	rdr, err := Open(ctx, path, client, comma)
	if err != nil {
		log.Println("Classification lookup for", term, "failed:", err)
		return geoquery.ClassificationPair{}
	}
	defer rdr.Close()

	want := geoquery.NormalizeTerm(term)
	for {
		row, err := rdr.Read()
		if err != nil {
			if err != io.EOF {
				log.Println("Classification lookup for", term, "failed:", err)
			}
			return geoquery.ClassificationPair{}
		}

		if class, ok := classification(row); ok && geoquery.NormalizeTerm(row[TermCol]) == want {
			return class
		}
	}
}

func classification(row []string) (geoquery.ClassificationPair, bool) {
	if len(row) <= RootCol {
		return geoquery.ClassificationPair{}, false
	}

	return geoquery.ClassificationPair{Parent: row[ParentCol], Root: row[RootCol]}, true
}

// Index maps normalized terms to their classification. It is built once per
// run and answers lookups exactly as Lookup would: first matching row wins.
type Index struct {
	m map[string]geoquery.ClassificationPair
}

// BuildIndex reads the whole table once.
func BuildIndex(ctx context.Context, path string, client *storage.Client, comma rune) (*Index, error) {
	rdr, err := Open(ctx, path, client, comma)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	return NewIndex(rdr)
}

// NewIndex consumes rdr until io.EOF.
func NewIndex(rdr *Reader) (*Index, error) {
	idx := &Index{m: make(map[string]geoquery.ClassificationPair)}

	for {
		row, err := rdr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		class, ok := classification(row)
		if !ok {
			continue
		}

		key := geoquery.NormalizeTerm(row[TermCol])
		if _, exists := idx.m[key]; exists {
			continue
		}
		idx.m[key] = class
	}

	return idx, nil
}

func (idx *Index) Lookup(term string) geoquery.ClassificationPair {
	return idx.m[geoquery.NormalizeTerm(term)]
}

func (idx *Index) Len() int {
	return len(idx.m)
}

// Scanner adapts the re-scanning Lookup to the same interface as Index.
type Scanner struct {
	Context context.Context
	Path    string
	Client  *storage.Client
	Comma   rune
}

func (s Scanner) Lookup(term string) geoquery.ClassificationPair {
	ctx := s.Context
	if ctx == nil {
		ctx = context.Background()
	}

	return Lookup(ctx, s.Path, s.Client, s.Comma, term)
}
