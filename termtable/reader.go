// Package termtable reads the disease term table: a delimited file whose first
// line is a header and whose first three columns are the term, its parent
// label and its root label. Quoted fields may contain the delimiter.
package termtable

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/geoquery"
)

// Map columns in the term table to their positions
const (
	TermCol int = iota
	ParentCol
	RootCol
)

const (
	// Bytes examined when auto-detecting the delimiter
	sniffSize = 16 * 1024

	maxLineSize = 1024 * 1024
)

// ErrIO is wrapped by every error caused by the table being unreadable.
var ErrIO = errors.New("term table unreadable")

// Reader yields one record per non-header line. It does not validate the
// number of columns.
type Reader struct {
	Comma rune

	scanner    *bufio.Scanner
	closer     io.Closer
	headerDone bool
	line       int
}

// NewReader reads records from r. If comma is 0 the delimiter is detected from
// the head of the stream, falling back to ','.
func NewReader(r io.Reader, comma rune) *Reader {
	br := bufio.NewReaderSize(r, sniffSize)
	if comma == 0 {
		sample, _ := br.Peek(sniffSize)
		comma = geoquery.DetectDelimiter(sample, ',')
	}

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &Reader{
		Comma:   comma,
		scanner: scanner,
	}
}

// Open opens the table at path (local, gs:// and/or compressed; see
// geoquery.OpenTable). The caller must Close the Reader.
func Open(ctx context.Context, path string, client *storage.Client, comma rune) (*Reader, error) {
	rc, err := geoquery.OpenTable(ctx, path, client)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIO, path, err)
	}

	rdr := NewReader(rc, comma)
	rdr.closer = rc

	return rdr, nil
}

// Read returns the next record, or io.EOF once the table is exhausted. The
// header line is consumed silently on the first call.
func (r *Reader) Read() ([]string, error) {
	for r.scanner.Scan() {
		r.line++
		if !r.headerDone {
			r.headerDone = true
			continue
		}

		return SplitLine(r.scanner.Text(), r.Comma), nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", ErrIO, r.line+1, err)
	}

	return nil, io.EOF
}

// Line is the 1-based line number of the most recently read record.
func (r *Reader) Line() int {
	return r.line
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}

	return r.closer.Close()
}

// SplitLine splits one line of the table on comma. A double quote toggles
// whether we are inside a quoted field; quotes are not copied into the output
// and the delimiter only splits outside of them. Fields are trimmed.
func SplitLine(line string, comma rune) []string {
	line = strings.TrimSuffix(line, "\r")

	fields := make([]string, 0, 4)
	var current strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == comma && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}

	return append(fields, strings.TrimSpace(current.String()))
}

// ReadTerms returns column 0 of every record, in file order. Blank terms are
// dropped; duplicates are kept.
func ReadTerms(ctx context.Context, path string, client *storage.Client, comma rune) ([]string, error) {
	rdr, err := Open(ctx, path, client, comma)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	terms := make([]string, 0)
	for {
		row, err := rdr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		if term := row[TermCol]; term != "" {
			terms = append(terms, term)
		}
	}

	return terms, nil
}
