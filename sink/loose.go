package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/carbocation/geoquery"
	"github.com/carbocation/pfx"
)

// LooseAppend writes records as a comma-trailing pseudo-array:
//
//	[
//	{"term":...},
//	{"term":...},
//	]
//
// Only records that are new since the previous checkpoint are appended, and
// the file is synced afterwards. The closing bracket is written by Close, so
// an interrupted run leaves every checkpointed record intact but no "]". The
// output is not strict JSON.
type LooseAppend struct {
	Path string

	f       *os.File
	written int
	offset  int64
}

// NewLooseAppend truncates path and writes the opening bracket.
func NewLooseAppend(path string) (*LooseAppend, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, pfx.Err(err)
	}

	l := &LooseAppend{Path: path, f: f}
	if err := l.write([]byte("[\n")); err != nil {
		f.Close()
		return nil, err
	}

	return l, nil
}

func (l *LooseAppend) Checkpoint(records []geoquery.ResultRecord) error {
	if len(records) < l.written {
		return fmt.Errorf("%s: received %d records but %d were already written", l.Path, len(records), l.written)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, record := range records[l.written:] {
		if err := enc.Encode(record); err != nil {
			return pfx.Err(err)
		}

		// Encode terminates with a newline; slip the comma in before it
		buf.Truncate(buf.Len() - 1)
		buf.WriteString(",\n")
	}

	if err := l.write(buf.Bytes()); err != nil {
		return err
	}
	l.written = len(records)

	return nil
}

// write appends b and syncs. On failure the file is cut back to its previous
// length so a checkpoint is either fully present or absent.
func (l *LooseAppend) write(b []byte) error {
	n, err := l.f.Write(b)
	if err == nil {
		err = l.f.Sync()
	}
	if err != nil {
		l.f.Truncate(l.offset)
		l.f.Seek(l.offset, 0)
		return pfx.Err(err)
	}

	l.offset += int64(n)

	return nil
}

func (l *LooseAppend) Close() error {
	if err := l.write([]byte("]\n")); err != nil {
		l.f.Close()
		return err
	}

	return pfx.Err(l.f.Close())
}
