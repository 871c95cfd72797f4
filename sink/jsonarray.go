package sink

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/carbocation/geoquery"
	"github.com/carbocation/pfx"
)

// JSONArray rewrites a well-formed JSON array of every record at each
// checkpoint. The file is replaced by rename, so readers only ever see a
// complete checkpoint.
type JSONArray struct {
	Path string
}

func NewJSONArray(path string) *JSONArray {
	return &JSONArray{Path: path}
}

func (j *JSONArray) Checkpoint(records []geoquery.ResultRecord) error {
	return writeFileAtomic(j.Path, func(w io.Writer) error {
		return encodeJSONArray(w, records)
	})
}

func (j *JSONArray) Close() error {
	return nil
}

func encodeJSONArray(w io.Writer, records []geoquery.ResultRecord) error {
	if records == nil {
		records = []geoquery.ResultRecord{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	return enc.Encode(records)
}

// writeFileAtomic writes to a temporary file next to path and renames it into
// place once fully written and synced.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return pfx.Err(err)
	}

	// Only removes anything if we bail out before the rename
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return pfx.Err(err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return pfx.Err(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return pfx.Err(err)
	}
	if err := tmp.Close(); err != nil {
		return pfx.Err(err)
	}

	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return pfx.Err(err)
	}

	return pfx.Err(os.Rename(tmp.Name(), path))
}
