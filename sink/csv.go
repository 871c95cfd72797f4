package sink

import (
	"encoding/csv"
	"io"

	"github.com/carbocation/geoquery"
	"github.com/gocarina/gocsv"
)

// AccessionSeparator joins accessions inside a single delimited column.
const AccessionSeparator = ";"

type csvRow struct {
	Term   string `csv:"term"`
	GEOIDs string `csv:"GEO_IDs"`
	Parent string `csv:"parent"`
	Root   string `csv:"root"`
}

// CSV rewrites a delimited table of every record at each checkpoint.
type CSV struct {
	Path  string
	Comma rune
}

func NewCSV(path string, comma rune) *CSV {
	return &CSV{Path: path, Comma: comma}
}

func (c *CSV) Checkpoint(records []geoquery.ResultRecord) error {
	rows := make([]*csvRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, &csvRow{
			Term:   record.Term,
			GEOIDs: record.Accessions.Join(AccessionSeparator),
			Parent: record.Parent,
			Root:   record.Root,
		})
	}

	return writeFileAtomic(c.Path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		cw.Comma = c.Comma
		return gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(cw))
	})
}

func (c *CSV) Close() error {
	return nil
}
