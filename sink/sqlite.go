package sink

import (
	"fmt"

	"github.com/carbocation/geoquery"
	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v3"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`DROP TABLE IF EXISTS accessions`,
	`DROP TABLE IF EXISTS results`,
	`CREATE TABLE results (
		seq INTEGER PRIMARY KEY,
		term TEXT NOT NULL,
		parent TEXT,
		root TEXT
	)`,
	`CREATE TABLE accessions (
		seq INTEGER NOT NULL REFERENCES results(seq),
		position INTEGER NOT NULL,
		accession TEXT NOT NULL,
		PRIMARY KEY (seq, position)
	)`,
}

// ResultRow is how a record is laid out in the results table. An empty parent
// or root is stored as NULL.
type ResultRow struct {
	Seq    int         `db:"seq"`
	Term   string      `db:"term"`
	Parent null.String `db:"parent"`
	Root   null.String `db:"root"`
}

// SQLite stores records in a results table with one accessions row per
// accession. Each checkpoint inserts the new records in a single transaction.
// Opening the database discards results from a previous run.
type SQLite struct {
	Path string

	db      *sqlx.DB
	written int
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, pfx.Err(err)
		}
	}

	return &SQLite{Path: path, db: db}, nil
}

func (s *SQLite) Checkpoint(records []geoquery.ResultRecord) error {
	if len(records) < s.written {
		return fmt.Errorf("%s: received %d records but %d were already written", s.Path, len(records), s.written)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return pfx.Err(err)
	}

	for seq := s.written; seq < len(records); seq++ {
		record := records[seq]
		row := ResultRow{
			Seq:    seq,
			Term:   record.Term,
			Parent: null.NewString(record.Parent, record.Parent != ""),
			Root:   null.NewString(record.Root, record.Root != ""),
		}

		if _, err := tx.NamedExec(`INSERT INTO results (seq, term, parent, root) VALUES (:seq, :term, :parent, :root)`, row); err != nil {
			tx.Rollback()
			return pfx.Err(err)
		}

		for position, accession := range record.Accessions {
			if _, err := tx.Exec(`INSERT INTO accessions (seq, position, accession) VALUES (?, ?, ?)`, seq, position, accession); err != nil {
				tx.Rollback()
				return pfx.Err(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return pfx.Err(err)
	}
	s.written = len(records)

	return nil
}

// DB exposes the underlying handle, e.g. for inspection after a run.
func (s *SQLite) DB() *sqlx.DB {
	return s.db
}

func (s *SQLite) Close() error {
	return pfx.Err(s.db.Close())
}
