// Package geoquery holds the types shared by the GEO accession pipeline: the
// per-term result record, its accession list and the classification pair
// pulled from the input table, along with helpers to open input tables that
// may be local, compressed, or stored on Google Storage.
package geoquery

import "strings"

// AccessionList is the ordered set of GEO series accessions (GSE...) found
// for one term. Duplicates from the remote service are kept as-is.
type AccessionList []string

// Join renders the list with sep, e.g. for delimited output formats.
func (a AccessionList) Join(sep string) string {
	return strings.Join(a, sep)
}

// ClassificationPair is the (parent, root) classification stored in columns 1
// and 2 of the input table. The zero value means "no matching row".
type ClassificationPair struct {
	Parent string
	Root   string
}

// ResultRecord is one output row. Field order in JSON is fixed: term,
// GEO_IDs, parent, root.
type ResultRecord struct {
	Term       string        `json:"term"`
	Accessions AccessionList `json:"GEO_IDs"`
	Parent     string        `json:"parent"`
	Root       string        `json:"root"`
}

// NewResultRecord builds a record. A nil accession list is replaced by an
// empty one so that it renders as [] rather than null.
func NewResultRecord(term string, accessions AccessionList, class ClassificationPair) ResultRecord {
	if accessions == nil {
		accessions = AccessionList{}
	}

	return ResultRecord{
		Term:       term,
		Accessions: accessions,
		Parent:     class.Parent,
		Root:       class.Root,
	}
}

// NormalizeTerm is the key used to compare terms: trimmed and lower-cased.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
