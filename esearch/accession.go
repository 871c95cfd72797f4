package esearch

import (
	"strings"

	"github.com/carbocation/geoquery"
)

// GEO DataSets UIDs for series records are the series number prefixed with
// 200, e.g. 200012345 is GSE12345.
const (
	seriesUIDPrefix = "200"
	seriesAccession = "GSE"
)

// Policy decides what happens to UIDs that do not carry the series prefix.
type Policy int

const (
	// Permissive keeps every UID, prefixing non-series UIDs with GSE as-is.
	Permissive Policy = iota

	// Strict discards UIDs that do not begin with the series prefix.
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}

	return "permissive"
}

// ToAccession converts one GEO DataSets UID into a GSE accession. A series UID
// is the prefix followed by at least one digit; a bare "200" is not one. ok is
// false when the policy drops the UID.
func ToAccession(uid string, policy Policy) (accession string, ok bool) {
	if series := strings.TrimPrefix(uid, seriesUIDPrefix); series != uid && isDigits(series) {
		return seriesAccession + series, true
	}

	if policy == Strict {
		return "", false
	}

	return seriesAccession + uid, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// ToAccessions converts uids in order. No deduplication is done.
func ToAccessions(uids []string, policy Policy) geoquery.AccessionList {
	out := make(geoquery.AccessionList, 0, len(uids))
	for _, uid := range uids {
		if accession, ok := ToAccession(uid, policy); ok {
			out = append(out, accession)
		}
	}

	return out
}
