package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/geoquery"
	"github.com/google/go-cmp/cmp"
)

var testRecords = []geoquery.ResultRecord{
	geoquery.NewResultRecord("asthma", geoquery.AccessionList{"GSE1", "GSE2"}, geoquery.ClassificationPair{Parent: "Respiratory", Root: "Disease"}),
	geoquery.NewResultRecord("gout & arthritis", nil, geoquery.ClassificationPair{}),
	geoquery.NewResultRecord("diabetes, type 2", geoquery.AccessionList{"GSE3"}, geoquery.ClassificationPair{Parent: "Metabolic", Root: "Endocrine"}),
}

func TestJSONArrayRewrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	s := NewJSONArray(path)

	if err := s.Checkpoint(nil); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(b)) != "[]" {
		t.Errorf("Expected an empty array, got %q", b)
	}

	for i := 1; i <= len(testRecords); i++ {
		if err := s.Checkpoint(testRecords[:i]); err != nil {
			t.Fatal(err)
		}
	}

	b, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var got []geoquery.ResultRecord
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Output is not valid JSON: %v\n%s", err, b)
	}
	if diff := cmp.Diff(testRecords, got); diff != "" {
		t.Errorf("Records (-want +got):\n%s", diff)
	}

	// Field order and names are part of the format
	text := string(b)
	term, ids, parent, root := strings.Index(text, `"term"`), strings.Index(text, `"GEO_IDs"`), strings.Index(text, `"parent"`), strings.Index(text, `"root"`)
	if !(term < ids && ids < parent && parent < root) {
		t.Errorf("Fields are out of order:\n%s", text)
	}
	if !strings.Contains(text, `"GEO_IDs": []`) {
		t.Errorf("Empty accession list should render as []:\n%s", text)
	}
	if !strings.Contains(text, "gout & arthritis") {
		t.Errorf("Terms should not be HTML-escaped:\n%s", text)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".out.json.tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("Temporary files were left behind: %v", leftovers)
	}
}

// parseLoose turns the loose append format into strict JSON for inspection.
func parseLoose(t *testing.T, b []byte) []geoquery.ResultRecord {
	t.Helper()

	text := strings.TrimSpace(string(b))
	text = strings.TrimSuffix(text, "]")
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ",")
	text += "]"

	var out []geoquery.ResultRecord
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("Could not parse loose output: %v\n%s", err, b)
	}

	return out
}

func TestLooseAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	s, err := NewLooseAppend(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Checkpoint(testRecords[:2]); err != nil {
		t.Fatal(err)
	}
	if err := s.Checkpoint(testRecords[:2]); err != nil {
		t.Fatal(err)
	}

	// Before Close the file holds exactly what was checkpointed, without "]"
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasSuffix(string(b), "]\n") {
		t.Errorf("Closing bracket written too early:\n%s", b)
	}
	if diff := cmp.Diff(testRecords[:2], parseLoose(t, b)); diff != "" {
		t.Errorf("After first checkpoints (-want +got):\n%s", diff)
	}

	if err := s.Checkpoint(testRecords); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	b, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "[\n") || !strings.HasSuffix(string(b), ",\n]\n") {
		t.Errorf("Unexpected framing:\n%s", b)
	}
	if diff := cmp.Diff(testRecords, parseLoose(t, b)); diff != "" {
		t.Errorf("Final records (-want +got):\n%s", diff)
	}

	if err := s.Checkpoint(testRecords[:1]); err == nil {
		t.Error("Expected an error when records shrink")
	}
}

func TestCSV(t *testing.T) {
	for _, v := range []struct {
		name  string
		comma rune
	}{
		{"out.csv", ','},
		{"out.tsv", '\t'},
	} {
		path := filepath.Join(t.TempDir(), v.name)

		s, err := Open(context.Background(), path, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := s.(*CSV); !ok {
			t.Fatalf("%s: expected a CSV sink, got %T", v.name, s)
		}

		if err := s.Checkpoint(testRecords); err != nil {
			t.Fatal(err)
		}

		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		cr := csv.NewReader(f)
		cr.Comma = v.comma
		rows, err := cr.ReadAll()
		f.Close()
		if err != nil {
			t.Fatal(err)
		}

		want := [][]string{
			{"term", "GEO_IDs", "parent", "root"},
			{"asthma", "GSE1;GSE2", "Respiratory", "Disease"},
			{"gout & arthritis", "", "", ""},
			{"diabetes, type 2", "GSE3", "Metabolic", "Endocrine"},
		}
		if diff := cmp.Diff(want, rows); diff != "" {
			t.Errorf("%s (-want +got):\n%s", v.name, diff)
		}
	}
}

func TestOpenDispatch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, filepath.Join(dir, "a.json"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*JSONArray); !ok {
		t.Errorf("Expected JSONArray, got %T", s)
	}

	s, err = Open(ctx, filepath.Join(dir, "b.json"), Options{Append: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*LooseAppend); !ok {
		t.Errorf("Expected LooseAppend, got %T", s)
	}
	s.Close()

	for _, output := range []string{"gs://bucket/out.json", "bq://project.dataset.table"} {
		if _, err := Open(ctx, output, Options{}); err == nil {
			t.Errorf("%s: expected an error without a client", output)
		}
	}
}

func TestParseBigQueryTarget(t *testing.T) {
	for _, v := range []struct {
		in                      string
		project, dataset, table string
		ok                      bool
	}{
		{"bq://my-project.geo.results", "my-project", "geo", "results", true},
		{"bq://geo.results", "", "", "", false},
		{"bq://a..c", "", "", "", false},
		{"results.json", "", "", "", false},
	} {
		p, d, tb, ok := ParseBigQueryTarget(v.in)
		if p != v.project || d != v.dataset || tb != v.table || ok != v.ok {
			t.Errorf("ParseBigQueryTarget(%q) = %q, %q, %q, %v", v.in, p, d, tb, ok)
		}
	}
}

func TestBigQuerySavers(t *testing.T) {
	savers := BigQuerySavers("run1", testRecords, 1)
	if len(savers) != 2 {
		t.Fatalf("Expected 2 savers, got %d", len(savers))
	}

	if savers[0].InsertID != "run1-1" || savers[1].InsertID != "run1-2" {
		t.Errorf("Unexpected insert IDs: %q, %q", savers[0].InsertID, savers[1].InsertID)
	}

	row := savers[1].Struct.(BigQueryRow)
	if row.Term != "diabetes, type 2" || len(row.GEOIDs) != 1 || row.Root != "Endocrine" {
		t.Errorf("Unexpected row: %+v", row)
	}
}
