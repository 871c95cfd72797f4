package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/carbocation/geoquery"
	"github.com/google/go-cmp/cmp"
)

func TestRunEndToEnd(t *testing.T) {
	responses := map[string]string{
		"diabetes, type 2": `{"esearchresult":{"idlist":["200001111","200002222"]}}`,
		"Asthma":           `{"esearchresult":{"idlist":["100000009","200003333"]}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Query().Get("term")]
		if !ok {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := filepath.Join(dir, "terms.csv")
	table := "d5,d4,d3\n\"diabetes, type 2\",Diabetes,Endocrine\nAsthma,Respiratory,Disease\ngout,Joint,Disease\n"
	if err := os.WriteFile(input, []byte(table), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := geoquery.DefaultConfig()
	cfg.Input = input
	cfg.Output = filepath.Join(dir, "out.json")
	cfg.Delimiter = ","
	cfg.BaseURL = srv.URL
	cfg.Strict = true
	cfg.FlushEvery = 1

	if err := run(cfg); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	var got []geoquery.ResultRecord
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}

	want := []geoquery.ResultRecord{
		{Term: "diabetes, type 2", Accessions: geoquery.AccessionList{"GSE001111", "GSE002222"}, Parent: "Diabetes", Root: "Endocrine"},
		{Term: "Asthma", Accessions: geoquery.AccessionList{"GSE003333"}, Parent: "Respiratory", Root: "Disease"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Output (-want +got):\n%s", diff)
	}
}

func TestRunMissingInput(t *testing.T) {
	cfg := geoquery.DefaultConfig()
	cfg.Input = filepath.Join(t.TempDir(), "missing.csv")
	cfg.Output = filepath.Join(t.TempDir(), "out.json")

	if err := run(cfg); err == nil {
		t.Error("Expected an unreadable table to be fatal")
	}
}

func TestMergeConfig(t *testing.T) {
	file := geoquery.DefaultConfig()
	file.Input = "from-file.csv"
	file.FlushEvery = 10
	file.Strict = true

	flags := geoquery.DefaultConfig()
	flags.Input = "from-flag.csv"
	flags.FlushEvery = 5
	flags.BaseURL = "http://example.invalid"

	got := mergeConfig(file, flags, map[string]bool{"flush": true})
	if got.Input != "from-file.csv" || got.FlushEvery != 5 || !got.Strict {
		t.Errorf("Unexpected merge result: %+v", got)
	}
	if got.BaseURL != "http://example.invalid" {
		t.Errorf("Base URL should fall back to the flag default, got %q", got.BaseURL)
	}
}
