package main

import (
	"bufio"
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/geoquery/keywords"
)

func TestExtractAll(t *testing.T) {
	tables, err := loadTables("")
	if err != nil {
		t.Fatal(err)
	}

	in := strings.NewReader("A study on heart attack and cancer treatment.\nnothing here\n")
	var out bytes.Buffer
	if err := extractAll(in, &out, keywords.New(tables)); err != nil {
		t.Fatal(err)
	}

	want := "[\"myocardial infarction\",\"neoplasm\"]\n[]\n"
	if out.String() != want {
		t.Errorf("Got %q, want %q", out.String(), want)
	}
}

func TestRunSentences(t *testing.T) {
	var out bytes.Buffer
	if err := run("", []string{"Tumour of the lung", "high blood pressure"}, strings.NewReader("ignored\n"), &out); err != nil {
		t.Fatal(err)
	}

	want := "[\"neoplasm\"]\n[\"hypertension\"]\n"
	if out.String() != want {
		t.Errorf("Got %q, want %q", out.String(), want)
	}
}

func TestRunMissingTables(t *testing.T) {
	var out bytes.Buffer
	if err := run(filepath.Join(t.TempDir(), "missing.yaml"), []string{"cancer"}, nil, &out); err == nil {
		t.Error("Expected an error for a missing tables file")
	}
}

type failingWriter struct{}

func (failingWriter) Write(b []byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestFlushAfterError(t *testing.T) {
	var out bytes.Buffer
	bw := bufio.NewWriterSize(&out, 4096)

	// The first sentence succeeds, then reading stdin fails
	runErr := run("", nil, &erroringReader{data: "heart attack\n"}, bw)
	if runErr == nil {
		t.Fatal("Expected the read error")
	}
	if err := flushAfter(bw, runErr); err != runErr {
		t.Errorf("Expected the run error to be kept, got %v", err)
	}
	if out.String() != "[\"myocardial infarction\"]\n" {
		t.Errorf("Buffered output was lost: %q", out.String())
	}

	// With no earlier error, a failing flush is reported
	bw = bufio.NewWriter(failingWriter{})
	bw.WriteString("[]\n")
	if err := flushAfter(bw, nil); err == nil {
		t.Error("Expected the flush error")
	}
}

// erroringReader returns data and then a non-EOF error
type erroringReader struct {
	data string
	done bool
}

func (r *erroringReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("stdin closed unexpectedly")
	}
	r.done = true

	return copy(p, r.data), nil
}
