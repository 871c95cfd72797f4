// geokeywords prints the controlled-vocabulary keywords found in each input
// sentence, one JSON array per line. Sentences come from the command line
// arguments, or from stdin (one per line) when there are none.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"

	"github.com/carbocation/geoquery/compileinfo"
	"github.com/carbocation/geoquery/keywords"
)

var (
	BufferSize = 4096
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

func main() {
	compileinfo.Log("geokeywords")

	var tablesPath string
	flag.StringVar(&tablesPath, "tables", "", "Optional YAML file with synonyms, stop_words, vocabulary and stem. Defaults to the built-in tables.")
	flag.Parse()

	if err := flushAfter(STDOUT, run(tablesPath, flag.Args(), os.Stdin, STDOUT)); err != nil {
		log.Fatalln(err)
	}
}

// flushAfter flushes w even when err is set, so that keywords extracted
// before a failure are still printed. err takes precedence over a flush error.
func flushAfter(w *bufio.Writer, err error) error {
	if flushErr := w.Flush(); err == nil {
		err = flushErr
	}

	return err
}

// run extracts keywords from sentences, or from the lines of stdin when there
// are no sentences.
func run(tablesPath string, sentences []string, stdin io.Reader, w io.Writer) error {
	tables, err := loadTables(tablesPath)
	if err != nil {
		return err
	}
	n := keywords.New(tables)

	if len(sentences) == 0 {
		return extractAll(stdin, w, n)
	}

	for _, sentence := range sentences {
		if err := emit(w, n, sentence); err != nil {
			return err
		}
	}

	return nil
}

func loadTables(path string) (keywords.Tables, error) {
	if path == "" {
		return keywords.DefaultTables()
	}

	return keywords.LoadTables(path)
}

func extractAll(r io.Reader, w io.Writer, n *keywords.Normalizer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := emit(w, n, scanner.Text()); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func emit(w io.Writer, n *keywords.Normalizer, sentence string) error {
	b, err := json.Marshal(n.Extract(sentence))
	if err != nil {
		return err
	}

	_, err = w.Write(append(b, '\n'))
	return err
}
