package geoquery

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/csimplestring/go-csv/detector"
)

// DetectDelimiter returns the single most likely rune delimiting the values in
// sample, assuming a CSV-like table whose fields may be enclosed in double
// quotes. fallback is returned when nothing can be determined.
func DetectDelimiter(sample []byte, fallback rune) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(bytes.NewReader(sample), '"')

	if len(delimiters) > 0 && delimiters[0] != "" {
		r, _ := utf8.DecodeRuneInString(delimiters[0])
		return r
	}

	return fallback
}

// ParseDelimiter interprets a delimiter as given on the command line. "" and
// "auto" yield 0, meaning "detect from the table"; "tab" and `\t` yield a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "", "auto":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	}

	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character, 'tab' or 'auto'", s)
	}

	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
