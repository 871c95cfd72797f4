package keywords

import (
	"bytes"
	_ "embed"
	"os"
	"strings"

	"github.com/carbocation/geoquery"
	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultTables []byte

// Tables are the static data behind a Normalizer.
type Tables struct {
	// Synonyms map a (possibly multi-word) phrase to its canonical term.
	Synonyms map[string]string `yaml:"synonyms"`

	StopWords  []string `yaml:"stop_words"`
	Vocabulary []string `yaml:"vocabulary"`

	// Stem retries tokens that miss the synonym table by their English stem.
	Stem bool `yaml:"stem"`
}

// DefaultTables returns the tables compiled into the binary.
func DefaultTables() (Tables, error) {
	return ParseTables(defaultTables)
}

// LoadTables reads tables from a YAML file.
func LoadTables(path string) (Tables, error) {
	b, err := os.ReadFile(geoquery.ExpandHome(path))
	if err != nil {
		return Tables{}, pfx.Err(err)
	}

	return ParseTables(b)
}

// ParseTables decodes YAML tables. Unknown keys are rejected, and every entry
// is lower-cased and has its whitespace collapsed so that it can be compared
// against tokens.
func ParseTables(b []byte) (Tables, error) {
	var t Tables

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Tables{}, pfx.Err(err)
	}

	synonyms := make(map[string]string, len(t.Synonyms))
	for k, v := range t.Synonyms {
		synonyms[normalizePhrase(k)] = normalizePhrase(v)
	}
	t.Synonyms = synonyms

	for i, v := range t.StopWords {
		t.StopWords[i] = normalizePhrase(v)
	}
	for i, v := range t.Vocabulary {
		t.Vocabulary[i] = normalizePhrase(v)
	}

	return t, nil
}

func normalizePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
