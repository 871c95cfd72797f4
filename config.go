package geoquery

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/carbocation/pfx"
)

const (
	DefaultOutput     = "combined_geo_results.json"
	DefaultFlushEvery = 100
)

// Config holds every knob of a batch run. It can be populated from a JSON file
// and then overridden by command line flags.
type Config struct {
	ConfigPath string `json:"-"`

	Input       string   `json:"input"`
	Output      string   `json:"output"`
	Delimiter   string   `json:"delimiter"`
	FlushEvery  int      `json:"flush_every"`
	Strict      bool     `json:"strict"`
	SeriesOnly  bool     `json:"series_only"`
	Append      bool     `json:"append"`
	Dedupe      bool     `json:"dedupe"`
	Memoize     bool     `json:"memoize"`
	Rescan      bool     `json:"rescan"`
	BaseURL     string   `json:"base_url"`
	Timeout     Duration `json:"timeout"`
	Credentials string   `json:"credentials"`
}

// DefaultConfig returns the settings used when nothing else is specified.
func DefaultConfig() Config {
	return Config{
		Output:     DefaultOutput,
		FlushEvery: DefaultFlushEvery,
		Delimiter:  ",",
	}
}

// ParseJSONConfigFromPath reads a JSON config on top of DefaultConfig.
func ParseJSONConfigFromPath(path string) (Config, error) {
	out := DefaultConfig()
	out.ConfigPath = path

	f, err := os.Open(ExpandHome(path))
	if err != nil {
		return out, pfx.Err(err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&out); err != nil {
		if e, ok := err.(*json.SyntaxError); ok {
			log.Printf("syntax error at byte offset %d", e.Offset)
		}
		return out, pfx.Err(err)
	}

	// Interpret ~ if present
	out.Input = ExpandHome(out.Input)
	out.Output = ExpandHome(out.Output)
	out.Credentials = ExpandHome(out.Credentials)

	return out, nil
}

// Duration accepts either a Go duration string ("30s") or a number of seconds
// in JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return pfx.Err(fmt.Errorf("invalid duration %s", string(b)))
	}

	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
