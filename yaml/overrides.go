// Package yaml loads the override table from YAML documents using
// gopkg.in/yaml.v3.
package yaml

import (
	"bytes"
	_ "embed"
	"errors"
	"io"
	"time"

	"github.com/fwojciec/hansard"
	"gopkg.in/yaml.v3"
)

//go:embed overrides.yaml
var defaultOverrides []byte

type overrideFile struct {
	Overrides []overrideEntry `yaml:"overrides"`
}

type overrideEntry struct {
	Key  string `yaml:"key"`
	Skip string `yaml:"skip,omitempty"`
	Date string `yaml:"date,omitempty"`
}

// DefaultOverrides returns the curated override table shipped with the module.
func DefaultOverrides() hansard.OverrideTable {
	table, err := LoadOverrides(bytes.NewReader(defaultOverrides))
	if err != nil {
		panic("yaml: embedded overrides: " + err.Error())
	}
	return table
}

// LoadOverrides reads an override table. Each entry names a transcript key
// and exactly one of skip (a reason) or date (YYYY-MM-DD).
func LoadOverrides(r io.Reader) (hansard.OverrideTable, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f overrideFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, hansard.Errorf(hansard.EINVALID, "invalid override file: %v", err)
	}

	table := make(hansard.OverrideTable, len(f.Overrides))
	for i, e := range f.Overrides {
		if e.Key == "" {
			return nil, hansard.Errorf(hansard.EINVALID, "override %d: key required", i)
		}
		if _, ok := table[e.Key]; ok {
			return nil, hansard.Errorf(hansard.EINVALID, "override %q: duplicate key", e.Key)
		}

		switch {
		case e.Skip != "" && e.Date != "":
			return nil, hansard.Errorf(hansard.EINVALID, "override %q: skip and date are exclusive", e.Key)
		case e.Skip != "":
			table[e.Key] = hansard.Skip(e.Skip)
		case e.Date != "":
			if _, err := time.Parse(time.DateOnly, e.Date); err != nil {
				return nil, hansard.Errorf(hansard.EINVALID, "override %q: invalid date %q", e.Key, e.Date)
			}
			table[e.Key] = hansard.CorrectDate(e.Date)
		default:
			return nil, hansard.Errorf(hansard.EINVALID, "override %q: skip or date required", e.Key)
		}
	}
	return table, nil
}
