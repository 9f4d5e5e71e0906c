// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		doc     string
		records int
		species string
		plots   int
	}{
		{"list", `
- species: Sorghum
  plots:
    - name: Plot 1
      species: Wheat
    - name: Plot 2
- germplasmName: PI 656026
`, 2, "Sorghum", 2},
		{"single", `
species: Sorghum
germplasmName: PI 656026
`, 1, "Sorghum", 0},
		{"json", `[{"species": "Sorghum", "plots": [{"name": "Plot 1", "species": "Wheat"}]}]`, 1, "Sorghum", 1},
		{"empty", ``, 0, "", 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			records, err := Parse([]byte(c.doc))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(records) != c.records {
				t.Fatalf("got %d records, want %d", len(records), c.records)
			}
			if c.records == 0 {
				return
			}
			if records[0].Species != c.species {
				t.Errorf("species = %q, want %q", records[0].Species, c.species)
			}
			if len(records[0].Plots) != c.plots {
				t.Errorf("got %d plots, want %d", len(records[0].Plots), c.plots)
			}
		})
	}
}

func TestParseBad(t *testing.T) {
	if _, err := Parse([]byte("species: [unterminated")); err == nil {
		t.Error("Parse of malformed document should fail")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	err := os.WriteFile(path, []byte("species: Sorghum\n"), 0644)
	if err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	records, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 1 || records[0].Species != "Sorghum" {
		t.Errorf("unexpected records: %+v", records)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}
