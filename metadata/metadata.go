// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package metadata loads the experiment metadata bundle supplied by
// the hosting pipeline: a list of loosely structured records which may
// carry a species or germplasm name, and plot definitions.
package metadata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plot is a named ground truth area within an experiment.
type Plot struct {
	Name    string `yaml:"name" json:"name"`
	Species string `yaml:"species" json:"species"`
}

// Record is one entry in the metadata bundle. Every field is optional;
// an empty value means the field was absent from the source document.
type Record struct {
	Species       string `yaml:"species" json:"species"`
	GermplasmName string `yaml:"germplasmName" json:"germplasmName"`
	Plots         []Plot `yaml:"plots" json:"plots"`
}

// Load reads a metadata bundle from a YAML or JSON file. The document
// may be either a list of records or a single record.
func Load(path string) ([]Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes a metadata bundle from raw YAML or JSON bytes.
func Parse(b []byte) ([]Record, error) {
	var records []Record
	if err := yaml.Unmarshal(b, &records); err == nil {
		return records, nil
	}
	var one Record
	if err := yaml.Unmarshal(b, &one); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	return []Record{one}, nil
}
