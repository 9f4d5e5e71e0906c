// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package traits

import (
	"strings"

	"fieldscan.xyz/canopycover/metadata"
)

// Overrides holds the run argument values which can replace trait
// defaults. An empty string means the argument was not supplied.
type Overrides struct {
	Species        string
	GermplasmName  string
	CitationAuthor string
	CitationTitle  string
	CitationYear   string
}

// ApplyOverrides updates the traits with values from the loaded
// metadata and the run arguments. Metadata derived species are applied
// first, then explicit run arguments, so an argument always wins. A
// copy of the traits is returned; the input map is left untouched.
func ApplyOverrides(s Schema, traits map[string]Value, ov Overrides, md []metadata.Record) map[string]Value {
	updated := make(map[string]Value, len(traits))
	for k, v := range traits {
		updated[k] = v
	}

	for _, rec := range md {
		if rec.Species != "" {
			updated["species"] = String(rec.Species)
		}
		if rec.GermplasmName != "" {
			updated["species"] = String(rec.GermplasmName)
		}
	}

	if ov.Species != "" {
		updated["species"] = String(ov.Species)
	}
	if ov.GermplasmName != "" {
		updated["species"] = String(ov.GermplasmName)
	}
	if ov.CitationAuthor != "" && s.Has("citation_author") {
		updated["citation_author"] = String(ov.CitationAuthor)
	}
	if ov.CitationTitle != "" && s.Has("citation_title") {
		updated["citation_title"] = String(ov.CitationTitle)
	}
	if ov.CitationYear != "" && s.Has("citation_year") {
		updated["citation_year"] = String(ov.CitationYear)
	}

	return updated
}

// PlotSpecies finds the species associated with a plot name. The plot
// lists in the metadata are searched for an exact name match first,
// then a case insensitive one. Failing both, the priority is the run
// argument species, then a bare species entry from the metadata, then
// "Unknown".
func PlotSpecies(plotName string, md []metadata.Record, ov Overrides) string {
	var possible, optional string

	for _, rec := range md {
		if rec.Species != "" {
			optional = rec.Species
		}
		for _, plot := range rec.Plots {
			if plot.Name == plotName {
				if plot.Species != "" {
					return plot.Species
				}
			} else if strings.EqualFold(plot.Name, plotName) {
				if plot.Species != "" {
					possible = plot.Species
				}
			}
		}
	}

	if possible != "" {
		return possible
	}
	if ov.Species != "" {
		return ov.Species
	}
	if optional != "" {
		return optional
	}
	return "Unknown"
}
