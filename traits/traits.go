// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package traits builds the ordered trait tables that accompany each
// canopy cover measurement, and resolves their default values against
// run arguments and experiment metadata.
package traits

// Value is a single trait value. Most traits are plain strings; a few
// (canopy_cover, site) are array valued and hold zero or more entries.
type Value struct {
	Str  string
	List []string
}

// IsList reports whether the value is array valued.
func (v Value) IsList() bool {
	return v.List != nil
}

// Render returns the value as it is written into a CSV cell. An empty
// array valued trait renders as the empty string; array valued traits
// are always overwritten with a concrete value before a row is
// written, so in practice this is never visible in output.
func (v Value) Render() string {
	if v.List != nil {
		if len(v.List) == 0 {
			return ""
		}
		return v.List[0]
	}
	return v.Str
}

// String returns a plain string value.
func String(s string) Value {
	return Value{Str: s}
}

// Schema is an immutable description of the trait fields emitted for a
// particular deployment: the field order, which fields are array
// valued, and the constant defaults. Construct one with NewSchema or
// use one of the built in schemas.
type Schema struct {
	fields []string
	arrays map[string]bool
	consts map[string]string
}

// NewSchema builds a Schema from a field list, the names which are
// array valued, and a map of constant defaults. The inputs are copied
// so the schema cannot be changed afterwards.
func NewSchema(fields []string, arrayValued []string, defaults map[string]string) Schema {
	s := Schema{
		fields: make([]string, len(fields)),
		arrays: make(map[string]bool),
		consts: make(map[string]string),
	}
	copy(s.fields, fields)
	for _, n := range arrayValued {
		s.arrays[n] = true
	}
	for n, v := range defaults {
		s.consts[n] = v
	}
	return s
}

// BasicSchema returns the minimal trait schema used when measurements
// are kept alongside the scan data rather than submitted to BETYdb.
func BasicSchema() Schema {
	return NewSchema(
		[]string{"local_datetime", "canopy_cover", "species", "site", "method"},
		[]string{"canopy_cover", "site"},
		map[string]string{
			"species": "Unknown",
			"method":  "Green Canopy Cover Estimation from Field Scanner RGB images",
		})
}

// BETYdbSchema returns the extended trait schema for BETYdb uploads,
// which carries access and citation information in every row.
func BETYdbSchema() Schema {
	return NewSchema(
		[]string{"local_datetime", "canopy_cover", "access_level", "species", "site",
			"citation_author", "citation_year", "citation_title", "method"},
		[]string{"canopy_cover", "site"},
		map[string]string{
			"access_level":    "2",
			"species":         "Unknown",
			"citation_author": "Zongyang Li",
			"citation_year":   "2016",
			"citation_title":  "Maricopa Field Station Data and Metadata",
			"method":          "Green Canopy Cover Estimation from Field Scanner RGB images",
		})
}

// Fields returns the field names in their declared order.
func (s Schema) Fields() []string {
	f := make([]string, len(s.fields))
	copy(f, s.fields)
	return f
}

// Has reports whether the schema declares the named field.
func (s Schema) Has(name string) bool {
	for _, f := range s.fields {
		if f == name {
			return true
		}
	}
	return false
}

// Default returns the default value for a trait name: an empty list
// for array valued traits, the configured constant for mapped traits,
// and an empty string for anything else.
func (s Schema) Default(name string) Value {
	if s.arrays[name] {
		return Value{List: []string{}}
	}
	if v, ok := s.consts[name]; ok {
		return Value{Str: v}
	}
	return Value{}
}

// Table returns the field names and a map of every field to its
// default value.
func (s Schema) Table() ([]string, map[string]Value) {
	traits := make(map[string]Value, len(s.fields))
	for _, f := range s.fields {
		traits[f] = s.Default(f)
	}
	return s.Fields(), traits
}

// List returns the trait values in field order, rendered for CSV
// output. Fields missing from the map get their default value.
func (s Schema) List(traits map[string]Value) []string {
	row := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		v, ok := traits[f]
		if !ok {
			v = s.Default(f)
		}
		row = append(row, v.Render())
	}
	return row
}
