// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package traits

import (
	"testing"
)

func TestDefaults(t *testing.T) {
	schemas := []struct {
		name   string
		schema Schema
	}{
		{"basic", BasicSchema()},
		{"betydb", BETYdbSchema()},
	}

	for _, s := range schemas {
		t.Run(s.name, func(t *testing.T) {
			for _, name := range []string{"canopy_cover", "site"} {
				v := s.schema.Default(name)
				if !v.IsList() {
					t.Errorf("Default(%q) should be array valued", name)
				}
				if len(v.List) != 0 {
					t.Errorf("Default(%q) should be empty, got %v", name, v.List)
				}
			}

			for _, name := range []string{"species", "method"} {
				v := s.schema.Default(name)
				if v.IsList() {
					t.Errorf("Default(%q) should not be array valued", name)
				}
				if v.Str == "" {
					t.Errorf("Default(%q) should have a constant value", name)
				}
			}

			if v := s.schema.Default("no_such_trait"); v.IsList() || v.Str != "" {
				t.Errorf("Default of unknown trait should be empty string, got %+v", v)
			}
		})
	}

	if BasicSchema().Has("citation_author") {
		t.Error("basic schema should not carry citation fields")
	}
	if !BETYdbSchema().Has("citation_author") {
		t.Error("betydb schema should carry citation fields")
	}
}

func TestList(t *testing.T) {
	s := BasicSchema()
	fields, vals := s.Table()

	vals["canopy_cover"] = String("99.8")
	vals["site"] = String("plot1")
	delete(vals, "method")

	row := s.List(vals)
	if len(row) != len(fields) {
		t.Fatalf("row length %d != field count %d", len(row), len(fields))
	}
	for i, f := range fields {
		var want string
		switch f {
		case "canopy_cover":
			want = "99.8"
		case "site":
			want = "plot1"
		default:
			want = s.Default(f).Render()
		}
		if row[i] != want {
			t.Errorf("row[%d] (%s) = %q, want %q", i, f, row[i], want)
		}
	}

	// a missing field gets its default back
	if row[4] != "Green Canopy Cover Estimation from Field Scanner RGB images" {
		t.Errorf("deleted method field should render its default, got %q", row[4])
	}
}

func TestSchemaImmutable(t *testing.T) {
	fields := []string{"a", "b"}
	s := NewSchema(fields, nil, map[string]string{"a": "one"})
	fields[0] = "changed"

	got := s.Fields()
	if got[0] != "a" {
		t.Errorf("schema fields changed after construction: %v", got)
	}
	got[0] = "changed"
	if s.Fields()[0] != "a" {
		t.Error("Fields() should return a copy")
	}
}
